package workbench

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"workbench/internal/progress"
	"workbench/internal/saveable"
)

// Document is a text file held in memory. Two documents are equal when they
// refer to the same path; renaming a document changes what it is equal to.
type Document struct {
	mu      sync.Mutex
	path    string
	content string
	dirty   bool
}

// OpenDocument loads the file at path. A missing file yields an empty,
// clean document that creates the file on first save.
func OpenDocument(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", path, err)
	}
	data, err := os.ReadFile(abs)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", abs, err)
	}
	return &Document{path: abs, content: string(data)}, nil
}

func (d *Document) Name() string {
	return filepath.Base(d.Path())
}

func (d *Document) ToolTip() string {
	return d.Path()
}

// Path returns the absolute file path.
func (d *Document) Path() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.path
}

// Text returns the in-memory content.
func (d *Document) Text() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.content
}

func (d *Document) IsDirty() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.dirty
}

// SetText replaces the content and marks the document dirty. It reports
// whether the dirty state changed.
func (d *Document) SetText(text string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.content = text
	was := d.dirty
	d.dirty = true
	return !was
}

// Revert drops unsaved changes by reloading the file.
func (d *Document) Revert() error {
	path := d.Path()
	data, err := os.ReadFile(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	d.mu.Lock()
	d.content = string(data)
	d.dirty = false
	d.mu.Unlock()
	return nil
}

// Rename points the document at a new path. The content becomes dirty since
// it was never written there.
func (d *Document) Rename(path string) error {
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolving %s: %w", path, err)
	}
	d.mu.Lock()
	defer d.mu.Unlock()
	d.path = abs
	d.dirty = true
	return nil
}

// Save writes the content through a temporary file in the same directory.
func (d *Document) Save(ctx context.Context, mon *progress.Monitor) error {
	d.mu.Lock()
	path, content := d.path, d.content
	d.mu.Unlock()

	mon.Begin("Saving "+filepath.Base(path), 3)
	defer mon.Done()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating directory for %s: %w", path, err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("creating temporary file for %s: %w", path, err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	mon.Worked(1)

	if err := ctx.Err(); err != nil {
		return err
	}
	if mon.Cancelled() {
		return mon.Context().Err()
	}
	mon.Worked(1)

	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("replacing %s: %w", path, err)
	}

	d.mu.Lock()
	if d.path == path && d.content == content {
		d.dirty = false
	}
	d.mu.Unlock()
	mon.Worked(1)
	return nil
}

func (d *Document) Equal(other saveable.Saveable) bool {
	o, ok := other.(*Document)
	if !ok {
		return false
	}
	return o.Path() == d.Path()
}

var _ saveable.Saveable = (*Document)(nil)
