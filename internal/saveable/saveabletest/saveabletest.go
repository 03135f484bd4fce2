// Package saveabletest provides in-memory saveables, sources and parts for
// tests.
package saveabletest

import (
	"context"
	"sync"

	"workbench/internal/progress"
	"workbench/internal/saveable"
)

// Saveable is an in-memory saveable whose equality is decided by a mutable
// key.
type Saveable struct {
	mu        sync.Mutex
	key       string
	dirty     bool
	saves     int
	saveErr   error
	alsoSaves []*Saveable
}

// New returns a clean saveable with the given key.
func New(key string) *Saveable {
	return &Saveable{key: key}
}

// NewDirty returns a dirty saveable with the given key.
func NewDirty(key string) *Saveable {
	return &Saveable{key: key, dirty: true}
}

func (s *Saveable) Name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.key
}

func (s *Saveable) ToolTip() string { return "mem:" + s.Name() }

func (s *Saveable) IsDirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// SetDirty changes the dirty flag.
func (s *Saveable) SetDirty(dirty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty = dirty
}

// SetKey changes what the saveable is equal to.
func (s *Saveable) SetKey(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.key = key
}

// FailWith makes subsequent saves return err.
func (s *Saveable) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saveErr = err
}

// AlsoSaves makes a save of s clean the given saveables too.
func (s *Saveable) AlsoSaves(others ...*Saveable) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.alsoSaves = append(s.alsoSaves, others...)
}

// Saves returns how often Save succeeded.
func (s *Saveable) Saves() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.saves
}

func (s *Saveable) Save(ctx context.Context, mon *progress.Monitor) error {
	mon.Begin("Saving "+s.Name(), 1)
	defer mon.Done()
	if err := ctx.Err(); err != nil {
		return err
	}
	if mon.Cancelled() {
		return mon.Context().Err()
	}

	s.mu.Lock()
	if s.saveErr != nil {
		err := s.saveErr
		s.mu.Unlock()
		return err
	}
	s.dirty = false
	s.saves++
	others := s.alsoSaves
	s.mu.Unlock()

	for _, o := range others {
		o.SetDirty(false)
	}
	mon.Worked(1)
	return nil
}

func (s *Saveable) Equal(other saveable.Saveable) bool {
	o, ok := other.(*Saveable)
	if !ok {
		return false
	}
	return o.Name() == s.Name()
}

// Source is a plain source that is not a part.
type Source struct {
	Items []saveable.Saveable
}

func (s *Source) Saveables() []saveable.Saveable { return s.Items }

// Part is a part owning a fixed list of saveables.
type Part struct {
	Name   string
	Items  []saveable.Saveable
	Answer saveable.PromptResult
}

// NewPart returns a part with the given name and saveables.
func NewPart(name string, items ...saveable.Saveable) *Part {
	return &Part{Name: name, Items: items}
}

func (p *Part) ID() string                     { return p.Name }
func (p *Part) Title() string                  { return p.Name }
func (p *Part) Saveables() []saveable.Saveable { return p.Items }

// PromptingPart is a part that answers the save-on-close question itself.
type PromptingPart struct {
	*Part
}

func (p PromptingPart) PromptToSaveOnClose() saveable.PromptResult { return p.Answer }
