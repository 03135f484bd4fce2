// Package workbench hosts parts over file-backed documents and drives the
// saveables registry through their lifecycle.
//
// The registry is owned by a uiloop.Loop; every method submits its work to
// the loop, so a Workbench may be used from any goroutine.
package workbench

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"workbench/internal/saveable"
	"workbench/internal/saveable/model"
	"workbench/internal/saveable/negotiate"
	"workbench/internal/uiloop"
	"workbench/pkg/logging"
)

const subsystem = "Workbench"

// Workbench is a set of open parts.
type Workbench struct {
	loop       *uiloop.Loop
	list       *model.List
	negotiator *negotiate.Negotiator
	parts      []saveable.Part
}

// New returns a workbench whose registry negotiates closes with n.
func New(loop *uiloop.Loop, n *negotiate.Negotiator) *Workbench {
	w := &Workbench{loop: loop, negotiator: n}
	if n != nil {
		w.list = model.New(n)
	} else {
		w.list = model.New(nil)
	}
	return w
}

// Subscribe registers fn for model events. fn runs on the loop goroutine.
// The returned func stops delivery at once and may be called from any
// goroutine, fn itself included.
func (w *Workbench) Subscribe(ctx context.Context, fn func(model.ModelEvent)) (func(), error) {
	var stopped atomic.Bool
	var unsubscribe func()
	err := w.loop.Do(ctx, func() error {
		unsubscribe = w.list.Subscribe(func(ev model.ModelEvent) {
			if !stopped.Load() {
				fn(ev)
			}
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return func() {
		if stopped.Swap(true) {
			return
		}
		// The listener is dropped later on the loop. Blocking here would
		// deadlock when fn unsubscribes itself.
		if err := w.loop.TryPost(unsubscribe); errors.Is(err, uiloop.ErrBusy) {
			go func() { _ = w.loop.Post(unsubscribe) }()
		}
	}, nil
}

// Open adds part to the workbench.
func (w *Workbench) Open(ctx context.Context, part saveable.Part) error {
	return w.loop.Do(ctx, func() error {
		for _, p := range w.parts {
			if p == part {
				return fmt.Errorf("part %s is already open", part.Title())
			}
		}
		w.parts = append(w.parts, part)
		logging.Debug(subsystem, "Opening part %s (%s)", part.Title(), part.ID())
		return w.list.HandleLifecycleEvent(ctx, model.Opened{Source: part, Saveables: part.Saveables()})
	})
}

// Attach registers a source that is not a part.
func (w *Workbench) Attach(ctx context.Context, source saveable.Source) error {
	return w.loop.Do(ctx, func() error {
		return w.list.HandleLifecycleEvent(ctx, model.Opened{Source: source, Saveables: source.Saveables()})
	})
}

// Refresh re-reads a non-part source's saveables, forgetting it when it has
// none left.
func (w *Workbench) Refresh(ctx context.Context, source saveable.Source) error {
	return w.loop.Do(ctx, func() error {
		return w.list.HandleLifecycleEvent(ctx, model.DirtyChanged{Source: source, Saveables: source.Saveables()})
	})
}

// ClosePart closes a single part through pre-close and post-close events.
// It reports false when the close was refused.
func (w *Workbench) ClosePart(ctx context.Context, part saveable.Part, force bool) (bool, error) {
	var closed bool
	err := w.loop.Do(ctx, func() error {
		if indexPart(w.parts, part) < 0 {
			return fmt.Errorf("part %s is not open", part.Title())
		}
		items := w.list.SaveablesOf(part)
		pre := &model.PreClose{Source: part, Saveables: items, Force: force}
		if err := w.list.HandleLifecycleEvent(ctx, pre); err != nil {
			return err
		}
		if pre.Vetoed() {
			logging.Info(subsystem, "Close of %s was vetoed", part.Title())
			return nil
		}
		w.removePart(part)
		closed = true
		return w.list.HandleLifecycleEvent(ctx, model.PostClose{Source: part, Saveables: items})
	})
	return closed, err
}

// Close closes several parts as one batch. With save set, the user is asked
// about dirty documents. It reports false when the close was cancelled.
func (w *Workbench) Close(ctx context.Context, parts []saveable.Part, save, force bool) (bool, error) {
	var closed bool
	err := w.loop.Do(ctx, func() error {
		for _, p := range parts {
			if indexPart(w.parts, p) < 0 {
				return fmt.Errorf("part %s is not open", p.Title())
			}
		}
		info, err := w.list.PreCloseParts(ctx, parts, save, force)
		if err != nil {
			return err
		}
		if info == nil {
			logging.Info(subsystem, "Closing %d parts was cancelled", len(parts))
			return nil
		}
		for _, p := range info.PartsClosing {
			w.removePart(p)
		}
		w.list.PostClose(info)
		closed = true
		return nil
	})
	return closed, err
}

// CloseAll closes every open part.
func (w *Workbench) CloseAll(ctx context.Context, save, force bool) (bool, error) {
	parts, err := w.Parts(ctx)
	if err != nil {
		return false, err
	}
	if len(parts) == 0 {
		return true, nil
	}
	return w.Close(ctx, parts, save, force)
}

// Edit replaces doc's text and notifies the parts showing it.
func (w *Workbench) Edit(ctx context.Context, doc *Document, text string) error {
	return w.loop.Do(ctx, func() error {
		if !doc.SetText(text) {
			return nil
		}
		return w.dirtyChanged(ctx, doc)
	})
}

// Rename moves doc to a new path. Its registrations stay, but they are
// counted with the documents open at the new path from then on.
func (w *Workbench) Rename(ctx context.Context, doc *Document, path string) error {
	return w.loop.Do(ctx, func() error {
		if err := doc.Rename(path); err != nil {
			return err
		}
		w.list.Reconcile(doc)
		return w.dirtyChanged(ctx, doc)
	})
}

// SaveAll saves every dirty document without prompting.
func (w *Workbench) SaveAll(ctx context.Context) (negotiate.Outcome, error) {
	var out negotiate.Outcome
	err := w.loop.Do(ctx, func() error {
		dirty := w.list.DirtySaveables()
		if len(dirty) == 0 || w.negotiator == nil {
			return nil
		}
		var err error
		out, err = w.negotiator.SaveTask(ctx, dirty).Wait()
		if err != nil {
			return err
		}
		for _, s := range out.Saved {
			if err := w.dirtyChanged(ctx, s); err != nil {
				return err
			}
		}
		return nil
	})
	return out, err
}

// Focus sets the focused document of view on the loop.
func (w *Workbench) Focus(ctx context.Context, view *View, doc *Document) error {
	return w.loop.Do(ctx, func() error {
		view.Focus(doc)
		return nil
	})
}

// SavePart saves the dirty documents of part without prompting. Parts that
// narrow their selection only save the active documents.
func (w *Workbench) SavePart(ctx context.Context, part saveable.Part) (negotiate.Outcome, error) {
	var out negotiate.Outcome
	err := w.loop.Do(ctx, func() error {
		if indexPart(w.parts, part) < 0 {
			return fmt.Errorf("part %s is not open", part.Title())
		}
		items := part.Saveables()
		if active, ok := part.(saveable.ActiveSource); ok {
			items = active.ActiveSaveables()
		}
		dirty := saveable.Dirty(items)
		if len(dirty) == 0 || w.negotiator == nil {
			return nil
		}
		var err error
		out, err = w.negotiator.SaveTask(ctx, dirty).Wait()
		for _, s := range out.Saved {
			if derr := w.dirtyChanged(ctx, s); derr != nil && err == nil {
				err = derr
			}
		}
		return err
	})
	return out, err
}

// Parts returns the open parts in opening order.
func (w *Workbench) Parts(ctx context.Context) ([]saveable.Part, error) {
	var parts []saveable.Part
	err := w.loop.Do(ctx, func() error {
		parts = append(parts, w.parts...)
		return nil
	})
	return parts, err
}

// Documents returns one instance per open document.
func (w *Workbench) Documents(ctx context.Context) ([]saveable.Saveable, error) {
	var docs []saveable.Saveable
	err := w.loop.Do(ctx, func() error {
		docs = w.list.OpenModels()
		return nil
	})
	return docs, err
}

// Status describes one open document.
type Status struct {
	Name     string
	Path     string
	Dirty    bool
	RefCount int
	Sources  int
}

// Status lists the open documents with their reference counts.
func (w *Workbench) Status(ctx context.Context) ([]Status, error) {
	var out []Status
	err := w.loop.Do(ctx, func() error {
		for _, s := range w.list.OpenModels() {
			out = append(out, Status{
				Name:     s.Name(),
				Path:     s.ToolTip(),
				Dirty:    s.IsDirty(),
				RefCount: w.list.RefCount(s),
				Sources:  len(w.list.SourcesFor(s)),
			})
		}
		return w.list.Verify()
	})
	return out, err
}

// RefCount returns the number of parts referencing doc.
func (w *Workbench) RefCount(ctx context.Context, doc saveable.Saveable) (int, error) {
	var n int
	err := w.loop.Do(ctx, func() error {
		n = w.list.RefCount(doc)
		return nil
	})
	return n, err
}

func (w *Workbench) dirtyChanged(ctx context.Context, s saveable.Saveable) error {
	for _, src := range w.list.SourcesFor(s) {
		ev := model.DirtyChanged{Source: src, Saveables: []saveable.Saveable{s}}
		if err := w.list.HandleLifecycleEvent(ctx, ev); err != nil {
			return err
		}
	}
	return nil
}

func (w *Workbench) removePart(part saveable.Part) {
	if i := indexPart(w.parts, part); i >= 0 {
		w.parts = append(w.parts[:i], w.parts[i+1:]...)
	}
}

func indexPart(list []saveable.Part, p saveable.Part) int {
	for i, x := range list {
		if x == p {
			return i
		}
	}
	return -1
}
