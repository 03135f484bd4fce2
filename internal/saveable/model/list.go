// Package model tracks which sources reference which saveables and turns
// source lifecycle events into model-level notifications and close-time
// save negotiation.
//
// A List is confined to a single goroutine. It performs no locking; hosts
// that receive events on several goroutines marshal them onto one, for
// example with package uiloop.
package model

import (
	"context"
	"errors"
	"fmt"

	"workbench/internal/saveable"
	"workbench/internal/saveable/negotiate"
	"workbench/internal/saveable/refcount"
	"workbench/pkg/logging"
)

const subsystem = "SaveablesList"

// Negotiator runs close-time save negotiation. *negotiate.Negotiator is the
// production implementation.
type Negotiator interface {
	Negotiate(ctx context.Context, req negotiate.Request) (negotiate.Outcome, error)
}

// List is the registry of open saveables.
type List struct {
	negotiator Negotiator

	sources  []saveable.Source
	models   map[saveable.Source][]saveable.Saveable
	counts   *refcount.Table
	nonParts []saveable.Source

	listeners []Listener
	warnings  int
}

// New returns an empty list negotiating closes with n. A nil n lets every
// close go ahead without prompting.
func New(n Negotiator) *List {
	return &List{
		negotiator: n,
		models:     make(map[saveable.Source][]saveable.Saveable),
		counts:     refcount.New(),
	}
}

// AddListener registers l. Listeners are notified in registration order.
func (l *List) AddListener(lis Listener) {
	l.listeners = append(l.listeners, lis)
}

// RemoveListener unregisters the first registration of lis.
func (l *List) RemoveListener(lis Listener) {
	for i, x := range l.listeners {
		if x == lis {
			l.listeners = append(l.listeners[:i], l.listeners[i+1:]...)
			return
		}
	}
}

// Subscribe registers fn as a listener and returns a function removing it.
func (l *List) Subscribe(fn func(ModelEvent)) (unsubscribe func()) {
	lis := &funcListener{fn: fn}
	l.AddListener(lis)
	return func() { l.RemoveListener(lis) }
}

// AddModel records that source owns s. It reports whether s was not
// referenced by any source before. Adding nil or adding a saveable the
// source already owns is logged and ignored.
func (l *List) AddModel(source saveable.Source, s saveable.Saveable) bool {
	if s == nil {
		l.warn("Ignored attempt to add a nil saveable")
		return false
	}
	owned := l.models[source]
	if saveable.IndexEquivalent(owned, s) >= 0 {
		l.warn("Ignored attempt to add saveable %q that was already registered", s.Name())
		return false
	}
	if owned == nil {
		l.sources = append(l.sources, source)
	}
	l.models[source] = append(owned, s)
	return l.counts.Increment(s)
}

// RemoveModel records that source no longer owns s. It reports whether that
// removed the last reference to s. Removing a saveable the source does not
// own is logged and ignored.
func (l *List) RemoveModel(source saveable.Source, s saveable.Saveable) bool {
	if s == nil {
		l.warn("Ignored attempt to remove a nil saveable")
		return false
	}
	owned := l.models[source]
	i := saveable.IndexEquivalent(owned, s)
	if i < 0 {
		l.warn("Ignored attempt to remove saveable %q when no such saveable is known", s.Name())
		return false
	}
	stored := owned[i]
	owned = append(owned[:i:i], owned[i+1:]...)
	if len(owned) == 0 {
		delete(l.models, source)
		l.removeSource(source)
	} else {
		l.models[source] = owned
	}
	return l.counts.Decrement(stored)
}

// IncrementRefCount and DecrementRefCount expose the raw counter. They do
// not touch source ownership.
func (l *List) IncrementRefCount(s saveable.Saveable) bool { return l.counts.Increment(s) }

func (l *List) DecrementRefCount(s saveable.Saveable) bool { return l.counts.Decrement(s) }

// Reconcile re-files s under the equality class it belongs to now. Call it
// after anything that changes what s compares equal to, such as a rename.
func (l *List) Reconcile(s saveable.Saveable) {
	if l.counts.Reconcile(s) {
		logging.Debug(subsystem, "Reconciled %s: %d references", s.Name(), l.counts.Count(s))
	}
}

// HandleLifecycleEvent processes ev and notifies listeners of the result.
// For a *PreClose it may prompt and save; a refused close is reported by
// ev.Vetoed(). A save failure is returned and also vetoes the close.
func (l *List) HandleLifecycleEvent(ctx context.Context, ev Event) error {
	source := ev.EventSource()
	if !saveable.IsPart(source) {
		l.UpdateNonPartSource(source, source.Saveables())
		if dc, ok := ev.(DirtyChanged); ok {
			l.fire(ModelEvent{Type: ModelDirtyChanged, Source: source, Saveables: dc.Saveables})
		}
		return nil
	}

	switch e := ev.(type) {
	case Opened:
		var opened []saveable.Saveable
		for _, s := range e.Saveables {
			if l.AddModel(e.Source, s) {
				opened = append(opened, s)
			}
		}
		if len(opened) > 0 {
			l.fire(ModelEvent{Type: ModelOpened, Source: e.Source, Saveables: opened})
		}
		return nil

	case *PreClose:
		closing, decrementing := l.closingModels(e.Saveables)
		req := negotiate.Request{
			Closing:      closing,
			Decrementing: decrementing,
			CanCancel:    !e.Force,
		}
		if p, ok := e.Source.(saveable.Part); ok {
			req.Parts = []saveable.Part{p}
		}
		cancelled, err := l.negotiate(ctx, req)
		if cancelled || err != nil {
			e.Veto()
		}
		return err

	case PostClose:
		l.postClose(e.Source, e.Saveables)
		return nil

	case DirtyChanged:
		l.fire(ModelEvent{Type: ModelDirtyChanged, Source: e.Source, Saveables: e.Saveables})
		return nil

	default:
		return fmt.Errorf("unhandled lifecycle event %T", ev)
	}
}

// UpdateNonPartSource records the current saveables of a source that is not
// a part. Sources without saveables are forgotten.
func (l *List) UpdateNonPartSource(source saveable.Source, items []saveable.Saveable) {
	i := indexSource(l.nonParts, source)
	switch {
	case len(items) == 0 && i >= 0:
		l.nonParts = append(l.nonParts[:i], l.nonParts[i+1:]...)
	case len(items) > 0 && i < 0:
		l.nonParts = append(l.nonParts, source)
	}
}

// RemoveNonPartSource forgets a source that is not a part.
func (l *List) RemoveNonPartSource(source saveable.Source) {
	l.UpdateNonPartSource(source, nil)
}

// NonPartSources returns the tracked non-part sources.
func (l *List) NonPartSources() []saveable.Source {
	return append([]saveable.Source(nil), l.nonParts...)
}

// OpenModels returns one instance per referenced equality class, oldest
// first.
func (l *List) OpenModels() []saveable.Saveable {
	return l.counts.Keys()
}

// RefCount returns the number of references to s's equality class.
func (l *List) RefCount(s saveable.Saveable) int {
	return l.counts.Count(s)
}

// SourcesFor returns the sources owning s or a saveable equal to it, in the
// order they first registered.
func (l *List) SourcesFor(s saveable.Saveable) []saveable.Source {
	var out []saveable.Source
	for _, src := range l.sources {
		if saveable.IndexEquivalent(l.models[src], s) >= 0 {
			out = append(out, src)
		}
	}
	return out
}

// SaveablesOf returns the saveables registered for source.
func (l *List) SaveablesOf(source saveable.Source) []saveable.Saveable {
	return append([]saveable.Saveable(nil), l.models[source]...)
}

// DirtySaveables returns every distinct dirty saveable held by a part or by
// a non-part source.
func (l *List) DirtySaveables() []saveable.Saveable {
	var out []saveable.Saveable
	add := func(s saveable.Saveable) {
		if s.IsDirty() && saveable.IndexEquivalent(out, s) < 0 {
			out = append(out, s)
		}
	}
	for _, src := range l.sources {
		for _, s := range l.models[src] {
			add(s)
		}
	}
	for _, src := range l.nonParts {
		for _, s := range src.Saveables() {
			add(s)
		}
	}
	return out
}

// IsDirty reports whether anything tracked is dirty.
func (l *List) IsDirty() bool {
	return len(l.DirtySaveables()) > 0
}

// DirtyParts returns the parts among parts that own a dirty saveable.
func (l *List) DirtyParts(parts []saveable.Part) []saveable.Part {
	var out []saveable.Part
	for _, p := range parts {
		if len(saveable.Dirty(l.models[p])) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Warnings returns how many misuse warnings were logged.
func (l *List) Warnings() int {
	return l.warnings
}

// Verify checks the internal consistency of the registry: the counter must
// match the number of (source, saveable) ownerships.
func (l *List) Verify() error {
	if err := l.counts.Verify(); err != nil {
		return err
	}
	owned := make(map[saveable.Saveable]int)
	total := 0
	for _, src := range l.sources {
		items := l.models[src]
		if len(items) == 0 {
			return fmt.Errorf("source with no saveables is still registered")
		}
		for _, s := range items {
			owned[s]++
			total++
		}
	}
	if len(l.sources) != len(l.models) {
		return fmt.Errorf("%d sources in order, %d in map", len(l.sources), len(l.models))
	}
	counted := 0
	for _, k := range l.counts.Keys() {
		counted += l.counts.Count(k)
	}
	if counted != total {
		return fmt.Errorf("counter holds %d references, sources own %d", counted, total)
	}
	for s, n := range owned {
		members := l.counts.EqualInstances(s)
		got := 0
		for _, m := range members {
			if m == s {
				got++
			}
		}
		if got != n {
			return fmt.Errorf("saveable %q owned %d times but counted %d times", s.Name(), n, got)
		}
	}
	return nil
}

func (l *List) postClose(source saveable.Source, items []saveable.Saveable) {
	var closed []saveable.Saveable
	for _, s := range items {
		if l.RemoveModel(source, s) {
			closed = append(closed, s)
		}
	}
	if len(closed) > 0 {
		l.fire(ModelEvent{Type: ModelClosed, Source: source, Saveables: closed})
	}
}

// closingModels tallies how often each saveable is released by items and
// returns the saveables whose tally reaches their reference count, and all
// distinct released saveables.
func (l *List) closingModels(items []saveable.Saveable) (closing, decrementing []saveable.Saveable) {
	tally := refcount.New()
	for _, s := range items {
		if s == nil {
			continue
		}
		tally.Increment(s)
	}
	for _, s := range tally.Keys() {
		decrementing = append(decrementing, s)
		if global := l.counts.Count(s); global > 0 && tally.Count(s) >= global {
			closing = append(closing, s)
		}
	}
	return closing, decrementing
}

func (l *List) negotiate(ctx context.Context, req negotiate.Request) (bool, error) {
	if l.negotiator == nil {
		return false, nil
	}
	out, err := l.negotiator.Negotiate(ctx, req)
	if err != nil {
		var saveErr *negotiate.SaveError
		if errors.As(err, &saveErr) {
			logging.Error(subsystem, err, "Close refused after failed save")
		}
		return false, err
	}
	return out.Cancelled, nil
}

func (l *List) fire(ev ModelEvent) {
	listeners := append([]Listener(nil), l.listeners...)
	for _, lis := range listeners {
		lis.ModelChanged(ev)
	}
}

func (l *List) warn(format string, args ...interface{}) {
	l.warnings++
	logging.Warn(subsystem, format, args...)
}

func (l *List) removeSource(source saveable.Source) {
	if i := indexSource(l.sources, source); i >= 0 {
		l.sources = append(l.sources[:i], l.sources[i+1:]...)
	}
}

func indexSource(list []saveable.Source, source saveable.Source) int {
	for i, s := range list {
		if s == source {
			return i
		}
	}
	return -1
}
