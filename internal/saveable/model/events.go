package model

import (
	"fmt"

	"workbench/internal/saveable"
)

// Event is a lifecycle notification from a source. The concrete types are
// Opened, *PreClose, PostClose and DirtyChanged; no other type implements
// Event.
type Event interface {
	EventSource() saveable.Source
	EventSaveables() []saveable.Saveable
	lifecycleEvent()
}

// Opened reports that the source now holds Saveables.
type Opened struct {
	Source    saveable.Source
	Saveables []saveable.Saveable
}

// PreClose asks whether the source may close. Handling it may prompt the
// user and save; if the close must not go ahead the event is vetoed.
type PreClose struct {
	Source    saveable.Source
	Saveables []saveable.Saveable
	// Force disallows cancellation.
	Force bool

	vetoed bool
}

// Veto marks the close as refused.
func (e *PreClose) Veto() { e.vetoed = true }

// Vetoed reports whether the close was refused.
func (e *PreClose) Vetoed() bool { return e.vetoed }

// PostClose reports that the source closed and released Saveables.
type PostClose struct {
	Source    saveable.Source
	Saveables []saveable.Saveable
}

// DirtyChanged reports that the dirty state of Saveables changed.
type DirtyChanged struct {
	Source    saveable.Source
	Saveables []saveable.Saveable
}

func (e Opened) EventSource() saveable.Source       { return e.Source }
func (e *PreClose) EventSource() saveable.Source    { return e.Source }
func (e PostClose) EventSource() saveable.Source    { return e.Source }
func (e DirtyChanged) EventSource() saveable.Source { return e.Source }

func (e Opened) EventSaveables() []saveable.Saveable       { return e.Saveables }
func (e *PreClose) EventSaveables() []saveable.Saveable    { return e.Saveables }
func (e PostClose) EventSaveables() []saveable.Saveable    { return e.Saveables }
func (e DirtyChanged) EventSaveables() []saveable.Saveable { return e.Saveables }

func (Opened) lifecycleEvent()       {}
func (*PreClose) lifecycleEvent()    {}
func (PostClose) lifecycleEvent()    {}
func (DirtyChanged) lifecycleEvent() {}

// ModelEventType classifies model-level notifications.
type ModelEventType int

const (
	// ModelOpened: the saveables were referenced for the first time.
	ModelOpened ModelEventType = iota
	// ModelClosed: the last reference to the saveables went away.
	ModelClosed
	// ModelDirtyChanged: forwarded dirty state change.
	ModelDirtyChanged
)

func (t ModelEventType) String() string {
	switch t {
	case ModelOpened:
		return "opened"
	case ModelClosed:
		return "closed"
	case ModelDirtyChanged:
		return "dirty-changed"
	default:
		return fmt.Sprintf("ModelEventType(%d)", int(t))
	}
}

// ModelEvent is broadcast to listeners after an event was fully processed.
type ModelEvent struct {
	Type      ModelEventType
	Source    saveable.Source
	Saveables []saveable.Saveable
}

// Listener receives model events. Listeners are compared by identity, so
// implementations should be pointers.
type Listener interface {
	ModelChanged(ModelEvent)
}

type funcListener struct {
	fn func(ModelEvent)
}

func (l *funcListener) ModelChanged(ev ModelEvent) { l.fn(ev) }
