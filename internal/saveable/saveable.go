// Package saveable defines the data model shared by the saveable lifecycle
// packages: saveables, the sources that own them, and parts.
//
// A Saveable is a logical editable unit, typically a document. Several parts
// may present the same saveable; the model in package saveable/model counts
// how many sources reference each one and negotiates saving when the last
// reference goes away.
//
// Two notions of sameness apply to saveables. Identity is Go interface
// comparison, so implementations must be comparable and are expected to be
// pointer types. Equality is whatever Equal reports and may change over the
// lifetime of an instance (for example when a document is renamed).
package saveable

import (
	"context"

	"workbench/internal/progress"
)

// Saveable is a unit of content that can be saved.
type Saveable interface {
	// Name is a short human readable name, used in prompts.
	Name() string
	// ToolTip is a longer description, such as a full path.
	ToolTip() string
	// IsDirty reports whether the saveable has unsaved changes.
	IsDirty() bool
	// Save persists the content. It must poll mon for cancellation and
	// return the monitor's context error when it stops early.
	Save(ctx context.Context, mon *progress.Monitor) error
	// Equal reports whether other represents the same logical content.
	Equal(other Saveable) bool
}

// Source owns zero or more saveables.
type Source interface {
	Saveables() []Saveable
}

// ActiveSource is a source that can narrow its saveables down to the ones
// relevant for its current selection.
type ActiveSource interface {
	Source
	ActiveSaveables() []Saveable
}

// Part is a source that is presented in the user interface and can be
// closed. Sources that are not parts never take part in close prompting.
type Part interface {
	Source
	ID() string
	Title() string
}

// PromptResult is a part's own answer to the save-on-close question.
type PromptResult int

const (
	// PromptDefault asks the caller to use the standard prompt.
	PromptDefault PromptResult = iota
	PromptYes
	PromptNo
	PromptCancel
)

func (r PromptResult) String() string {
	switch r {
	case PromptDefault:
		return "default"
	case PromptYes:
		return "yes"
	case PromptNo:
		return "no"
	case PromptCancel:
		return "cancel"
	default:
		return "unknown"
	}
}

// SavePrompter is implemented by parts that want to ask the save-on-close
// question themselves.
type SavePrompter interface {
	Part
	PromptToSaveOnClose() PromptResult
}

// IsPart reports whether source is a part.
func IsPart(source Source) bool {
	_, ok := source.(Part)
	return ok
}

// Same reports whether a and b are the same instance.
func Same(a, b Saveable) bool {
	return a == b
}

// Equivalent reports whether a and b are the same instance or equal.
func Equivalent(a, b Saveable) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return a.Equal(b)
}

// IndexSame returns the index of the first element of list that is the same
// instance as s, or -1.
func IndexSame(list []Saveable, s Saveable) int {
	for i, e := range list {
		if e == s {
			return i
		}
	}
	return -1
}

// IndexEquivalent returns the index of the first element of list that is
// the same instance as s or, failing that, the first element equal to it.
func IndexEquivalent(list []Saveable, s Saveable) int {
	if i := IndexSame(list, s); i >= 0 {
		return i
	}
	for i, e := range list {
		if Equivalent(e, s) {
			return i
		}
	}
	return -1
}

// Dirty filters list down to its dirty saveables, preserving order.
func Dirty(list []Saveable) []Saveable {
	var out []Saveable
	for _, s := range list {
		if s.IsDirty() {
			out = append(out, s)
		}
	}
	return out
}

// Names returns the names of the saveables in order.
func Names(list []Saveable) []string {
	names := make([]string, len(list))
	for i, s := range list {
		names[i] = s.Name()
	}
	return names
}
