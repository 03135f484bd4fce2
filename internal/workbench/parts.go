package workbench

import (
	"sync"

	"github.com/google/uuid"

	"workbench/internal/saveable"
)

// Editor is a part editing a single document.
type Editor struct {
	id  string
	doc *Document
}

// NewEditor returns an editor part for doc.
func NewEditor(doc *Document) *Editor {
	return &Editor{id: uuid.NewString(), doc: doc}
}

func (e *Editor) ID() string          { return e.id }
func (e *Editor) Title() string       { return e.doc.Name() }
func (e *Editor) Document() *Document { return e.doc }
func (e *Editor) Saveables() []saveable.Saveable {
	return []saveable.Saveable{e.doc}
}

// View is a part presenting several documents, such as a compare view.
type View struct {
	id    string
	title string
	docs  []*Document
	focus *Document

	// OnClose, when set, answers the save-on-close question for the view.
	OnClose saveable.PromptResult
}

// NewView returns a view part over docs.
func NewView(title string, docs ...*Document) *View {
	return &View{id: uuid.NewString(), title: title, docs: docs}
}

func (v *View) ID() string    { return v.id }
func (v *View) Title() string { return v.title }

func (v *View) Saveables() []saveable.Saveable {
	out := make([]saveable.Saveable, len(v.docs))
	for i, d := range v.docs {
		out[i] = d
	}
	return out
}

// Focus selects the document the view works on. A document the view does
// not show clears the focus.
func (v *View) Focus(doc *Document) {
	v.focus = nil
	for _, d := range v.docs {
		if d == doc {
			v.focus = doc
		}
	}
}

// ActiveSaveables returns the focused document, or every document when
// nothing is focused.
func (v *View) ActiveSaveables() []saveable.Saveable {
	if v.focus != nil {
		return []saveable.Saveable{v.focus}
	}
	return v.Saveables()
}

// PromptToSaveOnClose returns OnClose.
func (v *View) PromptToSaveOnClose() saveable.PromptResult {
	return v.OnClose
}

// Indexer is a background source that keeps documents referenced without
// being a part. It never takes part in close prompting.
type Indexer struct {
	mu   sync.Mutex
	docs []saveable.Saveable
}

// Track adds doc to the indexer.
func (ix *Indexer) Track(doc *Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if saveable.IndexSame(ix.docs, doc) < 0 {
		ix.docs = append(ix.docs, doc)
	}
}

// Untrack removes doc from the indexer.
func (ix *Indexer) Untrack(doc *Document) {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	if i := saveable.IndexSame(ix.docs, doc); i >= 0 {
		ix.docs = append(ix.docs[:i], ix.docs[i+1:]...)
	}
}

func (ix *Indexer) Saveables() []saveable.Saveable {
	ix.mu.Lock()
	defer ix.mu.Unlock()
	return append([]saveable.Saveable(nil), ix.docs...)
}

var (
	_ saveable.Part         = (*Editor)(nil)
	_ saveable.SavePrompter = (*View)(nil)
	_ saveable.ActiveSource = (*View)(nil)
	_ saveable.Source       = (*Indexer)(nil)
)
