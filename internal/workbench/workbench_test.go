package workbench

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"workbench/internal/preferences"
	"workbench/internal/progress"
	"workbench/internal/prompt"
	"workbench/internal/saveable"
	"workbench/internal/saveable/model"
	"workbench/internal/saveable/negotiate"
	"workbench/internal/uiloop"
)

type fixture struct {
	wb     *Workbench
	prompt *prompt.Scripted
	prefs  *preferences.MemoryStore
	dir    string
}

func newFixture(t *testing.T, answers ...prompt.Answer) *fixture {
	t.Helper()
	loop := uiloop.New(8)
	t.Cleanup(loop.Close)
	p := prompt.NewScripted(answers...)
	prefs := preferences.NewMemory()
	return &fixture{
		wb:     New(loop, negotiate.New(p, prefs)),
		prompt: p,
		prefs:  prefs,
		dir:    t.TempDir(),
	}
}

func (f *fixture) doc(t *testing.T, name, content string) *Document {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if content != "" {
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	d, err := OpenDocument(path)
	require.NoError(t, err)
	return d
}

func readFile(t *testing.T, path string) string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	return string(data)
}

func TestDocument_SaveAndEquality(t *testing.T) {
	f := newFixture(t)
	d := f.doc(t, "a.txt", "hello")
	assert.Equal(t, "hello", d.Text())
	assert.Equal(t, "a.txt", d.Name())
	assert.False(t, d.IsDirty())

	same, err := OpenDocument(filepath.Join(f.dir, ".", "a.txt"))
	require.NoError(t, err)
	assert.True(t, d.Equal(same))

	assert.True(t, d.SetText("bye"))
	assert.False(t, d.SetText("bye again"), "already dirty")
	require.NoError(t, d.Save(context.Background(), progress.New(context.Background(), nil)))
	assert.False(t, d.IsDirty())
	assert.Equal(t, "bye again", readFile(t, d.Path()))

	require.NoError(t, d.Rename(filepath.Join(f.dir, "sub", "b.txt")))
	assert.False(t, d.Equal(same), "rename changes equality")
	assert.True(t, d.IsDirty())
	require.NoError(t, d.Save(context.Background(), nil))
	assert.Equal(t, "bye again", readFile(t, filepath.Join(f.dir, "sub", "b.txt")))
}

func TestDocument_Revert(t *testing.T) {
	f := newFixture(t)
	d := f.doc(t, "a.txt", "disk")
	d.SetText("memory")
	require.NoError(t, d.Revert())
	assert.Equal(t, "disk", d.Text())
	assert.False(t, d.IsDirty())
}

func TestDocument_SaveCancelled(t *testing.T) {
	f := newFixture(t)
	d := f.doc(t, "a.txt", "disk")
	d.SetText("memory")

	mon := progress.New(context.Background(), nil)
	mon.Cancel()
	err := d.Save(mon.Context(), mon)
	assert.ErrorIs(t, err, context.Canceled)
	assert.True(t, d.IsDirty())
	assert.Equal(t, "disk", readFile(t, d.Path()))
}

func TestWorkbench_SharedDocument(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.SaveAll})
	d := f.doc(t, "shared.txt", "v1")
	e1, e2 := NewEditor(d), NewEditor(d)

	var events []model.ModelEventType
	unsubscribe, err := f.wb.Subscribe(ctx, func(ev model.ModelEvent) { events = append(events, ev.Type) })
	require.NoError(t, err)
	defer unsubscribe()

	require.NoError(t, f.wb.Open(ctx, e1))
	require.NoError(t, f.wb.Open(ctx, e2))
	assert.Error(t, f.wb.Open(ctx, e2), "already open")
	n, err := f.wb.RefCount(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.NoError(t, f.wb.Edit(ctx, d, "v2"))

	closed, err := f.wb.ClosePart(ctx, e1, false)
	require.NoError(t, err)
	assert.True(t, closed)
	reqs := f.prompt.Requests()
	require.Len(t, reqs, 1)
	assert.True(t, reqs[0].StillOpenElsewhere)
	assert.Equal(t, "v2", readFile(t, d.Path()), "user chose to save while still open")

	n, err = f.wb.RefCount(ctx, d)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	closed, err = f.wb.ClosePart(ctx, e2, false)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Len(t, f.prompt.Requests(), 1, "document is clean now")

	parts, err := f.wb.Parts(ctx)
	require.NoError(t, err)
	assert.Empty(t, parts)
	assert.Equal(t, []model.ModelEventType{model.ModelOpened, model.ModelDirtyChanged, model.ModelDirtyChanged, model.ModelClosed}, events)
}

func TestWorkbench_ClosePartVetoed(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.Cancel})
	d := f.doc(t, "a.txt", "v1")
	e := NewEditor(d)
	require.NoError(t, f.wb.Open(ctx, e))
	require.NoError(t, f.wb.Edit(ctx, d, "v2"))

	closed, err := f.wb.ClosePart(ctx, e, false)
	require.NoError(t, err)
	assert.False(t, closed)
	parts, err := f.wb.Parts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []saveable.Part{e}, parts)
	assert.Equal(t, "v1", readFile(t, d.Path()))

	_, err = f.wb.ClosePart(ctx, NewEditor(d), false)
	assert.Error(t, err, "part is not open")
}

func TestWorkbench_BatchClose(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.SaveSubset, Names: []string{"b.txt"}})
	a := f.doc(t, "a.txt", "a1")
	b := f.doc(t, "b.txt", "b1")
	view := NewView("compare", a, b)
	editor := NewEditor(b)
	require.NoError(t, f.wb.Open(ctx, view))
	require.NoError(t, f.wb.Open(ctx, editor))
	require.NoError(t, f.wb.Edit(ctx, a, "a2"))
	require.NoError(t, f.wb.Edit(ctx, b, "b2"))

	closed, err := f.wb.Close(ctx, []saveable.Part{view, editor}, true, false)
	require.NoError(t, err)
	assert.True(t, closed)

	reqs := f.prompt.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, []string{"a.txt", "b.txt"}, saveable.Names(reqs[0].Saveables))
	assert.Equal(t, "a1", readFile(t, a.Path()))
	assert.Equal(t, "b2", readFile(t, b.Path()))

	docs, err := f.wb.Documents(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestWorkbench_ViewAnswersForItself(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.doc(t, "a.txt", "a1")
	view := NewView("preview", a)
	view.OnClose = saveable.PromptYes
	require.NoError(t, f.wb.Open(ctx, view))
	require.NoError(t, f.wb.Edit(ctx, a, "a2"))

	closed, err := f.wb.CloseAll(ctx, true, false)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Empty(t, f.prompt.Requests())
	assert.Equal(t, "a2", readFile(t, a.Path()))
}

func TestWorkbench_RenameKeepsRegistration(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.SaveNone})
	a := f.doc(t, "a.txt", "a1")
	again, err := OpenDocument(a.Path())
	require.NoError(t, err)
	e1, e2 := NewEditor(a), NewEditor(again)
	require.NoError(t, f.wb.Open(ctx, e1))
	require.NoError(t, f.wb.Open(ctx, e2))

	n, err := f.wb.RefCount(ctx, a)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "equal documents share one count")

	require.NoError(t, f.wb.Rename(ctx, a, filepath.Join(f.dir, "renamed.txt")))
	closed, err := f.wb.ClosePart(ctx, e1, false)
	require.NoError(t, err)
	assert.True(t, closed)

	status, err := f.wb.Status(ctx)
	require.NoError(t, err)
	require.Len(t, status, 1)
	assert.Equal(t, "a.txt", status[0].Name)
	assert.Equal(t, 1, status[0].RefCount)
}

func TestWorkbench_RenameSplitsFromOldPath(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.SaveAll})
	require.NoError(t, preferences.SetBool(f.prefs, preferences.PromptWhenStillOpen, false))

	again := f.doc(t, "a.txt", "a1")
	a, err := OpenDocument(again.Path())
	require.NoError(t, err)
	e1, e2 := NewEditor(a), NewEditor(again)
	require.NoError(t, f.wb.Open(ctx, e2))
	require.NoError(t, f.wb.Open(ctx, e1))

	require.NoError(t, f.wb.Rename(ctx, a, filepath.Join(f.dir, "renamed.txt")))
	c := f.doc(t, "renamed.txt", "")
	e3 := NewEditor(c)
	require.NoError(t, f.wb.Open(ctx, e3))

	n, err := f.wb.RefCount(ctx, again)
	require.NoError(t, err)
	assert.Equal(t, 1, n, "only e2 still holds a.txt")
	n, err = f.wb.RefCount(ctx, c)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "c is counted with the renamed document")

	require.NoError(t, f.wb.Edit(ctx, again, "a2"))
	closed, err := f.wb.ClosePart(ctx, e2, false)
	require.NoError(t, err)
	assert.True(t, closed)

	reqs := f.prompt.Requests()
	require.Len(t, reqs, 1, "closing the last holder of a.txt must prompt")
	assert.False(t, reqs[0].StillOpenElsewhere)
	assert.Equal(t, "a2", readFile(t, again.Path()))
}

func TestWorkbench_ListenerUnsubscribesItself(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.doc(t, "a.txt", "a1")
	b := f.doc(t, "b.txt", "b1")

	var events []model.ModelEventType
	var unsubscribe func()
	unsubscribe, err := f.wb.Subscribe(ctx, func(ev model.ModelEvent) {
		events = append(events, ev.Type)
		if ev.Type == model.ModelOpened {
			unsubscribe()
		}
	})
	require.NoError(t, err)

	done := make(chan error, 1)
	go func() { done <- f.wb.Open(ctx, NewEditor(a)) }()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Open blocked after the listener unsubscribed")
	}

	require.NoError(t, f.wb.Open(ctx, NewEditor(b)))
	require.NoError(t, f.wb.Edit(ctx, a, "a2"))
	_, err = f.wb.Parts(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ModelEventType{model.ModelOpened}, events)

	unsubscribe()
}

func TestWorkbench_IndexerIsNotPrompted(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.doc(t, "a.txt", "a1")
	ix := &Indexer{}
	ix.Track(a)
	require.NoError(t, f.wb.Attach(ctx, ix))
	require.NoError(t, f.wb.Edit(ctx, a, "a2"))

	out, err := f.wb.SaveAll(ctx)
	require.NoError(t, err)
	assert.Len(t, out.Saved, 1, "dirty documents of non-part sources are still saved by save all")
	assert.Equal(t, "a2", readFile(t, a.Path()))

	ix.Untrack(a)
	require.NoError(t, f.wb.Refresh(ctx, ix))
	closed, err := f.wb.CloseAll(ctx, true, false)
	require.NoError(t, err)
	assert.True(t, closed)
	assert.Empty(t, f.prompt.Requests())
}

func TestWorkbench_StillOpenPreference(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, prompt.Answer{Choice: prompt.SaveNone, DontAskAgain: true})
	d := f.doc(t, "a.txt", "v1")
	e1, e2, e3 := NewEditor(d), NewEditor(d), NewEditor(d)
	for _, e := range []*Editor{e1, e2, e3} {
		require.NoError(t, f.wb.Open(ctx, e))
	}
	require.NoError(t, f.wb.Edit(ctx, d, "v2"))

	_, err := f.wb.ClosePart(ctx, e1, false)
	require.NoError(t, err)
	_, err = f.wb.ClosePart(ctx, e2, false)
	require.NoError(t, err)
	assert.Len(t, f.prompt.Requests(), 1)

	v, err := preferences.Bool(f.prefs, preferences.PromptWhenStillOpen, true)
	require.NoError(t, err)
	assert.False(t, v)
}

func TestWorkbench_SavePartHonoursFocus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	a := f.doc(t, "a.txt", "a1")
	b := f.doc(t, "b.txt", "b1")
	view := NewView("compare", a, b)
	require.NoError(t, f.wb.Open(ctx, view))
	require.NoError(t, f.wb.Edit(ctx, a, "a2"))
	require.NoError(t, f.wb.Edit(ctx, b, "b2"))

	require.NoError(t, f.wb.Focus(ctx, view, b))
	out, err := f.wb.SavePart(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []string{"b.txt"}, saveable.Names(out.Saved))
	assert.Equal(t, "a1", readFile(t, a.Path()))
	assert.Equal(t, "b2", readFile(t, b.Path()))

	require.NoError(t, f.wb.Focus(ctx, view, f.doc(t, "other.txt", "")))
	out, err = f.wb.SavePart(ctx, view)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt"}, saveable.Names(out.Saved), "no focus saves every dirty document")
	assert.Empty(t, f.prompt.Requests())

	_, err = f.wb.SavePart(ctx, NewEditor(a))
	assert.Error(t, err)
}
