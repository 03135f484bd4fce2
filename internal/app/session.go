package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"gopkg.in/yaml.v3"

	"workbench/internal/prompt"
	"workbench/internal/saveable"
	"workbench/internal/saveable/negotiate"
	"workbench/internal/workbench"
	"workbench/pkg/logging"
)

// Session is a scripted sequence of workbench operations.
//
//	documents:
//	  notes: notes.txt
//	answers:
//	  - choice: save-all
//	steps:
//	  - action: open-editor
//	    part: e1
//	    document: notes
//	  - action: edit
//	    document: notes
//	    text: hello
//	  - action: close
//	    parts: [e1]
type Session struct {
	// Documents maps aliases to file paths, relative to the session file.
	Documents map[string]string `yaml:"documents"`
	// Answers are used instead of interactive prompts when present.
	Answers []prompt.Answer `yaml:"answers,omitempty"`
	Steps   []Step          `yaml:"steps"`

	// Dir is the directory relative paths are resolved against.
	Dir string `yaml:"-"`
}

// Step is one operation of a session.
type Step struct {
	Action    string   `yaml:"action"`
	Part      string   `yaml:"part,omitempty"`
	Parts     []string `yaml:"parts,omitempty"`
	Document  string   `yaml:"document,omitempty"`
	Documents []string `yaml:"documents,omitempty"`
	Text      string   `yaml:"text,omitempty"`
	To        string   `yaml:"to,omitempty"`
	Save      *bool    `yaml:"save,omitempty"`
	Force     bool     `yaml:"force,omitempty"`
	OnClose   string   `yaml:"onClose,omitempty"`
}

// Step actions.
const (
	ActionOpenEditor = "open-editor"
	ActionOpenView   = "open-view"
	ActionEdit       = "edit"
	ActionRename     = "rename"
	ActionClose      = "close"
	ActionCloseAll   = "close-all"
	ActionIndex      = "index"
	ActionUnindex    = "unindex"
	ActionFocus      = "focus"
	ActionSave       = "save"
	ActionSaveAll    = "save-all"
	ActionStatus     = "status"
)

// LoadSession reads a session file.
func LoadSession(path string) (*Session, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return DecodeSession(f, filepath.Dir(path))
}

// DecodeSession reads a session from r; dir anchors relative paths.
func DecodeSession(r io.Reader, dir string) (*Session, error) {
	var s Session
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("decoding session: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, err
	}
	s.Dir = abs
	return &s, nil
}

// Runner replays sessions against a workbench.
type Runner struct {
	wb  *workbench.Workbench
	dir string
	out io.Writer

	docs     map[string]*workbench.Document
	parts    map[string]saveable.Part
	indexers map[string]*workbench.Indexer
}

// NewRunner returns a runner resolving relative paths against dir and
// printing results to out.
func NewRunner(wb *workbench.Workbench, dir string, out io.Writer) *Runner {
	return &Runner{
		wb:       wb,
		dir:      dir,
		out:      out,
		docs:     make(map[string]*workbench.Document),
		parts:    make(map[string]saveable.Part),
		indexers: make(map[string]*workbench.Indexer),
	}
}

// Run executes every step in order and stops at the first error.
func (r *Runner) Run(ctx context.Context, s *Session) error {
	aliases := make([]string, 0, len(s.Documents))
	for alias := range s.Documents {
		aliases = append(aliases, alias)
	}
	sort.Strings(aliases)
	for _, alias := range aliases {
		doc, err := workbench.OpenDocument(r.path(s.Documents[alias]))
		if err != nil {
			return fmt.Errorf("document %s: %w", alias, err)
		}
		r.docs[alias] = doc
	}

	for i, step := range s.Steps {
		logging.Debug("Session", "Step %d: %s", i+1, step.Action)
		if err := r.step(ctx, step); err != nil {
			return fmt.Errorf("step %d (%s): %w", i+1, step.Action, err)
		}
	}
	return nil
}

func (r *Runner) step(ctx context.Context, st Step) error {
	switch st.Action {
	case ActionOpenEditor:
		doc, err := r.doc(st.Document)
		if err != nil {
			return err
		}
		return r.open(ctx, st.Part, workbench.NewEditor(doc))

	case ActionOpenView:
		docs, err := r.docList(st.Documents)
		if err != nil {
			return err
		}
		title := st.Part
		view := workbench.NewView(title, docs...)
		if view.OnClose, err = parsePromptResult(st.OnClose); err != nil {
			return err
		}
		return r.open(ctx, st.Part, view)

	case ActionEdit:
		doc, err := r.doc(st.Document)
		if err != nil {
			return err
		}
		return r.wb.Edit(ctx, doc, st.Text)

	case ActionRename:
		doc, err := r.doc(st.Document)
		if err != nil {
			return err
		}
		return r.wb.Rename(ctx, doc, r.path(st.To))

	case ActionClose, ActionCloseAll:
		return r.close(ctx, st)

	case ActionIndex, ActionUnindex:
		docs, err := r.docList(st.Documents)
		if err != nil {
			return err
		}
		return r.index(ctx, st.Part, st.Action == ActionIndex, docs)

	case ActionFocus:
		view, ok := r.parts[st.Part].(*workbench.View)
		if !ok {
			return fmt.Errorf("%s is not an open view", st.Part)
		}
		doc, err := r.doc(st.Document)
		if err != nil {
			return err
		}
		return r.wb.Focus(ctx, view, doc)

	case ActionSave:
		part, ok := r.parts[st.Part]
		if !ok {
			return fmt.Errorf("unknown part %s", st.Part)
		}
		out, err := r.wb.SavePart(ctx, part)
		return r.reportSave(out, err)

	case ActionSaveAll:
		out, err := r.wb.SaveAll(ctx)
		return r.reportSave(out, err)

	case ActionStatus:
		return r.status(ctx)

	default:
		return fmt.Errorf("unknown action %q", st.Action)
	}
}

func (r *Runner) reportSave(out negotiate.Outcome, err error) error {
	var saveErr *negotiate.SaveError
	if errors.As(err, &saveErr) {
		fmt.Fprintf(r.out, "Saving %s failed: %v\n", saveErr.Saveable.Name(), saveErr.Err)
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(r.out, "Saved %s\n", joinNames(out.Saved))
	return nil
}

func (r *Runner) open(ctx context.Context, name string, part saveable.Part) error {
	if name == "" {
		return errors.New("part name is required")
	}
	if _, ok := r.parts[name]; ok {
		return fmt.Errorf("part %s is already open", name)
	}
	if err := r.wb.Open(ctx, part); err != nil {
		return err
	}
	r.parts[name] = part
	return nil
}

func (r *Runner) close(ctx context.Context, st Step) error {
	save := st.Save == nil || *st.Save

	var names []string
	var parts []saveable.Part
	if st.Action == ActionCloseAll {
		for name := range r.parts {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			parts = append(parts, r.parts[name])
		}
	} else {
		for _, name := range st.Parts {
			p, ok := r.parts[name]
			if !ok {
				return fmt.Errorf("unknown part %s", name)
			}
			names = append(names, name)
			parts = append(parts, p)
		}
	}
	if len(parts) == 0 {
		return nil
	}

	var closed bool
	var err error
	if len(parts) == 1 && save {
		closed, err = r.wb.ClosePart(ctx, parts[0], st.Force)
	} else {
		closed, err = r.wb.Close(ctx, parts, save, st.Force)
	}
	if err != nil {
		return err
	}
	if !closed {
		fmt.Fprintln(r.out, "Close cancelled")
		return nil
	}
	for _, name := range names {
		delete(r.parts, name)
	}
	sort.Strings(names)
	fmt.Fprintf(r.out, "Closed %s\n", joinStrings(names))
	return nil
}

func (r *Runner) index(ctx context.Context, name string, track bool, docs []*workbench.Document) error {
	if name == "" {
		return errors.New("indexer name is required")
	}
	ix, ok := r.indexers[name]
	if !ok {
		if !track {
			return fmt.Errorf("unknown indexer %s", name)
		}
		ix = &workbench.Indexer{}
		for _, d := range docs {
			ix.Track(d)
		}
		r.indexers[name] = ix
		return r.wb.Attach(ctx, ix)
	}
	for _, d := range docs {
		if track {
			ix.Track(d)
		} else {
			ix.Untrack(d)
		}
	}
	return r.wb.Refresh(ctx, ix)
}

func (r *Runner) status(ctx context.Context) error {
	status, err := r.wb.Status(ctx)
	if err != nil {
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("DOCUMENT", "DIRTY", "REFS", "SOURCES", "PATH")
	for _, s := range status {
		dirty := ""
		if s.Dirty {
			dirty = "*"
		}
		t.Row(s.Name, dirty, strconv.Itoa(s.RefCount), strconv.Itoa(s.Sources), s.Path)
	}
	fmt.Fprintln(r.out, t.String())
	return nil
}

func (r *Runner) doc(alias string) (*workbench.Document, error) {
	d, ok := r.docs[alias]
	if !ok {
		return nil, fmt.Errorf("unknown document %q", alias)
	}
	return d, nil
}

func (r *Runner) docList(aliases []string) ([]*workbench.Document, error) {
	out := make([]*workbench.Document, 0, len(aliases))
	for _, a := range aliases {
		d, err := r.doc(a)
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func (r *Runner) path(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.dir, p)
}

func parsePromptResult(s string) (saveable.PromptResult, error) {
	switch s {
	case "", "default":
		return saveable.PromptDefault, nil
	case "yes":
		return saveable.PromptYes, nil
	case "no":
		return saveable.PromptNo, nil
	case "cancel":
		return saveable.PromptCancel, nil
	default:
		return 0, fmt.Errorf("invalid onClose %q", s)
	}
}

func joinNames(items []saveable.Saveable) string {
	return joinStrings(saveable.Names(items))
}

func joinStrings(s []string) string {
	if len(s) == 0 {
		return "nothing"
	}
	return strings.Join(s, ", ")
}
