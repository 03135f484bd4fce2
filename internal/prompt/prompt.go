// Package prompt asks the user which dirty saveables to save.
//
// The Prompter interface is the only thing the negotiation logic depends on;
// whether a single confirmation or a checklist is shown is up to the
// implementation. Scripted answers from a queue and is meant for tests and
// non-interactive runs, Line talks to a plain reader and writer, and package
// tui draws terminal dialogs.
package prompt

import (
	"context"
	"errors"
	"fmt"

	"gopkg.in/yaml.v3"

	"workbench/internal/saveable"
)

// ErrNoAnswer is returned by Scripted when its queue is exhausted.
var ErrNoAnswer = errors.New("prompt: no scripted answer left")

// Choice is the user's decision.
type Choice int

const (
	SaveAll Choice = iota
	SaveNone
	SaveSubset
	Cancel
)

func (c Choice) String() string {
	switch c {
	case SaveAll:
		return "save-all"
	case SaveNone:
		return "save-none"
	case SaveSubset:
		return "save-subset"
	case Cancel:
		return "cancel"
	default:
		return fmt.Sprintf("choice(%d)", int(c))
	}
}

// ParseChoice parses the String form of a Choice.
func ParseChoice(s string) (Choice, error) {
	for _, c := range []Choice{SaveAll, SaveNone, SaveSubset, Cancel} {
		if c.String() == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown choice %q", s)
}

// Request describes one question.
type Request struct {
	// Saveables are the dirty saveables in question, at least one.
	Saveables []saveable.Saveable
	// CanCancel is false when the caller cannot abort, for example when a
	// window is closed forcibly.
	CanCancel bool
	// StillOpenElsewhere marks an optional question: every saveable is
	// still referenced by a part that stays open. Such prompts offer a
	// "don't ask again" toggle.
	StillOpenElsewhere bool
}

// Response is the user's answer.
type Response struct {
	Choice Choice
	// Selected holds the saveables to save when Choice is SaveSubset.
	Selected []saveable.Saveable
	// DontAskAgain is set when the user turned off optional prompts.
	DontAskAgain bool
}

// ToSave resolves the response against the request.
func (r Response) ToSave(req Request) []saveable.Saveable {
	switch r.Choice {
	case SaveAll:
		return append([]saveable.Saveable(nil), req.Saveables...)
	case SaveSubset:
		var out []saveable.Saveable
		for _, s := range req.Saveables {
			if saveable.IndexSame(r.Selected, s) >= 0 {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// Prompter asks the question.
type Prompter interface {
	Prompt(ctx context.Context, req Request) (Response, error)
}

// Normalize coerces a response into something valid for req: a cancel that
// is not allowed becomes SaveNone, and a subset covering every saveable
// becomes SaveAll.
func Normalize(req Request, resp Response) Response {
	if resp.Choice == Cancel && !req.CanCancel {
		resp.Choice = SaveNone
	}
	if resp.Choice == SaveSubset {
		subset := resp.ToSave(req)
		resp.Selected = nil
		switch len(subset) {
		case 0:
			resp.Choice = SaveNone
		case len(req.Saveables):
			resp.Choice = SaveAll
		default:
			resp.Selected = subset
		}
	}
	if !req.StillOpenElsewhere {
		resp.DontAskAgain = false
	}
	return resp
}

// UnmarshalYAML reads a choice written in its String form.
func (c *Choice) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return err
	}
	parsed, err := ParseChoice(s)
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// MarshalYAML writes a choice in its String form.
func (c Choice) MarshalYAML() (interface{}, error) {
	return c.String(), nil
}
