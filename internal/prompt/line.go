package prompt

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"workbench/internal/saveable"
)

// Line asks on a line-oriented terminal or pipe.
//
// A single saveable is answered with y, n or c. Several saveables are
// answered with "all", "none", "cancel" or a comma separated list of numbers
// or names. For optional questions a trailing "!" on the answer turns
// further optional questions off.
type Line struct {
	in  *bufio.Scanner
	out io.Writer
}

// NewLine returns a prompter reading answers from in and writing questions
// to out.
func NewLine(in io.Reader, out io.Writer) *Line {
	return &Line{in: bufio.NewScanner(in), out: out}
}

func (l *Line) Prompt(ctx context.Context, req Request) (Response, error) {
	for {
		if err := ctx.Err(); err != nil {
			return Response{}, err
		}
		l.ask(req)
		if !l.in.Scan() {
			if err := l.in.Err(); err != nil {
				return Response{}, fmt.Errorf("reading answer: %w", err)
			}
			return Response{}, io.ErrUnexpectedEOF
		}
		resp, ok := parseAnswer(req, l.in.Text())
		if ok {
			return Normalize(req, resp), nil
		}
		fmt.Fprintln(l.out, "Unrecognized answer.")
	}
}

func (l *Line) ask(req Request) {
	suffix := ""
	if req.StillOpenElsewhere {
		suffix = " (append ! to stop asking while still open elsewhere)"
	}
	if len(req.Saveables) == 1 {
		s := req.Saveables[0]
		var question string
		if req.StillOpenElsewhere {
			question = fmt.Sprintf("'%s' has been modified but is still open elsewhere. Save changes now?", s.Name())
		} else {
			question = fmt.Sprintf("'%s' has been modified. Save changes?", s.Name())
		}
		opts := "[y]es/[n]o"
		if req.CanCancel {
			opts += "/[c]ancel"
		}
		fmt.Fprintf(l.out, "%s %s%s: ", question, opts, suffix)
		return
	}

	if req.StillOpenElsewhere {
		fmt.Fprintln(l.out, "The following resources are modified but still open elsewhere:")
	} else {
		fmt.Fprintln(l.out, "Select the resources to save:")
	}
	for i, s := range req.Saveables {
		fmt.Fprintf(l.out, "  %d) %s\n", i+1, s.Name())
	}
	opts := "all/none/<numbers>"
	if req.CanCancel {
		opts += "/cancel"
	}
	fmt.Fprintf(l.out, "Save which? [%s]%s: ", opts, suffix)
}

func parseAnswer(req Request, text string) (Response, bool) {
	text = strings.TrimSpace(text)
	var resp Response
	if strings.HasSuffix(text, "!") {
		resp.DontAskAgain = true
		text = strings.TrimSpace(strings.TrimSuffix(text, "!"))
	}
	lower := strings.ToLower(text)

	if len(req.Saveables) == 1 {
		switch lower {
		case "y", "yes":
			resp.Choice = SaveAll
		case "n", "no":
			resp.Choice = SaveNone
		case "c", "cancel":
			if !req.CanCancel {
				return resp, false
			}
			resp.Choice = Cancel
		default:
			return resp, false
		}
		return resp, true
	}

	switch lower {
	case "a", "all", "":
		resp.Choice = SaveAll
		return resp, true
	case "none":
		resp.Choice = SaveNone
		return resp, true
	case "c", "cancel":
		if !req.CanCancel {
			return resp, false
		}
		resp.Choice = Cancel
		return resp, true
	}

	resp.Choice = SaveSubset
	for _, field := range strings.Split(text, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		var s saveable.Saveable
		if n, err := strconv.Atoi(field); err == nil {
			if n < 1 || n > len(req.Saveables) {
				return resp, false
			}
			s = req.Saveables[n-1]
		} else if s = byName(req.Saveables, field); s == nil {
			return resp, false
		}
		resp.Selected = append(resp.Selected, s)
	}
	return resp, true
}
