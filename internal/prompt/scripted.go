package prompt

import (
	"context"
	"sync"

	"workbench/internal/saveable"
)

// Answer is one queued reply of a Scripted prompter. Names select saveables
// by name for SaveSubset.
type Answer struct {
	Choice       Choice   `yaml:"choice"`
	Names        []string `yaml:"names,omitempty"`
	DontAskAgain bool     `yaml:"dontAskAgain,omitempty"`
}

// Scripted replies from a fixed queue of answers and records every request.
type Scripted struct {
	mu       sync.Mutex
	answers  []Answer
	requests []Request
}

// NewScripted returns a prompter that replies with answers in order.
func NewScripted(answers ...Answer) *Scripted {
	return &Scripted{answers: answers}
}

// Push appends answers to the queue.
func (s *Scripted) Push(answers ...Answer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.answers = append(s.answers, answers...)
}

// Requests returns the requests seen so far.
func (s *Scripted) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// Remaining returns how many answers are still queued.
func (s *Scripted) Remaining() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.answers)
}

func (s *Scripted) Prompt(ctx context.Context, req Request) (Response, error) {
	if err := ctx.Err(); err != nil {
		return Response{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, req)
	if len(s.answers) == 0 {
		return Response{}, ErrNoAnswer
	}
	a := s.answers[0]
	s.answers = s.answers[1:]

	resp := Response{Choice: a.Choice, DontAskAgain: a.DontAskAgain}
	if a.Choice == SaveSubset {
		for _, sv := range req.Saveables {
			for _, n := range a.Names {
				if sv.Name() == n {
					resp.Selected = append(resp.Selected, sv)
					break
				}
			}
		}
	}
	return Normalize(req, resp), nil
}

var _ Prompter = (*Scripted)(nil)

// Func adapts a function to the Prompter interface.
type Func func(ctx context.Context, req Request) (Response, error)

func (f Func) Prompt(ctx context.Context, req Request) (Response, error) {
	return f(ctx, req)
}

// Always answers every request with the same choice.
func Always(c Choice) Prompter {
	return Func(func(ctx context.Context, req Request) (Response, error) {
		return Normalize(req, Response{Choice: c}), nil
	})
}

// byName is used by the line prompter to resolve typed names.
func byName(list []saveable.Saveable, name string) saveable.Saveable {
	for _, s := range list {
		if s.Name() == name {
			return s
		}
	}
	return nil
}
