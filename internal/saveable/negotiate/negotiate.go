// Package negotiate decides, before parts close, which dirty saveables get
// saved.
//
// Saveables whose last reference goes away with the close must be saved or
// explicitly abandoned; the user is asked about them in one mandatory
// prompt. Dirty saveables that stay referenced by other open parts are
// offered in one optional prompt first, unless the user turned that off.
// All answers are collected before anything is saved, so a cancel at either
// prompt leaves every saveable untouched.
package negotiate

import (
	"context"
	"errors"
	"fmt"

	"workbench/internal/preferences"
	"workbench/internal/progress"
	"workbench/internal/prompt"
	"workbench/internal/saveable"
	"workbench/pkg/logging"
)

const subsystem = "Negotiation"

// Request describes one close operation.
type Request struct {
	// Closing are the saveables whose reference count drops to zero.
	Closing []saveable.Saveable
	// Decrementing are all saveables losing at least one reference,
	// including the closing ones.
	Decrementing []saveable.Saveable
	// CanCancel is false for forced closes.
	CanCancel bool
	// Parts are the closing parts. Parts implementing
	// saveable.SavePrompter answer for their own saveables.
	Parts []saveable.Part
}

// Outcome reports what the negotiation did.
type Outcome struct {
	Cancelled bool
	// Saved lists the saveables whose save ran.
	Saved []saveable.Saveable
	// Skipped lists saveables chosen for saving that were already clean
	// when their turn came.
	Skipped []saveable.Saveable
}

// SaveError reports the saveable whose save failed. Saves after it in the
// same batch were not attempted.
type SaveError struct {
	Saveable saveable.Saveable
	Err      error
}

func (e *SaveError) Error() string {
	return fmt.Sprintf("saving %s: %v", e.Saveable.Name(), e.Err)
}

func (e *SaveError) Unwrap() error { return e.Err }

// Option configures a Negotiator.
type Option func(*Negotiator)

// WithReporter routes save progress to r.
func WithReporter(r progress.Reporter) Option {
	return func(n *Negotiator) { n.reporter = r }
}

// WithStillOpenDefault sets the value assumed for
// preferences.PromptWhenStillOpen while it is unset.
func WithStillOpenDefault(v bool) Option {
	return func(n *Negotiator) { n.stillOpenDefault = v }
}

// Negotiator runs close-time save negotiation.
type Negotiator struct {
	prompter         prompt.Prompter
	prefs            preferences.Store
	reporter         progress.Reporter
	stillOpenDefault bool
}

// New returns a negotiator asking p and persisting the "don't ask again"
// toggle in prefs.
func New(p prompt.Prompter, prefs preferences.Store, opts ...Option) *Negotiator {
	n := &Negotiator{prompter: p, prefs: prefs, stillOpenDefault: true}
	for _, o := range opts {
		o(n)
	}
	return n
}

// Negotiate prompts for the request and saves what the user chose.
func (n *Negotiator) Negotiate(ctx context.Context, req Request) (Outcome, error) {
	var forced, excluded []saveable.Saveable

	for _, part := range req.Parts {
		sp, ok := part.(saveable.SavePrompter)
		if !ok {
			continue
		}
		dirty := saveable.Dirty(part.Saveables())
		if len(dirty) == 0 {
			continue
		}
		answer := sp.PromptToSaveOnClose()
		logging.Debug(subsystem, "Part %s answered %s for save on close", part.Title(), answer)
		switch answer {
		case saveable.PromptCancel:
			if req.CanCancel {
				return Outcome{Cancelled: true}, nil
			}
			excluded = append(excluded, dirty...)
		case saveable.PromptNo:
			excluded = append(excluded, dirty...)
		case saveable.PromptYes:
			forced = appendDistinct(forced, dirty...)
			excluded = append(excluded, dirty...)
		}
	}

	var optional []saveable.Saveable
	for _, s := range req.Decrementing {
		if !s.IsDirty() || containsEquivalent(req.Closing, s) || containsEquivalent(excluded, s) {
			continue
		}
		optional = appendDistinct(optional, s)
	}
	var mandatory []saveable.Saveable
	for _, s := range req.Closing {
		if !s.IsDirty() || containsEquivalent(excluded, s) {
			continue
		}
		mandatory = appendDistinct(mandatory, s)
	}

	toSave := forced
	selected, cancelled, err := n.PromptForSaving(ctx, optional, req.CanCancel, true)
	if err != nil || cancelled {
		return Outcome{Cancelled: cancelled}, err
	}
	toSave = appendDistinct(toSave, selected...)

	selected, cancelled, err = n.PromptForSaving(ctx, mandatory, req.CanCancel, false)
	if err != nil || cancelled {
		return Outcome{Cancelled: cancelled}, err
	}
	toSave = appendDistinct(toSave, selected...)

	if len(toSave) == 0 {
		return Outcome{}, nil
	}
	return n.SaveTask(ctx, toSave).Wait()
}

// PromptForSaving asks about items and returns the ones to save. Optional
// prompts (stillOpenElsewhere) are skipped when the user turned them off.
func (n *Negotiator) PromptForSaving(ctx context.Context, items []saveable.Saveable, canCancel, stillOpenElsewhere bool) ([]saveable.Saveable, bool, error) {
	if len(items) == 0 {
		return nil, false, nil
	}
	if stillOpenElsewhere && !n.promptWhenStillOpen() {
		logging.Debug(subsystem, "Not asking about %d saveables still open elsewhere", len(items))
		return nil, false, nil
	}

	req := prompt.Request{Saveables: items, CanCancel: canCancel, StillOpenElsewhere: stillOpenElsewhere}
	resp, err := n.prompter.Prompt(ctx, req)
	if err != nil {
		return nil, false, fmt.Errorf("prompting for save: %w", err)
	}
	resp = prompt.Normalize(req, resp)

	if resp.DontAskAgain && n.prefs != nil {
		if err := preferences.SetBool(n.prefs, preferences.PromptWhenStillOpen, false); err != nil {
			logging.Error(subsystem, err, "Failed to store %s", preferences.PromptWhenStillOpen)
		}
	}
	if resp.Choice == prompt.Cancel {
		logging.Info(subsystem, "Close cancelled by user")
		return nil, true, nil
	}
	return resp.ToSave(req), false, nil
}

func (n *Negotiator) promptWhenStillOpen() bool {
	if n.prefs == nil {
		return n.stillOpenDefault
	}
	v, err := preferences.Bool(n.prefs, preferences.PromptWhenStillOpen, n.stillOpenDefault)
	if err != nil {
		logging.Warn(subsystem, "Reading %s: %v", preferences.PromptWhenStillOpen, err)
	}
	return v
}

// SaveTask is a running batch save.
type SaveTask struct {
	task    *progress.Task
	outcome Outcome
}

// SaveTask starts saving items one after another on a separate goroutine.
func (n *Negotiator) SaveTask(ctx context.Context, items []saveable.Saveable) *SaveTask {
	st := &SaveTask{}
	st.task = progress.Start(ctx, n.reporter, func(mon *progress.Monitor) error {
		var err error
		st.outcome, err = SaveAll(mon, items)
		return err
	})
	return st
}

// Cancel requests cancellation of the remaining saves.
func (st *SaveTask) Cancel() { st.task.Cancel() }

// Finished is closed when the task is done.
func (st *SaveTask) Finished() <-chan struct{} { return st.task.Finished() }

// Wait blocks until the batch is done.
func (st *SaveTask) Wait() (Outcome, error) {
	err := st.task.Wait()
	return st.outcome, err
}

// SaveAll saves items in order under mon. Saveables that are clean by the
// time their turn comes are skipped. The first failing save stops the batch.
// A cancelled monitor stops the batch and marks the outcome cancelled.
func SaveAll(mon *progress.Monitor, items []saveable.Saveable) (Outcome, error) {
	var out Outcome
	mon.Begin("Saving", len(items))
	defer mon.Done()

	for _, s := range items {
		if mon.Cancelled() {
			out.Cancelled = true
			break
		}
		if !s.IsDirty() {
			out.Skipped = append(out.Skipped, s)
			mon.Worked(1)
			continue
		}
		sub := mon.Split(1)
		err := s.Save(sub.Context(), sub)
		sub.Done()
		if err != nil {
			if mon.Cancelled() && errors.Is(err, context.Canceled) {
				out.Cancelled = true
				break
			}
			logging.Error(subsystem, err, "Saving %s failed", s.Name())
			return out, &SaveError{Saveable: s, Err: err}
		}
		logging.Debug(subsystem, "Saved %s", s.Name())
		out.Saved = append(out.Saved, s)
	}
	return out, nil
}

func containsEquivalent(list []saveable.Saveable, s saveable.Saveable) bool {
	return saveable.IndexEquivalent(list, s) >= 0
}

func appendDistinct(list []saveable.Saveable, items ...saveable.Saveable) []saveable.Saveable {
	for _, s := range items {
		if saveable.IndexSame(list, s) < 0 {
			list = append(list, s)
		}
	}
	return list
}
