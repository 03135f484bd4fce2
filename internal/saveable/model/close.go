package model

import (
	"context"

	"workbench/internal/saveable"
	"workbench/internal/saveable/negotiate"
	"workbench/pkg/logging"
)

// PostCloseInfo is returned by PreCloseParts and consumed by PostClose.
type PostCloseInfo struct {
	// PartsClosing are the parts allowed to close.
	PartsClosing []saveable.Part
	// ModelsClosing are the saveables losing their last reference.
	ModelsClosing []saveable.Saveable
	// ModelsDecrementing are all saveables losing a reference.
	ModelsDecrementing []saveable.Saveable
	// Outcome is what negotiation did, zero when save was false.
	Outcome negotiate.Outcome
}

// PreCloseParts prepares closing several parts at once. With save set the
// user is asked about dirty saveables; force disallows cancelling. It
// returns nil when the close was cancelled. A failed save is returned as an
// error and the close must not proceed.
func (l *List) PreCloseParts(ctx context.Context, parts []saveable.Part, save, force bool) (*PostCloseInfo, error) {
	info := &PostCloseInfo{}
	var released []saveable.Saveable
	for _, p := range parts {
		if indexPart(info.PartsClosing, p) >= 0 {
			continue
		}
		info.PartsClosing = append(info.PartsClosing, p)
		released = append(released, l.models[p]...)
	}
	info.ModelsClosing, info.ModelsDecrementing = l.closingModels(released)

	if !save {
		return info, nil
	}
	if l.negotiator == nil {
		return info, nil
	}
	out, err := l.negotiator.Negotiate(ctx, negotiate.Request{
		Closing:      info.ModelsClosing,
		Decrementing: info.ModelsDecrementing,
		CanCancel:    !force,
		Parts:        info.PartsClosing,
	})
	if err != nil {
		logging.Error(subsystem, err, "Negotiation failed while closing %d parts", len(parts))
		return nil, err
	}
	if out.Cancelled {
		logging.Info(subsystem, "Closing %d parts was cancelled", len(parts))
		return nil, nil
	}
	info.Outcome = out
	return info, nil
}

// PostClose releases every saveable of the parts in info and notifies
// listeners of the saveables that closed.
func (l *List) PostClose(info *PostCloseInfo) {
	if info == nil {
		return
	}
	var closed []saveable.Saveable
	for _, p := range info.PartsClosing {
		for _, s := range l.SaveablesOf(p) {
			if l.RemoveModel(p, s) {
				closed = append(closed, s)
			}
		}
	}
	if len(closed) > 0 {
		l.fire(ModelEvent{Type: ModelClosed, Saveables: closed})
	}
}

func indexPart(list []saveable.Part, p saveable.Part) int {
	for i, x := range list {
		if x == p {
			return i
		}
	}
	return -1
}
