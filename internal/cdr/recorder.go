package cdr

import (
	"context"
	"errors"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
)

// Repository is the persistence contract for call detail records.
// Insert-only; records are never updated.
type Repository interface {
	Insert(ctx context.Context, rec CDR) error
}

// Recorder archives terminal calls. It satisfies the controller's Archiver
// hook.
type Recorder struct {
	repo Repository
}

func NewRecorder(repo Repository) *Recorder { return &Recorder{repo: repo} }

var ErrNotTerminal = errors.New("cdr: call is not in a terminal status")

func (r *Recorder) Record(ctx context.Context, c calls.Call) error {
	if r.repo == nil {
		return errors.New("cdr: repository not configured")
	}
	if !c.Terminal() {
		return ErrNotTerminal
	}

	rec := CDR{
		CallID:    c.ID,
		RoomName:  c.RoomName,
		Direction: string(c.Direction),
		To:        c.PhoneNumber,
		Status:    string(c.Status),
		EndReason: string(c.EndReason),
		StartedAt: c.CreatedAt,
		EndedAt:   c.EndedAt,
	}
	if c.EndedAt != nil && c.EndedAt.After(c.CreatedAt) {
		rec.DurationSeconds = int(c.EndedAt.Sub(c.CreatedAt).Seconds())
	}
	return r.repo.Insert(ctx, rec)
}
