package cdr

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
)

func TestRecorder_RecordsTerminalCall(t *testing.T) {
	repo := NewMemoryRepo()
	rec := NewRecorder(repo)

	started := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	ended := started.Add(95 * time.Second)
	call := calls.Call{
		ID:          "call-15551234567",
		RoomName:    "outbound-call-15551234567",
		Direction:   calls.DirectionOutbound,
		Status:      calls.StatusEnded,
		PhoneNumber: "+15551234567",
		EndReason:   calls.EndReasonUserRequested,
		CreatedAt:   started,
		EndedAt:     &ended,
	}
	if err := rec.Record(context.Background(), call); err != nil {
		t.Fatalf("record: %v", err)
	}

	recs := repo.Records()
	if len(recs) != 1 {
		t.Fatalf("expected one record, got %d", len(recs))
	}
	got := recs[0]
	if got.CallID != "call-15551234567" || got.Status != "ended" || got.EndReason != "user_requested" {
		t.Fatalf("unexpected record: %+v", got)
	}
	if got.DurationSeconds != 95 {
		t.Fatalf("expected 95s duration, got %d", got.DurationSeconds)
	}
}

func TestRecorder_RejectsNonTerminalCall(t *testing.T) {
	rec := NewRecorder(NewMemoryRepo())

	err := rec.Record(context.Background(), calls.Call{Status: calls.StatusRinging})
	if !errors.Is(err, ErrNotTerminal) {
		t.Fatalf("expected ErrNotTerminal, got %v", err)
	}
}

func TestRecorder_ZeroDurationWithoutEndTime(t *testing.T) {
	repo := NewMemoryRepo()
	rec := NewRecorder(repo)

	call := calls.Call{
		ID:        "call-1",
		RoomName:  "outbound-call-1",
		Status:    calls.StatusFailed,
		EndReason: calls.EndReasonError,
		CreatedAt: time.Now().UTC(),
	}
	if err := rec.Record(context.Background(), call); err != nil {
		t.Fatalf("record: %v", err)
	}
	if got := repo.Records()[0]; got.DurationSeconds != 0 {
		t.Fatalf("expected zero duration, got %d", got.DurationSeconds)
	}
}
