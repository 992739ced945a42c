package audit

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Repository is the persistence contract for call events.
//
// It MUST be append-only.
// No Update/Delete methods are provided by design.

type Repository interface {
	Append(ctx context.Context, e Event) error
}

// Service records the call event trail.
//
// IMPORTANT:
// - Callers should treat event logging as best-effort; a failed append must
//   never fail the call transition that triggered it.

type Service struct {
	repo  Repository
	clock func() time.Time
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo, clock: time.Now}
}

var ErrInvalidEvent = errors.New("audit: invalid event")

func (s *Service) Append(ctx context.Context, e Event) error {
	if s.repo == nil {
		return errors.New("audit: repository not configured")
	}
	if e.RoomName == "" {
		return ErrInvalidEvent
	}
	if e.Type == "" {
		return ErrInvalidEvent
	}

	now := s.clock().UTC()
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = now
	}
	return s.repo.Append(ctx, e)
}

// LogTransition records a call status transition.
func (s *Service) LogTransition(ctx context.Context, roomName, callID, from, to, reason string) error {
	return s.Append(ctx, Event{
		RoomName:   roomName,
		CallID:     callID,
		Type:       EventTypeTransition,
		FromStatus: from,
		ToStatus:   to,
		Reason:     reason,
	})
}

// LogGatewayAction records a trunk or dispatch side effect (dial placed,
// room deleted) for correlation with provider logs.
func (s *Service) LogGatewayAction(ctx context.Context, roomName, callID, message string) error {
	return s.Append(ctx, Event{
		RoomName: roomName,
		CallID:   callID,
		Type:     EventTypeGateway,
		Message:  message,
	})
}
