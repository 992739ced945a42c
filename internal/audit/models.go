package audit

import "time"

// Event is an immutable, append-only record of a call lifecycle transition.
//
// Invariants:
// - Events are never updated or deleted.
// - Recording is best-effort; orchestration flows must not block on audit
//   failures.
//
// Storage recommendation (Postgres):
// - Table call_events with an INSERT-only policy.
// - Optional: partition by time for retention.

type Event struct {
	ID       string `json:"id" db:"id"`
	RoomName string `json:"room_name" db:"room_name"`
	CallID   string `json:"call_id" db:"call_id"`

	// Type indicates the category of the record.
	Type EventType `json:"type" db:"type"`

	// FromStatus/ToStatus capture the transition for transition events.
	FromStatus string `json:"from_status,omitempty" db:"from_status"`
	ToStatus   string `json:"to_status,omitempty" db:"to_status"`

	// Reason is the termination reason when the transition is terminal.
	Reason string `json:"reason,omitempty" db:"reason"`

	// Message is a short human-readable description for internal ops.
	Message string `json:"message,omitempty" db:"message"`

	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

type EventType string

const (
	EventTypeTransition EventType = "status_transition"
	EventTypeGateway    EventType = "gateway_action"
)
