package cdr

import "time"

// CDR is the call detail record archived when a call reaches a terminal
// status. It is the durable, immutable trace of the call; the live registry
// record may expire.
type CDR struct {
	CallID   string `json:"call_id" db:"call_id"`
	RoomName string `json:"room_name" db:"room_name"`

	Direction string `json:"direction" db:"direction"`

	// To is the dialed number (E.164) for outbound calls.
	To string `json:"to,omitempty" db:"to_number"`

	Status    string `json:"status" db:"status"`
	EndReason string `json:"end_reason,omitempty" db:"end_reason"`

	StartedAt time.Time  `json:"started_at" db:"started_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty" db:"ended_at"`

	DurationSeconds int `json:"duration_seconds" db:"duration_seconds"`
}
