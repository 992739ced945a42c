package calls

import (
	"strings"
	"time"
)

// Call is the orchestrator's record of one phone call.
//
// Ownership invariant: the record is owned by the Registry and mutated only
// through the Controller. Status transitions for a single call are totally
// ordered by the Registry's atomic-update discipline.
//
// ID and RoomName are pure functions of the normalized number, so a second
// request for the same number addresses the same call instead of creating a
// duplicate in-flight dial.
type Call struct {
	ID        string    `json:"call_id"`
	RoomName  string    `json:"room_name"`
	Direction Direction `json:"direction"`
	Status    Status    `json:"status"`

	// PhoneNumber is the caller-supplied E.164 number (outbound only).
	PhoneNumber  string `json:"phone_number,omitempty"`
	Instructions string `json:"instructions,omitempty"`

	// DispatchID is the worker job id returned by the dispatch gateway.
	DispatchID string `json:"dispatch_id,omitempty"`

	CreatedAt time.Time  `json:"created_at"`
	EndedAt   *time.Time `json:"ended_at,omitempty"`

	// EndReason is set when the call reaches a terminal status.
	EndReason EndReason `json:"end_reason,omitempty"`

	ParticipantCount int `json:"participant_count"`
}

// Terminal reports whether the call can no longer transition.
func (c Call) Terminal() bool {
	return c.Status == StatusEnded || c.Status == StatusFailed
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type Status string

const (
	StatusPending    Status = "pending"
	StatusDispatched Status = "dispatched"
	StatusRinging    Status = "ringing"
	StatusActive     Status = "active"
	StatusEnded      Status = "ended"
	StatusFailed     Status = "failed"
)

// EndReason records why a call was driven to termination.
type EndReason string

const (
	EndReasonUserRequested    EndReason = "user_requested"
	EndReasonAnsweringMachine EndReason = "answering_machine"
	EndReasonError            EndReason = "error"
)

// CallRequest is the caller-facing request to place an outbound call.
type CallRequest struct {
	PhoneNumber  string
	Instructions string
}

const roomNamePrefix = "outbound-call-"

var numberStripper = strings.NewReplacer("+", "", "-", "", "(", "", ")", "", " ", "")

// NormalizeNumber validates an E.164-style input and returns the bare
// digits. The number must start with '+' and contain only digits once
// formatting characters ('-', '(', ')', spaces) are stripped.
func NormalizeNumber(phoneNumber string) (string, error) {
	if !strings.HasPrefix(phoneNumber, "+") {
		return "", ErrInvalidPhoneNumber
	}
	digits := numberStripper.Replace(phoneNumber)
	if digits == "" {
		return "", ErrInvalidPhoneNumber
	}
	for _, r := range digits {
		if r < '0' || r > '9' {
			return "", ErrInvalidPhoneNumber
		}
	}
	return digits, nil
}

// RoomNameFor derives the deterministic room name for an outbound call.
func RoomNameFor(digits string) string { return roomNamePrefix + digits }

// CallIDFor derives the deterministic call id for an outbound call.
func CallIDFor(digits string) string { return "call-" + digits }

// StatusView is the liveness view returned by status queries. It is derived
// from the trunk's live room listing rather than the registry alone, so it
// stays correct after an orchestrator restart.
type StatusView struct {
	RoomName     string `json:"room_name"`
	Status       string `json:"status"` // "active", "ended" or "not_found"
	Participants int    `json:"participants"`
	CreationTime int64  `json:"creation_time,omitempty"`
}

const (
	StatusViewActive   = "active"
	StatusViewEnded    = "ended"
	StatusViewNotFound = "not_found"
)
