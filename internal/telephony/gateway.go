package telephony

import (
	"context"
	"fmt"
)

// TrunkGateway abstracts the SIP-bridged side of a call: dialing a PSTN
// number into a room, inspecting live rooms, and tearing a room down.
//
// Rules:
// - No provider SDK calls outside telephony adapters.
// - DeleteRoom is the universal cancellation primitive: deleting the room
//   disconnects every participant, bridged phone leg and worker alike.
// - Implementations must be safe for concurrent use; they hold no per-call
//   state.
type TrunkGateway interface {
	// CreateSIPParticipant places the outbound leg. With WaitUntilAnswered
	// set it blocks until the far end picks up or the trunk reports failure;
	// cancel ctx to abandon an in-flight dial.
	CreateSIPParticipant(ctx context.Context, req SIPParticipantRequest) (SIPParticipant, error)

	// ListRooms returns live room info for the given names. Absent rooms are
	// simply missing from the result, not an error.
	ListRooms(ctx context.Context, names []string) ([]RoomInfo, error)

	// DeleteRoom tears the room down. Deleting a room that no longer exists
	// is a no-op.
	DeleteRoom(ctx context.Context, name string) error
}

// DispatchGateway abstracts scheduling a conversational worker into a room.
type DispatchGateway interface {
	CreateDispatch(ctx context.Context, job DispatchJob) (dispatchID string, err error)
}

// DispatchJob is the transient request to schedule a worker job.
// Metadata is serialized JSON handed to the worker verbatim.
type DispatchJob struct {
	AgentName string
	RoomName  string
	Metadata  string
}

// SIPParticipantRequest is the transient request to bridge a phone number
// into a room via a configured trunk.
type SIPParticipantRequest struct {
	RoomName          string
	TrunkID           string
	Destination       string
	Identity          string
	WaitUntilAnswered bool
}

// SIPParticipant describes the bridged phone leg after the trunk accepted it.
type SIPParticipant struct {
	ID        string
	Identity  string
	SIPCallID string
}

// RoomInfo is the gateway view of a live room.
type RoomInfo struct {
	Name            string
	NumParticipants int
	CreationTime    int64
}

// TrunkError is a SIP-level rejection (busy, declined, no-answer, carrier
// failure) surfaced by the trunk. StatusCode/StatusText carry the SIP status
// when the provider reports one.
type TrunkError struct {
	StatusCode string
	StatusText string
	Err        error
}

func (e *TrunkError) Error() string {
	if e.StatusCode != "" {
		return fmt.Sprintf("trunk rejected call: SIP %s %s", e.StatusCode, e.StatusText)
	}
	return fmt.Sprintf("trunk call failed: %v", e.Err)
}

func (e *TrunkError) Unwrap() error { return e.Err }
