package telephony

import (
	"context"
	"errors"
	"fmt"

	"github.com/livekit/protocol/livekit"
	lksdk "github.com/livekit/server-sdk-go/v2"
	"github.com/twitchtv/twirp"
)

// Credentials identify this process to the signaling provider.
// Lifecycle: process start to process shutdown; no ambient globals.
type Credentials struct {
	URL       string
	APIKey    string
	APISecret string
}

// LiveKitTrunk implements TrunkGateway on the LiveKit room and SIP services.
type LiveKitTrunk struct {
	rooms *lksdk.RoomServiceClient
	sip   *lksdk.SIPClient
}

func NewLiveKitTrunk(creds Credentials) *LiveKitTrunk {
	return &LiveKitTrunk{
		rooms: lksdk.NewRoomServiceClient(creds.URL, creds.APIKey, creds.APISecret),
		sip:   lksdk.NewSIPClient(creds.URL, creds.APIKey, creds.APISecret),
	}
}

func (g *LiveKitTrunk) CreateSIPParticipant(ctx context.Context, req SIPParticipantRequest) (SIPParticipant, error) {
	if req.RoomName == "" || req.TrunkID == "" || req.Destination == "" {
		return SIPParticipant{}, fmt.Errorf("telephony: room, trunk and destination are required")
	}
	info, err := g.sip.CreateSIPParticipant(ctx, &livekit.CreateSIPParticipantRequest{
		SipTrunkId:          req.TrunkID,
		SipCallTo:           req.Destination,
		RoomName:            req.RoomName,
		ParticipantIdentity: req.Identity,
		WaitUntilAnswered:   req.WaitUntilAnswered,
	})
	if err != nil {
		return SIPParticipant{}, asTrunkError(err)
	}
	return SIPParticipant{
		ID:        info.ParticipantId,
		Identity:  info.ParticipantIdentity,
		SIPCallID: info.SipCallId,
	}, nil
}

func (g *LiveKitTrunk) ListRooms(ctx context.Context, names []string) ([]RoomInfo, error) {
	res, err := g.rooms.ListRooms(ctx, &livekit.ListRoomsRequest{Names: names})
	if err != nil {
		return nil, fmt.Errorf("telephony: list rooms: %w", err)
	}
	out := make([]RoomInfo, 0, len(res.Rooms))
	for _, r := range res.Rooms {
		out = append(out, RoomInfo{
			Name:            r.Name,
			NumParticipants: int(r.NumParticipants),
			CreationTime:    r.CreationTime,
		})
	}
	return out, nil
}

func (g *LiveKitTrunk) DeleteRoom(ctx context.Context, name string) error {
	_, err := g.rooms.DeleteRoom(ctx, &livekit.DeleteRoomRequest{Room: name})
	if err != nil {
		var terr twirp.Error
		if errors.As(err, &terr) && terr.Code() == twirp.NotFound {
			// Room already gone; delete is idempotent.
			return nil
		}
		return fmt.Errorf("telephony: delete room %q: %w", name, err)
	}
	return nil
}

// LiveKitDispatch implements DispatchGateway on the LiveKit agent dispatch
// service.
type LiveKitDispatch struct {
	dispatch *lksdk.AgentDispatchClient
}

func NewLiveKitDispatch(creds Credentials) *LiveKitDispatch {
	return &LiveKitDispatch{
		dispatch: lksdk.NewAgentDispatchServiceClient(creds.URL, creds.APIKey, creds.APISecret),
	}
}

func (g *LiveKitDispatch) CreateDispatch(ctx context.Context, job DispatchJob) (string, error) {
	if job.AgentName == "" || job.RoomName == "" {
		return "", fmt.Errorf("telephony: agent name and room are required")
	}
	res, err := g.dispatch.CreateDispatch(ctx, &livekit.CreateAgentDispatchRequest{
		AgentName: job.AgentName,
		Room:      job.RoomName,
		Metadata:  job.Metadata,
	})
	if err != nil {
		return "", fmt.Errorf("telephony: create dispatch: %w", err)
	}
	return res.Id, nil
}

// asTrunkError converts a provider error into a TrunkError, pulling the SIP
// status metadata LiveKit attaches to twirp errors when the carrier rejected
// the call.
func asTrunkError(err error) error {
	te := &TrunkError{Err: err}
	var terr twirp.Error
	if errors.As(err, &terr) {
		te.StatusCode = terr.Meta("sip_status_code")
		te.StatusText = terr.Meta("sip_status")
	}
	return te
}
