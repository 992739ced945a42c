package calls

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Rikhil-Nell/call-agent/internal/audit"
	"github.com/Rikhil-Nell/call-agent/internal/telephony"
)

// ErrTerminated is returned when a call is torn down while its setup is
// still in flight (an end request racing an unanswered dial).
var ErrTerminated = errors.New("calls: call was terminated during setup")

// Archiver receives terminal calls for durable archiving (CDRs).
// Archiving is best-effort; failures are logged, never propagated.
type Archiver interface {
	Record(ctx context.Context, c Call) error
}

// DialLimiter caps concurrent outbound dials. Acquire returns false when no
// slot is available.
type DialLimiter interface {
	Acquire(ctx context.Context) (bool, error)
	Release(ctx context.Context) error
}

// ErrDialCapReached rejects a start when the concurrent-dial cap is hit.
var ErrDialCapReached = errors.New("calls: concurrent call limit reached")

// Options carries the deployment-time parameters of the controller. Trunk
// and agent identifiers are configuration values, not structural variants.
type Options struct {
	AgentName string
	TrunkID   string

	// DefaultInstructions seed the dispatched session when the caller
	// supplied none.
	DefaultInstructions string

	Archive Archiver       // optional
	Events  *audit.Service // optional
	Limiter DialLimiter    // optional
	Log     *slog.Logger
	Clock   func() time.Time
}

// Controller owns the call lifecycle: it is the only writer of call status
// and the only component that talks to both gateways.
//
// State machine: Pending -> Dispatched -> Ringing -> Active -> Ended, with
// Failed absorbing any gateway error before Active. Ended and Failed are
// terminal.
type Controller struct {
	registry Registry
	trunk    telephony.TrunkGateway
	dispatch telephony.DispatchGateway
	opts     Options

	mu    sync.Mutex
	dials map[string]context.CancelFunc
}

func NewController(registry Registry, trunk telephony.TrunkGateway, dispatch telephony.DispatchGateway, opts Options) *Controller {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	return &Controller{
		registry: registry,
		trunk:    trunk,
		dispatch: dispatch,
		opts:     opts,
		dials:    map[string]context.CancelFunc{},
	}
}

// StartOutboundCall validates the request, dispatches the worker job and
// bridges the SIP leg. It blocks until the trunk confirms pickup or reports
// failure; a concurrent Terminate or process shutdown unblocks it.
func (c *Controller) StartOutboundCall(ctx context.Context, req CallRequest) (Call, error) {
	digits, err := NormalizeNumber(req.PhoneNumber)
	if err != nil {
		return Call{}, err
	}
	roomName := RoomNameFor(digits)
	log := c.opts.Log.With("room", roomName)

	if c.opts.Limiter != nil {
		ok, err := c.opts.Limiter.Acquire(ctx)
		if err != nil {
			return Call{}, fmt.Errorf("calls: dial limiter: %w", err)
		}
		if !ok {
			return Call{}, ErrDialCapReached
		}
		defer func() {
			if err := c.opts.Limiter.Release(context.WithoutCancel(ctx)); err != nil {
				log.Warn("dial slot release failed", "err", err)
			}
		}()
	}

	// Claim the room. The dial map and the registry check sit under one
	// lock so two concurrent starts for the same number cannot both win.
	dialCtx, err := c.claimDial(ctx, roomName)
	if err != nil {
		return Call{}, err
	}
	defer c.releaseDial(roomName)

	instructions := req.Instructions
	if instructions == "" {
		instructions = c.opts.DefaultInstructions
	}

	now := c.opts.Clock().UTC()
	call := Call{
		ID:           CallIDFor(digits),
		RoomName:     roomName,
		Direction:    DirectionOutbound,
		Status:       StatusPending,
		PhoneNumber:  req.PhoneNumber,
		Instructions: instructions,
		CreatedAt:    now,
	}
	if err := c.registry.Upsert(ctx, call); err != nil {
		return Call{}, fmt.Errorf("calls: registry upsert: %w", err)
	}
	c.logTransition(ctx, call, "", StatusPending, "")

	metadata, err := telephony.DispatchMetadata{
		PhoneNumber:        req.PhoneNumber,
		CustomInstructions: instructions,
	}.Encode()
	if err != nil {
		c.markFailed(ctx, roomName, EndReasonError)
		return Call{}, fmt.Errorf("calls: encode dispatch metadata: %w", err)
	}

	dispatchID, err := c.dispatch.CreateDispatch(dialCtx, telephony.DispatchJob{
		AgentName: c.opts.AgentName,
		RoomName:  roomName,
		Metadata:  metadata,
	})
	if err != nil {
		// No trunk action has been taken; the failure stays on the
		// dispatcher side.
		log.Error("worker dispatch failed", "err", err)
		c.markFailed(ctx, roomName, EndReasonError)
		return Call{}, &DispatchError{Err: err}
	}
	call, err = c.transition(ctx, roomName, StatusDispatched, func(cur *Call) {
		cur.DispatchID = dispatchID
	})
	if err != nil {
		return call, err
	}
	log.Info("worker dispatched", "dispatch_id", dispatchID, "agent", c.opts.AgentName)

	call, err = c.transition(ctx, roomName, StatusRinging, nil)
	if err != nil {
		return call, err
	}

	// This blocks until pickup or trunk failure. A slow or unanswered call
	// must not be treated as success.
	participant, err := c.trunk.CreateSIPParticipant(dialCtx, telephony.SIPParticipantRequest{
		RoomName:          roomName,
		TrunkID:           c.opts.TrunkID,
		Destination:       req.PhoneNumber,
		Identity:          req.PhoneNumber,
		WaitUntilAnswered: true,
	})
	if err != nil {
		if dialCtx.Err() != nil {
			// Terminate (or shutdown) cancelled the dial; the terminal
			// status was already committed there.
			log.Info("in-flight dial cancelled")
			cur, ok, _ := c.registry.Get(context.WithoutCancel(ctx), roomName)
			if ok {
				return cur, ErrTerminated
			}
			return Call{}, ErrTerminated
		}
		log.Error("sip participant failed", "err", err)
		c.markFailed(ctx, roomName, EndReasonError)
		return Call{}, err
	}

	call, err = c.transition(ctx, roomName, StatusActive, func(cur *Call) {
		cur.ParticipantCount = 1
	})
	if err != nil {
		return call, err
	}
	log.Info("call picked up", "participant", participant.Identity, "sip_call_id", participant.SIPCallID)
	return call, nil
}

// StartInboundCall registers a call for a worker job that started without a
// dispatched phone number. There is no trunk step; the caller is already in
// the room.
func (c *Controller) StartInboundCall(ctx context.Context, roomName string) (Call, error) {
	if roomName == "" {
		return Call{}, errors.New("calls: room name is required")
	}
	now := c.opts.Clock().UTC()
	call := Call{
		ID:               "call-" + roomName,
		RoomName:         roomName,
		Direction:        DirectionInbound,
		Status:           StatusActive,
		CreatedAt:        now,
		ParticipantCount: 1,
	}
	if err := c.registry.Upsert(ctx, call); err != nil {
		return Call{}, fmt.Errorf("calls: registry upsert: %w", err)
	}
	c.logTransition(ctx, call, "", StatusActive, "")
	return call, nil
}

// Terminate drives the call to a terminal status. Idempotent: terminating an
// already-ended call is a no-op. Safe to call concurrently with a start still
// awaiting pickup; the in-flight dial is cancelled rather than raced.
func (c *Controller) Terminate(ctx context.Context, roomName string, reason EndReason) error {
	log := c.opts.Log.With("room", roomName, "reason", string(reason))

	c.mu.Lock()
	if cancel, ok := c.dials[roomName]; ok {
		cancel()
	}
	c.mu.Unlock()

	cur, ok, err := c.registry.Get(ctx, roomName)
	if err != nil {
		return fmt.Errorf("calls: registry get: %w", err)
	}
	if ok && cur.Terminal() {
		// Second terminate: no additional trunk side effect.
		return nil
	}

	if err := c.trunk.DeleteRoom(ctx, roomName); err != nil {
		log.Error("room delete failed", "err", err)
		return fmt.Errorf("calls: end call: %w", err)
	}
	if c.opts.Events != nil {
		_ = c.opts.Events.LogGatewayAction(ctx, roomName, cur.ID, "room deleted")
	}
	if !ok {
		// Unknown to the registry: the room delete is all there is to do.
		log.Info("terminated unregistered room")
		return nil
	}

	now := c.opts.Clock().UTC()
	changed := false
	updated, err := c.registry.Update(ctx, roomName, func(call Call) (Call, error) {
		if call.Terminal() {
			return call, nil
		}
		from := call.Status
		if call.Status == StatusActive {
			call.Status = StatusEnded
		} else {
			// Cancellation before pickup confirmation.
			call.Status = StatusFailed
		}
		call.EndReason = reason
		call.EndedAt = &now
		call.ParticipantCount = 0
		changed = true
		c.logTransition(ctx, call, from, call.Status, string(reason))
		return call, nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil
		}
		return fmt.Errorf("calls: registry update: %w", err)
	}
	if changed {
		c.archive(ctx, updated)
	}
	log.Info("call terminated", "status", string(updated.Status))
	return nil
}

// GetStatus reports call liveness from the trunk's live room listing:
// participants > 0 means active, an existing empty room means ended, an
// absent room means not_found (already cleaned up).
func (c *Controller) GetStatus(ctx context.Context, roomName string) (StatusView, error) {
	rooms, err := c.trunk.ListRooms(ctx, []string{roomName})
	if err != nil {
		return StatusView{}, fmt.Errorf("calls: room lookup: %w", err)
	}
	for _, room := range rooms {
		if room.Name != roomName {
			continue
		}
		view := StatusView{
			RoomName:     roomName,
			Participants: room.NumParticipants,
			CreationTime: room.CreationTime,
		}
		if room.NumParticipants > 0 {
			view.Status = StatusViewActive
		} else {
			view.Status = StatusViewEnded
		}
		c.reconcileParticipants(ctx, roomName, room.NumParticipants)
		return view, nil
	}

	c.reconcileMissingRoom(ctx, roomName)
	return StatusView{RoomName: roomName, Status: StatusViewNotFound}, nil
}

// claimDial registers a cancellable dial for the room, rejecting when a dial
// is already in flight or the registry holds a live call for the room.
func (c *Controller) claimDial(ctx context.Context, roomName string) (context.Context, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, busy := c.dials[roomName]; busy {
		return nil, ErrCallInProgress
	}
	if cur, ok, err := c.registry.Get(ctx, roomName); err != nil {
		return nil, fmt.Errorf("calls: registry get: %w", err)
	} else if ok && !cur.Terminal() {
		return nil, ErrCallInProgress
	}

	dialCtx, cancel := context.WithCancel(ctx)
	c.dials[roomName] = cancel
	return dialCtx, nil
}

func (c *Controller) releaseDial(roomName string) {
	c.mu.Lock()
	if cancel, ok := c.dials[roomName]; ok {
		cancel()
		delete(c.dials, roomName)
	}
	c.mu.Unlock()
}

// dialing reports whether a dial is currently in flight for the room.
func (c *Controller) dialing(roomName string) bool {
	c.mu.Lock()
	_, ok := c.dials[roomName]
	c.mu.Unlock()
	return ok
}

// transition advances the call unless it already reached a terminal status,
// in which case ErrTerminated is returned so setup flows stop cleanly.
func (c *Controller) transition(ctx context.Context, roomName string, to Status, mutate func(*Call)) (Call, error) {
	updated, err := c.registry.Update(ctx, roomName, func(call Call) (Call, error) {
		if call.Terminal() {
			return call, ErrTerminated
		}
		from := call.Status
		call.Status = to
		if mutate != nil {
			mutate(&call)
		}
		c.logTransition(ctx, call, from, to, "")
		return call, nil
	})
	if err != nil {
		return updated, err
	}
	return updated, nil
}

// markFailed commits a Failed status for a setup-phase error. Terminal
// records are left untouched.
func (c *Controller) markFailed(ctx context.Context, roomName string, reason EndReason) {
	ctx = context.WithoutCancel(ctx)
	now := c.opts.Clock().UTC()
	changed := false
	updated, err := c.registry.Update(ctx, roomName, func(call Call) (Call, error) {
		if call.Terminal() {
			return call, nil
		}
		from := call.Status
		call.Status = StatusFailed
		call.EndReason = reason
		call.EndedAt = &now
		changed = true
		c.logTransition(ctx, call, from, StatusFailed, string(reason))
		return call, nil
	})
	if err != nil {
		c.opts.Log.Warn("failed-status commit failed", "room", roomName, "err", err)
		return
	}
	if changed {
		c.archive(ctx, updated)
	}
}

// reconcileParticipants mirrors the trunk's live participant count into the
// registry record, best-effort.
func (c *Controller) reconcileParticipants(ctx context.Context, roomName string, n int) {
	_, _ = c.registry.Update(ctx, roomName, func(call Call) (Call, error) {
		if call.Terminal() {
			return call, nil
		}
		call.ParticipantCount = n
		return call, nil
	})
}

// reconcileMissingRoom ends a registry record whose room the trunk no longer
// knows. A dial in flight is left alone; its room may simply not exist yet.
func (c *Controller) reconcileMissingRoom(ctx context.Context, roomName string) {
	if c.dialing(roomName) {
		return
	}
	now := c.opts.Clock().UTC()
	changed := false
	updated, err := c.registry.Update(ctx, roomName, func(call Call) (Call, error) {
		if call.Status != StatusActive {
			return call, nil
		}
		c.logTransition(ctx, call, StatusActive, StatusEnded, string(EndReasonError))
		call.Status = StatusEnded
		call.EndReason = EndReasonError
		call.EndedAt = &now
		call.ParticipantCount = 0
		changed = true
		return call, nil
	})
	if err != nil || !changed {
		return
	}
	c.archive(ctx, updated)
}

func (c *Controller) archive(ctx context.Context, call Call) {
	if c.opts.Archive == nil || !call.Terminal() {
		return
	}
	if err := c.opts.Archive.Record(context.WithoutCancel(ctx), call); err != nil {
		c.opts.Log.Warn("cdr archive failed", "room", call.RoomName, "err", err)
	}
}

func (c *Controller) logTransition(ctx context.Context, call Call, from, to Status, reason string) {
	if c.opts.Events == nil {
		return
	}
	if err := c.opts.Events.LogTransition(context.WithoutCancel(ctx), call.RoomName, call.ID, string(from), string(to), reason); err != nil {
		c.opts.Log.Warn("event append failed", "room", call.RoomName, "err", err)
	}
}
