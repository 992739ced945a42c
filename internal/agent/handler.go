package agent

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
)

// voicemailGrace is how long to hold the line after the voicemail message so
// its trailing audio is not clipped.
const voicemailGrace = 500 * time.Millisecond

// Terminator is the slice of the lifecycle controller the in-call tools
// need.
type Terminator interface {
	Terminate(ctx context.Context, roomName string, reason calls.EndReason) error
}

// InCallHandler exposes the two in-call actions the conversational pipeline
// can invoke as tools during a live session. Both funnel into Terminate,
// whose idempotence makes cross-action races harmless.
type InCallHandler struct {
	roomName   string
	session    Session
	terminator Terminator
	grace      time.Duration
	log        *slog.Logger

	amdOnce sync.Once
}

func NewInCallHandler(roomName string, session Session, terminator Terminator, log *slog.Logger) *InCallHandler {
	if log == nil {
		log = slog.Default()
	}
	return &InCallHandler{
		roomName:   roomName,
		session:    session,
		terminator: terminator,
		grace:      voicemailGrace,
		log:        log.With("room", roomName),
	}
}

// OnAnsweringMachineDetected leaves a voicemail message, waits out the grace
// interval and terminates the call. The sequence runs at most once; the
// grace wait holds no locks and is bounded.
func (h *InCallHandler) OnAnsweringMachineDetected(ctx context.Context) error {
	var err error
	h.amdOnce.Do(func() {
		h.log.Info("answering machine detected, leaving voicemail")
		if replyErr := h.session.GenerateReply(ctx, voicemailInstructions); replyErr != nil {
			h.log.Warn("voicemail reply failed", "err", replyErr)
		}

		select {
		case <-time.After(h.grace):
		case <-ctx.Done():
		}

		err = h.terminator.Terminate(context.WithoutCancel(ctx), h.roomName, calls.EndReasonAnsweringMachine)
	})
	return err
}

// OnUserRequestedEnd terminates the call immediately, no grace period.
func (h *InCallHandler) OnUserRequestedEnd(ctx context.Context) error {
	h.log.Info("user requested end of call")
	return h.terminator.Terminate(ctx, h.roomName, calls.EndReasonUserRequested)
}
