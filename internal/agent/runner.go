package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
	"github.com/Rikhil-Nell/call-agent/internal/telephony"
)

// Controller is the slice of the lifecycle controller the runner needs.
type Controller interface {
	Terminator
	StartInboundCall(ctx context.Context, roomName string) (calls.Call, error)
}

// Runner wires one worker job to the lifecycle controller: it resolves the
// session instructions from the dispatch metadata, registers inbound calls
// and hands back the in-call tools for the live session.
type Runner struct {
	controller Controller
	log        *slog.Logger
}

func NewRunner(controller Controller, log *slog.Logger) *Runner {
	if log == nil {
		log = slog.Default()
	}
	return &Runner{controller: controller, log: log}
}

// HandleJob starts the conversational side of a call.
//
// Jobs carrying a phone number belong to an outbound call whose SIP leg was
// already bridged by the controller; the callee speaks first, so no reply is
// generated. Jobs without one are inbound: the call is registered active and
// the session greets the caller.
func (r *Runner) HandleJob(ctx context.Context, job Job, newSession SessionFactory) (*InCallHandler, error) {
	log := r.log.With("room", job.RoomName)

	meta, err := telephony.DecodeDispatchMetadata(job.Metadata)
	if err != nil {
		// Bad metadata downgrades the job to inbound handling rather than
		// dropping the caller.
		log.Warn("invalid job metadata", "err", err)
		meta = telephony.DispatchMetadata{}
	}

	instructions := meta.CustomInstructions
	if instructions == "" {
		instructions = DefaultInstructions
	}

	session, err := newSession(instructions)
	if err != nil {
		return nil, fmt.Errorf("agent: session start: %w", err)
	}

	if meta.PhoneNumber == "" {
		if _, err := r.controller.StartInboundCall(ctx, job.RoomName); err != nil {
			return nil, err
		}
		log.Info("inbound call registered, greeting caller")
		if err := session.GenerateReply(ctx, greetingInstructions); err != nil {
			return nil, fmt.Errorf("agent: greeting: %w", err)
		}
	} else {
		log.Info("outbound call session started, waiting for recipient to speak", "phone", meta.PhoneNumber)
	}

	return NewInCallHandler(job.RoomName, session, r.controller, r.log), nil
}
