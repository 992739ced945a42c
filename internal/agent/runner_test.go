package agent

import (
	"context"
	"sync"
	"testing"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
)

type fakeController struct {
	fakeTerminator

	inboundMu    sync.Mutex
	inboundRooms []string
	inboundErr   error
}

func (f *fakeController) StartInboundCall(ctx context.Context, roomName string) (calls.Call, error) {
	f.inboundMu.Lock()
	defer f.inboundMu.Unlock()
	if f.inboundErr != nil {
		return calls.Call{}, f.inboundErr
	}
	f.inboundRooms = append(f.inboundRooms, roomName)
	return calls.Call{RoomName: roomName, Status: calls.StatusActive}, nil
}

func sessionFactoryFor(session *fakeSession, gotInstructions *string) SessionFactory {
	return func(instructions string) (Session, error) {
		*gotInstructions = instructions
		return session, nil
	}
}

func TestHandleJob_OutboundDoesNotSpeakFirst(t *testing.T) {
	ctrl := &fakeController{}
	runner := NewRunner(ctrl, nil)
	session := &fakeSession{}

	var gotInstructions string
	job := Job{
		RoomName: "outbound-call-15551234567",
		Metadata: `{"phone_number":"+15551234567","custom_instructions":"You are a scheduling assistant."}`,
	}
	handler, err := runner.HandleJob(context.Background(), job, sessionFactoryFor(session, &gotInstructions))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}
	if handler == nil {
		t.Fatalf("expected in-call handler")
	}
	if gotInstructions != "You are a scheduling assistant." {
		t.Fatalf("expected custom instructions, got %q", gotInstructions)
	}
	if session.replyCount() != 0 {
		t.Fatalf("outbound session must wait for the recipient, got %d replies", session.replyCount())
	}
	if len(ctrl.inboundRooms) != 0 {
		t.Fatalf("outbound job must not register an inbound call")
	}
}

func TestHandleJob_InboundRegistersAndGreets(t *testing.T) {
	ctrl := &fakeController{}
	runner := NewRunner(ctrl, nil)
	session := &fakeSession{}

	var gotInstructions string
	job := Job{RoomName: "inbound-room-1"}
	if _, err := runner.HandleJob(context.Background(), job, sessionFactoryFor(session, &gotInstructions)); err != nil {
		t.Fatalf("handle: %v", err)
	}

	if gotInstructions != DefaultInstructions {
		t.Fatalf("expected default instructions, got %q", gotInstructions)
	}
	if len(ctrl.inboundRooms) != 1 || ctrl.inboundRooms[0] != "inbound-room-1" {
		t.Fatalf("expected inbound registration, got %+v", ctrl.inboundRooms)
	}
	if len(session.replies) != 1 || session.replies[0] != greetingInstructions {
		t.Fatalf("expected one greeting, got %+v", session.replies)
	}
}

func TestHandleJob_InvalidMetadataFallsBackToInbound(t *testing.T) {
	ctrl := &fakeController{}
	runner := NewRunner(ctrl, nil)
	session := &fakeSession{}

	var gotInstructions string
	job := Job{RoomName: "some-room", Metadata: `{not json`}
	if _, err := runner.HandleJob(context.Background(), job, sessionFactoryFor(session, &gotInstructions)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if gotInstructions != DefaultInstructions {
		t.Fatalf("expected default instructions, got %q", gotInstructions)
	}
	if len(ctrl.inboundRooms) != 1 {
		t.Fatalf("expected inbound handling for malformed metadata")
	}
}

func TestHandleJob_CustomInstructionsWithoutPhoneStillInbound(t *testing.T) {
	ctrl := &fakeController{}
	runner := NewRunner(ctrl, nil)
	session := &fakeSession{}

	var gotInstructions string
	job := Job{RoomName: "inbound-room-2", Metadata: `{"custom_instructions":"Answer billing questions."}`}
	if _, err := runner.HandleJob(context.Background(), job, sessionFactoryFor(session, &gotInstructions)); err != nil {
		t.Fatalf("handle: %v", err)
	}
	if gotInstructions != "Answer billing questions." {
		t.Fatalf("expected custom instructions, got %q", gotInstructions)
	}
	if len(ctrl.inboundRooms) != 1 {
		t.Fatalf("expected inbound registration")
	}
}
