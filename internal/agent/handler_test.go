package agent

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/Rikhil-Nell/call-agent/internal/calls"
)

type fakeSession struct {
	mu      sync.Mutex
	replies []string
	err     error
}

func (f *fakeSession) GenerateReply(ctx context.Context, instructions string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, instructions)
	return f.err
}

func (f *fakeSession) replyCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.replies)
}

type fakeTerminator struct {
	mu      sync.Mutex
	calls   int
	rooms   []string
	reasons []calls.EndReason
	err     error
}

func (f *fakeTerminator) Terminate(ctx context.Context, roomName string, reason calls.EndReason) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.rooms = append(f.rooms, roomName)
	f.reasons = append(f.reasons, reason)
	return f.err
}

func (f *fakeTerminator) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestAnsweringMachineLeavesVoicemailThenHangsUp(t *testing.T) {
	session := &fakeSession{}
	term := &fakeTerminator{}
	h := NewInCallHandler("outbound-call-1", session, term, nil)
	h.grace = 5 * time.Millisecond

	start := time.Now()
	if err := h.OnAnsweringMachineDetected(context.Background()); err != nil {
		t.Fatalf("amd: %v", err)
	}
	if elapsed := time.Since(start); elapsed < h.grace {
		t.Fatalf("hung up before the grace interval: %v", elapsed)
	}

	if len(session.replies) != 1 || session.replies[0] != voicemailInstructions {
		t.Fatalf("expected one voicemail reply, got %+v", session.replies)
	}
	if term.count() != 1 || term.reasons[0] != calls.EndReasonAnsweringMachine {
		t.Fatalf("expected one answering-machine terminate, got %+v", term.reasons)
	}
}

func TestAnsweringMachineRunsAtMostOnce(t *testing.T) {
	session := &fakeSession{}
	term := &fakeTerminator{}
	h := NewInCallHandler("outbound-call-1", session, term, nil)
	h.grace = time.Millisecond

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.OnAnsweringMachineDetected(context.Background())
		}()
	}
	wg.Wait()

	if session.replyCount() != 1 {
		t.Fatalf("expected a single voicemail reply, got %d", session.replyCount())
	}
	if term.count() != 1 {
		t.Fatalf("expected a single terminate, got %d", term.count())
	}
}

func TestAnsweringMachineTerminatesDespiteCancelledContext(t *testing.T) {
	session := &fakeSession{}
	term := &fakeTerminator{}
	h := NewInCallHandler("outbound-call-1", session, term, nil)
	h.grace = time.Hour // cancellation must cut the wait short

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan error, 1)
	go func() { done <- h.OnAnsweringMachineDetected(ctx) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("amd: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("grace wait ignored context cancellation")
	}
	if term.count() != 1 {
		t.Fatalf("expected terminate to run on the cancelled path, got %d", term.count())
	}
}

func TestUserRequestedEndTerminatesImmediately(t *testing.T) {
	session := &fakeSession{}
	term := &fakeTerminator{}
	h := NewInCallHandler("outbound-call-1", session, term, nil)

	if err := h.OnUserRequestedEnd(context.Background()); err != nil {
		t.Fatalf("end: %v", err)
	}
	if session.replyCount() != 0 {
		t.Fatalf("expected no reply on user-requested end")
	}
	if term.count() != 1 || term.reasons[0] != calls.EndReasonUserRequested {
		t.Fatalf("expected one user-requested terminate, got %+v", term.reasons)
	}
	if term.rooms[0] != "outbound-call-1" {
		t.Fatalf("terminated the wrong room: %q", term.rooms[0])
	}
}
