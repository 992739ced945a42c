package audit

import (
	"context"
	"testing"
)

func TestService_AppendRequiresRoomAndType(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.Append(context.Background(), Event{Type: EventTypeTransition}); err == nil {
		t.Fatalf("expected error")
	}
	if err := svc.Append(context.Background(), Event{RoomName: "outbound-call-1"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestService_AppendsImmutableEvents(t *testing.T) {
	repo := NewMemoryRepo()
	svc := NewService(repo)

	if err := svc.LogTransition(context.Background(), "outbound-call-1", "call-1", "pending", "dispatched", ""); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if err := svc.LogGatewayAction(context.Background(), "outbound-call-1", "call-1", "room deleted"); err != nil {
		t.Fatalf("unexpected err: %v", err)
	}

	evs := repo.Events()
	if len(evs) != 2 {
		t.Fatalf("expected 2 events, got %d", len(evs))
	}
	if evs[0].Type != EventTypeTransition || evs[0].ToStatus != "dispatched" {
		t.Fatalf("expected transition event, got %+v", evs[0])
	}
	if evs[0].ID == "" || evs[0].CreatedAt.IsZero() {
		t.Fatalf("expected id and timestamp to be filled")
	}
	if evs[1].Type != EventTypeGateway {
		t.Fatalf("expected gateway event")
	}
}
