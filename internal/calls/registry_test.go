package calls

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestMemoryRegistry_UpsertGetDelete(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()

	if _, ok, _ := r.Get(ctx, "outbound-call-1"); ok {
		t.Fatalf("expected no entry")
	}

	c := Call{ID: "call-1", RoomName: "outbound-call-1", Status: StatusPending, CreatedAt: time.Now()}
	if err := r.Upsert(ctx, c); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	got, ok, err := r.Get(ctx, "outbound-call-1")
	if err != nil || !ok {
		t.Fatalf("get: ok=%v err=%v", ok, err)
	}
	if got.ID != "call-1" || got.Status != StatusPending {
		t.Fatalf("unexpected record: %+v", got)
	}

	if err := r.Delete(ctx, "outbound-call-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := r.Get(ctx, "outbound-call-1"); ok {
		t.Fatalf("expected entry removed")
	}
}

func TestMemoryRegistry_UpdateUnknownRoom(t *testing.T) {
	r := NewMemoryRegistry()
	_, err := r.Update(context.Background(), "nope", func(c Call) (Call, error) { return c, nil })
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMemoryRegistry_UpdateErrorLeavesRecordUntouched(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_ = r.Upsert(ctx, Call{RoomName: "outbound-call-1", Status: StatusActive})

	boom := errors.New("boom")
	_, err := r.Update(ctx, "outbound-call-1", func(c Call) (Call, error) {
		c.Status = StatusEnded
		return c, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error, got %v", err)
	}

	got, _, _ := r.Get(ctx, "outbound-call-1")
	if got.Status != StatusActive {
		t.Fatalf("expected record untouched, got %+v", got)
	}
}

// Concurrent readers must never observe a half-updated record: status and
// end reason are always swapped together.
func TestMemoryRegistry_AtomicSwapsUnderConcurrency(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_ = r.Upsert(ctx, Call{RoomName: "outbound-call-1", Status: StatusActive})

	stop := make(chan struct{})
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 500; i++ {
			_, _ = r.Update(ctx, "outbound-call-1", func(c Call) (Call, error) {
				if c.Status == StatusActive {
					c.Status = StatusEnded
					c.EndReason = EndReasonUserRequested
				} else {
					c.Status = StatusActive
					c.EndReason = ""
				}
				return c, nil
			})
		}
		close(stop)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			c, ok, err := r.Get(ctx, "outbound-call-1")
			if err != nil || !ok {
				t.Errorf("get failed: ok=%v err=%v", ok, err)
				return
			}
			if c.Status == StatusEnded && c.EndReason == "" {
				t.Errorf("observed half-updated record: %+v", c)
				return
			}
			if c.Status == StatusActive && c.EndReason != "" {
				t.Errorf("observed half-updated record: %+v", c)
				return
			}
		}
	}()

	wg.Wait()
}

func TestMemoryRegistry_ListIsSorted(t *testing.T) {
	ctx := context.Background()
	r := NewMemoryRegistry()
	_ = r.Upsert(ctx, Call{RoomName: "outbound-call-2"})
	_ = r.Upsert(ctx, Call{RoomName: "outbound-call-1"})

	out, err := r.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(out) != 2 || out[0].RoomName != "outbound-call-1" {
		t.Fatalf("unexpected list: %+v", out)
	}
}
