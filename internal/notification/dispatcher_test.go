package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/example/jusagenda/internal/reminder"
)

type deliveryRecorder struct {
	mu       sync.Mutex
	payloads []reminder.Payload
}

func (r *deliveryRecorder) deliver(payload reminder.Payload) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.payloads = append(r.payloads, payload)
}

func (r *deliveryRecorder) delivered() []reminder.Payload {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]reminder.Payload, len(r.payloads))
	copy(out, r.payloads)
	return out
}

type movableClock struct {
	mu      sync.Mutex
	instant time.Time
}

func newMovableClock() *movableClock {
	return &movableClock{instant: time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *movableClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.instant
}

func (c *movableClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.instant = c.instant.Add(d)
}

func TestDispatcher_ScheduleAndSweep(t *testing.T) {
	t.Parallel()

	clock := newMovableClock()
	recorder := &deliveryRecorder{}
	d := NewDispatcher(true, recorder.deliver, clock.now, nil)

	later := clock.now().Add(30 * time.Minute)
	payload := reminder.Payload{EventID: "event-1", Title: "Audiência", Message: "Audiência in 30 minutes", LeadMinutes: 30}
	handle, err := d.ScheduleAt(context.Background(), later, payload)
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}
	if handle == "" {
		t.Fatal("expected a non-empty handle")
	}

	// Not due yet.
	d.Sweep()
	if got := recorder.delivered(); len(got) != 0 {
		t.Fatalf("expected no deliveries before fire time, got %v", got)
	}
	if d.PendingCount() != 1 {
		t.Fatalf("expected request still pending, got %d", d.PendingCount())
	}

	clock.advance(31 * time.Minute)
	d.Sweep()

	got := recorder.delivered()
	if len(got) != 1 || got[0].EventID != "event-1" {
		t.Fatalf("expected one delivery for event-1, got %v", got)
	}
	if d.PendingCount() != 0 {
		t.Fatalf("expected delivered request removed, got %d pending", d.PendingCount())
	}

	// A second sweep must not re-deliver.
	d.Sweep()
	if got := recorder.delivered(); len(got) != 1 {
		t.Fatalf("expected no duplicate delivery, got %v", got)
	}
}

func TestDispatcher_SweepDeliversInFireOrder(t *testing.T) {
	t.Parallel()

	clock := newMovableClock()
	recorder := &deliveryRecorder{}
	d := NewDispatcher(true, recorder.deliver, clock.now, nil)

	base := clock.now()
	for _, req := range []struct {
		id     string
		offset time.Duration
	}{
		{id: "late", offset: 20 * time.Minute},
		{id: "early", offset: 5 * time.Minute},
		{id: "middle", offset: 10 * time.Minute},
	} {
		if _, err := d.ScheduleAt(context.Background(), base.Add(req.offset), reminder.Payload{EventID: req.id}); err != nil {
			t.Fatalf("schedule %s failed: %v", req.id, err)
		}
	}

	clock.advance(time.Hour)
	d.Sweep()

	got := recorder.delivered()
	if len(got) != 3 {
		t.Fatalf("expected 3 deliveries, got %d", len(got))
	}
	for i, want := range []string{"early", "middle", "late"} {
		if got[i].EventID != want {
			t.Fatalf("expected delivery order early/middle/late, got %v", got)
		}
	}
}

func TestDispatcher_PermissionDenied(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(false, nil, nil, nil)

	granted, err := d.RequestPermission(context.Background())
	if err != nil || granted {
		t.Fatalf("expected permission denied, got granted=%v err=%v", granted, err)
	}

	_, err = d.ScheduleAt(context.Background(), time.Now().Add(time.Hour), reminder.Payload{EventID: "event-1"})
	if !errors.Is(err, ErrPermissionDenied) {
		t.Fatalf("expected ErrPermissionDenied, got %v", err)
	}
}

func TestDispatcher_CancelIsIdempotent(t *testing.T) {
	t.Parallel()

	clock := newMovableClock()
	recorder := &deliveryRecorder{}
	d := NewDispatcher(true, recorder.deliver, clock.now, nil)

	handle, err := d.ScheduleAt(context.Background(), clock.now().Add(time.Minute), reminder.Payload{EventID: "event-1"})
	if err != nil {
		t.Fatalf("schedule failed: %v", err)
	}

	if err := d.Cancel(context.Background(), handle); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if err := d.Cancel(context.Background(), handle); err != nil {
		t.Fatalf("repeat cancel failed: %v", err)
	}
	if err := d.Cancel(context.Background(), "unknown-handle"); err != nil {
		t.Fatalf("unknown cancel failed: %v", err)
	}

	clock.advance(time.Hour)
	d.Sweep()
	if got := recorder.delivered(); len(got) != 0 {
		t.Fatalf("expected cancelled request never delivered, got %v", got)
	}
}

func TestDispatcher_StartRejectsInvalidSpec(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(true, nil, nil, nil)
	if err := d.Start("not a cron spec"); err == nil {
		t.Fatal("expected an error for an invalid sweep spec")
	}
}

func TestDispatcher_StartStop(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(true, nil, nil, nil)
	if err := d.Start(""); err != nil {
		t.Fatalf("start failed: %v", err)
	}
	if err := d.Start(DefaultSweepSpec); err == nil {
		t.Fatal("expected second start to fail")
	}
	d.Stop()

	// Stopping twice is harmless, and the dispatcher can start again.
	d.Stop()
	if err := d.Start(DefaultSweepSpec); err != nil {
		t.Fatalf("restart failed: %v", err)
	}
	d.Stop()
}
