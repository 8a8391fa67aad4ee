package testfixtures

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/example/jusagenda/internal/reminder"
)

// ScheduledRequest records one accepted notification request.
type ScheduledRequest struct {
	Handle  reminder.Handle
	FireAt  time.Time
	Payload reminder.Payload
}

// RecordingNotifier implements reminder.Notifier and records every
// interaction for assertions.
type RecordingNotifier struct {
	mu          sync.Mutex
	Granted     bool
	ScheduleErr error
	counter     uint64
	active      map[reminder.Handle]ScheduledRequest
	cancelled   []reminder.Handle
}

// NewRecordingNotifier returns a notifier with permission granted.
func NewRecordingNotifier() *RecordingNotifier {
	return &RecordingNotifier{Granted: true, active: make(map[reminder.Handle]ScheduledRequest)}
}

// RequestPermission reports the configured grant.
func (n *RecordingNotifier) RequestPermission(ctx context.Context) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.Granted, nil
}

// ScheduleAt records the request and returns a fresh handle, or the injected
// ScheduleErr.
func (n *RecordingNotifier) ScheduleAt(ctx context.Context, fireAt time.Time, payload reminder.Payload) (reminder.Handle, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.ScheduleErr != nil {
		return "", n.ScheduleErr
	}
	n.counter++
	handle := reminder.Handle(fmt.Sprintf("handle-%d", n.counter))
	n.active[handle] = ScheduledRequest{Handle: handle, FireAt: fireAt, Payload: payload}
	return handle, nil
}

// Cancel records the cancellation and drops the request if present.
func (n *RecordingNotifier) Cancel(ctx context.Context, handle reminder.Handle) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.cancelled = append(n.cancelled, handle)
	delete(n.active, handle)
	return nil
}

// Active returns the requests currently scheduled for the event id.
func (n *RecordingNotifier) Active(eventID string) []ScheduledRequest {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]ScheduledRequest, 0)
	for _, req := range n.active {
		if req.Payload.EventID == eventID {
			out = append(out, req)
		}
	}
	return out
}

// Cancelled returns every handle that has been cancelled, in order.
func (n *RecordingNotifier) Cancelled() []reminder.Handle {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]reminder.Handle, len(n.cancelled))
	copy(out, n.cancelled)
	return out
}
