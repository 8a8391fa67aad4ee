// Package notification provides the in-process notification collaborator
// used by the reminder scheduler. Requests are held in memory and delivered
// by a periodic sweep once their fire time passes.
package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/example/jusagenda/internal/reminder"
)

// DefaultSweepSpec checks for due notifications once a minute.
const DefaultSweepSpec = "* * * * *"

// ErrPermissionDenied is returned by ScheduleAt when notifications are
// disabled for this process.
var ErrPermissionDenied = errors.New("notification: permission denied")

// DeliveryFunc receives a due notification.
type DeliveryFunc func(payload reminder.Payload)

type request struct {
	fireAt  time.Time
	payload reminder.Payload
}

// Dispatcher implements reminder.Notifier. Cancelling an unknown handle is a
// no-op, which keeps cancellation idempotent for its callers.
type Dispatcher struct {
	mu      sync.Mutex
	granted bool
	pending map[reminder.Handle]request
	deliver DeliveryFunc
	now     func() time.Time
	logger  *slog.Logger
	cron    *cron.Cron
}

// NewDispatcher builds a dispatcher. The granted flag models the user's
// notification permission; deliver may be nil, in which case due
// notifications are only logged.
func NewDispatcher(granted bool, deliver DeliveryFunc, now func() time.Time, logger *slog.Logger) *Dispatcher {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Dispatcher{
		granted: granted,
		pending: make(map[reminder.Handle]request),
		deliver: deliver,
		now:     now,
		logger:  logger,
	}
}

// RequestPermission reports whether notifications may be scheduled.
func (d *Dispatcher) RequestPermission(ctx context.Context) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.granted, nil
}

// ScheduleAt registers a notification request and returns its handle.
func (d *Dispatcher) ScheduleAt(ctx context.Context, fireAt time.Time, payload reminder.Payload) (reminder.Handle, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if !d.granted {
		return "", ErrPermissionDenied
	}

	handle := reminder.Handle(uuid.NewString())
	d.pending[handle] = request{fireAt: fireAt, payload: payload}
	return handle, nil
}

// Cancel removes a pending request. Unknown handles are ignored.
func (d *Dispatcher) Cancel(ctx context.Context, handle reminder.Handle) error {
	d.mu.Lock()
	delete(d.pending, handle)
	d.mu.Unlock()
	return nil
}

// Start begins the periodic sweep using the given cron spec. An empty spec
// falls back to DefaultSweepSpec.
func (d *Dispatcher) Start(spec string) error {
	if spec == "" {
		spec = DefaultSweepSpec
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.cron != nil {
		return fmt.Errorf("notification: dispatcher already started")
	}

	c := cron.New()
	if _, err := c.AddFunc(spec, d.Sweep); err != nil {
		return fmt.Errorf("notification: invalid sweep spec %q: %w", spec, err)
	}
	c.Start()
	d.cron = c
	return nil
}

// Stop halts the periodic sweep and waits for an in-flight run to finish.
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	c := d.cron
	d.cron = nil
	d.mu.Unlock()

	if c != nil {
		<-c.Stop().Done()
	}
}

// Sweep delivers every pending notification whose fire time has passed.
func (d *Dispatcher) Sweep() {
	now := d.now()

	d.mu.Lock()
	due := make([]request, 0)
	for handle, req := range d.pending {
		if req.fireAt.After(now) {
			continue
		}
		due = append(due, req)
		delete(d.pending, handle)
	}
	deliver := d.deliver
	d.mu.Unlock()

	sort.Slice(due, func(i, j int) bool { return due[i].fireAt.Before(due[j].fireAt) })

	for _, req := range due {
		d.logger.Info("reminder due",
			"event_id", req.payload.EventID,
			"title", req.payload.Title,
			"message", req.payload.Message,
			"fire_at", req.fireAt)
		if deliver != nil {
			deliver(req.payload)
		}
	}
}

// PendingCount reports how many requests are waiting to fire.
func (d *Dispatcher) PendingCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.pending)
}
