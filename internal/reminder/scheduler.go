// Package reminder derives absolute-fire-time notification requests from an
// event's date, time and lead times, and keeps that set consistent with the
// event's current state.
package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DefaultTimeOfDay is assumed for events that carry a date but no time.
const DefaultTimeOfDay = "00:00"

const (
	dateLayout = "2006-01-02"
	timeLayout = "15:04"
)

// Handle identifies a notification request held by the notifier.
type Handle string

// Payload carries the user visible content of a reminder notification.
type Payload struct {
	EventID     string
	Title       string
	Message     string
	LeadMinutes int
}

// Notifier is the external notification collaborator.
type Notifier interface {
	RequestPermission(ctx context.Context) (bool, error)
	ScheduleAt(ctx context.Context, fireAt time.Time, payload Payload) (Handle, error)
	Cancel(ctx context.Context, handle Handle) error
}

// Event is the slice of an agenda entry the scheduler needs.
type Event struct {
	ID        string
	Title     string
	Date      string // dateLayout
	Time      string // timeLayout, may be empty
	Reminders []int  // minutes before the event instant
}

// Scheduler translates events into scheduled notifications and retains the
// handles so they can be cancelled or replaced later. It degrades gracefully:
// a denied permission or a single rejected request reduces the set of active
// reminders without failing the triggering operation.
type Scheduler struct {
	mu          sync.Mutex
	notifier    Notifier
	now         func() time.Time
	location    *time.Location
	defaultTime string
	logger      *slog.Logger
	handles     map[string][]Handle
}

// NewScheduler wires a scheduler against the given notifier.
func NewScheduler(notifier Notifier, now func() time.Time, location *time.Location, defaultTime string) *Scheduler {
	return NewSchedulerWithLogger(notifier, now, location, defaultTime, nil)
}

// NewSchedulerWithLogger wires a scheduler with an explicit base logger.
func NewSchedulerWithLogger(notifier Notifier, now func() time.Time, location *time.Location, defaultTime string, logger *slog.Logger) *Scheduler {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.Local
	}
	if defaultTime == "" {
		defaultTime = DefaultTimeOfDay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		notifier:    notifier,
		now:         now,
		location:    location,
		defaultTime: defaultTime,
		logger:      logger,
		handles:     make(map[string][]Handle),
	}
}

// Schedule requests one notification per lead time of the event. Fire times
// already in the past are silently skipped, and a rejected request is logged
// without aborting the remaining lead times.
func (s *Scheduler) Schedule(ctx context.Context, event Event) error {
	if s == nil {
		return fmt.Errorf("Scheduler is nil")
	}
	if len(event.Reminders) == 0 || s.notifier == nil {
		return nil
	}
	logger := s.logger.With("service", "reminders", "event_id", event.ID)

	instant, err := s.eventInstant(event)
	if err != nil {
		return fmt.Errorf("resolve event instant: %w", err)
	}

	granted, err := s.notifier.RequestPermission(ctx)
	if err != nil {
		logger.Warn("notification permission check failed", "error", err)
		return nil
	}
	if !granted {
		logger.Info("notification permission denied, skipping reminders")
		return nil
	}

	now := s.now()
	scheduled := make([]Handle, 0, len(event.Reminders))
	for _, lead := range event.Reminders {
		fireAt := instant.Add(-time.Duration(lead) * time.Minute)
		if !fireAt.After(now) {
			continue
		}
		handle, err := s.notifier.ScheduleAt(ctx, fireAt, Payload{
			EventID:     event.ID,
			Title:       event.Title,
			Message:     reminderMessage(event, lead),
			LeadMinutes: lead,
		})
		if err != nil {
			logger.Warn("reminder request rejected", "lead_minutes", lead, "error", err)
			continue
		}
		scheduled = append(scheduled, handle)
	}

	if len(scheduled) == 0 {
		return nil
	}

	s.mu.Lock()
	s.handles[event.ID] = append(s.handles[event.ID], scheduled...)
	s.mu.Unlock()
	return nil
}

// Reschedule cancels every retained handle for the event and schedules a
// fresh set. Calling it twice with identical input yields the same net set
// of active notifications.
func (s *Scheduler) Reschedule(ctx context.Context, event Event) error {
	if s == nil {
		return fmt.Errorf("Scheduler is nil")
	}
	if err := s.Cancel(ctx, event.ID); err != nil {
		return err
	}
	return s.Schedule(ctx, event)
}

// Cancel drops every retained handle for the event id. Cancelling an id with
// no retained handles is a no-op.
func (s *Scheduler) Cancel(ctx context.Context, eventID string) error {
	if s == nil {
		return fmt.Errorf("Scheduler is nil")
	}

	s.mu.Lock()
	handles := s.handles[eventID]
	delete(s.handles, eventID)
	s.mu.Unlock()

	if len(handles) == 0 || s.notifier == nil {
		return nil
	}

	logger := s.logger.With("service", "reminders", "event_id", eventID)
	for _, handle := range handles {
		if err := s.notifier.Cancel(ctx, handle); err != nil {
			logger.Warn("reminder cancellation failed", "handle", string(handle), "error", err)
		}
	}
	return nil
}

// ActiveHandles returns the retained handles for the event id.
func (s *Scheduler) ActiveHandles(eventID string) []Handle {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	handles := s.handles[eventID]
	if len(handles) == 0 {
		return nil
	}
	out := make([]Handle, len(handles))
	copy(out, handles)
	return out
}

// eventInstant resolves the absolute instant of the event in the scheduler's
// location, falling back to the configured default time-of-day when the
// event has no time.
func (s *Scheduler) eventInstant(event Event) (time.Time, error) {
	timeOfDay := event.Time
	if timeOfDay == "" {
		timeOfDay = s.defaultTime
	}
	instant, err := time.ParseInLocation(dateLayout+" "+timeLayout, event.Date+" "+timeOfDay, s.location)
	if err != nil {
		return time.Time{}, err
	}
	return instant, nil
}

func reminderMessage(event Event, lead int) string {
	if lead <= 0 {
		return fmt.Sprintf("%s is starting now", event.Title)
	}
	return fmt.Sprintf("%s in %d minutes", event.Title, lead)
}
