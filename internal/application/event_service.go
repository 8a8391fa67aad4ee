package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// Persistence stores the canonical event list between sessions. The service
// loads it once on hydration and writes it back after every mutation.
type Persistence interface {
	Load(ctx context.Context) ([]Event, error)
	Save(ctx context.Context, events []Event) error
}

// ReminderScheduler keeps scheduled notifications consistent with the
// current state of an event.
type ReminderScheduler interface {
	Schedule(ctx context.Context, event Event) error
	Reschedule(ctx context.Context, event Event) error
	Cancel(ctx context.Context, eventID string) error
}

// EventService owns the canonical event collection. All mutations go through
// it; callers only ever hold snapshots. Mutations are applied optimistically:
// the in-memory change stands even when the persistence write fails, and the
// failure is surfaced as a *PersistenceError alongside the mutated record.
type EventService struct {
	mu          sync.Mutex
	events      []Event
	revision    uint64
	persistence Persistence
	scheduler   ReminderScheduler
	undo        *undoCoordinator
	cache       *searchCache
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewEventService wires dependencies for agenda operations.
func NewEventService(persistence Persistence, scheduler ReminderScheduler, idGenerator func() string, now func() time.Time, grace time.Duration) *EventService {
	return NewEventServiceWithLogger(persistence, scheduler, idGenerator, now, grace, nil)
}

// NewEventServiceWithLogger wires dependencies for agenda operations with an
// explicit base logger.
func NewEventServiceWithLogger(persistence Persistence, scheduler ReminderScheduler, idGenerator func() string, now func() time.Time, grace time.Duration, logger *slog.Logger) *EventService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	s := &EventService{
		persistence: persistence,
		scheduler:   scheduler,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
		cache:       newSearchCache(0, 0, now),
	}
	s.undo = newUndoCoordinator(grace, now, s.confirmDelete)
	return s
}

// Hydrate replaces the in-memory collection with the persisted event list.
// It is intended to run once at startup, before any mutation.
func (s *EventService) Hydrate(ctx context.Context) error {
	if s == nil {
		return fmt.Errorf("EventService is nil")
	}
	if s.persistence == nil {
		return nil
	}

	events, err := s.persistence.Load(ctx)
	if err != nil {
		return &PersistenceError{Op: "load", Err: err}
	}

	s.mu.Lock()
	s.events = cloneEvents(events)
	s.revision++
	s.mu.Unlock()
	s.cache.Invalidate()
	return nil
}

// Create validates the input, assigns a fresh id and appends the event to
// the collection. Reminder scheduling failures never fail the create; a
// persistence failure is returned together with the stored event.
func (s *EventService) Create(ctx context.Context, input EventInput) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "events", "create")

	event := Event{
		ID:            s.idGenerator(),
		Title:         strings.TrimSpace(input.Title),
		Type:          normalizeType(input.Type),
		Date:          strings.TrimSpace(input.Date),
		Time:          strings.TrimSpace(input.Time),
		Location:      input.Location,
		Client:        input.Client,
		Description:   input.Description,
		ProcessNumber: input.ProcessNumber,
		Court:         input.Court,
		OpposingParty: input.OpposingParty,
		Extra:         input.Extra,
		Reminders:     input.Reminders,
	}

	vErr := &ValidationError{}
	validateEventCore(event, vErr)
	if vErr.HasErrors() {
		logger.Info("create rejected", "error_kind", ErrorKind(vErr))
		return Event{}, vErr
	}

	createdAt := s.now()
	event.CreatedAt = createdAt
	event.UpdatedAt = createdAt

	s.mu.Lock()
	s.events = append(s.events, cloneEvent(event))
	s.revision++
	s.mu.Unlock()
	s.cache.Invalidate()

	persistErr := s.save(ctx, "create")

	if len(event.Reminders) > 0 && s.scheduler != nil {
		if err := s.scheduler.Schedule(ctx, cloneEvent(event)); err != nil {
			logger.Warn("reminder scheduling degraded", "event_id", event.ID, "error", err)
		}
	}

	logger.Info("event created", "event_id", event.ID, "type", string(event.Type))
	return event, persistErr
}

// Get returns the event with the given id. It is a pure lookup.
func (s *EventService) Get(ctx context.Context, id string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range s.events {
		if event.ID == id {
			return cloneEvent(event), nil
		}
	}
	return Event{}, ErrNotFound
}

// Update merges the patch over the stored record, re-validates the result
// and re-derives the reminder schedule when date, time or reminders changed.
// On validation failure the stored record is left untouched.
func (s *EventService) Update(ctx context.Context, id string, patch EventPatch) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "events", "update", "event_id", id)

	s.mu.Lock()
	index := -1
	for i, event := range s.events {
		if event.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		logger.Info("update rejected", "error_kind", ErrorKind(ErrNotFound))
		return Event{}, ErrNotFound
	}

	existing := s.events[index]
	merged := applyPatch(existing, patch)
	merged.Title = strings.TrimSpace(merged.Title)
	merged.Type = normalizeType(merged.Type)
	merged.Date = strings.TrimSpace(merged.Date)
	merged.Time = strings.TrimSpace(merged.Time)

	vErr := &ValidationError{}
	validateEventCore(merged, vErr)
	if vErr.HasErrors() {
		s.mu.Unlock()
		logger.Info("update rejected", "error_kind", ErrorKind(vErr))
		return Event{}, vErr
	}

	merged.ID = existing.ID
	merged.CreatedAt = existing.CreatedAt
	merged.UpdatedAt = s.now()

	scheduleChanged := existing.Date != merged.Date ||
		existing.Time != merged.Time ||
		!equalReminders(existing.Reminders, merged.Reminders)

	s.events[index] = cloneEvent(merged)
	s.revision++
	s.mu.Unlock()
	s.cache.Invalidate()

	persistErr := s.save(ctx, "update")

	if scheduleChanged && s.scheduler != nil {
		if err := s.scheduler.Reschedule(ctx, cloneEvent(merged)); err != nil {
			logger.Warn("reminder rescheduling degraded", "event_id", merged.ID, "error", err)
		}
	}

	logger.Info("event updated", "event_id", merged.ID)
	return merged, persistErr
}

// Delete removes the event from the visible collection and opens the
// pending-delete slot. Scheduled reminders stay active until the grace
// window elapses without an undo; a prior pending delete is force-confirmed
// so the latest delete owns the undo slot.
func (s *EventService) Delete(ctx context.Context, id string) (Event, error) {
	if s == nil {
		return Event{}, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "events", "delete", "event_id", id)

	s.mu.Lock()
	index := -1
	for i, event := range s.events {
		if event.ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		logger.Info("delete rejected", "error_kind", ErrorKind(ErrNotFound))
		return Event{}, ErrNotFound
	}

	removed := s.events[index]
	s.events = append(s.events[:index], s.events[index+1:]...)
	s.revision++
	s.mu.Unlock()
	s.cache.Invalidate()

	s.undo.open(cloneEvent(removed))

	persistErr := s.save(ctx, "delete")

	logger.Info("event soft-deleted", "event_id", removed.ID)
	return cloneEvent(removed), persistErr
}

// Undo restores the pending deleted event, preserving its id and field
// values. Its scheduled reminders were never cancelled, so they resume
// untouched. The second return value is false when no delete is pending.
func (s *EventService) Undo(ctx context.Context) (Event, bool, error) {
	if s == nil {
		return Event{}, false, fmt.Errorf("EventService is nil")
	}
	logger := serviceLogger(ctx, s.logger, "events", "undo")

	event, ok := s.undo.undo()
	if !ok {
		return Event{}, false, nil
	}

	s.mu.Lock()
	s.events = append(s.events, cloneEvent(event))
	s.revision++
	s.mu.Unlock()
	s.cache.Invalidate()

	persistErr := s.save(ctx, "undo")

	logger.Info("delete undone", "event_id", event.ID)
	return event, true, persistErr
}

// PendingDelete reports the event currently awaiting confirmation and its
// grace deadline. The third return value is false when no delete is pending.
func (s *EventService) PendingDelete() (Event, time.Time, bool) {
	if s == nil {
		return Event{}, time.Time{}, false
	}
	return s.undo.snapshot()
}

// List returns a snapshot of the visible collection. Insertion order is not
// meaningful; consumers that need chronological order sort explicitly, for
// example through Search.
func (s *EventService) List(ctx context.Context) []Event {
	if s == nil {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return cloneEvents(s.events)
}

// Search filters the current snapshot by term and type filters. Results for
// an unchanged collection are served from a short-lived cache.
func (s *EventService) Search(ctx context.Context, term string, types []EventType) []Event {
	if s == nil {
		return nil
	}

	s.mu.Lock()
	snapshot := cloneEvents(s.events)
	revision := s.revision
	s.mu.Unlock()

	key := buildSearchCacheKey(term, types, revision)
	if cached, ok := s.cache.Get(key); ok {
		return cached
	}

	results := Search(snapshot, term, types)
	s.cache.Store(key, results)
	return results
}

// confirmDelete runs when a pending delete is finalized, either by the grace
// timer or by a forced confirm. Only now are the event's reminders cancelled.
func (s *EventService) confirmDelete(event Event) {
	logger := serviceLogger(context.Background(), s.logger, "events", "confirm_delete", "event_id", event.ID)
	if s.scheduler != nil {
		if err := s.scheduler.Cancel(context.Background(), event.ID); err != nil {
			logger.Warn("reminder cancellation degraded", "error", err)
		}
	}
	logger.Info("delete confirmed", "event_id", event.ID)
}

func (s *EventService) save(ctx context.Context, op string) error {
	if s.persistence == nil {
		return nil
	}

	s.mu.Lock()
	snapshot := cloneEvents(s.events)
	s.mu.Unlock()

	if err := s.persistence.Save(ctx, snapshot); err != nil {
		serviceLogger(ctx, s.logger, "events", op).Error("persistence save failed", "error", err)
		return &PersistenceError{Op: op, Err: err}
	}
	return nil
}

func validateEventCore(event Event, vErr *ValidationError) {
	if event.Title == "" {
		vErr.add("title", "title is required")
	}

	if !knownType(event.Type) {
		vErr.add("type", "unknown event type")
	}

	if event.Date == "" {
		vErr.add("date", "date is required")
	} else if _, err := time.Parse(DateLayout, event.Date); err != nil {
		vErr.add("date", "must be a valid date in YYYY-MM-DD form")
	}

	if event.Time != "" {
		if _, err := time.Parse(TimeLayout, event.Time); err != nil {
			vErr.add("time", "must be a valid time in HH:MM form")
		}
	}

	for _, lead := range event.Reminders {
		if lead < 0 {
			vErr.add("reminders", "lead times must not be negative")
			break
		}
	}
}

func normalizeType(t EventType) EventType {
	return EventType(strings.ToLower(strings.TrimSpace(string(t))))
}

func knownType(t EventType) bool {
	for _, known := range KnownEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

func applyPatch(existing Event, patch EventPatch) Event {
	merged := cloneEvent(existing)
	if patch.Title != nil {
		merged.Title = *patch.Title
	}
	if patch.Type != nil {
		merged.Type = *patch.Type
	}
	if patch.Date != nil {
		merged.Date = *patch.Date
	}
	if patch.Time != nil {
		merged.Time = *patch.Time
	}
	if patch.Location != nil {
		merged.Location = *patch.Location
	}
	if patch.Client != nil {
		merged.Client = *patch.Client
	}
	if patch.Description != nil {
		merged.Description = *patch.Description
	}
	if patch.ProcessNumber != nil {
		merged.ProcessNumber = *patch.ProcessNumber
	}
	if patch.Court != nil {
		merged.Court = *patch.Court
	}
	if patch.OpposingParty != nil {
		merged.OpposingParty = *patch.OpposingParty
	}
	if patch.Extra != nil {
		merged.Extra = *patch.Extra
	}
	if patch.Reminders != nil {
		merged.Reminders = *patch.Reminders
	}
	return merged
}

func equalReminders(a, b []int) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
