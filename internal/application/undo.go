package application

import (
	"sync"
	"time"
)

// DefaultGracePeriod is the undo window opened by a soft delete.
const DefaultGracePeriod = 5 * time.Second

// undoCoordinator owns the single pending-delete slot of an event service.
//
// It moves between two durable states: idle, and holding exactly one pending
// delete with its grace deadline and the timer that confirms it. Opening a
// new pending delete while one is held force-confirms the prior one, so the
// latest delete always wins the undo slot. Confirm and undo on an idle
// coordinator are no-ops, which makes a late timer firing after an explicit
// undo harmless.
type undoCoordinator struct {
	mu        sync.Mutex
	grace     time.Duration
	now       func() time.Time
	onConfirm func(event Event)
	pending   *pendingDelete
}

type pendingDelete struct {
	event    Event
	deadline time.Time
	timer    *time.Timer
}

func newUndoCoordinator(grace time.Duration, now func() time.Time, onConfirm func(event Event)) *undoCoordinator {
	if grace <= 0 {
		grace = DefaultGracePeriod
	}
	if now == nil {
		now = time.Now
	}
	if onConfirm == nil {
		onConfirm = func(Event) {}
	}
	return &undoCoordinator{grace: grace, now: now, onConfirm: onConfirm}
}

// open stores the deleted event and starts the grace countdown. Any pending
// delete already held is confirmed first.
func (c *undoCoordinator) open(event Event) {
	c.mu.Lock()
	prior := c.clearLocked()
	held := pendingDelete{
		event:    event,
		deadline: c.now().Add(c.grace),
	}
	held.timer = time.AfterFunc(c.grace, c.expire)
	c.pending = &held
	c.mu.Unlock()

	if prior != nil {
		c.onConfirm(prior.event)
	}
}

// undo releases the held event for re-insertion. The second return value is
// false when no delete is pending.
func (c *undoCoordinator) undo() (Event, bool) {
	c.mu.Lock()
	prior := c.clearLocked()
	c.mu.Unlock()

	if prior == nil {
		return Event{}, false
	}
	return prior.event, true
}

// confirm finalizes the pending delete immediately instead of waiting for
// the grace deadline. The second return value is false when no delete is
// pending.
func (c *undoCoordinator) confirm() (Event, bool) {
	c.mu.Lock()
	prior := c.clearLocked()
	c.mu.Unlock()

	if prior == nil {
		return Event{}, false
	}
	c.onConfirm(prior.event)
	return prior.event, true
}

// snapshot reports the held event and its deadline without state changes.
func (c *undoCoordinator) snapshot() (Event, time.Time, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pending == nil {
		return Event{}, time.Time{}, false
	}
	return cloneEvent(c.pending.event), c.pending.deadline, true
}

// expire runs on the grace timer. By the time it acquires the lock an undo
// or a forced confirm may already have cleared the slot, in which case it
// does nothing.
func (c *undoCoordinator) expire() {
	c.confirm()
}

// clearLocked stops the timer and empties the slot, returning what was held.
// Callers must hold c.mu and run onConfirm outside the lock.
func (c *undoCoordinator) clearLocked() *pendingDelete {
	prior := c.pending
	if prior == nil {
		return nil
	}
	prior.timer.Stop()
	c.pending = nil
	return prior
}
