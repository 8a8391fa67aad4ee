// Package persistence defines the storage contract for the agenda: the full
// event list is loaded once at startup and written back after every
// mutation. Implementations own durability only; validation and ordering are
// the application's concern.
package persistence

import (
	"context"
	"time"
)

// Event is the serialized shape of an agenda entry.
type Event struct {
	ID            string            `json:"id"`
	Title         string            `json:"title"`
	Type          string            `json:"type"`
	Date          string            `json:"date"`
	Time          string            `json:"time,omitempty"`
	Location      string            `json:"location,omitempty"`
	Client        string            `json:"client,omitempty"`
	Description   string            `json:"description,omitempty"`
	ProcessNumber string            `json:"process_number,omitempty"`
	Court         string            `json:"court,omitempty"`
	OpposingParty string            `json:"opposing_party,omitempty"`
	Extra         map[string]string `json:"extra,omitempty"`
	Reminders     []int             `json:"reminders,omitempty"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

// Store persists the full event list.
type Store interface {
	Load(ctx context.Context) ([]Event, error)
	Save(ctx context.Context, events []Event) error
	Close() error
}
