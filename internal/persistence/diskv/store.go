// Package diskv persists the agenda event list as one JSON document per
// event in a diskv-backed directory tree.
package diskv

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"

	"github.com/peterbourgon/diskv/v3"

	"github.com/example/jusagenda/internal/persistence"
)

// Store implements persistence.Store on a diskv key-value directory.
type Store struct {
	d *diskv.Diskv
}

// Open prepares a store rooted at basePath. The directory is created lazily
// on the first write.
func Open(basePath string) (*Store, error) {
	if basePath == "" {
		return nil, fmt.Errorf("diskv: base path is empty")
	}
	return &Store{d: diskv.New(diskv.Options{
		BasePath:     basePath,
		CacheSizeMax: 1024 * 1024, // 1MB
	})}, nil
}

// Close is a no-op; diskv holds no long-lived resources.
func (s *Store) Close() error {
	return nil
}

// Load reads every stored event, ordered by creation time.
func (s *Store) Load(ctx context.Context) ([]persistence.Event, error) {
	events := make([]persistence.Event, 0)
	for key := range s.d.Keys(ctx.Done()) {
		data, err := s.d.Read(key)
		if err != nil {
			return nil, fmt.Errorf("diskv: read %s: %w", key, err)
		}
		var event persistence.Event
		if err := json.Unmarshal(data, &event); err != nil {
			return nil, fmt.Errorf("diskv: decode %s: %w", key, err)
		}
		if event.ID == "" {
			event.ID = key
		}
		events = append(events, event)
	}

	sort.SliceStable(events, func(i, j int) bool {
		if events[i].CreatedAt.Equal(events[j].CreatedAt) {
			return events[i].ID < events[j].ID
		}
		return events[i].CreatedAt.Before(events[j].CreatedAt)
	})
	return events, nil
}

// Save writes every event under its id and erases keys that are no longer
// part of the list.
func (s *Store) Save(ctx context.Context, events []persistence.Event) error {
	keep := make(map[string]struct{}, len(events))
	for _, event := range events {
		if event.ID == "" {
			return fmt.Errorf("diskv: refusing to save event without id")
		}
		data, err := json.Marshal(event)
		if err != nil {
			return fmt.Errorf("diskv: encode %s: %w", event.ID, err)
		}
		if err := s.d.Write(event.ID, data); err != nil {
			return fmt.Errorf("diskv: write %s: %w", event.ID, err)
		}
		keep[event.ID] = struct{}{}
	}

	stale := make([]string, 0)
	for key := range s.d.Keys(ctx.Done()) {
		if _, ok := keep[key]; !ok {
			stale = append(stale, key)
		}
	}
	for _, key := range stale {
		if err := s.d.Erase(key); err != nil {
			return fmt.Errorf("diskv: erase %s: %w", key, err)
		}
	}
	return nil
}
