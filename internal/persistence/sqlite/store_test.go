package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/example/jusagenda/internal/persistence"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "events.db"))
	if err != nil {
		t.Fatalf("open failed: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("migrate failed: %v", err)
	}
	return store
}

func sampleEvents() []persistence.Event {
	createdAt := time.Date(2025, time.March, 1, 9, 0, 0, 0, time.UTC)
	return []persistence.Event{
		{
			ID:            "event-1",
			Title:         "Audiência de instrução",
			Type:          "hearing",
			Date:          "2025-03-10",
			Time:          "14:30",
			Location:      "Fórum central",
			Client:        "Silva",
			Description:   "Levar documentos originais",
			ProcessNumber: "0001234-56.2025.8.26.0100",
			Court:         "3ª Vara Cível",
			OpposingParty: "Construtora XYZ",
			Extra:         map[string]string{"sala": "12"},
			Reminders:     []int{60, 1440},
			CreatedAt:     createdAt,
			UpdatedAt:     createdAt.Add(time.Hour),
		},
		{
			ID:        "event-2",
			Title:     "Prazo recursal",
			Type:      "deadline",
			Date:      "2025-03-12",
			CreatedAt: createdAt.Add(time.Minute),
			UpdatedAt: createdAt.Add(time.Minute),
		},
	}
}

func TestStore_SaveAndLoadRoundTrip(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	want := sampleEvents()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(got))
	}

	// Load orders by created_at then id.
	first := got[0]
	if first.ID != "event-1" {
		t.Fatalf("expected event-1 first, got %s", first.ID)
	}
	if first.Title != want[0].Title || first.Type != want[0].Type || first.Date != want[0].Date {
		t.Fatalf("core fields differ: %+v", first)
	}
	if first.Time != "14:30" || first.Location != "Fórum central" || first.ProcessNumber != want[0].ProcessNumber {
		t.Fatalf("optional fields differ: %+v", first)
	}
	if first.Extra["sala"] != "12" {
		t.Fatalf("extra differs: %v", first.Extra)
	}
	if len(first.Reminders) != 2 || first.Reminders[0] != 60 || first.Reminders[1] != 1440 {
		t.Fatalf("reminders differ: %v", first.Reminders)
	}
	if !first.CreatedAt.Equal(want[0].CreatedAt) || !first.UpdatedAt.Equal(want[0].UpdatedAt) {
		t.Fatalf("timestamps differ: %+v", first)
	}

	second := got[1]
	if second.Time != "" || second.Location != "" || second.Extra != nil || second.Reminders != nil {
		t.Fatalf("expected empty optionals to stay empty: %+v", second)
	}
}

func TestStore_SaveReplacesPreviousState(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleEvents()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	remaining := sampleEvents()[:1]
	remaining[0].Title = "Audiência remarcada"
	if err := store.Save(ctx, remaining); err != nil {
		t.Fatalf("second save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 1 || got[0].ID != "event-1" {
		t.Fatalf("expected only event-1 to survive, got %+v", got)
	}
	if got[0].Title != "Audiência remarcada" {
		t.Fatalf("expected updated title, got %q", got[0].Title)
	}
}

func TestStore_SaveEmptyListClears(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, sampleEvents()); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	if err := store.Save(ctx, nil); err != nil {
		t.Fatalf("clearing save failed: %v", err)
	}

	got, err := store.Load(ctx)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected empty store, got %+v", got)
	}
}

func TestStore_LoadEmptyDatabase(t *testing.T) {
	t.Parallel()

	store := openTestStore(t)

	got, err := store.Load(context.Background())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("expected no events, got %+v", got)
	}
}
