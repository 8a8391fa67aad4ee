// Package sqlite persists the agenda event list in a SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/example/jusagenda/internal/persistence"
)

const schema = `
CREATE TABLE IF NOT EXISTS events (
	id              TEXT PRIMARY KEY,
	title           TEXT NOT NULL,
	type            TEXT NOT NULL,
	date            TEXT NOT NULL,
	time            TEXT,
	location        TEXT,
	client          TEXT,
	description     TEXT,
	process_number  TEXT,
	court           TEXT,
	opposing_party  TEXT,
	extra           TEXT,
	reminders       TEXT,
	created_at      TEXT NOT NULL,
	updated_at      TEXT NOT NULL
);
`

// Store implements persistence.Store on a SQLite database.
type Store struct {
	db *sql.DB
}

// Open opens the database at the given DSN.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open %q: %w", dsn, err)
	}
	// The agenda has a single writer; one connection avoids lock contention
	// inside the driver.
	db.SetMaxOpenConns(1)
	return &Store{db: db}, nil
}

// Migrate creates the events table when it does not exist yet.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("sqlite: migrate: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Load reads the full event list ordered by creation time.
func (s *Store) Load(ctx context.Context) ([]persistence.Event, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, type, date, time, location, client, description,
		       process_number, court, opposing_party, extra, reminders,
		       created_at, updated_at
		FROM events
		ORDER BY created_at, id
	`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: load events: %w", err)
	}
	defer rows.Close()

	events := make([]persistence.Event, 0)
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: load events: %w", err)
	}
	return events, nil
}

// Save replaces the stored list with the given one inside a transaction.
func (s *Store) Save(ctx context.Context, events []persistence.Event) error {
	return s.withTransaction(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM events`); err != nil {
			return fmt.Errorf("sqlite: clear events: %w", err)
		}

		const insert = `
			INSERT INTO events (id, title, type, date, time, location, client,
				description, process_number, court, opposing_party, extra,
				reminders, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`
		for _, event := range events {
			extra, err := encodeJSON(event.Extra)
			if err != nil {
				return fmt.Errorf("sqlite: encode extra for %s: %w", event.ID, err)
			}
			reminders, err := encodeJSON(event.Reminders)
			if err != nil {
				return fmt.Errorf("sqlite: encode reminders for %s: %w", event.ID, err)
			}

			_, err = tx.ExecContext(ctx, insert,
				event.ID,
				event.Title,
				event.Type,
				event.Date,
				nullable(event.Time),
				nullable(event.Location),
				nullable(event.Client),
				nullable(event.Description),
				nullable(event.ProcessNumber),
				nullable(event.Court),
				nullable(event.OpposingParty),
				extra,
				reminders,
				event.CreatedAt.UTC().Format(time.RFC3339Nano),
				event.UpdatedAt.UTC().Format(time.RFC3339Nano),
			)
			if err != nil {
				return fmt.Errorf("sqlite: insert event %s: %w", event.ID, err)
			}
		}
		return nil
	})
}

func (s *Store) withTransaction(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback failed: %v)", err, rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit transaction: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (persistence.Event, error) {
	var (
		e                    persistence.Event
		timeOfDay, location  sql.NullString
		client, description  sql.NullString
		processNumber, court sql.NullString
		opposingParty        sql.NullString
		extra, reminders     sql.NullString
		createdAt, updatedAt string
	)

	err := row.Scan(&e.ID, &e.Title, &e.Type, &e.Date, &timeOfDay, &location,
		&client, &description, &processNumber, &court, &opposingParty,
		&extra, &reminders, &createdAt, &updatedAt)
	if err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: scan event: %w", err)
	}

	e.Time = timeOfDay.String
	e.Location = location.String
	e.Client = client.String
	e.Description = description.String
	e.ProcessNumber = processNumber.String
	e.Court = court.String
	e.OpposingParty = opposingParty.String

	if extra.Valid && extra.String != "" {
		if err := json.Unmarshal([]byte(extra.String), &e.Extra); err != nil {
			return persistence.Event{}, fmt.Errorf("sqlite: decode extra for %s: %w", e.ID, err)
		}
	}
	if reminders.Valid && reminders.String != "" {
		if err := json.Unmarshal([]byte(reminders.String), &e.Reminders); err != nil {
			return persistence.Event{}, fmt.Errorf("sqlite: decode reminders for %s: %w", e.ID, err)
		}
	}

	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, createdAt); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse created_at for %s: %w", e.ID, err)
	}
	if e.UpdatedAt, err = time.Parse(time.RFC3339Nano, updatedAt); err != nil {
		return persistence.Event{}, fmt.Errorf("sqlite: parse updated_at for %s: %w", e.ID, err)
	}
	return e, nil
}

func encodeJSON(value any) (sql.NullString, error) {
	switch v := value.(type) {
	case map[string]string:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	case []int:
		if len(v) == 0 {
			return sql.NullString{}, nil
		}
	}
	data, err := json.Marshal(value)
	if err != nil {
		return sql.NullString{}, err
	}
	return sql.NullString{String: string(data), Valid: true}, nil
}

func nullable(value string) sql.NullString {
	if value == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}
