package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/example/jusagenda/internal/application"
	"github.com/example/jusagenda/internal/config"
	"github.com/example/jusagenda/internal/notification"
	"github.com/example/jusagenda/internal/persistence"
	diskvstore "github.com/example/jusagenda/internal/persistence/diskv"
	sqlitestore "github.com/example/jusagenda/internal/persistence/sqlite"
	"github.com/example/jusagenda/internal/reminder"
)

var configPath string

func main() {
	home, _ := os.UserHomeDir()
	defaultConfig := filepath.Join(home, ".jusagenda", "config.yaml")

	rootCmd := &cobra.Command{
		Use:           "jusagenda",
		Short:         "Agenda for legal professionals: hearings, deadlines and meetings",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", defaultConfig, "configuration file path")

	rootCmd.AddCommand(addCmd())
	rootCmd.AddCommand(listCmd())
	rootCmd.AddCommand(getCmd())
	rootCmd.AddCommand(updateCmd())
	rootCmd.AddCommand(removeCmd())
	rootCmd.AddCommand(undoCmd())
	rootCmd.AddCommand(searchCmd())
	rootCmd.AddCommand(remindCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "jusagenda: %v\n", err)
		os.Exit(1)
	}
}

// app bundles the wired collaborators for one command invocation.
type app struct {
	cfg        config.Config
	logger     *slog.Logger
	service    *application.EventService
	scheduler  *reminder.Scheduler
	dispatcher *notification.Dispatcher
	store      persistence.Store
}

func setup(ctx context.Context, deliver notification.DeliveryFunc) (*app, error) {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create data dir %s: %w", cfg.DataDir, err)
	}

	var store persistence.Store
	switch cfg.Storage {
	case config.StorageFile:
		store, err = diskvstore.Open(cfg.EventsPath())
		if err != nil {
			return nil, err
		}
	default:
		sqlStore, err := sqlitestore.Open(cfg.SQLitePath())
		if err != nil {
			return nil, err
		}
		if err := sqlStore.Migrate(ctx); err != nil {
			sqlStore.Close()
			return nil, err
		}
		store = sqlStore
	}

	location, err := cfg.Location()
	if err != nil {
		store.Close()
		return nil, err
	}

	dispatcher := notification.NewDispatcher(cfg.NotificationsEnabled, deliver, nil, logger)
	scheduler := reminder.NewSchedulerWithLogger(dispatcher, nil, location, cfg.DefaultReminderTime, logger)
	service := application.NewEventServiceWithLogger(
		newPersistenceAdapter(store),
		newSchedulerAdapter(scheduler),
		uuid.NewString,
		nil,
		cfg.UndoGracePeriod,
		logger,
	)

	if err := service.Hydrate(ctx); err != nil {
		store.Close()
		return nil, err
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		store:      store,
	}, nil
}

func (a *app) close() {
	if err := a.store.Close(); err != nil {
		a.logger.Error("failed to close storage", "error", err)
	}
}

// resyncReminders re-derives the notification schedule for every event that
// carries reminders. It runs when the reminder daemon starts, because
// scheduled requests do not outlive the process.
func resyncReminders(ctx context.Context, service *application.EventService, scheduler application.ReminderScheduler, logger *slog.Logger) int {
	count := 0
	for _, event := range service.List(ctx) {
		if len(event.Reminders) == 0 {
			continue
		}
		if err := scheduler.Reschedule(ctx, event); err != nil {
			logger.Warn("reminder resync degraded", "event_id", event.ID, "error", err)
			continue
		}
		count++
	}
	return count
}

// --- adapters between the application and its collaborators ---

type persistenceAdapter struct {
	store persistence.Store
}

func newPersistenceAdapter(store persistence.Store) *persistenceAdapter {
	return &persistenceAdapter{store: store}
}

func (a *persistenceAdapter) Load(ctx context.Context) ([]application.Event, error) {
	stored, err := a.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	events := make([]application.Event, len(stored))
	for i, event := range stored {
		events[i] = toApplicationEvent(event)
	}
	return events, nil
}

func (a *persistenceAdapter) Save(ctx context.Context, events []application.Event) error {
	stored := make([]persistence.Event, len(events))
	for i, event := range events {
		stored[i] = toPersistenceEvent(event)
	}
	return a.store.Save(ctx, stored)
}

type schedulerAdapter struct {
	scheduler *reminder.Scheduler
}

func newSchedulerAdapter(scheduler *reminder.Scheduler) *schedulerAdapter {
	return &schedulerAdapter{scheduler: scheduler}
}

func (a *schedulerAdapter) Schedule(ctx context.Context, event application.Event) error {
	return a.scheduler.Schedule(ctx, toReminderEvent(event))
}

func (a *schedulerAdapter) Reschedule(ctx context.Context, event application.Event) error {
	return a.scheduler.Reschedule(ctx, toReminderEvent(event))
}

func (a *schedulerAdapter) Cancel(ctx context.Context, eventID string) error {
	return a.scheduler.Cancel(ctx, eventID)
}

func toPersistenceEvent(event application.Event) persistence.Event {
	return persistence.Event{
		ID:            event.ID,
		Title:         event.Title,
		Type:          string(event.Type),
		Date:          event.Date,
		Time:          event.Time,
		Location:      event.Location,
		Client:        event.Client,
		Description:   event.Description,
		ProcessNumber: event.ProcessNumber,
		Court:         event.Court,
		OpposingParty: event.OpposingParty,
		Extra:         event.Extra,
		Reminders:     event.Reminders,
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
}

func toApplicationEvent(event persistence.Event) application.Event {
	return application.Event{
		ID:            event.ID,
		Title:         event.Title,
		Type:          application.EventType(event.Type),
		Date:          event.Date,
		Time:          event.Time,
		Location:      event.Location,
		Client:        event.Client,
		Description:   event.Description,
		ProcessNumber: event.ProcessNumber,
		Court:         event.Court,
		OpposingParty: event.OpposingParty,
		Extra:         event.Extra,
		Reminders:     event.Reminders,
		CreatedAt:     event.CreatedAt,
		UpdatedAt:     event.UpdatedAt,
	}
}

func toReminderEvent(event application.Event) reminder.Event {
	return reminder.Event{
		ID:        event.ID,
		Title:     event.Title,
		Date:      event.Date,
		Time:      event.Time,
		Reminders: event.Reminders,
	}
}
