package main

import (
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/jusagenda/internal/application"
	"github.com/example/jusagenda/internal/reminder"
)

// eventFlags collects the caller supplied event fields shared by add and
// update.
type eventFlags struct {
	title         string
	eventType     string
	date          string
	timeOfDay     string
	location      string
	client        string
	description   string
	processNumber string
	court         string
	opposingParty string
	extra         map[string]string
	reminders     []int
}

func (f *eventFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.title, "title", "", "event title")
	cmd.Flags().StringVar(&f.eventType, "type", "", "event type: hearing, meeting, deadline or other")
	cmd.Flags().StringVar(&f.date, "date", "", "event date (YYYY-MM-DD)")
	cmd.Flags().StringVar(&f.timeOfDay, "time", "", "event time (HH:MM)")
	cmd.Flags().StringVar(&f.location, "location", "", "event location")
	cmd.Flags().StringVar(&f.client, "client", "", "client name")
	cmd.Flags().StringVar(&f.description, "description", "", "free form description")
	cmd.Flags().StringVar(&f.processNumber, "process-number", "", "case process number")
	cmd.Flags().StringVar(&f.court, "court", "", "court name")
	cmd.Flags().StringVar(&f.opposingParty, "opposing-party", "", "opposing party")
	cmd.Flags().StringToStringVar(&f.extra, "extra", nil, "additional key=value fields")
	cmd.Flags().IntSliceVar(&f.reminders, "reminder", nil, "reminder lead times in minutes before the event")
}

func addCmd() *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a new agenda event",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			event, err := a.service.Create(cmd.Context(), application.EventInput{
				Title:         flags.title,
				Type:          application.EventType(flags.eventType),
				Date:          flags.date,
				Time:          flags.timeOfDay,
				Location:      flags.location,
				Client:        flags.client,
				Description:   flags.description,
				ProcessNumber: flags.processNumber,
				Court:         flags.court,
				OpposingParty: flags.opposingParty,
				Extra:         flags.extra,
				Reminders:     flags.reminders,
			})
			if err != nil && !warnPersistence(err) {
				return describeError(err)
			}

			fmt.Printf("Created %s: %s (%s on %s)\n", event.ID, event.Title, event.Type, event.Date)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func listCmd() *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List agenda events",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			var events []application.Event
			if len(types) > 0 {
				events = a.service.Search(cmd.Context(), "", toEventTypes(types))
			} else {
				events = a.service.List(cmd.Context())
				sortByDate(events)
			}

			if len(events) == 0 {
				fmt.Println("No events.")
				return nil
			}
			for _, event := range events {
				printEventLine(event)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "only show events of these types")
	return cmd
}

func getCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one agenda event in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			event, err := a.service.Get(cmd.Context(), args[0])
			if err != nil {
				return describeError(err)
			}
			printEventDetail(event)
			return nil
		},
	}
}

func updateCmd() *cobra.Command {
	flags := &eventFlags{}

	cmd := &cobra.Command{
		Use:   "update <id>",
		Short: "Update fields of an existing agenda event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			patch := application.EventPatch{}
			if cmd.Flags().Changed("title") {
				patch.Title = &flags.title
			}
			if cmd.Flags().Changed("type") {
				eventType := application.EventType(flags.eventType)
				patch.Type = &eventType
			}
			if cmd.Flags().Changed("date") {
				patch.Date = &flags.date
			}
			if cmd.Flags().Changed("time") {
				patch.Time = &flags.timeOfDay
			}
			if cmd.Flags().Changed("location") {
				patch.Location = &flags.location
			}
			if cmd.Flags().Changed("client") {
				patch.Client = &flags.client
			}
			if cmd.Flags().Changed("description") {
				patch.Description = &flags.description
			}
			if cmd.Flags().Changed("process-number") {
				patch.ProcessNumber = &flags.processNumber
			}
			if cmd.Flags().Changed("court") {
				patch.Court = &flags.court
			}
			if cmd.Flags().Changed("opposing-party") {
				patch.OpposingParty = &flags.opposingParty
			}
			if cmd.Flags().Changed("extra") {
				patch.Extra = &flags.extra
			}
			if cmd.Flags().Changed("reminder") {
				patch.Reminders = &flags.reminders
			}

			event, err := a.service.Update(cmd.Context(), args[0], patch)
			if err != nil && !warnPersistence(err) {
				return describeError(err)
			}

			fmt.Printf("Updated %s: %s (%s on %s)\n", event.ID, event.Title, event.Type, event.Date)
			return nil
		},
	}

	flags.register(cmd)
	return cmd
}

func removeCmd() *cobra.Command {
	var noWait bool

	cmd := &cobra.Command{
		Use:   "remove <id>",
		Short: "Remove an agenda event (undoable during the grace window)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			event, err := a.service.Delete(cmd.Context(), args[0])
			if err != nil && !warnPersistence(err) {
				return describeError(err)
			}

			if noWait {
				fmt.Printf("Removed %s: %s. Reminders stay active until the delete is confirmed.\n", event.ID, event.Title)
				return nil
			}

			fmt.Printf("Removed %s: %s. Becomes permanent in %s.\n", event.ID, event.Title, a.cfg.UndoGracePeriod)
			time.Sleep(a.cfg.UndoGracePeriod + 250*time.Millisecond)
			fmt.Println("Removal confirmed.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&noWait, "no-wait", false, "do not wait for the grace window to elapse")
	return cmd
}

func undoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "undo",
		Short: "Restore the most recently removed event",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			event, ok, err := a.service.Undo(cmd.Context())
			if !ok {
				fmt.Println("No removal is pending in this session.")
				return nil
			}
			if err != nil && !warnPersistence(err) {
				return describeError(err)
			}
			fmt.Printf("Restored %s: %s\n", event.ID, event.Title)
			return nil
		},
	}
}

func searchCmd() *cobra.Command {
	var types []string

	cmd := &cobra.Command{
		Use:   "search [term]",
		Short: "Search events by term and type, chronologically ordered",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := setup(cmd.Context(), nil)
			if err != nil {
				return err
			}
			defer a.close()

			term := ""
			if len(args) > 0 {
				term = args[0]
			}

			events := a.service.Search(cmd.Context(), term, toEventTypes(types))
			if len(events) == 0 {
				fmt.Println("No matching events.")
				return nil
			}
			for _, event := range events {
				printEventLine(event)
			}
			return nil
		},
	}

	cmd.Flags().StringSliceVar(&types, "type", nil, "only match events of these types")
	return cmd
}

func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run the reminder daemon until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			a, err := setup(ctx, func(payload reminder.Payload) {
				fmt.Printf("[reminder] %s\n", payload.Message)
			})
			if err != nil {
				return err
			}
			defer a.close()

			scheduled := resyncReminders(ctx, a.service, newSchedulerAdapter(a.scheduler), a.logger)
			if err := a.dispatcher.Start(a.cfg.SweepCron); err != nil {
				return err
			}
			defer a.dispatcher.Stop()

			fmt.Printf("Reminder daemon running, %d event(s) scheduled. Press Ctrl+C to stop.\n", scheduled)
			<-ctx.Done()
			fmt.Println("Shutting down.")
			return nil
		},
	}
}

// warnPersistence reports whether err is only a persistence failure. The
// in-memory mutation already took effect, so the command continues and just
// warns the user.
func warnPersistence(err error) bool {
	var pErr *application.PersistenceError
	if errors.As(err, &pErr) {
		fmt.Fprintf(os.Stderr, "warning: change applied but not saved: %v\n", pErr)
		return true
	}
	return false
}

// describeError turns application errors into messages suitable for the
// terminal.
func describeError(err error) error {
	var vErr *application.ValidationError
	if errors.As(err, &vErr) {
		fields := make([]string, 0, len(vErr.FieldErrors))
		for field, message := range vErr.FieldErrors {
			fields = append(fields, fmt.Sprintf("%s: %s", field, message))
		}
		sort.Strings(fields)
		return fmt.Errorf("invalid input (%s)", strings.Join(fields, "; "))
	}
	if errors.Is(err, application.ErrNotFound) {
		return fmt.Errorf("no such event")
	}
	return err
}

func toEventTypes(values []string) []application.EventType {
	types := make([]application.EventType, 0, len(values))
	for _, value := range values {
		types = append(types, application.EventType(value))
	}
	return types
}

func sortByDate(events []application.Event) {
	sort.SliceStable(events, func(i, j int) bool {
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
}

func printEventLine(event application.Event) {
	when := event.Date
	if event.Time != "" {
		when += " " + event.Time
	}
	line := fmt.Sprintf("%s  %-19s %-8s %s", event.ID, when, event.Type, event.Title)
	if event.Client != "" {
		line += "  (" + event.Client + ")"
	}
	fmt.Println(line)
}

func printEventDetail(event application.Event) {
	fmt.Printf("ID:       %s\n", event.ID)
	fmt.Printf("Title:    %s\n", event.Title)
	fmt.Printf("Type:     %s\n", event.Type)
	fmt.Printf("Date:     %s\n", event.Date)
	if event.Time != "" {
		fmt.Printf("Time:     %s\n", event.Time)
	}
	if event.Location != "" {
		fmt.Printf("Location: %s\n", event.Location)
	}
	if event.Client != "" {
		fmt.Printf("Client:   %s\n", event.Client)
	}
	if event.Description != "" {
		fmt.Printf("Notes:    %s\n", event.Description)
	}
	if event.ProcessNumber != "" {
		fmt.Printf("Process:  %s\n", event.ProcessNumber)
	}
	if event.Court != "" {
		fmt.Printf("Court:    %s\n", event.Court)
	}
	if event.OpposingParty != "" {
		fmt.Printf("Opposing: %s\n", event.OpposingParty)
	}
	if len(event.Extra) > 0 {
		keys := make([]string, 0, len(event.Extra))
		for key := range event.Extra {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			fmt.Printf("%s: %s\n", key, event.Extra[key])
		}
	}
	if len(event.Reminders) > 0 {
		parts := make([]string, len(event.Reminders))
		for i, lead := range event.Reminders {
			parts[i] = fmt.Sprintf("%dm", lead)
		}
		fmt.Printf("Reminders: %s before\n", strings.Join(parts, ", "))
	}
}
