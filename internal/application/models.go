package application

import "time"

// DateLayout is the calendar-date format stored on events.
const DateLayout = "2006-01-02"

// TimeLayout is the time-of-day format stored on events.
const TimeLayout = "15:04"

// EventType classifies an agenda entry.
type EventType string

const (
	// EventTypeHearing marks a court hearing.
	EventTypeHearing EventType = "hearing"
	// EventTypeMeeting marks a client or internal meeting.
	EventTypeMeeting EventType = "meeting"
	// EventTypeDeadline marks a procedural deadline.
	EventTypeDeadline EventType = "deadline"
	// EventTypeOther marks any other agenda entry.
	EventTypeOther EventType = "other"
)

// KnownEventTypes enumerates the accepted event types.
func KnownEventTypes() []EventType {
	return []EventType{EventTypeHearing, EventTypeMeeting, EventTypeDeadline, EventTypeOther}
}

// Event represents an agenda entry owned by the event service.
type Event struct {
	ID          string
	Title       string
	Type        EventType
	Date        string // DateLayout
	Time        string // TimeLayout, empty when the event has no fixed time
	Location    string
	Client      string
	Description string

	// Case details are carried through unchanged and never validated.
	ProcessNumber string
	Court         string
	OpposingParty string
	Extra         map[string]string

	// Reminders holds lead times in minutes before the event instant.
	Reminders []int

	CreatedAt time.Time
	UpdatedAt time.Time
}

// EventInput captures caller provided event fields.
type EventInput struct {
	Title         string
	Type          EventType
	Date          string
	Time          string
	Location      string
	Client        string
	Description   string
	ProcessNumber string
	Court         string
	OpposingParty string
	Extra         map[string]string
	Reminders     []int
}

// EventPatch updates selected fields of an existing event. Nil fields keep
// the stored value; provided fields are applied as given, last write wins.
type EventPatch struct {
	Title         *string
	Type          *EventType
	Date          *string
	Time          *string
	Location      *string
	Client        *string
	Description   *string
	ProcessNumber *string
	Court         *string
	OpposingParty *string
	Extra         *map[string]string
	Reminders     *[]int
}

func cloneEvent(event Event) Event {
	out := event
	if event.Extra != nil {
		out.Extra = make(map[string]string, len(event.Extra))
		for key, value := range event.Extra {
			out.Extra[key] = value
		}
	}
	if event.Reminders != nil {
		out.Reminders = make([]int, len(event.Reminders))
		copy(out.Reminders, event.Reminders)
	}
	return out
}

func cloneEvents(events []Event) []Event {
	if len(events) == 0 {
		return nil
	}
	out := make([]Event, len(events))
	for i, event := range events {
		out[i] = cloneEvent(event)
	}
	return out
}
