package application

import (
	"sort"
	"strings"
	"time"
)

// Search filters events by a free text term and a set of type filters.
//
// The term matches case-insensitively against title, client, description and
// location; type filters match case-insensitively against the event type.
// Both filters compose with logical AND. When neither filter is supplied the
// input is returned in its given order; filtered results are sorted ascending
// by (date, time) with events lacking a parseable date sorted last, keeping
// the original relative order for equal keys.
func Search(events []Event, term string, types []EventType) []Event {
	if term == "" && len(types) == 0 {
		return cloneEvents(events)
	}

	needle := strings.ToLower(strings.TrimSpace(term))

	typeSet := make(map[string]struct{}, len(types))
	for _, t := range types {
		typeSet[strings.ToLower(string(t))] = struct{}{}
	}

	matched := make([]Event, 0, len(events))
	for _, event := range events {
		if needle != "" && !matchesTerm(event, needle) {
			continue
		}
		if len(typeSet) > 0 {
			if _, ok := typeSet[strings.ToLower(string(event.Type))]; !ok {
				continue
			}
		}
		matched = append(matched, cloneEvent(event))
	}

	sortChronologically(matched)
	return matched
}

func matchesTerm(event Event, needle string) bool {
	for _, field := range []string{event.Title, event.Client, event.Description, event.Location} {
		if strings.Contains(strings.ToLower(field), needle) {
			return true
		}
	}
	return false
}

// sortChronologically orders events ascending by date then time-of-day.
// Validated dates compare correctly as strings in DateLayout; events whose
// date does not parse sort after all dated events.
func sortChronologically(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		iOK := dateParses(events[i].Date)
		jOK := dateParses(events[j].Date)
		if iOK != jOK {
			return iOK
		}
		if !iOK {
			return false
		}
		if events[i].Date != events[j].Date {
			return events[i].Date < events[j].Date
		}
		return events[i].Time < events[j].Time
	})
}

func dateParses(date string) bool {
	_, err := time.Parse(DateLayout, date)
	return err == nil
}
