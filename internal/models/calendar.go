package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the format of calendar bucket keys and attendance dates.
const DateLayout = "2006-01-02"

// DefaultEventColor matches the colour the mobile client preselects.
const DefaultEventColor = "#007AFF"

// EventType distinguishes generated attendance reminders from user events.
type EventType string

const (
	EventTypeAttendance EventType = "attendance"
	EventTypeCustom     EventType = "custom"
)

// CalendarEvent is an ad-hoc entry filed under its date.
type CalendarEvent struct {
	ID            string     `json:"id"`
	Title         string     `json:"title"`
	Date          string     `json:"date"`
	Time          string     `json:"time,omitempty"`
	Description   string     `json:"description,omitempty"`
	Color         string     `json:"color"`
	Type          EventType  `json:"type"`
	Completed     bool       `json:"completed"`
	CompletedDate *time.Time `json:"completedDate,omitempty"`
}

// UnmarshalJSON decodes an event leniently: a completedDate that is not an
// RFC 3339 timestamp decodes as nil, which retention treats as aged out.
func (e *CalendarEvent) UnmarshalJSON(data []byte) error {
	type plain CalendarEvent
	aux := struct {
		*plain
		CompletedDate json.RawMessage `json:"completedDate"`
	}{plain: (*plain)(e)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	e.CompletedDate = parseCompletedDate(aux.CompletedDate)
	return nil
}

func parseCompletedDate(raw json.RawMessage) *time.Time {
	var value string
	if len(raw) == 0 || json.Unmarshal(raw, &value) != nil {
		return nil
	}
	at, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &at
}

// EventsByDate maps YYYY-MM-DD to events in insertion order.
type EventsByDate map[string][]CalendarEvent

// Clone returns a deep copy safe to hand to callers.
func (e EventsByDate) Clone() EventsByDate {
	out := make(EventsByDate, len(e))
	for date, events := range e {
		out[date] = cloneEvents(events)
	}
	return out
}

// Count returns the number of events across all dates.
func (e EventsByDate) Count() int {
	n := 0
	for _, events := range e {
		n += len(events)
	}
	return n
}

func cloneEvents(events []CalendarEvent) []CalendarEvent {
	out := make([]CalendarEvent, len(events))
	for i, ev := range events {
		if ev.CompletedDate != nil {
			at := *ev.CompletedDate
			ev.CompletedDate = &at
		}
		out[i] = ev
	}
	return out
}
