package models

import "time"

// Change topics match the persisted storage keys.
const (
	TopicSubjects       = "subjects"
	TopicCalendarEvents = "calendar_events"
)

// ChangeAction names the mutation that produced a Change.
type ChangeAction string

const (
	ActionCreated  ChangeAction = "created"
	ActionUpdated  ChangeAction = "updated"
	ActionDeleted  ChangeAction = "deleted"
	ActionMarked   ChangeAction = "attendance_marked"
	ActionToggled  ChangeAction = "completion_toggled"
	ActionPurged   ChangeAction = "retention_purged"
	ActionCleared  ChangeAction = "cleared"
	ActionReloaded ChangeAction = "reloaded"
)

// Change is published after a snapshot has been persisted.
type Change struct {
	Topic  string       `json:"topic"`
	Action ChangeAction `json:"action"`
	ID     string       `json:"id,omitempty"`
	At     time.Time    `json:"at"`
}
