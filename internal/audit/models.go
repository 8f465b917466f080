package audit

import "time"

// Action names an audited operation.
type Action string

const (
	ActionCheckInSucceeded   Action = "checkin.succeeded"
	ActionCheckInRejected    Action = "checkin.rejected"
	ActionAttendeeRegistered Action = "attendee.registered"
	ActionBadgePrinted       Action = "badge.printed"
	ActionEventCreated       Action = "event.created"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so sinks can fan out.
type Event struct {
	Timestamp  time.Time `json:"timestamp"`
	Action     Action    `json:"action"`
	EventID    string    `json:"event_id"`
	AttendeeID string    `json:"attendee_id,omitempty"`
	StationID  string    `json:"station_id,omitempty"`
	RequestID  string    `json:"request_id,omitempty"`
	Outcome    string    `json:"outcome,omitempty"`
	Reason     string    `json:"reason,omitempty"`
}
