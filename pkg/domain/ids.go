// Package domain holds the typed identifiers shared across modules.
//
// IDs are parsed at trust boundaries (path parameters, request bodies) and
// travel typed from there on, so an attendee ID can never be passed where an
// event ID is expected.
package domain

import (
	"database/sql/driver"
	"fmt"

	"github.com/google/uuid"

	dErrors "rollcall/pkg/domain-errors"
)

type (
	EventID    uuid.UUID
	AttendeeID uuid.UUID
)

func NewEventID() EventID       { return EventID(uuid.New()) }
func NewAttendeeID() AttendeeID { return AttendeeID(uuid.New()) }

// ParseEventID rejects empty, malformed and nil UUIDs with CodeInvalidInput.
func ParseEventID(s string) (EventID, error) {
	u, err := parseUUID(s, "event_id")
	return EventID(u), err
}

// ParseAttendeeID rejects empty, malformed and nil UUIDs with CodeInvalidInput.
func ParseAttendeeID(s string) (AttendeeID, error) {
	u, err := parseUUID(s, "attendee_id")
	return AttendeeID(u), err
}

func parseUUID(s, field string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+field)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, field+" must not be nil")
	}
	return u, nil
}

func (id EventID) String() string { return uuid.UUID(id).String() }
func (id EventID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id EventID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *EventID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id EventID) Value() (driver.Value, error) { return id.String(), nil }
func (id *EventID) Scan(src any) error {
	if err := (*uuid.UUID)(id).Scan(src); err != nil {
		return fmt.Errorf("scan event id: %w", err)
	}
	return nil
}

func (id AttendeeID) String() string { return uuid.UUID(id).String() }
func (id AttendeeID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }

func (id AttendeeID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id *AttendeeID) UnmarshalText(b []byte) error {
	return (*uuid.UUID)(id).UnmarshalText(b)
}

func (id AttendeeID) Value() (driver.Value, error) { return id.String(), nil }
func (id *AttendeeID) Scan(src any) error {
	if err := (*uuid.UUID)(id).Scan(src); err != nil {
		return fmt.Errorf("scan attendee id: %w", err)
	}
	return nil
}
