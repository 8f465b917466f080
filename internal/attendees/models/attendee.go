package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Table is the attendee table name as seen by the change feed.
const Table = "attendees"

const (
	maxNameLength  = 120
	maxPhoneLength = 32
)

// Attendee is one registration for one event.
//
// Invariants:
//   - QRToken is unique and never changes after creation
//   - CheckedInAt is set iff CheckedIn is true
//   - CheckedIn goes false to true once; there is no undo
//   - Printed may be set repeatedly, each time is a new print request
//
// JSON field names match the table columns so a change record from the
// database trigger and one built in process decode the same way.
type Attendee struct {
	ID          id.AttendeeID `json:"id"`
	EventID     id.EventID    `json:"event_id"`
	Name        string        `json:"name"`
	Phone       string        `json:"phone"`
	QRToken     token.Token   `json:"qr_token"`
	CheckedIn   bool          `json:"checked_in"`
	CheckedInAt *time.Time    `json:"checked_in_at"`
	Printed     bool          `json:"printed"`
	CreatedAt   time.Time     `json:"created_at"`
}

// NewAttendee validates a registration.
func NewAttendee(attendeeID id.AttendeeID, eventID id.EventID, name, phone string, tok token.Token, now time.Time) (*Attendee, error) {
	name = strings.TrimSpace(name)
	phone = strings.TrimSpace(phone)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if utf8.RuneCountInString(name) > maxNameLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "name must be at most 120 characters")
	}
	if phone == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "phone is required")
	}
	if utf8.RuneCountInString(phone) > maxPhoneLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "phone must be at most 32 characters")
	}
	if tok == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	return &Attendee{
		ID:        attendeeID,
		EventID:   eventID,
		Name:      name,
		Phone:     phone,
		QRToken:   tok,
		CreatedAt: now,
	}, nil
}

// CheckIn applies the one-way transition. It reports false when the
// attendee was already checked in.
func (a *Attendee) CheckIn(now time.Time) bool {
	if a.CheckedIn {
		return false
	}
	a.CheckedIn = true
	a.CheckedInAt = &now
	return true
}

// Counts is the presence aggregate for one event.
type Counts struct {
	Total     int `json:"total"`
	CheckedIn int `json:"checked_in"`
}
