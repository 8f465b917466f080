package models

import (
	"strings"
	"time"
	"unicode/utf8"

	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

// Status is the lifecycle of an event. Closed is recorded but nothing
// refuses check-ins for a closed event.
type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

// DateLayout is the calendar date format events are created with.
const DateLayout = "2006-01-02"

const maxTitleLength = 200

// Event is something attendees register for and check in to.
//
// Invariants:
//   - Title is non-empty and at most 200 characters
//   - Date is a calendar date in DateLayout
//   - CreatedAt is immutable after construction
type Event struct {
	ID        id.EventID `json:"id"`
	Title     string     `json:"title"`
	Date      string     `json:"date"`
	Status    Status     `json:"status"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewEvent validates the inputs and returns an open event.
func NewEvent(eventID id.EventID, title, date string, now time.Time) (*Event, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if utf8.RuneCountInString(title) > maxTitleLength {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "title must be at most 200 characters")
	}
	date = strings.TrimSpace(date)
	if _, err := time.Parse(DateLayout, date); err != nil {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "date must be YYYY-MM-DD")
	}
	return &Event{
		ID:        eventID,
		Title:     title,
		Date:      date,
		Status:    StatusOpen,
		CreatedAt: now,
	}, nil
}

func (e *Event) IsOpen() bool {
	return e.Status == StatusOpen
}
