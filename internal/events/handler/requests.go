package handler

import (
	"strings"

	dErrors "rollcall/pkg/domain-errors"
)

// CreateEventRequest is the body of POST /events.
type CreateEventRequest struct {
	Title string `json:"title"`
	Date  string `json:"date"`
}

// Validate implements httputil.Validatable.
func (r *CreateEventRequest) Validate() error {
	r.Title = strings.TrimSpace(r.Title)
	r.Date = strings.TrimSpace(r.Date)
	if r.Title == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "title is required")
	}
	if r.Date == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "date is required")
	}
	return nil
}
