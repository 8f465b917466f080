package handler

import (
	"strings"

	dErrors "rollcall/pkg/domain-errors"
)

// RegisterRequest is the body of POST /events/{eventID}/attendees.
type RegisterRequest struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// Validate implements httputil.Validatable.
func (r *RegisterRequest) Validate() error {
	r.Name = strings.TrimSpace(r.Name)
	r.Phone = strings.TrimSpace(r.Phone)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "name is required")
	}
	if r.Phone == "" {
		return dErrors.New(dErrors.CodeInvalidInput, "phone is required")
	}
	return nil
}
