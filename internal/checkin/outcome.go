package checkin

import (
	"fmt"
	"net/http"
	"time"

	id "rollcall/pkg/domain"
)

// Kind is the result class of one check-in attempt.
type Kind string

const (
	KindSuccess          Kind = "success"
	KindInvalidToken     Kind = "invalid_token"
	KindNotFound         Kind = "not_found"
	KindAlreadyCheckedIn Kind = "already_checked_in"
	KindUpdateFailed     Kind = "update_failed"
)

// Outcome is what an operator sees after a scan. Every outcome is terminal
// for its attempt and none is retried automatically.
type Outcome struct {
	Kind        Kind          `json:"outcome"`
	AttendeeID  id.AttendeeID `json:"attendee_id,omitzero"`
	Name        string        `json:"name,omitempty"`
	CheckedInAt *time.Time    `json:"checked_in_at,omitempty"`
	Message     string        `json:"message"`
	// Err carries the store failure behind KindUpdateFailed.
	Err error `json:"-"`
}

// OK reports whether the attempt checked the attendee in.
func (o Outcome) OK() bool {
	return o.Kind == KindSuccess
}

// HTTPStatus maps the outcome onto a response status.
func (o Outcome) HTTPStatus() int {
	switch o.Kind {
	case KindSuccess:
		return http.StatusOK
	case KindInvalidToken:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyCheckedIn:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func success(attendeeID id.AttendeeID, name string, at time.Time) Outcome {
	return Outcome{
		Kind:        KindSuccess,
		AttendeeID:  attendeeID,
		Name:        name,
		CheckedInAt: &at,
		Message:     fmt.Sprintf("Welcome, %s! Check-in complete.", name),
	}
}

func invalidToken() Outcome {
	return Outcome{Kind: KindInvalidToken, Message: "Invalid QR code."}
}

// NotFound is the outcome for a token that matches no attendee of the event.
func NotFound() Outcome {
	return Outcome{Kind: KindNotFound, Message: "Attendee not found."}
}

func alreadyCheckedIn(attendeeID id.AttendeeID, name string) Outcome {
	return Outcome{
		Kind:       KindAlreadyCheckedIn,
		AttendeeID: attendeeID,
		Name:       name,
		Message:    fmt.Sprintf("%s is already checked in.", name),
	}
}

// UpdateFailed wraps a failure to record the check-in. The error text is
// shown to the operator as is.
func UpdateFailed(err error) Outcome {
	return Outcome{Kind: KindUpdateFailed, Message: err.Error(), Err: err}
}
