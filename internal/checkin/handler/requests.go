package handler

import (
	"strings"

	"rollcall/internal/token"
	dErrors "rollcall/pkg/domain-errors"
)

// CheckInRequest is the body of POST /checkin/{eventID}. Stations send the
// raw scanned payload; callers that already hold the token may send it directly.
type CheckInRequest struct {
	Payload string `json:"payload"`
	Token   string `json:"token"`
}

// Validate implements httputil.Validatable.
func (r *CheckInRequest) Validate() error {
	r.Payload = strings.TrimSpace(r.Payload)
	r.Token = strings.TrimSpace(r.Token)
	if r.Payload != "" && r.Token != "" {
		return dErrors.New(dErrors.CodeInvalidInput, "send either payload or token, not both")
	}
	return nil
}

// ScannedToken resolves the request to a token. An empty result is left for
// the check-in service to reject.
func (r *CheckInRequest) ScannedToken() token.Token {
	if r.Token != "" {
		return token.Token(r.Token)
	}
	return token.Decode(r.Payload)
}
