// Package token issues attendee QR tokens and moves them in and out of the
// check-in URL printed in the QR code.
package token

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/google/uuid"
)

// Token is the opaque attendee identifier embedded in a QR code.
type Token string

// QueryParam is the query parameter carrying the token in a check-in URL.
const QueryParam = "token"

// Generate returns a fresh random token (a version 4 UUID).
func Generate() Token {
	return Token(uuid.NewString())
}

// Codec renders check-in URLs against a public origin.
type Codec struct {
	origin string
}

// NewCodec validates origin (scheme and host, no query) and returns a Codec.
func NewCodec(origin string) (*Codec, error) {
	u, err := url.Parse(origin)
	if err != nil {
		return nil, fmt.Errorf("parse origin: %w", err)
	}
	if u.Scheme == "" || u.Host == "" || u.RawQuery != "" {
		return nil, fmt.Errorf("origin %q must be an absolute URL without query", origin)
	}
	return &Codec{origin: strings.TrimRight(u.String(), "/")}, nil
}

// EncodeURL returns <origin>/checkin/<eventID>?token=<token>.
func (c *Codec) EncodeURL(eventID string, t Token) string {
	q := url.Values{QueryParam: []string{string(t)}}
	return c.origin + "/checkin/" + url.PathEscape(eventID) + "?" + q.Encode()
}

// Decode pulls the token out of a scanned payload. Absolute URLs yield their
// token query parameter, which may be empty. Anything else is taken to be a
// bare token and returned unchanged.
func Decode(payload string) Token {
	u, err := url.Parse(payload)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return Token(payload)
	}
	return Token(u.Query().Get(QueryParam))
}
