package testutil

import (
	"net/http"
	"time"

	"rollcall/pkg/requestcontext"
)

// WithStation marks the request as coming from a scanning station, as the
// station middleware would after reading X-Station-ID.
func WithStation(req *http.Request, station string) *http.Request {
	return req.WithContext(requestcontext.WithStationID(req.Context(), station))
}

// WithRequestTime pins the request-scoped clock.
func WithRequestTime(req *http.Request, now time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), now))
}
