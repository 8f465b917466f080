// Package sse writes server-sent event streams for the live views: dashboard
// counts, attendee lists and badge print triggers.
package sse

import (
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-contrib/sse"
)

// Heartbeat is how often idle streams send a comment line so proxies keep
// the connection open.
const Heartbeat = 15 * time.Second

// Stream is an open event stream on one response.
type Stream struct {
	w  http.ResponseWriter
	rc *http.ResponseController
}

// Open writes the stream headers and flushes them.
func Open(w http.ResponseWriter) (*Stream, error) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)

	s := &Stream{w: w, rc: http.NewResponseController(w)}
	if err := s.rc.Flush(); err != nil {
		return nil, fmt.Errorf("response does not support streaming: %w", err)
	}
	return s, nil
}

// Send writes one event. Structs, maps and slices are sent as JSON.
func (s *Stream) Send(event string, data any) error {
	if err := sse.Encode(s.w, sse.Event{Event: event, Data: data}); err != nil {
		return fmt.Errorf("encode event %s: %w", event, err)
	}
	return s.rc.Flush()
}

// Ping writes a comment line.
func (s *Stream) Ping() error {
	if _, err := io.WriteString(s.w, ": ping\n\n"); err != nil {
		return err
	}
	return s.rc.Flush()
}
