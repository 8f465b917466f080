// Package memory keeps audit events in process, for tests and brokerless runs.
package memory

import (
	"context"
	"sync"

	"rollcall/internal/audit"
)

type Sink struct {
	mu     sync.RWMutex
	events []audit.Event
}

func NewSink() *Sink {
	return &Sink{}
}

func (s *Sink) Append(_ context.Context, event audit.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

// ListAll returns a copy of every recorded event in arrival order.
func (s *Sink) ListAll() []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]audit.Event{}, s.events...)
}

// ListByEvent returns the events recorded for one event ID.
func (s *Sink) ListByEvent(eventID string) []audit.Event {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Event
	for _, e := range s.events {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out
}

func (s *Sink) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = nil
}
