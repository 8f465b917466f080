// Package store persists events. The in-memory store backs tests and runs
// without a database; PostgresStore is the production store.
package store

import (
	"context"
	"fmt"
	"sync"

	"rollcall/internal/events/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// ErrNotFound is returned when an event does not exist.
var ErrNotFound = sentinel.ErrNotFound

type InMemoryStore struct {
	mu     sync.RWMutex
	events map[id.EventID]models.Event
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{events: make(map[id.EventID]models.Event)}
}

func (s *InMemoryStore) Create(_ context.Context, event *models.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("event %s: %w", event.ID, sentinel.ErrConflict)
	}
	s.events[event.ID] = *event
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID id.EventID) (*models.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	event, ok := s.events[eventID]
	if !ok {
		return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
	}
	return &event, nil
}
