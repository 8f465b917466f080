// Package store persists attendees and owns the check-in compare-and-set.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"rollcall/internal/attendees/models"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

// ErrNotFound is returned when an attendee does not exist.
var ErrNotFound = sentinel.ErrNotFound

// ErrTokenTaken is returned when a new attendee's token is already in use.
var ErrTokenTaken = sentinel.ErrConflict

type InMemoryStore struct {
	mu        sync.RWMutex
	attendees map[id.AttendeeID]models.Attendee
	byToken   map[token.Token]id.AttendeeID
	changes   changeNotifier
}

// NewInMemory returns an empty store. Writes are published to publisher when
// it is non-nil.
func NewInMemory(publisher realtime.Publisher, logger *slog.Logger) *InMemoryStore {
	return &InMemoryStore{
		attendees: make(map[id.AttendeeID]models.Attendee),
		byToken:   make(map[token.Token]id.AttendeeID),
		changes:   changeNotifier{publisher: publisher, logger: logger},
	}
}

func (s *InMemoryStore) Create(ctx context.Context, a *models.Attendee) error {
	s.mu.Lock()
	if _, taken := s.byToken[a.QRToken]; taken {
		s.mu.Unlock()
		return fmt.Errorf("attendee token: %w", ErrTokenTaken)
	}
	if _, exists := s.attendees[a.ID]; exists {
		s.mu.Unlock()
		return fmt.Errorf("attendee %s: %w", a.ID, sentinel.ErrConflict)
	}
	s.attendees[a.ID] = *a
	s.byToken[a.QRToken] = a.ID
	s.mu.Unlock()

	s.changes.notify(ctx, realtime.Insert, a)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	a, ok := s.attendees[attendeeID]
	if !ok || a.EventID != eventID {
		return nil, fmt.Errorf("attendee %s: %w", attendeeID, ErrNotFound)
	}
	return &a, nil
}

func (s *InMemoryStore) FindByToken(_ context.Context, eventID id.EventID, tok token.Token) (*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	attendeeID, ok := s.byToken[tok]
	if !ok {
		return nil, fmt.Errorf("attendee token: %w", ErrNotFound)
	}
	a := s.attendees[attendeeID]
	if a.EventID != eventID {
		return nil, fmt.Errorf("attendee token: %w", ErrNotFound)
	}
	return &a, nil
}

// ListByEvent returns the event's attendees, newest registration first.
func (s *InMemoryStore) ListByEvent(_ context.Context, eventID id.EventID) ([]*models.Attendee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*models.Attendee, 0)
	for _, a := range s.attendees {
		if a.EventID == eventID {
			out = append(out, &a)
		}
	}
	slices.SortFunc(out, func(x, y *models.Attendee) int {
		if c := y.CreatedAt.Compare(x.CreatedAt); c != 0 {
			return c
		}
		return compareIDs(x.ID, y.ID)
	})
	return out, nil
}

// MarkCheckedIn sets checked_in only if it is still false. It reports
// whether this call made the transition.
func (s *InMemoryStore) MarkCheckedIn(ctx context.Context, attendeeID id.AttendeeID, now time.Time) (bool, error) {
	s.mu.Lock()
	a, ok := s.attendees[attendeeID]
	if !ok || !a.CheckIn(now) {
		s.mu.Unlock()
		return false, nil
	}
	s.attendees[attendeeID] = a
	s.mu.Unlock()

	s.changes.notify(ctx, realtime.Update, &a)
	return true, nil
}

// MarkPrinted flags the attendee's badge for printing. Every call is a new
// print request and produces a change.
func (s *InMemoryStore) MarkPrinted(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	s.mu.Lock()
	a, ok := s.attendees[attendeeID]
	if !ok || a.EventID != eventID {
		s.mu.Unlock()
		return nil, fmt.Errorf("attendee %s: %w", attendeeID, ErrNotFound)
	}
	a.Printed = true
	s.attendees[attendeeID] = a
	s.mu.Unlock()

	s.changes.notify(ctx, realtime.Update, &a)
	return &a, nil
}

func (s *InMemoryStore) CountByEvent(_ context.Context, eventID id.EventID) (models.Counts, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var counts models.Counts
	for _, a := range s.attendees {
		if a.EventID != eventID {
			continue
		}
		counts.Total++
		if a.CheckedIn {
			counts.CheckedIn++
		}
	}
	return counts, nil
}

func compareIDs(x, y id.AttendeeID) int {
	xs, ys := x.String(), y.String()
	switch {
	case xs < ys:
		return -1
	case xs > ys:
		return 1
	}
	return 0
}
