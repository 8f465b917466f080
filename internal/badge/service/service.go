// Package service turns attendee updates into badge print triggers.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"rollcall/internal/attendees/models"
	"rollcall/internal/attendees/store"
	"rollcall/internal/realtime"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

type Store interface {
	FindByID(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error)
}

type Service struct {
	store    Store
	notifier realtime.Notifier
	logger   *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, notifier realtime.Notifier, opts ...Option) *Service {
	s := &Service{store: store, notifier: notifier, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Watch follows one attendee's badge. A trigger is delivered at once when
// the badge is already marked printed, then for every update that leaves
// it printed. The caller must Close the watch.
func (s *Service) Watch(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*Watch, error) {
	sub, err := s.notifier.Subscribe(ctx, realtime.Filter{
		Table:  models.Table,
		Column: realtime.ColumnID,
		Value:  attendeeID.String(),
		Type:   realtime.Update,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe to attendee changes")
	}

	attendee, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		sub.Close()
		if errors.Is(err, store.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "attendee not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendee")
	}

	w := &Watch{
		eventID:  eventID,
		sub:      sub,
		logger:   s.logger,
		triggers: make(chan *models.Attendee, 1),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	var initial *models.Attendee
	if attendee.Printed {
		initial = attendee
	}
	go w.follow(context.WithoutCancel(ctx), initial)
	return w, nil
}

// Watch is an open badge subscription.
type Watch struct {
	eventID  id.EventID
	sub      *realtime.Subscription
	logger   *slog.Logger
	triggers chan *models.Attendee
	stop     chan struct{}
	done     chan struct{}
	once     sync.Once
}

// Triggers delivers the attendee row for each print. It is closed when the
// watch ends.
func (w *Watch) Triggers() <-chan *models.Attendee {
	return w.triggers
}

// Close releases the subscription. It is safe to call more than once.
func (w *Watch) Close() {
	w.once.Do(func() {
		close(w.stop)
		w.sub.Close()
	})
	<-w.done
}

func (w *Watch) follow(ctx context.Context, initial *models.Attendee) {
	defer close(w.done)
	defer close(w.triggers)

	if initial != nil && !w.send(initial) {
		return
	}
	for change := range w.sub.C {
		attendee, err := store.DecodeRecord(change)
		if err != nil {
			w.logger.WarnContext(ctx, "undecodable attendee change", "row_id", change.RowID, "error", err)
			continue
		}
		if !attendee.Printed || attendee.EventID != w.eventID {
			continue
		}
		if !w.send(attendee) {
			return
		}
	}
}

func (w *Watch) send(a *models.Attendee) bool {
	select {
	case w.triggers <- a:
		return true
	case <-w.stop:
		return false
	}
}
