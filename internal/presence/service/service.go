// Package service keeps presence counts for an event current.
//
// A dashboard subscribes before it queries, so a check-in that lands
// between the two is never missed. Every notification triggers a full
// re-count rather than a delta.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"rollcall/internal/attendees/models"
	eventmodels "rollcall/internal/events/models"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/realtime"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
)

type Store interface {
	CountByEvent(ctx context.Context, eventID id.EventID) (models.Counts, error)
}

type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
}

type Service struct {
	store    Store
	events   EventStore
	notifier realtime.Notifier
	logger   *slog.Logger
	tracer   trace.Tracer
	queries  singleflight.Group
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func New(store Store, events EventStore, notifier realtime.Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   events,
		notifier: notifier,
		logger:   slog.Default(),
		tracer:   otel.Tracer("rollcall/presence"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Counts runs the aggregate query for an event. Concurrent callers for the
// same event share one query.
func (s *Service) Counts(ctx context.Context, eventID id.EventID) (models.Counts, error) {
	v, err, shared := s.queries.Do(eventID.String(), func() (any, error) {
		qctx, span := s.tracer.Start(context.WithoutCancel(ctx), "presence.count",
			trace.WithAttributes(attribute.String("event.id", eventID.String())))
		defer span.End()
		counts, err := s.store.CountByEvent(qctx, eventID)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "count failed")
		}
		return counts, err
	})
	if shared {
		s.logger.DebugContext(ctx, "presence count shared", "event_id", eventID)
	}
	if err != nil {
		return models.Counts{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count attendees")
	}
	return v.(models.Counts), nil
}

// recount is Counts for a refresh after a change. It never joins a query
// that may have started before the change was written.
func (s *Service) recount(ctx context.Context, eventID id.EventID) (models.Counts, error) {
	s.queries.Forget(eventID.String())
	return s.Counts(ctx, eventID)
}

// Open starts a dashboard for the event. The caller must Close it.
func (s *Service) Open(ctx context.Context, eventID id.EventID) (*Dashboard, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		if errors.Is(err, eventstore.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
	}

	sub, err := s.notifier.Subscribe(ctx, realtime.Filter{
		Table:  models.Table,
		Column: realtime.ColumnEventID,
		Value:  eventID.String(),
		Type:   realtime.Any,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe to attendee changes")
	}

	counts, err := s.Counts(ctx, eventID)
	if err != nil {
		sub.Close()
		return nil, err
	}

	d := &Dashboard{
		eventID: eventID,
		sub:     sub,
		count:   s.recount,
		logger:  s.logger,
		counts:  counts,
		updates: make(chan models.Counts, 1),
		done:    make(chan struct{}),
	}
	go d.follow(context.WithoutCancel(ctx))
	return d, nil
}

// Dashboard holds the live counts of one event.
type Dashboard struct {
	eventID id.EventID
	sub     *realtime.Subscription
	count   func(context.Context, id.EventID) (models.Counts, error)
	logger  *slog.Logger

	mu      sync.RWMutex
	counts  models.Counts
	updates chan models.Counts
	done    chan struct{}
	once    sync.Once
}

// Counts returns the latest counts.
func (d *Dashboard) Counts() models.Counts {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.counts
}

// Updates delivers counts after each refresh. Only the newest value is
// kept for a slow reader. It is closed once the dashboard stops.
func (d *Dashboard) Updates() <-chan models.Counts {
	return d.updates
}

// Close releases the subscription. It is safe to call more than once.
func (d *Dashboard) Close() {
	d.once.Do(func() {
		d.sub.Close()
	})
	<-d.done
}

func (d *Dashboard) follow(ctx context.Context) {
	defer close(d.done)
	defer close(d.updates)

	for range d.sub.C {
		// Collapse a burst of changes into one query.
	drain:
		for {
			select {
			case _, ok := <-d.sub.C:
				if !ok {
					break drain
				}
			default:
				break drain
			}
		}

		counts, err := d.count(ctx, d.eventID)
		if err != nil {
			d.logger.WarnContext(ctx, "presence refresh failed", "event_id", d.eventID, "error", err)
			continue
		}
		d.publish(counts)
	}
}

func (d *Dashboard) publish(counts models.Counts) {
	d.mu.Lock()
	d.counts = counts
	d.mu.Unlock()

	select {
	case <-d.updates:
	default:
	}
	d.updates <- counts
}
