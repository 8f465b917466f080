// Package checkin resolves a scanned token into a check-in outcome.
//
// The only write is a compare-and-set on checked_in, so any number of
// stations may scan the same badge concurrently and exactly one of them
// wins. Notifying dashboards is the store's change feed's job, not ours.
package checkin

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"rollcall/internal/attendees/models"
	"rollcall/internal/audit"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/requestcontext"
)

type Store interface {
	FindByToken(ctx context.Context, eventID id.EventID, tok token.Token) (*models.Attendee, error)
	MarkCheckedIn(ctx context.Context, attendeeID id.AttendeeID, now time.Time) (bool, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

type Service struct {
	store          Store
	logger         *slog.Logger
	metrics        *Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func NewService(store Store, opts ...Option) *Service {
	s := &Service{
		store:  store,
		logger: slog.Default(),
		tracer: otel.Tracer("rollcall/checkin"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AttemptCheckIn checks in the attendee holding tok for eventID.
func (s *Service) AttemptCheckIn(ctx context.Context, eventID id.EventID, tok token.Token) Outcome {
	start := time.Now()
	ctx, span := s.tracer.Start(ctx, "checkin.attempt",
		trace.WithAttributes(attribute.String("event_id", eventID.String())),
	)
	defer span.End()

	outcome := s.attempt(ctx, eventID, tok)

	span.SetAttributes(attribute.String("outcome", string(outcome.Kind)))
	if outcome.Err != nil {
		span.RecordError(outcome.Err)
		span.SetStatus(codes.Error, outcome.Message)
	}
	s.metrics.observe(outcome.Kind, time.Since(start))
	s.record(ctx, eventID, outcome)
	return outcome
}

func (s *Service) attempt(ctx context.Context, eventID id.EventID, tok token.Token) Outcome {
	if tok == "" {
		return invalidToken()
	}

	attendee, err := s.store.FindByToken(ctx, eventID, tok)
	if err != nil {
		// Lookup failures and misses look the same to the operator.
		s.logger.DebugContext(ctx, "check-in lookup failed", "event_id", eventID, "error", err)
		return NotFound()
	}
	if attendee.CheckedIn {
		return alreadyCheckedIn(attendee.ID, attendee.Name)
	}

	now := requestcontext.Now(ctx)
	applied, err := s.store.MarkCheckedIn(ctx, attendee.ID, now)
	if err != nil {
		return UpdateFailed(err)
	}
	if !applied {
		// Another station won the race between our read and write.
		return alreadyCheckedIn(attendee.ID, attendee.Name)
	}
	return success(attendee.ID, attendee.Name, now)
}

func (s *Service) record(ctx context.Context, eventID id.EventID, o Outcome) {
	attrs := []any{
		"request_id", requestcontext.RequestID(ctx),
		"event_id", eventID,
		"station_id", requestcontext.StationID(ctx),
		"outcome", o.Kind,
	}
	if !o.AttendeeID.IsNil() {
		attrs = append(attrs, "attendee_id", o.AttendeeID)
	}
	switch o.Kind {
	case KindSuccess, KindAlreadyCheckedIn:
		s.logger.InfoContext(ctx, "check-in attempt", attrs...)
	case KindUpdateFailed:
		s.logger.ErrorContext(ctx, "check-in update failed", append(attrs, "error", o.Err)...)
	default:
		s.logger.WarnContext(ctx, "check-in rejected", attrs...)
	}

	if s.auditPublisher == nil {
		return
	}
	event := audit.Event{
		Action:    audit.ActionCheckInRejected,
		EventID:   eventID.String(),
		StationID: requestcontext.StationID(ctx),
		RequestID: requestcontext.RequestID(ctx),
		Outcome:   string(o.Kind),
	}
	if o.OK() {
		event.Action = audit.ActionCheckInSucceeded
	}
	if !o.AttendeeID.IsNil() {
		event.AttendeeID = o.AttendeeID.String()
	}
	if o.Err != nil {
		event.Reason = o.Err.Error()
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}
