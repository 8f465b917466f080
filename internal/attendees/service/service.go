// Package service handles registration, lookups and badge print requests.
package service

import (
	"context"
	"errors"
	"log/slog"

	"rollcall/internal/attendees/models"
	"rollcall/internal/attendees/store"
	"rollcall/internal/audit"
	eventmodels "rollcall/internal/events/models"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

// tokenAttempts bounds retries when a freshly generated token collides.
const tokenAttempts = 3

type Store interface {
	Create(ctx context.Context, a *models.Attendee) error
	FindByID(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error)
	FindByToken(ctx context.Context, eventID id.EventID, tok token.Token) (*models.Attendee, error)
	ListByEvent(ctx context.Context, eventID id.EventID) ([]*models.Attendee, error)
	MarkPrinted(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error)
}

type EventStore interface {
	FindByID(ctx context.Context, eventID id.EventID) (*eventmodels.Event, error)
}

type URLEncoder interface {
	EncodeURL(eventID string, t token.Token) string
}

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Registration is an attendee together with the URL their QR code encodes.
type Registration struct {
	Attendee   *models.Attendee `json:"attendee"`
	CheckInURL string           `json:"checkin_url"`
}

type Service struct {
	store          Store
	events         EventStore
	codec          URLEncoder
	notifier       realtime.Notifier
	logger         *slog.Logger
	auditPublisher AuditPublisher
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func New(store Store, events EventStore, codec URLEncoder, notifier realtime.Notifier, opts ...Option) *Service {
	s := &Service{
		store:    store,
		events:   events,
		codec:    codec,
		notifier: notifier,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register creates an attendee with a fresh token for an existing event.
func (s *Service) Register(ctx context.Context, eventID id.EventID, name, phone string) (*Registration, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, eventError(err)
	}

	now := requestcontext.Now(ctx)
	var (
		attendee *models.Attendee
		err      error
	)
	for range tokenAttempts {
		attendee, err = models.NewAttendee(id.NewAttendeeID(), eventID, name, phone, token.Generate(), now)
		if err != nil {
			return nil, err
		}
		err = s.store.Create(ctx, attendee)
		if !errors.Is(err, store.ErrTokenTaken) {
			break
		}
		s.logger.WarnContext(ctx, "token collision, regenerating", "event_id", eventID)
	}
	if err != nil {
		if errors.Is(err, store.ErrEventNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "event not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to register attendee")
	}

	s.logger.InfoContext(ctx, "attendee registered",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", eventID,
		"attendee_id", attendee.ID,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionAttendeeRegistered,
		EventID:    eventID.String(),
		AttendeeID: attendee.ID.String(),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return s.registration(attendee), nil
}

// GetByToken looks up a registration by the token in its QR code.
func (s *Service) GetByToken(ctx context.Context, eventID id.EventID, tok token.Token) (*Registration, error) {
	if tok == "" {
		return nil, dErrors.New(dErrors.CodeInvalidInput, "token is required")
	}
	attendee, err := s.store.FindByToken(ctx, eventID, tok)
	if err != nil {
		return nil, attendeeError(err)
	}
	return s.registration(attendee), nil
}

func (s *Service) Get(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	attendee, err := s.store.FindByID(ctx, eventID, attendeeID)
	if err != nil {
		return nil, attendeeError(err)
	}
	return attendee, nil
}

// List returns the event's attendees, newest registration first.
func (s *Service) List(ctx context.Context, eventID id.EventID) ([]*models.Attendee, error) {
	if _, err := s.events.FindByID(ctx, eventID); err != nil {
		return nil, eventError(err)
	}
	attendees, err := s.store.ListByEvent(ctx, eventID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list attendees")
	}
	return attendees, nil
}

// Subscribe opens a change subscription over the event's attendees.
func (s *Service) Subscribe(ctx context.Context, eventID id.EventID) (*realtime.Subscription, error) {
	sub, err := s.notifier.Subscribe(ctx, realtime.Filter{
		Table:  models.Table,
		Column: realtime.ColumnEventID,
		Value:  eventID.String(),
		Type:   realtime.Any,
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to subscribe to attendee changes")
	}
	return sub, nil
}

// MarkPrinted requests a badge print for the attendee.
func (s *Service) MarkPrinted(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	attendee, err := s.store.MarkPrinted(ctx, eventID, attendeeID)
	if err != nil {
		return nil, attendeeError(err)
	}
	s.logger.InfoContext(ctx, "badge print requested",
		"request_id", requestcontext.RequestID(ctx),
		"event_id", eventID,
		"attendee_id", attendeeID,
	)
	s.emitAudit(ctx, audit.Event{
		Action:     audit.ActionBadgePrinted,
		EventID:    eventID.String(),
		AttendeeID: attendeeID.String(),
		StationID:  requestcontext.StationID(ctx),
		RequestID:  requestcontext.RequestID(ctx),
	})
	return attendee, nil
}

func (s *Service) registration(a *models.Attendee) *Registration {
	return &Registration{
		Attendee:   a,
		CheckInURL: s.codec.EncodeURL(a.EventID.String(), a.QRToken),
	}
}

func (s *Service) emitAudit(ctx context.Context, event audit.Event) {
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "action", event.Action, "error", err)
	}
}

func eventError(err error) error {
	if errors.Is(err, eventstore.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "event not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load event")
}

func attendeeError(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "attendee not found")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load attendee")
}
