package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/audit"
	auditmemory "rollcall/internal/audit/memory"
	"rollcall/internal/events/models"
	"rollcall/internal/events/store"
	"rollcall/internal/platform/logger"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/requestcontext"
)

type brokenStore struct{}

func (brokenStore) Create(context.Context, *models.Event) error {
	return errors.New("connection reset")
}

func (brokenStore) FindByID(context.Context, id.EventID) (*models.Event, error) {
	return nil, errors.New("connection reset")
}

func TestCreateAndGet(t *testing.T) {
	sink := auditmemory.NewSink()
	svc := New(store.NewInMemory(),
		WithLogger(logger.Discard()),
		WithAuditPublisher(audit.NewPublisher(sink)),
	)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), now)

	created, err := svc.Create(ctx, "Launch", "2026-03-01")
	require.NoError(t, err)
	assert.Equal(t, models.StatusOpen, created.Status)
	assert.Equal(t, now, created.CreatedAt)

	got, err := svc.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Title, got.Title)

	events := sink.ListByEvent(created.ID.String())
	require.Len(t, events, 1)
	assert.Equal(t, audit.ActionEventCreated, events[0].Action)
}

func TestCreateRejectsInvalidInput(t *testing.T) {
	svc := New(store.NewInMemory(), WithLogger(logger.Discard()))

	_, err := svc.Create(context.Background(), "", "2026-03-01")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
}

func TestGetErrors(t *testing.T) {
	t.Run("missing event is not found", func(t *testing.T) {
		svc := New(store.NewInMemory(), WithLogger(logger.Discard()))
		_, err := svc.Get(context.Background(), id.NewEventID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	t.Run("store failure is internal", func(t *testing.T) {
		svc := New(brokenStore{}, WithLogger(logger.Discard()))
		_, err := svc.Get(context.Background(), id.NewEventID())
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

		_, err = svc.Create(context.Background(), "Launch", "2026-03-01")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
