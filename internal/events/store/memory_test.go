package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/events/models"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/sentinel"
)

func TestInMemoryStore(t *testing.T) {
	ctx := context.Background()
	s := NewInMemory()

	event, err := models.NewEvent(id.NewEventID(), "Launch", "2026-03-01", time.Now())
	require.NoError(t, err)
	require.NoError(t, s.Create(ctx, event))

	t.Run("finds a created event", func(t *testing.T) {
		got, err := s.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, *event, *got)
	})

	t.Run("returned copies do not alias the store", func(t *testing.T) {
		got, err := s.FindByID(ctx, event.ID)
		require.NoError(t, err)
		got.Title = "changed"

		again, err := s.FindByID(ctx, event.ID)
		require.NoError(t, err)
		assert.Equal(t, "Launch", again.Title)
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		_, err := s.FindByID(ctx, id.NewEventID())
		assert.True(t, errors.Is(err, ErrNotFound))
	})

	t.Run("duplicate id conflicts", func(t *testing.T) {
		err := s.Create(ctx, event)
		assert.True(t, errors.Is(err, sentinel.ErrConflict))
	})
}
