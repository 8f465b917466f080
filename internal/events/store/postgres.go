package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"rollcall/internal/events/models"
	id "rollcall/pkg/domain"
)

// PostgresStore persists events in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Create(ctx context.Context, event *models.Event) error {
	query := `
		INSERT INTO events (id, title, date, status, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`
	_, err := s.db.ExecContext(ctx, query, event.ID, event.Title, event.Date, string(event.Status), event.CreatedAt)
	if err != nil {
		return fmt.Errorf("create event: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID) (*models.Event, error) {
	query := `
		SELECT id, title, date::text, status, created_at
		FROM events
		WHERE id = $1
	`
	var (
		event  models.Event
		status string
	)
	err := s.db.QueryRowContext(ctx, query, eventID).Scan(&event.ID, &event.Title, &event.Date, &status, &event.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("event %s: %w", eventID, ErrNotFound)
		}
		return nil, fmt.Errorf("find event: %w", err)
	}
	event.Status = models.Status(status)
	return &event, nil
}
