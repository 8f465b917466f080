package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	"rollcall/internal/attendees/models"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

const attendeeColumns = `id, event_id, name, phone, qr_token, checked_in, checked_in_at, printed, created_at`

// ErrEventNotFound is returned by Create when the event does not exist.
var ErrEventNotFound = errors.New("event not found")

// PostgresStore persists attendees in PostgreSQL. The attendees trigger
// notifies on every write; a publisher is only needed when changes travel
// some other way (Redis, or an in-process hub without LISTEN).
type PostgresStore struct {
	db      *sql.DB
	changes changeNotifier
}

type PostgresOption func(*PostgresStore)

// WithPublisher makes the store publish each successful write.
func WithPublisher(publisher realtime.Publisher, logger *slog.Logger) PostgresOption {
	return func(s *PostgresStore) {
		s.changes = changeNotifier{publisher: publisher, logger: logger}
	}
}

func NewPostgres(db *sql.DB, opts ...PostgresOption) *PostgresStore {
	s := &PostgresStore{db: db}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *PostgresStore) Create(ctx context.Context, a *models.Attendee) error {
	query := `
		INSERT INTO attendees (` + attendeeColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := s.db.ExecContext(ctx, query,
		a.ID,
		a.EventID,
		a.Name,
		a.Phone,
		string(a.QRToken),
		a.CheckedIn,
		a.CheckedInAt,
		a.Printed,
		a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) {
			switch pgErr.Code {
			case pgUniqueViolation:
				return fmt.Errorf("create attendee: %w", ErrTokenTaken)
			case pgForeignKeyViolation:
				return fmt.Errorf("create attendee: %w", ErrEventNotFound)
			}
		}
		return fmt.Errorf("create attendee: %w", err)
	}
	s.changes.notify(ctx, realtime.Insert, a)
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE id = $1 AND event_id = $2`
	a, err := scanAttendee(s.db.QueryRowContext(ctx, query, attendeeID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendee %s: %w", attendeeID, ErrNotFound)
		}
		return nil, fmt.Errorf("find attendee: %w", err)
	}
	return a, nil
}

func (s *PostgresStore) FindByToken(ctx context.Context, eventID id.EventID, tok token.Token) (*models.Attendee, error) {
	query := `SELECT ` + attendeeColumns + ` FROM attendees WHERE event_id = $1 AND qr_token = $2`
	a, err := scanAttendee(s.db.QueryRowContext(ctx, query, eventID, string(tok)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendee token: %w", ErrNotFound)
		}
		return nil, fmt.Errorf("find attendee by token: %w", err)
	}
	return a, nil
}

// ListByEvent returns the event's attendees, newest registration first.
func (s *PostgresStore) ListByEvent(ctx context.Context, eventID id.EventID) ([]*models.Attendee, error) {
	query := `
		SELECT ` + attendeeColumns + `
		FROM attendees
		WHERE event_id = $1
		ORDER BY created_at DESC, id
	`
	rows, err := s.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	defer rows.Close()

	out := make([]*models.Attendee, 0)
	for rows.Next() {
		a, err := scanAttendee(rows)
		if err != nil {
			return nil, fmt.Errorf("scan attendee: %w", err)
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list attendees: %w", err)
	}
	return out, nil
}

// MarkCheckedIn sets checked_in only if it is still false. Zero rows means
// another writer got there first (or the row is gone).
func (s *PostgresStore) MarkCheckedIn(ctx context.Context, attendeeID id.AttendeeID, now time.Time) (bool, error) {
	query := `
		UPDATE attendees
		SET checked_in = TRUE, checked_in_at = $2
		WHERE id = $1 AND checked_in = FALSE
		RETURNING ` + attendeeColumns
	a, err := scanAttendee(s.db.QueryRowContext(ctx, query, attendeeID, now))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("mark checked in: %w", err)
	}
	s.changes.notify(ctx, realtime.Update, a)
	return true, nil
}

// MarkPrinted flags the attendee's badge for printing.
func (s *PostgresStore) MarkPrinted(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error) {
	query := `
		UPDATE attendees
		SET printed = TRUE
		WHERE id = $1 AND event_id = $2
		RETURNING ` + attendeeColumns
	a, err := scanAttendee(s.db.QueryRowContext(ctx, query, attendeeID, eventID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("attendee %s: %w", attendeeID, ErrNotFound)
		}
		return nil, fmt.Errorf("mark printed: %w", err)
	}
	s.changes.notify(ctx, realtime.Update, a)
	return a, nil
}

func (s *PostgresStore) CountByEvent(ctx context.Context, eventID id.EventID) (models.Counts, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE checked_in)
		FROM attendees
		WHERE event_id = $1
	`
	var counts models.Counts
	if err := s.db.QueryRowContext(ctx, query, eventID).Scan(&counts.Total, &counts.CheckedIn); err != nil {
		return models.Counts{}, fmt.Errorf("count attendees: %w", err)
	}
	return counts, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAttendee(row rowScanner) (*models.Attendee, error) {
	var (
		a           models.Attendee
		tok         string
		checkedInAt sql.NullTime
	)
	err := row.Scan(
		&a.ID,
		&a.EventID,
		&a.Name,
		&a.Phone,
		&tok,
		&a.CheckedIn,
		&checkedInAt,
		&a.Printed,
		&a.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	a.QRToken = token.Token(tok)
	if checkedInAt.Valid {
		t := checkedInAt.Time
		a.CheckedInAt = &t
	}
	return &a, nil
}
