package store

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"rollcall/internal/attendees/models"
	"rollcall/internal/realtime"
)

// changeNotifier publishes attendee writes when the store, rather than the
// database trigger, is the source of change notifications.
type changeNotifier struct {
	publisher realtime.Publisher
	logger    *slog.Logger
}

func (n changeNotifier) notify(ctx context.Context, typ realtime.ChangeType, a *models.Attendee) {
	if n.publisher == nil {
		return
	}
	change, err := ChangeFor(typ, a)
	if err != nil {
		n.logger.WarnContext(ctx, "failed to encode attendee change", "attendee_id", a.ID, "error", err)
		return
	}
	if err := n.publisher.Publish(ctx, change); err != nil {
		n.logger.WarnContext(ctx, "failed to publish attendee change",
			"attendee_id", a.ID,
			"type", typ,
			"error", err,
		)
	}
}

// ChangeFor builds the change record for a write to a.
func ChangeFor(typ realtime.ChangeType, a *models.Attendee) (realtime.Change, error) {
	record, err := json.Marshal(a)
	if err != nil {
		return realtime.Change{}, err
	}
	return realtime.Change{
		Table:   models.Table,
		Type:    typ,
		RowID:   a.ID.String(),
		EventID: a.EventID.String(),
		Record:  record,
		At:      time.Now(),
	}, nil
}

// DecodeRecord reads the attendee row carried by a change.
func DecodeRecord(change realtime.Change) (*models.Attendee, error) {
	var a models.Attendee
	if err := json.Unmarshal(change.Record, &a); err != nil {
		return nil, err
	}
	return &a, nil
}
