package realtime

import (
	"encoding/json"
	"fmt"
	"time"
)

// ChangeType is the row operation that produced a Change.
type ChangeType string

const (
	Insert ChangeType = "INSERT"
	Update ChangeType = "UPDATE"
	Delete ChangeType = "DELETE"
	// Any matches every change type in a Filter.
	Any ChangeType = "*"
)

// Filter columns a subscription may match on.
const (
	ColumnID      = "id"
	ColumnEventID = "event_id"
)

// Change describes one row mutation. Record holds the row as JSON after the
// change (before it, for deletes).
type Change struct {
	Table   string          `json:"table"`
	Type    ChangeType      `json:"type"`
	RowID   string          `json:"row_id"`
	EventID string          `json:"event_id"`
	Record  json.RawMessage `json:"record,omitempty"`
	At      time.Time       `json:"at"`
}

// Filter selects the changes a subscriber receives. Column and Value narrow
// to one row (ColumnID) or one event (ColumnEventID); an empty Column
// matches the whole table.
type Filter struct {
	Table  string
	Column string
	Value  string
	Type   ChangeType
}

// Validate rejects filters that could never match or name unknown columns.
func (f Filter) Validate() error {
	if f.Table == "" {
		return fmt.Errorf("filter requires a table")
	}
	switch f.Column {
	case "":
	case ColumnID, ColumnEventID:
		if f.Value == "" {
			return fmt.Errorf("filter on %s requires a value", f.Column)
		}
	default:
		return fmt.Errorf("unsupported filter column %q", f.Column)
	}
	switch f.Type {
	case "", Any, Insert, Update, Delete:
	default:
		return fmt.Errorf("unsupported change type %q", f.Type)
	}
	return nil
}

// Matches reports whether c passes the filter.
func (f Filter) Matches(c Change) bool {
	if f.Table != c.Table {
		return false
	}
	if f.Type != "" && f.Type != Any && f.Type != c.Type {
		return false
	}
	switch f.Column {
	case ColumnID:
		return f.Value == c.RowID
	case ColumnEventID:
		return f.Value == c.EventID
	}
	return true
}
