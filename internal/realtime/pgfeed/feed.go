// Package pgfeed relays Postgres NOTIFY payloads from the attendee trigger
// into a realtime hub.
package pgfeed

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"rollcall/internal/realtime"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingInterval = 90 * time.Second
)

// Feed listens on one channel and dispatches every decoded payload.
type Feed struct {
	dsn     string
	channel string
	target  realtime.Dispatcher
	logger  *slog.Logger
	ready   chan struct{}
}

func New(dsn, channel string, target realtime.Dispatcher, logger *slog.Logger) *Feed {
	return &Feed{
		dsn:     dsn,
		channel: channel,
		target:  target,
		logger:  logger,
		ready:   make(chan struct{}),
	}
}

// Ready is closed once the LISTEN is in place.
func (f *Feed) Ready() <-chan struct{} {
	return f.ready
}

// Run listens until ctx is done. Connection loss is retried by the listener;
// notifications sent while disconnected are lost.
func (f *Feed) Run(ctx context.Context) error {
	listener := pq.NewListener(f.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		switch ev {
		case pq.ListenerEventDisconnected:
			f.logger.Warn("change feed disconnected", "channel", f.channel, "error", err)
		case pq.ListenerEventReconnected:
			f.logger.Info("change feed reconnected", "channel", f.channel)
		case pq.ListenerEventConnectionAttemptFailed:
			f.logger.Warn("change feed reconnect failed", "channel", f.channel, "error", err)
		}
	})
	defer listener.Close()

	if err := listener.Listen(f.channel); err != nil {
		return fmt.Errorf("listen on %s: %w", f.channel, err)
	}
	close(f.ready)
	f.logger.Info("change feed listening", "channel", f.channel)

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			if n == nil {
				// pq sends nil after re-establishing the connection.
				continue
			}
			change, err := Decode(n.Extra)
			if err != nil {
				f.logger.Warn("dropping malformed change notification", "channel", f.channel, "error", err)
				continue
			}
			f.target.Dispatch(change)
		case <-ticker.C:
			if err := listener.Ping(); err != nil {
				f.logger.Warn("change feed ping failed", "channel", f.channel, "error", err)
			}
		}
	}
}

// Decode parses a trigger payload.
func Decode(payload string) (realtime.Change, error) {
	var change realtime.Change
	if err := json.Unmarshal([]byte(payload), &change); err != nil {
		return realtime.Change{}, fmt.Errorf("decode change: %w", err)
	}
	if change.Table == "" || change.Type == "" {
		return realtime.Change{}, fmt.Errorf("decode change: missing table or type")
	}
	if change.At.IsZero() {
		change.At = time.Now()
	}
	return change, nil
}
