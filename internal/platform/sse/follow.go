package sse

import (
	"context"
	"time"
)

// Follow sends snapshot once, then again after every notification on
// changes, until ctx is done or changes is closed. Notifications that pile
// up while a snapshot is taken collapse into a single refresh.
func Follow[T any](ctx context.Context, s *Stream, event string, changes <-chan T, snapshot func(context.Context) (any, error)) error {
	send := func() error {
		v, err := snapshot(ctx)
		if err != nil {
			return err
		}
		return s.Send(event, v)
	}
	if err := send(); err != nil {
		return err
	}

	heartbeat := time.NewTicker(Heartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			drain(changes)
			if err := send(); err != nil {
				return err
			}
		case <-heartbeat.C:
			if err := s.Ping(); err != nil {
				return err
			}
		}
	}
}

func drain[T any](ch <-chan T) {
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		default:
			return
		}
	}
}
