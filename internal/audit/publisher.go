// Package audit records what happened at the door: check-in outcomes,
// registrations, badge prints. Events go to a Sink, either synchronously or
// through a bounded buffer drained by a background goroutine.
package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Sink persists audit events.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. It is append-only; the sink
// decides where events end up.
type Publisher struct {
	sink    Sink
	logger  *slog.Logger
	metrics *Metrics

	bufferSize int
	buffer     chan Event
	wg         sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures the Publisher.
type Option func(*Publisher)

// WithAsyncBuffer makes Emit non-blocking. Events beyond size are dropped.
func WithAsyncBuffer(size int) Option {
	return func(p *Publisher) {
		p.bufferSize = size
	}
}

// WithLogger sets a logger for sink failures.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// WithMetrics sets the metrics collector.
func WithMetrics(m *Metrics) Option {
	return func(p *Publisher) {
		p.metrics = m
	}
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink}
	for _, opt := range opts {
		opt(p)
	}
	if p.bufferSize > 0 {
		p.buffer = make(chan Event, p.bufferSize)
		p.wg.Add(1)
		go p.drain()
	}
	return p
}

// Emit records event. In async mode it never blocks and only fails once the
// publisher is closed. A nil Publisher discards events.
func (p *Publisher) Emit(ctx context.Context, event Event) error {
	if p == nil {
		return nil
	}
	if event.Action == "" {
		return fmt.Errorf("audit event requires Action")
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return fmt.Errorf("audit publisher closed")
	}

	if p.buffer == nil {
		return p.write(ctx, event)
	}

	select {
	case p.buffer <- event:
		return nil
	default:
		p.metrics.IncDropped()
		if p.logger != nil {
			p.logger.WarnContext(ctx, "audit buffer full, event dropped", "action", event.Action, "event_id", event.EventID)
		}
		return nil
	}
}

// Close stops accepting events and waits for buffered ones to reach the sink.
func (p *Publisher) Close() error {
	if p == nil {
		return nil
	}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	if p.buffer != nil {
		close(p.buffer)
	}
	p.mu.Unlock()

	p.wg.Wait()
	return nil
}

func (p *Publisher) drain() {
	defer p.wg.Done()
	for event := range p.buffer {
		_ = p.write(context.Background(), event)
	}
}

func (p *Publisher) write(ctx context.Context, event Event) error {
	if err := p.sink.Append(ctx, event); err != nil {
		p.metrics.IncSinkFailure()
		if p.logger != nil {
			p.logger.ErrorContext(ctx, "audit sink append failed",
				"action", event.Action,
				"event_id", event.EventID,
				"error", err,
			)
		}
		return fmt.Errorf("append audit event: %w", err)
	}
	p.metrics.IncEmitted(event.Action)
	return nil
}
