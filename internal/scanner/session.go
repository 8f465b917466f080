package scanner

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultStartTimeout bounds how long Start waits for a stream to go live.
const DefaultStartTimeout = 10 * time.Second

// Action tells the decode loop what to do after a payload.
type Action int

const (
	Continue Action = iota
	Halt
)

// Handler receives each decoded payload.
type Handler func(ctx context.Context, payload string) Action

// Session runs one decode loop at a time over a device.
type Session struct {
	device       Device
	decoder      Decoder
	facing       Facing
	startTimeout time.Duration
	logger       *slog.Logger

	mu      sync.Mutex
	current *run
}

type run struct {
	cancel context.CancelFunc
	done   chan struct{}
}

type SessionOption func(*Session)

func WithStartTimeout(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.startTimeout = d
		}
	}
}

func WithFacing(f Facing) SessionOption {
	return func(s *Session) {
		s.facing = f
	}
}

func WithSessionLogger(logger *slog.Logger) SessionOption {
	return func(s *Session) {
		s.logger = logger
	}
}

func NewSession(device Device, decoder Decoder, opts ...SessionOption) *Session {
	s := &Session{
		device:       device,
		decoder:      decoder,
		facing:       FacingEnvironment,
		startTimeout: DefaultStartTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start stops any previous run, opens the device and starts decoding on
// its own goroutine. The session lock is not held while the device comes
// up, so Stop can abandon a slow start. Device failures are returned as
// *StartError; an abandoned start returns ErrStartCancelled.
func (s *Session) Start(ctx context.Context, handler Handler) error {
	s.mu.Lock()
	s.stopLocked()
	runCtx, cancel := context.WithCancel(ctx)
	r := &run{cancel: cancel, done: make(chan struct{})}
	s.current = r
	s.mu.Unlock()

	stream, err := s.open(runCtx)
	if err != nil {
		cancel()
		close(r.done)
		s.forget(r)
		return err
	}
	go s.loop(runCtx, r, stream, handler)
	return nil
}

func (s *Session) open(ctx context.Context) (Stream, error) {
	openCtx, cancelOpen := context.WithTimeout(ctx, s.startTimeout)
	defer cancelOpen()

	stream, err := s.device.Open(openCtx, s.facing)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ErrStartCancelled
		}
		return nil, Classify(err)
	}
	select {
	case <-stream.Ready():
		if ctx.Err() == nil {
			return stream, nil
		}
	case <-openCtx.Done():
	}
	s.release(ctx, stream)
	if ctx.Err() != nil {
		return nil, ErrStartCancelled
	}
	return nil, Classify(openCtx.Err())
}

// forget drops r if it is still the current run.
func (s *Session) forget(r *run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == r {
		s.current = nil
	}
}

// Stop ends the current run and waits for the device to be released. It is
// safe to call at any time, any number of times.
func (s *Session) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
}

// Running reports whether a start or a decode loop is active.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return false
	}
	select {
	case <-s.current.done:
		return false
	default:
		return true
	}
}

func (s *Session) stopLocked() {
	if s.current == nil {
		return
	}
	s.current.cancel()
	<-s.current.done
	s.current = nil
}

func (s *Session) loop(ctx context.Context, r *run, stream Stream, handler Handler) {
	defer close(r.done)
	defer r.cancel()
	defer s.release(ctx, stream)
	defer func() {
		if p := recover(); p != nil {
			s.logger.ErrorContext(ctx, "scan handler panicked", "panic", p)
		}
	}()

	frames := stream.Frames()
	for {
		select {
		case <-ctx.Done():
			return
		case frame, ok := <-frames:
			if !ok {
				return
			}
			payload, err := s.decoder.Decode(frame)
			if err != nil {
				continue
			}
			// A stop that raced the decode wins.
			if ctx.Err() != nil {
				return
			}
			if handler(ctx, payload) == Halt {
				return
			}
		}
	}
}

func (s *Session) release(ctx context.Context, stream Stream) {
	if err := stream.Close(); err != nil {
		s.logger.WarnContext(ctx, "failed to release scanner device", "error", err)
	}
}
