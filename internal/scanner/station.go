package scanner

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"rollcall/internal/checkin"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
)

// DefaultCooldown is how long a success stays on screen before the station
// goes back to Idle.
const DefaultCooldown = 3 * time.Second

// State is the operator-facing state of a station.
type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateScanning State = "scanning"
	StateSuccess  State = "success"
	StateError    State = "error"
)

// Status is a snapshot of a station. Outcome is set after an attempt and
// StartErr after a failed Start.
type Status struct {
	State    State
	Outcome  *checkin.Outcome
	StartErr *StartError
}

// Message is the text to show the operator for this status.
func (s Status) Message() string {
	switch {
	case s.StartErr != nil:
		return s.StartErr.Message()
	case s.Outcome != nil:
		return s.Outcome.Message
	case s.State == StateStarting:
		return "Starting the scanner..."
	case s.State == StateScanning:
		return "Point the camera at a QR code."
	default:
		return "Ready to scan."
	}
}

// Checker performs one check-in attempt. Both the local service and the
// HTTP client satisfy it.
type Checker interface {
	AttemptCheckIn(ctx context.Context, eventID id.EventID, tok token.Token) checkin.Outcome
}

// Station drives check-ins for one event from a scanning session. Each
// Start accepts a single scan; any outcome stops the session.
type Station struct {
	session  *Session
	checker  Checker
	eventID  id.EventID
	cooldown time.Duration
	logger   *slog.Logger
	observer func(Status)

	mu     sync.Mutex
	status Status
	// gen invalidates late attempt results, starts and cool-down timers
	// after a restart or stop.
	gen           uint64
	cancelRun     context.CancelFunc
	cooldownTimer *time.Timer
	inflight      sync.WaitGroup
}

type StationOption func(*Station)

func WithCooldown(d time.Duration) StationOption {
	return func(st *Station) {
		st.cooldown = d
	}
}

func WithStationLogger(logger *slog.Logger) StationOption {
	return func(st *Station) {
		st.logger = logger
	}
}

// WithObserver registers a callback for every status change. It runs with
// the station locked and must not call back into the station.
func WithObserver(fn func(Status)) StationOption {
	return func(st *Station) {
		st.observer = fn
	}
}

func NewStation(session *Session, checker Checker, eventID id.EventID, opts ...StationOption) *Station {
	st := &Station{
		session:  session,
		checker:  checker,
		eventID:  eventID,
		cooldown: DefaultCooldown,
		logger:   slog.Default(),
		status:   Status{State: StateIdle},
	}
	for _, opt := range opts {
		opt(st)
	}
	return st
}

// Status returns the current status.
func (st *Station) Status() Status {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.status
}

// Start begins scanning. It is also the operator's "try again" after an
// error and may interrupt a success cool-down. The station reports
// Starting while the device comes up and Scanning once it is live. The
// station is not locked meanwhile, so Status and Stop stay responsive.
func (st *Station) Start(ctx context.Context) error {
	st.mu.Lock()
	st.gen++
	gen := st.gen
	st.cancelRunLocked()
	st.stopCooldownLocked()
	runCtx, cancel := context.WithCancel(ctx)
	st.cancelRun = cancel
	st.setLocked(Status{State: StateStarting})
	st.mu.Unlock()

	err := st.session.Start(runCtx, st.handler(gen))

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gen != gen {
		// Stopped or restarted while starting; runCtx is already cancelled.
		return ErrStartCancelled
	}
	switch {
	case err == nil:
		// An attempt may already have reported.
		if st.status.State == StateStarting {
			st.setLocked(Status{State: StateScanning})
		}
		return nil
	case errors.Is(err, ErrStartCancelled):
		st.setLocked(Status{State: StateIdle})
		return err
	}

	var startErr *StartError
	if !errors.As(err, &startErr) {
		startErr = Classify(err)
	}
	st.logger.WarnContext(ctx, "scanner failed to start", "kind", startErr.Kind, "error", startErr.Err)
	st.setLocked(Status{State: StateError, StartErr: startErr})
	return startErr
}

// Stop abandons any start in progress, releases the device and returns to
// Idle. An attempt already sent to the checker still completes; its result
// is only logged.
func (st *Station) Stop() {
	st.mu.Lock()
	st.gen++
	st.cancelRunLocked()
	st.stopCooldownLocked()
	st.setLocked(Status{State: StateIdle})
	st.mu.Unlock()

	st.session.Stop()
}

// Wait blocks until in-flight attempts have finished. Call it after Stop:
// once Stop returns no new attempt begins.
func (st *Station) Wait() {
	st.inflight.Wait()
}

func (st *Station) handler(gen uint64) Handler {
	return func(ctx context.Context, payload string) Action {
		st.mu.Lock()
		if st.gen != gen {
			st.mu.Unlock()
			return Halt
		}
		st.inflight.Add(1)
		st.mu.Unlock()
		// The attempt outlives the session so a stop never interrupts a write.
		go st.attempt(context.WithoutCancel(ctx), gen, payload)
		return Halt
	}
}

func (st *Station) attempt(ctx context.Context, gen uint64, payload string) {
	defer st.inflight.Done()

	outcome := st.checker.AttemptCheckIn(ctx, st.eventID, token.Decode(payload))
	st.logger.InfoContext(ctx, "scan processed",
		"event_id", st.eventID,
		"outcome", outcome.Kind,
		"name", outcome.Name,
	)

	st.mu.Lock()
	defer st.mu.Unlock()
	if st.gen != gen {
		return
	}
	if !outcome.OK() {
		st.setLocked(Status{State: StateError, Outcome: &outcome})
		return
	}
	st.setLocked(Status{State: StateSuccess, Outcome: &outcome})
	st.cooldownTimer = time.AfterFunc(st.cooldown, func() {
		st.mu.Lock()
		defer st.mu.Unlock()
		if st.gen == gen && st.status.State == StateSuccess {
			st.setLocked(Status{State: StateIdle})
		}
	})
}

func (st *Station) cancelRunLocked() {
	if st.cancelRun != nil {
		st.cancelRun()
		st.cancelRun = nil
	}
}

func (st *Station) stopCooldownLocked() {
	if st.cooldownTimer != nil {
		st.cooldownTimer.Stop()
		st.cooldownTimer = nil
	}
}

func (st *Station) setLocked(s Status) {
	st.status = s
	if st.observer != nil {
		st.observer(s)
	}
}
