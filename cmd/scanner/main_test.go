package main

import (
	"bytes"
	"context"
	"io"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	attendeeservice "rollcall/internal/attendees/service"
	attendeestore "rollcall/internal/attendees/store"
	"rollcall/internal/checkin"
	checkinhandler "rollcall/internal/checkin/handler"
	eventmodels "rollcall/internal/events/models"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

type stationFixture struct {
	store     *attendeestore.InMemoryStore
	eventID   id.EventID
	reg       *attendeeservice.Registration
	serverURL string
}

func newStationFixture(t *testing.T) *stationFixture {
	t.Helper()
	ctx := context.Background()
	hub := realtime.NewHub(8, nil)
	events := eventstore.NewInMemory()
	store := attendeestore.NewInMemory(hub, logger.Discard())
	codec, err := token.NewCodec("https://door.example.com")
	require.NoError(t, err)
	attendees := attendeeservice.New(store, events, codec, hub, attendeeservice.WithLogger(logger.Discard()))

	event, err := eventmodels.NewEvent(id.NewEventID(), "Launch", "2026-03-01", time.Now())
	require.NoError(t, err)
	require.NoError(t, events.Create(ctx, event))
	reg, err := attendees.Register(ctx, event.ID, "Kim", "555-0100")
	require.NoError(t, err)

	router := chi.NewRouter()
	router.Use(middleware.Station)
	checkinhandler.New(checkin.NewService(store, checkin.WithLogger(logger.Discard())), config.ScannerConfig{}, logger.Discard()).
		Register(router)
	server := httptest.NewServer(router)
	t.Cleanup(server.Close)

	return &stationFixture{store: store, eventID: event.ID, reg: reg, serverURL: server.URL}
}

func (f *stationFixture) config(auto bool) config.Station {
	return config.Station{
		Server:      f.serverURL,
		EventID:     f.eventID.String(),
		Device:      "-",
		StationID:   "door-a",
		Scanner:     config.ScannerConfig{StartTimeout: time.Second, Cooldown: 20 * time.Millisecond},
		AutoRestart: auto,
	}
}

func waitFor(t *testing.T, out *syncBuffer, cond func(string) bool) {
	t.Helper()
	require.Eventually(t, func() bool { return cond(out.String()) }, 2*time.Second, 5*time.Millisecond, "output so far:\n%s", out.String())
}

func TestStationWaitsForOperatorBeforeRescanning(t *testing.T) {
	f := newStationFixture(t)
	stdin, feed := io.Pipe()
	defer feed.Close()
	confirm, press := io.Pipe()
	defer press.Close()
	out := &syncBuffer{}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(runCtx, f.config(false), stdin, confirm, out, logger.Discard()) }()

	waitFor(t, out, func(s string) bool { return strings.Contains(s, "[scanning]") })
	_, err := io.WriteString(feed, f.reg.CheckInURL+"\n")
	require.NoError(t, err)
	waitFor(t, out, func(s string) bool { return strings.Contains(s, "[success]") })
	waitFor(t, out, func(s string) bool {
		return strings.Contains(s, "[idle]") && strings.Contains(s, "Press Enter to scan again.")
	})

	// Idle after the cool-down, and it stays there.
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 1, strings.Count(out.String(), "[scanning]"), "no restart without the operator")

	_, err = io.WriteString(press, "\n")
	require.NoError(t, err)
	waitFor(t, out, func(s string) bool { return strings.Count(s, "[scanning]") == 2 })

	_, err = io.WriteString(feed, f.reg.CheckInURL+"\n")
	require.NoError(t, err)
	waitFor(t, out, func(s string) bool { return strings.Contains(s, "already checked in") })

	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, 2, strings.Count(out.String(), "[scanning]"), "errors wait for the operator too")

	cancel()
	require.NoError(t, <-done)

	got, err := f.store.FindByID(context.Background(), f.eventID, f.reg.Attendee.ID)
	require.NoError(t, err)
	assert.True(t, got.CheckedIn)
}

func TestStationAutoRestart(t *testing.T) {
	f := newStationFixture(t)
	stdin, feed := io.Pipe()
	defer feed.Close()
	out := &syncBuffer{}
	runCtx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(runCtx, f.config(true), stdin, nil, out, logger.Discard()) }()

	waitFor(t, out, func(s string) bool { return strings.Contains(s, "[scanning]") })
	_, err := io.WriteString(feed, f.reg.CheckInURL+"\n")
	require.NoError(t, err)
	waitFor(t, out, func(s string) bool { return strings.Count(s, "[scanning]") >= 2 })
	assert.NotContains(t, out.String(), "Press Enter")

	cancel()
	require.NoError(t, <-done)
}

func TestRunRejectsBadEventID(t *testing.T) {
	err := run(context.Background(), config.Station{Server: "http://localhost:8080", EventID: "nope", Device: "-"},
		strings.NewReader(""), nil, io.Discard, logger.Discard())
	assert.Error(t, err)
}
