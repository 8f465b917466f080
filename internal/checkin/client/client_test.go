package client

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/checkin"
	"rollcall/internal/checkin/handler"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/middleware"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/circuit"
	"rollcall/pkg/requestcontext"
)

type recordingService struct {
	station string
	tok     token.Token
	outcome checkin.Outcome
}

func (s *recordingService) AttemptCheckIn(ctx context.Context, _ id.EventID, tok token.Token) checkin.Outcome {
	s.station = requestcontext.StationID(ctx)
	s.tok = tok
	return s.outcome
}

func newServer(t *testing.T, svc *recordingService) *httptest.Server {
	t.Helper()
	r := chi.NewRouter()
	r.Use(middleware.Station)
	handler.New(svc, config.ScannerConfig{}, logger.Discard()).Register(r)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv
}

func TestAttemptCheckIn(t *testing.T) {
	svc := &recordingService{outcome: checkin.Outcome{Kind: checkin.KindSuccess, Name: "Kim", Message: "Welcome, Kim! Check-in complete."}}
	srv := newServer(t, svc)

	c, err := New(srv.URL, WithStationID("door-a"))
	require.NoError(t, err)

	outcome := c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")

	assert.Equal(t, checkin.KindSuccess, outcome.Kind)
	assert.Equal(t, "Kim", outcome.Name)
	assert.Equal(t, "door-a", svc.station)
	assert.Equal(t, token.Token("abc"), svc.tok)
}

func TestAttemptCheckInRejections(t *testing.T) {
	svc := &recordingService{outcome: checkin.Outcome{Kind: checkin.KindUpdateFailed, Message: "disk full"}}
	srv := newServer(t, svc)
	c, err := New(srv.URL)
	require.NoError(t, err)

	outcome := c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")

	assert.Equal(t, checkin.KindUpdateFailed, outcome.Kind)
	assert.EqualError(t, outcome.Err, "disk full")
}

func TestAttemptCheckInTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()
	c, err := New(srv.URL)
	require.NoError(t, err)

	outcome := c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")

	assert.Equal(t, checkin.KindUpdateFailed, outcome.Kind)
	assert.Contains(t, outcome.Message, "502")
}

func TestNewRequiresAbsoluteURL(t *testing.T) {
	_, err := New("/relative")
	assert.Error(t, err)
}

func TestAttemptCheckInOpensBreakerWhenServerUnreachable(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	b := circuit.New("checkin-server", circuit.WithFailureThreshold(2), circuit.WithCooldown(time.Hour))
	c, err := New(srv.URL, WithBreaker(b))
	require.NoError(t, err)

	for range 2 {
		c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")
	}
	require.True(t, b.IsOpen())

	outcome := c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")

	assert.Equal(t, checkin.KindUpdateFailed, outcome.Kind)
	assert.ErrorIs(t, outcome.Err, ErrServerUnavailable)
	assert.Equal(t, int32(2), hits.Load(), "open breaker skips the request")
}

func TestAttemptCheckInRejectionKeepsBreakerClosed(t *testing.T) {
	svc := &recordingService{outcome: checkin.Outcome{Kind: checkin.KindNotFound, Message: "Attendee not found."}}
	srv := newServer(t, svc)
	b := circuit.New("checkin-server", circuit.WithFailureThreshold(1))
	c, err := New(srv.URL, WithBreaker(b))
	require.NoError(t, err)

	outcome := c.AttemptCheckIn(context.Background(), id.NewEventID(), "abc")

	assert.Equal(t, checkin.KindNotFound, outcome.Kind)
	assert.False(t, b.IsOpen())
}
