package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rollcall/internal/attendees/models"
	"rollcall/internal/attendees/store"
	"rollcall/internal/badge/service"
	"rollcall/internal/platform/logger"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/testutil"
)

func newRouter(hub *realtime.Hub, st *store.InMemoryStore) chi.Router {
	h := New(service.New(st, hub, service.WithLogger(logger.Discard())), logger.Discard(), nil)
	r := chi.NewRouter()
	r.Route("/events/{eventID}/attendees", h.Routes)
	return r
}

func TestBadgeStream(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(8, nil)
	st := store.NewInMemory(hub, logger.Discard())
	a, err := models.NewAttendee(id.NewAttendeeID(), id.NewEventID(), "Kim", "555-0100", token.Generate(), time.Now())
	require.NoError(t, err)
	require.NoError(t, st.Create(ctx, a))

	server := httptest.NewServer(newRouter(hub, st))
	defer server.Close()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	url := server.URL + "/events/" + a.EventID.String() + "/attendees/" + a.ID.String() + "/badge/stream"
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, url, nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Wait for the stream's subscription before printing.
	require.Eventually(t, func() bool { return hub.Len() == 1 }, time.Second, 5*time.Millisecond)
	_, err = st.MarkPrinted(ctx, a.EventID, a.ID)
	require.NoError(t, err)

	reader := testutil.NewSSEReader(resp.Body)
	var got models.Attendee
	require.NoError(t, json.Unmarshal([]byte(reader.Next(t, 2*time.Second)), &got))
	assert.Equal(t, a.ID, got.ID)
	assert.True(t, got.Printed)
}

func TestBadgeStreamUnknownAttendee(t *testing.T) {
	hub := realtime.NewHub(1, nil)
	router := newRouter(hub, store.NewInMemory(hub, logger.Discard()))

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet,
		"/events/"+id.NewEventID().String()+"/attendees/"+id.NewAttendeeID().String()+"/badge/stream"))

	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	assert.Zero(t, hub.Len())
}
