package httptransport

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	attendeehandler "rollcall/internal/attendees/handler"
	attendeeservice "rollcall/internal/attendees/service"
	attendeestore "rollcall/internal/attendees/store"
	badgehandler "rollcall/internal/badge/handler"
	badgeservice "rollcall/internal/badge/service"
	"rollcall/internal/checkin"
	checkinhandler "rollcall/internal/checkin/handler"
	eventhandler "rollcall/internal/events/handler"
	eventservice "rollcall/internal/events/service"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/platform/config"
	"rollcall/internal/platform/logger"
	presencehandler "rollcall/internal/presence/handler"
	presenceservice "rollcall/internal/presence/service"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	"rollcall/pkg/testutil"
)

func newInMemoryRouter(t *testing.T) http.Handler {
	t.Helper()
	log := logger.Discard()
	hub := realtime.NewHub(8, nil)
	events := eventstore.NewInMemory()
	attendees := attendeestore.NewInMemory(hub, log)
	codec, err := token.NewCodec("https://door.example.com")
	require.NoError(t, err)

	return NewRouter(Deps{
		Logger:    log,
		Health:    NewHealth(),
		Events:    eventhandler.New(eventservice.New(events, eventservice.WithLogger(log)), log),
		Attendees: attendeehandler.New(attendeeservice.New(attendees, events, codec, hub, attendeeservice.WithLogger(log)), log, nil),
		Badges:    badgehandler.New(badgeservice.New(attendees, hub, badgeservice.WithLogger(log)), log, nil).Routes,
		CheckIn:   checkinhandler.New(checkin.NewService(attendees, checkin.WithLogger(log)), config.ScannerConfig{}, log),
		Presence:  presencehandler.New(presenceservice.New(attendees, events, hub, presenceservice.WithLogger(log)), log, nil),
	})
}

func TestCheckInFlow(t *testing.T) {
	router := newInMemoryRouter(t)
	var eventID, checkInURL string

	post := func(t *testing.T, path string, body any) *httptest.ResponseRecorder {
		return testutil.DoRequest(router, testutil.NewJSONRequest(t, http.MethodPost, path, body))
	}
	presence := func(t *testing.T) map[string]int {
		rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/events/"+eventID+"/presence"))
		testutil.AssertStatusOK(t, rec)
		var counts map[string]int
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &counts))
		return counts
	}

	testutil.Given(t, "an event with no attendees", func(t *testing.T) {
		rec := post(t, "/events", map[string]string{"title": "Spring meetup", "date": "2026-03-01"})
		testutil.AssertStatus(t, rec, http.StatusCreated)
		body := *testutil.UnmarshalResponse[map[string]any](t, rec)
		eventID, _ = body["id"].(string)
		require.NotEmpty(t, eventID)

		require.Equal(t, map[string]int{"total": 0, "checked_in": 0}, presence(t))
	})

	testutil.When(t, "Kim registers", func(t *testing.T) {
		rec := post(t, "/events/"+eventID+"/attendees", map[string]string{"name": "Kim", "phone": "555-0100"})
		testutil.AssertStatus(t, rec, http.StatusCreated)
		var body struct {
			CheckInURL string `json:"checkin_url"`
		}
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		checkInURL = body.CheckInURL

		testutil.Then(t, "the dashboard counts one registration", func(t *testing.T) {
			require.Equal(t, map[string]int{"total": 1, "checked_in": 0}, presence(t))
		})
	})

	testutil.When(t, "a station scans Kim's badge", func(t *testing.T) {
		rec := post(t, "/checkin/"+eventID, map[string]string{"payload": checkInURL})
		testutil.AssertStatusOK(t, rec)

		testutil.Then(t, "Kim is checked in", func(t *testing.T) {
			require.Equal(t, map[string]int{"total": 1, "checked_in": 1}, presence(t))
		})

		testutil.And(t, "a second scan reports Kim as already checked in", func(t *testing.T) {
			rec := post(t, "/checkin/"+eventID, map[string]string{"payload": checkInURL})
			testutil.AssertStatus(t, rec, http.StatusConflict)
			require.Contains(t, rec.Body.String(), "Kim is already checked in.")
		})
	})
}
