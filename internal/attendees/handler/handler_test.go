package handler

//go:generate mockgen -source=handler.go -destination=mocks/attendees-mocks.go -package=mocks Service

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
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"rollcall/internal/attendees/handler/mocks"
	"rollcall/internal/attendees/models"
	"rollcall/internal/attendees/service"
	"rollcall/internal/attendees/store"
	eventmodels "rollcall/internal/events/models"
	eventstore "rollcall/internal/events/store"
	"rollcall/internal/platform/logger"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/testutil"
)

type AttendeeHandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
	eventID id.EventID
}

func TestAttendeeHandlerSuite(t *testing.T) {
	suite.Run(t, new(AttendeeHandlerSuite))
}

func (s *AttendeeHandlerSuite) SetupTest() {
	ctrl := gomock.NewController(s.T())
	s.service = mocks.NewMockService(ctrl)
	s.router = chi.NewRouter()
	New(s.service, logger.Discard(), nil).Register(s.router)
	s.eventID = id.NewEventID()
}

func (s *AttendeeHandlerSuite) do(req *http.Request) *httptest.ResponseRecorder {
	return testutil.DoRequest(s.router, req)
}

func (s *AttendeeHandlerSuite) registration(name string) *service.Registration {
	tok := token.Generate()
	return &service.Registration{
		Attendee: &models.Attendee{
			ID:      id.NewAttendeeID(),
			EventID: s.eventID,
			Name:    name,
			QRToken: tok,
		},
		CheckInURL: "https://door.example.com/checkin/" + s.eventID.String() + "?token=" + string(tok),
	}
}

func (s *AttendeeHandlerSuite) TestRegister() {
	reg := s.registration("Kim")
	s.service.EXPECT().Register(gomock.Any(), s.eventID, "Kim", "555-0100").Return(reg, nil)

	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/"+s.eventID.String()+"/attendees",
		map[string]string{"name": "Kim ", "phone": " 555-0100"}))

	testutil.AssertStatus(s.T(), rec, http.StatusCreated)
	var body struct {
		Attendee   models.Attendee `json:"attendee"`
		CheckInURL string          `json:"checkin_url"`
	}
	s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
	s.Equal(reg.Attendee.ID, body.Attendee.ID)
	s.Equal(reg.CheckInURL, body.CheckInURL)
}

func (s *AttendeeHandlerSuite) TestRegisterValidation() {
	path := "/events/" + s.eventID.String() + "/attendees"

	rec := s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{"name": "Kim"}))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")

	rec = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, "/events/nope/attendees",
		map[string]string{"name": "Kim", "phone": "555"}))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")

	s.service.EXPECT().Register(gomock.Any(), s.eventID, "Kim", "555").
		Return(nil, dErrors.New(dErrors.CodeNotFound, "event not found"))
	rec = s.do(testutil.NewJSONRequest(s.T(), http.MethodPost, path, map[string]string{"name": "Kim", "phone": "555"}))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *AttendeeHandlerSuite) TestGetByTokenAndQRCode() {
	reg := s.registration("Kim")
	tok := reg.Attendee.QRToken
	s.service.EXPECT().GetByToken(gomock.Any(), s.eventID, tok).Return(reg, nil).Times(2)

	base := "/events/" + s.eventID.String() + "/attendees/by-token/" + string(tok)
	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, base))
	testutil.AssertStatusOK(s.T(), rec)

	rec = s.do(testutil.NewRequest(s.T(), http.MethodGet, base+"/qr.png?size=128"))
	testutil.AssertStatusOK(s.T(), rec)
	s.Equal("image/png", rec.Header().Get("Content-Type"))
	s.Equal([]byte("\x89PNG"), rec.Body.Bytes()[:4])

	rec = s.do(testutil.NewRequest(s.T(), http.MethodGet, base+"/qr.png?size=9000"))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusBadRequest, "invalid_input")
}

func (s *AttendeeHandlerSuite) TestPrint() {
	reg := s.registration("Kim")
	printed := *reg.Attendee
	printed.Printed = true
	s.service.EXPECT().MarkPrinted(gomock.Any(), s.eventID, reg.Attendee.ID).Return(&printed, nil)

	rec := s.do(testutil.NewRequest(s.T(), http.MethodPost,
		"/events/"+s.eventID.String()+"/attendees/"+reg.Attendee.ID.String()+"/print"))
	testutil.AssertStatusOK(s.T(), rec)
	got := testutil.UnmarshalResponse[models.Attendee](s.T(), rec)
	s.True(got.Printed)

	missing := id.NewAttendeeID()
	s.service.EXPECT().MarkPrinted(gomock.Any(), s.eventID, missing).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "attendee not found"))
	rec = s.do(testutil.NewRequest(s.T(), http.MethodPost,
		"/events/"+s.eventID.String()+"/attendees/"+missing.String()+"/print"))
	testutil.AssertStatusAndError(s.T(), rec, http.StatusNotFound, "not_found")
}

func (s *AttendeeHandlerSuite) TestList() {
	reg := s.registration("Kim")
	s.service.EXPECT().List(gomock.Any(), s.eventID).Return([]*models.Attendee{reg.Attendee}, nil)

	rec := s.do(testutil.NewRequest(s.T(), http.MethodGet, "/events/"+s.eventID.String()+"/attendees"))
	testutil.AssertStatusOK(s.T(), rec)
	body := testutil.UnmarshalResponse[map[string][]models.Attendee](s.T(), rec)
	s.Len((*body)["attendees"], 1)
}

func TestAttendeeStreamRelistsOnChange(t *testing.T) {
	ctx := context.Background()
	hub := realtime.NewHub(8, nil)
	events := eventstore.NewInMemory()
	codec, err := token.NewCodec("http://localhost:8080")
	require.NoError(t, err)
	svc := service.New(store.NewInMemory(hub, logger.Discard()), events, codec, hub, service.WithLogger(logger.Discard()))

	event, err := eventmodels.NewEvent(id.NewEventID(), "Launch", "2026-03-01", time.Now())
	require.NoError(t, err)
	require.NoError(t, events.Create(ctx, event))

	router := chi.NewRouter()
	New(svc, logger.Discard(), nil).Register(router)
	server := httptest.NewServer(router)
	defer server.Close()

	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	req, err := http.NewRequestWithContext(streamCtx, http.MethodGet, server.URL+"/events/"+event.ID.String()+"/attendees/stream", nil)
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

	reader := testutil.NewSSEReader(resp.Body)
	type snapshot struct {
		Attendees []models.Attendee `json:"attendees"`
	}
	var first snapshot
	require.NoError(t, json.Unmarshal([]byte(reader.Next(t, 2*time.Second)), &first))
	assert.Empty(t, first.Attendees)

	_, err = svc.Register(ctx, event.ID, "Kim", "555")
	require.NoError(t, err)

	var second snapshot
	require.NoError(t, json.Unmarshal([]byte(reader.Next(t, 2*time.Second)), &second))
	require.Len(t, second.Attendees, 1)
	assert.Equal(t, "Kim", second.Attendees[0].Name)
}

func TestAttendeeStreamUnknownEvent(t *testing.T) {
	hub := realtime.NewHub(1, nil)
	codec, err := token.NewCodec("http://localhost:8080")
	require.NoError(t, err)
	svc := service.New(store.NewInMemory(hub, logger.Discard()), eventstore.NewInMemory(), codec, hub, service.WithLogger(logger.Discard()))

	router := chi.NewRouter()
	New(svc, logger.Discard(), nil).Register(router)

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/events/"+id.NewEventID().String()+"/attendees/stream"))
	testutil.AssertStatusAndError(t, rec, http.StatusNotFound, "not_found")
	assert.Zero(t, hub.Len(), "no subscription is left behind")
}
