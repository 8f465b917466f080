package httptransport

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"

	"rollcall/internal/platform/logger"
	"rollcall/internal/platform/middleware"
	"rollcall/pkg/testutil"
)

type pingRegistrar struct{ path string }

func (p pingRegistrar) Register(r chi.Router) {
	r.Get(p.path, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
}

type attendeeRegistrar struct{}

func (attendeeRegistrar) Register(r chi.Router, extra ...func(chi.Router)) {
	r.Route("/events/{eventID}/attendees", func(r chi.Router) {
		for _, mount := range extra {
			mount(r)
		}
		r.Get("/", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})
}

func TestRouterMountsHandlers(t *testing.T) {
	router := NewRouter(Deps{
		Logger:    logger.Discard(),
		Health:    NewHealth(),
		Events:    pingRegistrar{path: "/events/ping"},
		Attendees: attendeeRegistrar{},
		Badges: func(r chi.Router) {
			r.Get("/{attendeeID}/badge/stream", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusAccepted)
			})
		},
	})

	rec := testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/events/ping"))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.NotEmpty(t, rec.Header().Get(middleware.RequestIDHeader))

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/events/e1/attendees/a1/badge/stream"))
	assert.Equal(t, http.StatusAccepted, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/events/e1/attendees/"))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = testutil.DoRequest(router, testutil.NewRequest(t, http.MethodGet, "/metrics"))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestHealth(t *testing.T) {
	t.Run("healthy with no checks", func(t *testing.T) {
		rec := testutil.DoRequest(NewHealth(), testutil.NewRequest(t, http.MethodGet, "/healthz"))
		testutil.AssertStatusOK(t, rec)
		assert.JSONEq(t, `{"status":"ok","checks":{}}`, rec.Body.String())
	})

	t.Run("failing check degrades", func(t *testing.T) {
		h := NewHealth()
		h.Add("postgres", func(context.Context) error { return nil })
		h.Add("redis", func(context.Context) error { return errors.New("connection refused") })

		rec := testutil.DoRequest(h, testutil.NewRequest(t, http.MethodGet, "/healthz"))

		testutil.AssertStatus(t, rec, http.StatusServiceUnavailable)
		assert.JSONEq(t, `{"status":"degraded","checks":{"postgres":"ok","redis":"connection refused"}}`, rec.Body.String())
	})
}
