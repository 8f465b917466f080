// Package httptransport assembles the public HTTP surface from the domain
// handlers. It holds no business logic.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/middleware"
	"rollcall/pkg/platform/middleware/device"
)

// Registrar is a domain handler that mounts its own routes.
type Registrar interface {
	Register(r chi.Router)
}

// AttendeeRegistrar mounts attendee routes plus extra routes under the same prefix.
type AttendeeRegistrar interface {
	Register(r chi.Router, extra ...func(chi.Router))
}

// Deps are the handlers and ambient services the router wires together.
type Deps struct {
	Logger  *slog.Logger
	Metrics *metrics.Metrics
	Health  *Health

	Events    Registrar
	Attendees AttendeeRegistrar
	Badges    func(chi.Router)
	CheckIn   Registrar
	Presence  Registrar
}

// NewRouter wires all public endpoints behind the shared middleware stack.
func NewRouter(d Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)
	r.Use(middleware.ClientMetadata)
	r.Use(middleware.Station)
	r.Use(device.Detect)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/healthz", d.Health.ServeHTTP)
	r.Handle("/metrics", promhttp.Handler())

	for _, h := range []Registrar{d.Events, d.CheckIn, d.Presence} {
		if h != nil {
			h.Register(r)
		}
	}
	if d.Attendees != nil {
		var extra []func(chi.Router)
		if d.Badges != nil {
			extra = append(extra, d.Badges)
		}
		d.Attendees.Register(r, extra...)
	}
	return r
}
