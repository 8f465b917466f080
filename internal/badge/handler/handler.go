package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/badge/service"
	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/sse"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// Service defines the interface for badge print triggers.
type Service interface {
	Watch(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*service.Watch, error)
}

// Handler streams print triggers to badge printers.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Routes mounts badge endpoints under /events/{eventID}/attendees.
func (h *Handler) Routes(r chi.Router) {
	r.Get("/{attendeeID}/badge/stream", h.HandleStream)
}

// HandleStream handles GET /events/{eventID}/attendees/{attendeeID}/badge/stream.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	attendeeID, err := id.ParseAttendeeID(chi.URLParam(r, "attendeeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	watch, err := h.service.Watch(ctx, eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer watch.Close()

	stream, err := sse.Open(w)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot stream badge triggers", "request_id", requestID, "error", err)
		return
	}
	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	heartbeat := time.NewTicker(sse.Heartbeat)
	defer heartbeat.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case attendee, ok := <-watch.Triggers():
			if !ok {
				return
			}
			if err := stream.Send("print", attendee); err != nil {
				h.logger.WarnContext(ctx, "badge stream ended", "request_id", requestID, "attendee_id", attendeeID, "error", err)
				return
			}
		case <-heartbeat.C:
			if err := stream.Ping(); err != nil {
				return
			}
		}
	}
}
