package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/attendees/models"
	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/sse"
	"rollcall/internal/presence/service"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// Service defines the interface for presence queries.
type Service interface {
	Counts(ctx context.Context, eventID id.EventID) (models.Counts, error)
	Open(ctx context.Context, eventID id.EventID) (*service.Dashboard, error)
}

// Handler serves presence counts for event dashboards.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Register mounts presence endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/events/{eventID}/presence", h.HandleCounts)
	r.Get("/events/{eventID}/presence/stream", h.HandleStream)
}

// HandleCounts handles GET /events/{eventID}/presence.
func (h *Handler) HandleCounts(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	counts, err := h.service.Counts(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, counts)
}

// HandleStream handles GET /events/{eventID}/presence/stream. Counts are
// sent on open and after every refresh.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	dash, err := h.service.Open(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer dash.Close()

	stream, err := sse.Open(w)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot stream presence", "request_id", requestID, "error", err)
		return
	}
	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	err = sse.Follow(ctx, stream, "presence", dash.Updates(), func(context.Context) (any, error) {
		return dash.Counts(), nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "presence stream ended", "request_id", requestID, "event_id", eventID, "error", err)
	}
}
