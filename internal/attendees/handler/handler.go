package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/attendees/models"
	"rollcall/internal/attendees/service"
	"rollcall/internal/platform/metrics"
	"rollcall/internal/platform/sse"
	"rollcall/internal/qr"
	"rollcall/internal/realtime"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	dErrors "rollcall/pkg/domain-errors"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/requestcontext"
)

// Service defines the interface for attendee operations.
type Service interface {
	Register(ctx context.Context, eventID id.EventID, name, phone string) (*service.Registration, error)
	GetByToken(ctx context.Context, eventID id.EventID, tok token.Token) (*service.Registration, error)
	Get(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error)
	List(ctx context.Context, eventID id.EventID) ([]*models.Attendee, error)
	Subscribe(ctx context.Context, eventID id.EventID) (*realtime.Subscription, error)
	MarkPrinted(ctx context.Context, eventID id.EventID, attendeeID id.AttendeeID) (*models.Attendee, error)
}

// Handler wires attendee endpoints to the attendee service.
type Handler struct {
	service Service
	logger  *slog.Logger
	metrics *metrics.Metrics
}

func New(service Service, logger *slog.Logger, metrics *metrics.Metrics) *Handler {
	return &Handler{service: service, logger: logger, metrics: metrics}
}

// Register mounts attendee endpoints on the router. Extra routes, such as
// the badge stream, are mounted under the same prefix.
func (h *Handler) Register(r chi.Router, extra ...func(chi.Router)) {
	r.Route("/events/{eventID}/attendees", func(r chi.Router) {
		for _, mount := range extra {
			mount(r)
		}
		r.Post("/", h.HandleRegister)
		r.Get("/", h.HandleList)
		r.Get("/stream", h.HandleStream)
		r.Get("/by-token/{token}", h.HandleGetByToken)
		r.Get("/by-token/{token}/qr.png", h.HandleQRCode)
		r.Get("/{attendeeID}", h.HandleGet)
		r.Post("/{attendeeID}/print", h.HandlePrint)
	})
}

// HandleRegister handles POST /events/{eventID}/attendees.
func (h *Handler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[RegisterRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	reg, err := h.service.Register(ctx, eventID, req.Name, req.Phone)
	if err != nil {
		h.logger.WarnContext(ctx, "registration failed",
			"request_id", requestID,
			"event_id", eventID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, reg)
}

// HandleList handles GET /events/{eventID}/attendees.
func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	attendees, err := h.service.List(r.Context(), eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]any{"attendees": attendees})
}

// HandleStream handles GET /events/{eventID}/attendees/stream. It sends the
// full list on open and again after every change to the event's attendees.
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	// Fail fast on unknown events before switching to a stream.
	if _, err := h.service.List(ctx, eventID); err != nil {
		httputil.WriteError(w, err)
		return
	}

	sub, err := h.service.Subscribe(ctx, eventID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	defer sub.Close()

	stream, err := sse.Open(w)
	if err != nil {
		h.logger.ErrorContext(ctx, "cannot stream attendees", "request_id", requestID, "error", err)
		return
	}
	h.metrics.StreamOpened()
	defer h.metrics.StreamClosed()

	err = sse.Follow(ctx, stream, "attendees", sub.C, func(ctx context.Context) (any, error) {
		attendees, err := h.service.List(ctx, eventID)
		if err != nil {
			return nil, err
		}
		return map[string]any{"attendees": attendees}, nil
	})
	if err != nil {
		h.logger.WarnContext(ctx, "attendee stream ended", "request_id", requestID, "event_id", eventID, "error", err)
	}
}

// HandleGetByToken handles GET /events/{eventID}/attendees/by-token/{token}.
func (h *Handler) HandleGetByToken(w http.ResponseWriter, r *http.Request) {
	reg, ok := h.lookupByToken(w, r)
	if !ok {
		return
	}
	httputil.WriteJSON(w, http.StatusOK, reg)
}

// HandleQRCode handles GET /events/{eventID}/attendees/by-token/{token}/qr.png.
func (h *Handler) HandleQRCode(w http.ResponseWriter, r *http.Request) {
	size := qr.DefaultSize
	if v := r.URL.Query().Get("size"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < qr.MinSize || n > qr.MaxSize {
			httputil.WriteError(w, dErrors.New(dErrors.CodeInvalidInput, "size must be between 64 and 1024"))
			return
		}
		size = n
	}

	reg, ok := h.lookupByToken(w, r)
	if !ok {
		return
	}
	png, err := qr.PNG(reg.CheckInURL, size)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "qr rendering failed",
			"request_id", requestcontext.RequestID(r.Context()),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to render qr code"))
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "private, max-age=3600")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(png)
}

// HandleGet handles GET /events/{eventID}/attendees/{attendeeID}.
func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, ok := parseAttendeePath(w, r)
	if !ok {
		return
	}
	attendee, err := h.service.Get(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attendee)
}

// HandlePrint handles POST /events/{eventID}/attendees/{attendeeID}/print.
func (h *Handler) HandlePrint(w http.ResponseWriter, r *http.Request) {
	eventID, attendeeID, ok := parseAttendeePath(w, r)
	if !ok {
		return
	}
	attendee, err := h.service.MarkPrinted(r.Context(), eventID, attendeeID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, attendee)
}

func (h *Handler) lookupByToken(w http.ResponseWriter, r *http.Request) (*service.Registration, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	reg, err := h.service.GetByToken(r.Context(), eventID, token.Token(chi.URLParam(r, "token")))
	if err != nil {
		httputil.WriteError(w, err)
		return nil, false
	}
	return reg, true
}

func parseAttendeePath(w http.ResponseWriter, r *http.Request) (id.EventID, id.AttendeeID, bool) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, id.AttendeeID{}, false
	}
	attendeeID, err := id.ParseAttendeeID(chi.URLParam(r, "attendeeID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.EventID{}, id.AttendeeID{}, false
	}
	return eventID, attendeeID, true
}
