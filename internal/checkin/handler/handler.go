package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"rollcall/internal/checkin"
	"rollcall/internal/platform/config"
	"rollcall/internal/token"
	id "rollcall/pkg/domain"
	"rollcall/pkg/platform/httputil"
	"rollcall/pkg/platform/middleware/device"
	"rollcall/pkg/requestcontext"
)

// Service defines the interface for check-in attempts.
type Service interface {
	AttemptCheckIn(ctx context.Context, eventID id.EventID, tok token.Token) checkin.Outcome
}

// Scanner hints for browser-based stations.
const (
	scannerFPS         = 10
	scannerBoxDesktop  = 250
	scannerBoxMobile   = 300
	scannerAspectRatio = 1.0
	scannerFacingMode  = "environment"
)

// ScannerConfig tells a browser station how to drive its camera.
type ScannerConfig struct {
	FPS            int     `json:"fps"`
	QRBox          int     `json:"qrbox"`
	AspectRatio    float64 `json:"aspect_ratio"`
	FacingMode     string  `json:"facing_mode"`
	StartTimeoutMS int64   `json:"start_timeout_ms"`
	CooldownMS     int64   `json:"cooldown_ms"`
}

// Handler wires check-in endpoints to the check-in service.
type Handler struct {
	service Service
	scanner config.ScannerConfig
	logger  *slog.Logger
}

func New(service Service, scanner config.ScannerConfig, logger *slog.Logger) *Handler {
	return &Handler{service: service, scanner: scanner, logger: logger}
}

// Register mounts check-in endpoints on the router.
func (h *Handler) Register(r chi.Router) {
	r.Route("/checkin/{eventID}", func(r chi.Router) {
		r.Post("/", h.HandleCheckIn)
		r.Get("/", h.HandleCheckInURL)
		r.Get("/scanner-config", h.HandleScannerConfig)
	})
}

// HandleCheckIn handles POST /checkin/{eventID} from scanning stations.
func (h *Handler) HandleCheckIn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[CheckInRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	h.attempt(w, r, req.ScannedToken())
}

// HandleCheckInURL handles GET /checkin/{eventID}?token=, the URL encoded in
// the badge QR code when opened by a phone camera.
func (h *Handler) HandleCheckInURL(w http.ResponseWriter, r *http.Request) {
	h.attempt(w, r, token.Token(r.URL.Query().Get(token.QueryParam)))
}

func (h *Handler) attempt(w http.ResponseWriter, r *http.Request, tok token.Token) {
	eventID, err := id.ParseEventID(chi.URLParam(r, "eventID"))
	if err != nil {
		// No attendee can hold a token for an event id that cannot exist.
		outcome := checkin.NotFound()
		httputil.WriteJSON(w, outcome.HTTPStatus(), outcome)
		return
	}
	outcome := h.service.AttemptCheckIn(r.Context(), eventID, tok)
	httputil.WriteJSON(w, outcome.HTTPStatus(), outcome)
}

// HandleScannerConfig handles GET /checkin/{eventID}/scanner-config.
func (h *Handler) HandleScannerConfig(w http.ResponseWriter, r *http.Request) {
	box := scannerBoxDesktop
	if device.FromContext(r.Context()).Mobile {
		box = scannerBoxMobile
	}
	httputil.WriteJSON(w, http.StatusOK, ScannerConfig{
		FPS:            scannerFPS,
		QRBox:          box,
		AspectRatio:    scannerAspectRatio,
		FacingMode:     scannerFacingMode,
		StartTimeoutMS: h.scanner.StartTimeout.Milliseconds(),
		CooldownMS:     h.scanner.Cooldown.Milliseconds(),
	})
}
