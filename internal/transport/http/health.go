package httptransport

import (
	"context"
	"net/http"
	"sync"
	"time"

	"rollcall/pkg/platform/httputil"
)

const healthTimeout = 2 * time.Second

// Check pings one backing service.
type Check func(ctx context.Context) error

// Health reports the state of the configured backing services.
type Health struct {
	mu     sync.RWMutex
	checks map[string]Check
}

func NewHealth() *Health {
	return &Health{checks: make(map[string]Check)}
}

// Add registers a named check. A nil Health ignores checks.
func (h *Health) Add(name string, check Check) {
	if h == nil {
		return
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	h.checks[name] = check
}

// ServeHTTP handles GET /healthz.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	results := map[string]string{}
	healthy := true

	if h != nil {
		ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
		defer cancel()

		h.mu.RLock()
		for name, check := range h.checks {
			if err := check(ctx); err != nil {
				results[name] = err.Error()
				healthy = false
				continue
			}
			results[name] = "ok"
		}
		h.mu.RUnlock()
	}

	status, code := "ok", http.StatusOK
	if !healthy {
		status, code = "degraded", http.StatusServiceUnavailable
	}
	httputil.WriteJSON(w, code, map[string]any{
		"status": status,
		"checks": results,
	})
}
