package httpapi

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/cfxstock/botfleet/internal/wlsc"
)

// Facade is the subset of *wlsc.WLSC the HTTP layer calls through,
// expressed as an interface so handler tests don't need a real worker
// fleet (spec.md §4.2: the HTTP layer is the only caller of the facade).
type Facade interface {
	Spawn(ctx context.Context, l wlsc.License) error
	Heartbeat(l wlsc.License) error
}

// Handler serves the heartbeat and liveness endpoints.
type Handler struct {
	facade Facade
}

// NewHandler constructs a Handler over facade.
func NewHandler(facade Facade) *Handler {
	return &Handler{facade: facade}
}

// Heartbeat implements GET /heartbeat/{cfx_license} (spec.md §6): ensure a
// worker exists for the license (spawning one if this is the first
// heartbeat), then record the touch. Spawn already coalesces a losing race
// against a concurrent spawn into success, so by the time Heartbeat is
// called a worker is guaranteed to exist unless the license itself is
// unknown or invalid.
func (h *Handler) Heartbeat(w http.ResponseWriter, r *http.Request) {
	license := wlsc.License(chi.URLParam(r, "cfx_license"))

	if err := h.facade.Spawn(r.Context(), license); err != nil {
		writeError(w, err)
		return
	}
	if err := h.facade.Heartbeat(license); err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// Healthz is a liveness probe; it never touches wlsc or storage.
func (h *Handler) Healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}
