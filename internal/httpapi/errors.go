package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/cfxstock/botfleet/internal/wlsc"
)

// errorEnvelope is the JSON shape every non-2xx response carries (spec.md
// §4's A7 ADD), grounded on the teacher's RateLimitError/ApiErrorResponse
// pattern of a typed error carrying its own response fields — simplified
// here to the two fields the heartbeat endpoint actually needs.
type errorEnvelope struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
}

// statusFor maps a wlsc error taxonomy value to an HTTP status (spec.md
// §7: this is the single place that performs that mapping; wlsc internals
// never choose an HTTP status themselves).
func statusFor(err error) int {
	switch {
	case errors.Is(err, wlsc.ErrServerNotFound):
		return http.StatusNotFound
	case errors.Is(err, wlsc.ErrWorkerNotFound):
		return http.StatusNotFound
	case errors.Is(err, wlsc.ErrWorkerAlreadyExists):
		return http.StatusConflict
	case errors.Is(err, wlsc.ErrHeartbeatTooFrequent):
		return http.StatusBadRequest
	case errors.Is(err, wlsc.ErrInvalidServerData):
		return http.StatusInternalServerError
	case errors.Is(err, wlsc.ErrStorageFailure):
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	writeJSONError(w, status, err.Error())
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorEnvelope{Status: status, Message: message})
}
