package httpapi

import (
	"net/http"

	"github.com/cfxstock/botfleet/internal/metrics"
)

// recordHeartbeatMetrics wraps the heartbeat route and records a completed
// heartbeat in collector once the handler has written a 200 response. It
// sits inside the per-request timeout, so a shed or timed-out request is
// never counted (SPEC_FULL.md §6 [metrics]).
func recordHeartbeatMetrics(collector *metrics.Collector) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := &statusCapture{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)
			if sw.status == http.StatusOK {
				collector.RecordHeartbeat()
			}
		})
	}
}

// statusCapture wraps http.ResponseWriter to observe the status code
// actually written, without altering the response.
type statusCapture struct {
	http.ResponseWriter
	status  int
	written bool
}

func (s *statusCapture) WriteHeader(code int) {
	if !s.written {
		s.status = code
		s.written = true
	}
	s.ResponseWriter.WriteHeader(code)
}
