package httpapi

import "net/http"

// loadShed bounds the number of in-flight requests with a buffered channel
// used as a counting semaphore: acquiring a slot is a non-blocking send, so
// a request over capacity is rejected with 503 immediately rather than
// queuing. It sits before the per-request timeout handler so a shed
// request never occupies a timeout slot (SPEC_FULL.md §4 A7).
func loadShed(maxInFlight int) func(http.Handler) http.Handler {
	if maxInFlight <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}
	slots := make(chan struct{}, maxInFlight)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			select {
			case slots <- struct{}{}:
				defer func() { <-slots }()
				next.ServeHTTP(w, r)
			default:
				writeJSONError(w, http.StatusServiceUnavailable, "server at capacity")
			}
		})
	}
}
