package healthcheck

import (
	"fmt"
	"net/http"
)

// HealthFunc reports whether the service is healthy. A nil HealthFunc means
// always healthy.
type HealthFunc func() bool

// HealthCheck is the health check handler.
type HealthCheck struct {
	healthy HealthFunc
}

// New creates a health check handler backed by the given probe.
func New(fn HealthFunc) HealthCheck {
	return HealthCheck{healthy: fn}
}

// Handler is used to control the flow of GET /health endpoint
func (hc HealthCheck) Handler(h http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		if IsHealthCheckRequest(r) {
			hc.ServeHTTP(w, r)

			return
		}

		h.ServeHTTP(w, r)
	}

	return http.HandlerFunc(fn)
}

// ServeHTTP serve http request for health check
func (hc HealthCheck) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if hc.healthy != nil && !hc.healthy() {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprintln(w, "stale")
		return
	}

	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

// IsHealthCheckRequest is used to check if the request is a health check request
func IsHealthCheckRequest(r *http.Request) bool {
	return r.Method == "GET" && r.URL.Path == "/health"
}
