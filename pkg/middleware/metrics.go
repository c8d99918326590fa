package middleware

import (
	"net/http"
	"time"
)

// RequestObserver records the outcome of a served request.
type RequestObserver interface {
	ObserveRequest(method string, status int, elapsed time.Duration)
}

// Metrics returns middleware that reports every request to obs.
func Metrics(obs RequestObserver) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := capture(w)
			next.ServeHTTP(sw, r)
			obs.ObserveRequest(r.Method, sw.status, time.Since(start))
		})
	}
}
