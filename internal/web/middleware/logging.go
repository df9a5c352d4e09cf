// Package middleware provides the HTTP middleware for the ingestion API:
// request logging keyed by chi request ID and client address resolution
// behind trusted proxies.
package middleware

import (
	"net/http"
	"time"

	"github.com/ReturnPro5/wm-reverse-control-sub001/internal/logging"
)

// RequestLogger emits one structured log line per request: method, path,
// status, response bytes, duration, and the client address as resolved by
// ClientIP. Long durations are normal for multipart ingest uploads and SSE
// progress streams, so there is no slow-request cutoff here.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &statusWriter{ResponseWriter: w, status: http.StatusOK}

		next.ServeHTTP(ww, r)

		logging.FromContext(r.Context()).Info("http request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", ww.status,
			"bytes", ww.bytes,
			"duration_ms", time.Since(start).Milliseconds(),
			"client", r.RemoteAddr,
		)
	})
}

// statusWriter captures the status code and byte count of a response.
type statusWriter struct {
	http.ResponseWriter
	status      int
	bytes       int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(status int) {
	if w.wroteHeader {
		return
	}
	w.status = status
	w.wroteHeader = true
	w.ResponseWriter.WriteHeader(status)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	if !w.wroteHeader {
		w.WriteHeader(http.StatusOK)
	}
	n, err := w.ResponseWriter.Write(b)
	w.bytes += n
	return n, err
}

// Unwrap exposes the wrapped writer so the SSE handler can reach the
// http.Flusher underneath.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
