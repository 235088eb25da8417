package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// RequestLogger is a middleware to log HTTP requests.
// Server errors are logged as errors, API and page requests at info level,
// static content at debug level.
func RequestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		ww := &responseWriterWrapper{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(ww, r)

		var event *zerolog.Event
		switch {
		case ww.statusCode >= http.StatusInternalServerError:
			event = log.Error()
		case r.URL.Path == "/" || strings.HasPrefix(r.URL.Path, "/api/"):
			event = log.Info()
		default:
			event = log.Debug()
		}

		if id := r.PathValue("id"); id != "" {
			event = event.Str("session", id)
		}

		event.
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Str("route", r.Pattern).
			Int("status", ww.statusCode).
			Int("bytes", ww.written).
			Str("ip", r.RemoteAddr).
			Dur("duration", time.Since(start)).
			Msg("Request processed")
	})
}

type responseWriterWrapper struct {
	http.ResponseWriter
	statusCode int
	written    int
}

// WriteHeader captures the status code before writing to the underlying response writer.
func (w *responseWriterWrapper) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Write counts the bytes of the response body.
func (w *responseWriterWrapper) Write(b []byte) (int, error) {
	n, err := w.ResponseWriter.Write(b)
	w.written += n
	return n, err
}
