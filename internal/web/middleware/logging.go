package middleware

import (
	"net/http"
	"time"

	"github.com/ubiquits/ubiquits/internal/logging"
)

// LogEntry describes a completed request
type LogEntry struct {
	RequestID    string
	Method       string
	Path         string
	StatusCode   int
	Duration     time.Duration
	BytesWritten int
	RemoteAddr   string
}

// DebugLog logs every request at debug level on logger. Paths in skip are not logged.
func DebugLog(logger logging.Logger, skip ...string) Middleware {
	log := logger.Source("debug-log")
	return Logging(func(e LogEntry) {
		log.Debug("request",
			"request_id", e.RequestID,
			"method", e.Method,
			"path", e.Path,
			"status", e.StatusCode,
			"duration", e.Duration,
			"bytes", e.BytesWritten,
			"remote_addr", e.RemoteAddr,
		)
	}, skip...)
}

// Logging calls sink with a LogEntry once the request has been served
func Logging(sink func(LogEntry), skip ...string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			for _, p := range skip {
				if r.URL.Path == p {
					next.ServeHTTP(w, r)
					return
				}
			}

			start := time.Now()
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			sink(LogEntry{
				RequestID:    GetRequestID(r.Context()),
				Method:       r.Method,
				Path:         r.URL.Path,
				StatusCode:   rw.statusCode,
				Duration:     time.Since(start),
				BytesWritten: rw.bytesWritten,
				RemoteAddr:   r.RemoteAddr,
			})
		})
	}
}

// responseWriter captures the status code and bytes written
type responseWriter struct {
	http.ResponseWriter
	statusCode   int
	bytesWritten int
	wroteHeader  bool
}

func (rw *responseWriter) WriteHeader(statusCode int) {
	if !rw.wroteHeader {
		rw.statusCode = statusCode
		rw.wroteHeader = true
		rw.ResponseWriter.WriteHeader(statusCode)
	}
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.wroteHeader {
		rw.WriteHeader(http.StatusOK)
	}
	n, err := rw.ResponseWriter.Write(b)
	rw.bytesWritten += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
