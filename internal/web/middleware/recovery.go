package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ubiquits/ubiquits/internal/logging"
	"github.com/ubiquits/ubiquits/internal/web/response"
)

// Recovery turns a panic in the handler into a 500 response and logs it
// with its stack trace
func Recovery(logger logging.Logger) Middleware {
	log := logger.Source("recovery")
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				log.Error("panic recovered",
					"error", panicError(rec),
					"method", r.Method,
					"path", r.URL.Path,
					"stack", string(debug.Stack()),
				)
				response.Error(w, http.StatusInternalServerError, "An unexpected error occurred")
			}()

			next.ServeHTTP(w, r)
		})
	}
}

func panicError(v any) error {
	if err, ok := v.(error); ok {
		return err
	}
	return fmt.Errorf("panic: %v", v)
}
