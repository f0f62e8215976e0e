package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/R3E-Network/calcstore/pkg/logger"
)

// Recovery turns a handler panic into a 500 response.
func Recovery(log *logger.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.NewDefault("http")
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				log.WithFields(map[string]interface{}{
					"trace_id": TraceID(r.Context()),
					"panic":    rec,
					"stack":    string(debug.Stack()),
				}).Error("handler panicked")
				if !rw.written {
					writeJSONError(rw, http.StatusInternalServerError, "internal server error", "unknown")
				}
			}()
			next.ServeHTTP(rw, r)
		})
	}
}
