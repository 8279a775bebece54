package middleware

import (
	"log/slog"
	"net/http"

	"github.com/frahmantamala/expense-tracker/pkg/logger"
	chiMiddleware "github.com/go-chi/chi/middleware"
	"github.com/google/uuid"
)

const TraceIDHeader = "X-Trace-ID"

// RequestID accepts a caller supplied trace id or mints one, echoes it back,
// and stores a request logger tagged with it and with chi's request id.
func RequestID(base *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			traceID := r.Header.Get(TraceIDHeader)
			if traceID == "" || len(traceID) > 128 {
				traceID = uuid.NewString()
			}

			attrs := []any{"trace_id", traceID}
			if reqID := chiMiddleware.GetReqID(r.Context()); reqID != "" {
				attrs = append(attrs, "request_id", reqID)
			}
			lg := logger.FromOr(r.Context(), base).With(attrs...)

			w.Header().Set(TraceIDHeader, traceID)

			next.ServeHTTP(w, r.WithContext(logger.NewContext(r.Context(), lg)))
		})
	}
}
