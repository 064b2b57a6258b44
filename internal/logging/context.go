package logging

import (
	"context"
	"log/slog"
	"net/http"
)

// contextKey is a private type to avoid key collisions in the context.
type contextKey string

// RequestIDKey stores the per-request correlation id.
const RequestIDKey = contextKey("request_id")

// SetRequestID returns a new request with the id added to its context.
// The request id middleware calls this.
func SetRequestID(r *http.Request, id string) *http.Request {
	ctx := context.WithValue(r.Context(), RequestIDKey, id)
	return r.WithContext(ctx)
}

// GetRequestID retrieves the request id from the context, or "" if none was set.
func GetRequestID(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// FromContext returns logger with the request id attached when one is present.
func FromContext(ctx context.Context, logger *slog.Logger) *slog.Logger {
	if id := GetRequestID(ctx); id != "" {
		return logger.With("request_id", id)
	}
	return logger
}
