package logging

import (
	"log/slog"
	"os"
	"strings"
)

// Init configures the global slog logger.
// In production (ENVIRONMENT=production) it uses JSON output for log aggregation.
// Otherwise it uses the human-readable text handler.
func Init() {
	env := strings.ToLower(os.Getenv("ENVIRONMENT"))

	var handler slog.Handler
	if env == "production" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: slog.LevelDebug,
		})
	}

	slog.SetDefault(slog.New(handler))
}

// WithRequest returns a logger carrying the caller and route of an HTTP request.
func WithRequest(method, path, userID string) *slog.Logger {
	return slog.With(
		"method", method,
		"path", path,
		"user_id", userID,
	)
}

// WithCollection returns a logger scoped to a store collection.
func WithCollection(backend, collection string) *slog.Logger {
	return slog.With(
		"backend", backend,
		"collection", collection,
	)
}
