// Package logging is the structured logger shared by the server, the web
// layer and the CLI. Callers depend on the Logger interface; SlogLogger is
// the slog-backed implementation used in production and tests.
package logging

import "context"

// Logger is a context-aware, structured logger.
//
// The variadic args are key-value pairs, e.g.:
//
//	log.Info(ctx, "sign-in finished", "status", status, "username", username)
//
// Pairs attached to ctx with ContextWith (request id, user id) are added
// to every record.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With returns a child logger that always includes the given pairs.
	With(args ...any) Logger
}
