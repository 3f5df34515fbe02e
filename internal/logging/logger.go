// Package logging defines the structured logger used across the service.
package logging

import "context"

// Logger writes leveled records. Every call takes the request context, and
// anything after msg is read as alternating attribute names and values:
//
//	logger.Warn(ctx, "login rejected", "email", email)
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	// With binds attributes that every record of the returned logger carries.
	With(args ...any) Logger
}
