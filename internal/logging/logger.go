// Package logging is the structured logger used by the services, the
// clusterer and the scheduler. Two backends exist: log/slog and zap, picked
// by configuration through New.
package logging

import "context"

// Logger takes a message plus alternating key/value pairs:
//
//	log.Info(ctx, "planting validated", "planting_id", id, "leveled_up", up)
//
// Entity ids are always logged under "<entity>_id" keys.
type Logger interface {
	Debug(ctx context.Context, msg string, args ...any)
	Info(ctx context.Context, msg string, args ...any)
	// Warn is for best-effort steps that failed without failing the caller.
	Warn(ctx context.Context, msg string, args ...any)
	Error(ctx context.Context, msg string, args ...any)

	With(args ...any) Logger
}
