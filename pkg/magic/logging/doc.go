// Package logging provides the minimal logging facade used by package
// magic.
//
// The Logger interface wraps the subset of log/slog the handles need, so
// applications can plug in their own implementation for tests or for an
// existing logging system.
//
// # Logger Interface
//
//	type Logger interface {
//	    Debug(ctx context.Context, msg string, args ...any)
//	    Info(ctx context.Context, msg string, args ...any)
//	    Warn(ctx context.Context, msg string, args ...any)
//	    Error(ctx context.Context, msg string, args ...any)
//	    With(args ...any) Logger
//	}
//
// # Default Implementation
//
//	// Use default logger (slog.Default())
//	logger := logging.New(nil)
//
//	// Send debug output to stderr as JSON
//	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})
//	m, err := magic.Open(magic.Config{Logger: logging.New(slog.New(handler))})
//
//	// Drop everything
//	m, err := magic.Open(magic.Config{Logger: logging.Discard()})
//
// # What Gets Logged
//
// Handles log their lifecycle (open, load, close, flag and parameter
// changes) at debug level and tolerated native warnings at warn level.
// File contents are never logged; use Buffer to describe a byte slice by
// size and digest:
//
//	logger.Debug(ctx, "database buffer", logging.Buffer("db", b))
//	// Logs: db.size=1024 db.xxhash=9f2c...
package logging
