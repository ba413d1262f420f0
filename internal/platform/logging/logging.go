// Package logging builds the service's slog loggers and carries them through
// a unit of work.
//
// A request logger is stored in the context by the HTTP middleware and picked
// up by ServiceContext.Init, so records from the service context, its hooks
// and the action table all carry the request_id and correlation_id of the
// request that opened it:
//
//	ctx = logging.WithLogger(ctx, logger.With(slog.String("request_id", id)))
//	logging.FromContext(ctx).InfoContext(ctx, "account opened",
//	    logging.ServiceContextID(sc.ID()),
//	    slog.String("user_id", u.ID),
//	)
//
// Records about a unit of work identify it with ServiceContextID; failures
// name the Operation and pass the whole chain as slog.Any("error", err).
// Action debug hooks log entity arguments whole. The handler built by New
// masks email addresses, connection-string credentials and bearer tokens
// before they are written, so call sites never redact by hand.
package logging

import (
	"context"
	"io"
	"log/slog"
	"strings"
)

// contextKey is the unexported key type for storing loggers in context.
type contextKey struct{}

// Attribute keys shared by every layer that logs about a unit of work.
const (
	KeyServiceContext = "service_context_id"
	KeyOperation      = "operation"
	KeyAction         = "action"
)

// ServiceContextID identifies the service context a record belongs to.
func ServiceContextID(id string) slog.Attr {
	return slog.String(KeyServiceContext, id)
}

// Operation names the failing call, e.g. "ServiceContext.finalize".
func Operation(name string) slog.Attr {
	return slog.String(KeyOperation, name)
}

// Action names the action table entry being run.
func Action(name string) slog.Attr {
	return slog.String(KeyAction, name)
}

// New creates a configured *slog.Logger.
//
// The level parameter sets the minimum log level. Valid values are "debug",
// "info", "warn", and "error". Unrecognized values default to info.
//
// The format parameter selects the output handler. "text" uses
// slog.NewTextHandler; all other values (including "json") use
// slog.NewJSONHandler.
//
// When level is "debug", source code location is included in log output.
func New(level, format string, w io.Writer) *slog.Logger {
	lvl := parseLevel(level)

	opts := &slog.HandlerOptions{
		Level:       lvl,
		AddSource:   lvl == slog.LevelDebug,
		ReplaceAttr: newRedactAttr(),
	}

	var handler slog.Handler
	if format == "text" {
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return slog.New(handler)
}

// WithLogger returns a new context with the given logger stored in it.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, contextKey{}, logger)
}

// FromContext extracts a *slog.Logger from the context.
// If no logger is stored, it returns slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if logger, ok := ctx.Value(contextKey{}).(*slog.Logger); ok {
		return logger
	}
	return slog.Default()
}

// OrDiscard returns logger, or a logger that drops every record when
// logger is nil. Constructors use it so a logger argument stays optional.
func OrDiscard(logger *slog.Logger) *slog.Logger {
	if logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return logger
}

// parseLevel converts a level string to slog.Level.
// Unrecognized values default to slog.LevelInfo.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
