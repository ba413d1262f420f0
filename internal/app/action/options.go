package action

import (
	"log/slog"

	"github.com/jsamuelsen11/go-action-service/internal/platform/telemetry"
)

// Option configures a Table, a registered action, or a Service.
// Options that do not apply to the receiver are ignored.
type Option func(*options)

type options struct {
	logger  *slog.Logger
	debug   bool
	metrics *telemetry.Metrics
	entry   []EntryHook
	exit    []ExitHook
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// WithEntryHooks appends hooks run before every action.
func WithEntryHooks(hooks ...EntryHook) Option {
	return func(o *options) { o.entry = append(o.entry, hooks...) }
}

// WithExitHooks appends hooks run after every action.
func WithExitHooks(hooks ...ExitHook) Option {
	return func(o *options) { o.exit = append(o.exit, hooks...) }
}

// WithLogger sets the logger used by a Service's debug hooks.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) { o.logger = logger }
}

// WithDebug enables the debug entry and exit hooks of a Service.
func WithDebug(debug bool) Option {
	return func(o *options) { o.debug = debug }
}

// WithMetrics adds the telemetry hooks to every action of a Service.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *options) { o.metrics = m }
}
