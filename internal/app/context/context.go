// Package appctx provides the service context: the transaction scope of one
// unit of work.
//
// A ServiceContext owns a single database transaction from Init until it is
// finalized by exactly one of Success (commit) or Fail (rollback). Observers
// register hooks against the end, success and error phases; the hooks of one
// phase run concurrently and all settle before the next phase starts. The
// transaction is committed or rolled back only after every hook has returned.
//
//	sc := appctx.New(db, appctx.WithLogger(logger))
//	if err := sc.Init(ctx); err != nil {
//	    return err
//	}
//	sc.OnSuccess(func(ctx context.Context, ev appctx.HookEvent) error {
//	    // runs inside ev.Tx, before commit
//	    return nil
//	})
//
//	resp, err := users.Create(ctx, sc, u)
//	if err != nil || resp.Failed() {
//	    return sc.Fail(ctx)
//	}
//	return sc.Success(ctx)
//
// A ServiceContext also memoizes lookups for the duration of the unit of work
// (see GetOrFetch). The cache is dropped once the context is finalized.
package appctx

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// ErrAlreadyInitialized is returned by Init on a context that has already
// been initialized.
var ErrAlreadyInitialized = errors.New("appctx: service context already initialized")

// ErrNotActive is returned when an operation needs an open transaction but
// the context has not been initialized or has already been finalized.
var ErrNotActive = errors.New("appctx: service context is not active")

// ErrHookFailed wraps the joined errors of failing lifecycle hooks.
var ErrHookFailed = errors.New("appctx: lifecycle hook failed")

// State is the lifecycle state of a ServiceContext.
type State int32

const (
	// StateCreated is a constructed context without a transaction.
	StateCreated State = iota
	// StateActive is an initialized context holding an open transaction.
	StateActive
	// StateFinished is a context finalized by Success or Fail. Terminal.
	StateFinished
)

func (s State) String() string {
	switch s {
	case StateCreated:
		return "created"
	case StateActive:
		return "active"
	case StateFinished:
		return "finished"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// ServiceContext is the transaction scope of one unit of work. It is safe for
// concurrent use: hooks may be registered from several goroutines, and racing
// Success/Fail calls are resolved so that exactly one finalizes the context.
type ServiceContext struct {
	db      ports.TxBeginner
	id      string
	logger  *slog.Logger
	metrics *telemetry.Metrics
	tracer  trace.Tracer

	mu           sync.Mutex
	state        State
	tx           ports.Tx
	span         trace.Span
	started      time.Time
	successHooks []Hook
	errorHooks   []Hook
	endHooks     []Hook

	// initLogger is the logger of the context passed to Init, used for
	// events that have no context of their own.
	initLogger *slog.Logger

	cacheMu sync.Mutex
	cache   map[string]cacheEntry
}

// Option configures a ServiceContext.
type Option func(*ServiceContext)

// WithLogger sets the logger used for lifecycle events. Without it the
// logger is taken from the context passed to each call.
func WithLogger(logger *slog.Logger) Option {
	return func(sc *ServiceContext) { sc.logger = logger }
}

// WithMetrics records transaction outcomes and durations.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(sc *ServiceContext) { sc.metrics = m }
}

// New creates a ServiceContext in the Created state. db is used by Init to
// open the transaction; a nil db yields a context that finalizes without a
// transaction.
func New(db ports.TxBeginner, opts ...Option) *ServiceContext {
	sc := &ServiceContext{
		db:      db,
		id:      uuid.NewString(),
		tracer:  otel.GetTracerProvider().Tracer("appctx"),
		started: time.Now(),
		cache:   make(map[string]cacheEntry),
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// ID returns the unique identifier of this unit of work.
func (sc *ServiceContext) ID() string { return sc.id }

// State returns the current lifecycle state.
func (sc *ServiceContext) State() State {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	return sc.state
}

// IsFinished reports whether Success or Fail has been called.
func (sc *ServiceContext) IsFinished() bool {
	return sc.State() == StateFinished
}

// Tx returns the open transaction. It fails with ErrNotActive unless the
// context is Active.
func (sc *ServiceContext) Tx() (ports.Tx, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.state != StateActive || sc.tx == nil {
		return nil, fmt.Errorf("%w: state %s", ErrNotActive, sc.state)
	}
	return sc.tx, nil
}

// Init opens the transaction and moves the context from Created to Active.
// A failed begin leaves the context in Created. Calling Init a second time
// returns ErrAlreadyInitialized.
func (sc *ServiceContext) Init(ctx context.Context) error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.state != StateCreated {
		return fmt.Errorf("%w: state %s", ErrAlreadyInitialized, sc.state)
	}

	spanCtx, span := sc.tracer.Start(ctx, "ServiceContext",
		trace.WithAttributes(attribute.String("service_context.id", sc.id)),
	)
	sc.initLogger = logging.FromContext(ctx)

	if sc.db != nil {
		tx, err := sc.db.BeginTx(spanCtx)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "begin transaction")
			span.End()
			return fmt.Errorf("beginning transaction: %w", err)
		}
		sc.tx = tx
	}

	sc.span = span
	sc.started = time.Now()
	sc.state = StateActive

	sc.log(ctx).DebugContext(ctx, "service context initialized",
		logging.ServiceContextID(sc.id),
	)
	return nil
}

// Success finalizes a successful unit of work: end hooks run, then success
// hooks, then the transaction is committed.
//
// If an end or success hook fails, the transaction is rolled back instead and
// the hook errors are returned wrapped in ErrHookFailed. Calling Success or
// Fail on a finished context returns an error wrapping
// domain.ErrAlreadyFinished and has no other effect.
func (sc *ServiceContext) Success(ctx context.Context) error {
	snap, err := sc.finish()
	if err != nil {
		return err
	}

	hookErr := sc.end(ctx, snap)
	if hookErr == nil {
		hookErr = sc.dispatch(ctx, "success", snap.success, snap.tx)
	}

	if hookErr != nil {
		rbErr := sc.rollback(snap.tx)
		sc.complete(ctx, telemetry.OutcomeRolledBack, errors.Join(hookErr, rbErr))
		return errors.Join(fmt.Errorf("%w: %w", ErrHookFailed, hookErr), rbErr)
	}

	if snap.tx != nil {
		if err := snap.tx.Commit(); err != nil {
			err = fmt.Errorf("committing transaction: %w", err)
			sc.complete(ctx, telemetry.OutcomeFailed, err)
			return err
		}
	}

	sc.complete(ctx, telemetry.OutcomeCommitted, nil)
	return nil
}

// Fail finalizes a failed unit of work: end hooks run, then error hooks, then
// the transaction is rolled back. Hook failures never prevent the rollback;
// they are joined with any rollback error in the returned error.
func (sc *ServiceContext) Fail(ctx context.Context) error {
	snap, err := sc.finish()
	if err != nil {
		return err
	}

	hookErr := errors.Join(
		sc.end(ctx, snap),
		sc.dispatch(ctx, "error", snap.errors, snap.tx),
	)
	rbErr := sc.rollback(snap.tx)

	outcome := telemetry.OutcomeRolledBack
	if rbErr != nil {
		outcome = telemetry.OutcomeFailed
	}
	sc.complete(ctx, outcome, errors.Join(hookErr, rbErr))

	if hookErr != nil {
		return errors.Join(fmt.Errorf("%w: %w", ErrHookFailed, hookErr), rbErr)
	}
	return rbErr
}

// snapshot is the state captured when the context is marked finished.
type snapshot struct {
	tx      ports.Tx
	end     []Hook
	success []Hook
	errors  []Hook
}

// finish marks the context finished and captures what finalization needs.
// Exactly one caller ever gets a nil error.
func (sc *ServiceContext) finish() (snapshot, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.state == StateFinished {
		return snapshot{}, fmt.Errorf("service context %s: %w", sc.id, domain.ErrAlreadyFinished)
	}
	sc.state = StateFinished

	snap := snapshot{
		tx:      sc.tx,
		end:     sc.endHooks,
		success: sc.successHooks,
		errors:  sc.errorHooks,
	}
	sc.endHooks, sc.successHooks, sc.errorHooks = nil, nil, nil
	return snap, nil
}

// end runs the end hooks of a context already marked finished.
func (sc *ServiceContext) end(ctx context.Context, snap snapshot) error {
	return sc.dispatch(ctx, "end", snap.end, snap.tx)
}

func (sc *ServiceContext) rollback(tx ports.Tx) error {
	if tx == nil {
		return nil
	}
	if err := tx.Rollback(); err != nil {
		return fmt.Errorf("rolling back transaction: %w", err)
	}
	return nil
}

// complete records the outcome of finalization and releases per-unit state.
func (sc *ServiceContext) complete(ctx context.Context, outcome string, err error) {
	sc.mu.Lock()
	span := sc.span
	sc.tx = nil
	sc.span = nil
	elapsed := time.Since(sc.started)
	sc.mu.Unlock()

	sc.clearCache()
	sc.metrics.RecordTransaction(ctx, outcome, elapsed)

	logger := sc.log(ctx)
	if err != nil {
		logger.ErrorContext(ctx, "service context finalized with errors",
			logging.Operation("ServiceContext.finalize"),
			logging.ServiceContextID(sc.id),
			slog.String("outcome", outcome),
			slog.Any("error", err),
		)
	} else {
		logger.DebugContext(ctx, "service context finalized",
			logging.ServiceContextID(sc.id),
			slog.String("outcome", outcome),
			slog.Duration("elapsed", elapsed),
		)
	}

	if span != nil {
		span.SetAttributes(attribute.String("service_context.outcome", outcome))
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, outcome)
		}
		span.End()
	}
}

func (sc *ServiceContext) log(ctx context.Context) *slog.Logger {
	if sc.logger != nil {
		return sc.logger
	}
	return logging.FromContext(ctx)
}

// lockedLogger is log for callers without a context. sc.mu must be held.
func (sc *ServiceContext) lockedLogger() *slog.Logger {
	switch {
	case sc.logger != nil:
		return sc.logger
	case sc.initLogger != nil:
		return sc.initLogger
	default:
		return slog.Default()
	}
}
