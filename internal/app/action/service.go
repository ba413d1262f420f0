package action

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"

	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// Names of the standard actions registered by NewService.
const (
	ActionCreate   = "create"
	ActionUpdate   = "update"
	ActionDelete   = "delete"
	ActionUndelete = "undelete"
	ActionFind     = "find"
)

// FindParams selects the row returned by Find.
type FindParams struct {
	// Where maps column names to required values. Must not be empty.
	Where map[string]any
	// ActiveOnly excludes soft-deleted rows.
	ActiveOnly bool
}

// QueryOptions scopes the builder returned by Service.Query.
type QueryOptions struct {
	// ServiceContext, when active, binds the query to its transaction.
	ServiceContext *appctx.ServiceContext
	// ActiveOnly excludes soft-deleted rows.
	ActiveOnly bool
}

// Callback is the persistence step of an action, run inside the service
// context's transaction.
type Callback func(ctx context.Context, tx ports.Tx) (any, error)

// Service runs the standard actions for one entity type against its model.
// Every action takes the caller's service context and goes through the
// service's Table, so entry and exit hooks wrap each call. Service keeps no
// per-call state.
type Service[E domain.Entity] struct {
	name   string
	model  ports.Model[E]
	logger *slog.Logger
	debug  bool
	table  *Table
}

// NewService creates a Service for model. The debug hooks OnEntry and OnExit
// are always registered first; WithMetrics adds the telemetry hooks, and
// WithEntryHooks and WithExitHooks append further hooks to every action.
// A nil model or a model without a name yields a *domain.ConfigurationError.
func NewService[E domain.Entity](model ports.Model[E], opts ...Option) (*Service[E], error) {
	if model == nil {
		return nil, &domain.ConfigurationError{Reason: "service has no model"}
	}
	name := model.Name()
	if name == "" {
		return nil, &domain.ConfigurationError{Reason: "model has no name"}
	}

	o := buildOptions(opts)
	s := &Service[E]{
		name:   name,
		model:  model,
		logger: o.logger,
		debug:  o.debug,
	}

	entry := []EntryHook{s.OnEntry}
	exit := []ExitHook{s.OnExit}
	if o.metrics != nil {
		te, tx := TelemetryHooks(o.metrics)
		entry = append(entry, te)
		exit = append(exit, tx)
	}
	s.table = NewTable(name,
		WithEntryHooks(append(entry, o.entry...)...),
		WithExitHooks(append(exit, o.exit...)...),
	)

	for _, d := range []struct {
		name string
		h    Handler
	}{
		{ActionCreate, s.actionCreate},
		{ActionUpdate, s.actionUpdate},
		{ActionDelete, s.actionDelete},
		{ActionUndelete, s.actionUndelete},
		{ActionFind, s.actionFind},
	} {
		if err := s.table.Register(d.name, d.h); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Name returns the model name the service was built for.
func (s *Service[E]) Name() string { return s.name }

// Model returns the service's model.
func (s *Service[E]) Model() ports.Model[E] { return s.model }

// Register adds a custom action to the service's table. It is wrapped by
// the same hooks as the standard actions.
func (s *Service[E]) Register(name string, handler Handler, opts ...Option) error {
	return s.table.Register(name, handler, opts...)
}

// Invoke runs a registered action by name.
func (s *Service[E]) Invoke(ctx context.Context, name string, args ...any) (*Response, error) {
	return s.table.Invoke(ctx, name, args...)
}

// Create validates entity and inserts it inside sc's transaction.
func (s *Service[E]) Create(ctx context.Context, sc *appctx.ServiceContext, entity E) (*Response, error) {
	return s.table.Invoke(ctx, ActionCreate, sc, entity)
}

// Update validates a persisted entity and saves its changes.
func (s *Service[E]) Update(ctx context.Context, sc *appctx.ServiceContext, entity E) (*Response, error) {
	return s.table.Invoke(ctx, ActionUpdate, sc, entity)
}

// Delete removes entity. With softDelete the row is kept and marked deleted;
// otherwise it is deleted permanently.
func (s *Service[E]) Delete(ctx context.Context, sc *appctx.ServiceContext, entity E, softDelete bool) (*Response, error) {
	return s.table.Invoke(ctx, ActionDelete, sc, entity, softDelete)
}

// Undelete clears the soft-delete marker of entity.
func (s *Service[E]) Undelete(ctx context.Context, sc *appctx.ServiceContext, entity E) (*Response, error) {
	return s.table.Invoke(ctx, ActionUndelete, sc, entity)
}

// Find returns the single row matching params. When no row matches, the
// response carries an error wrapping domain.ErrNotFound.
func (s *Service[E]) Find(ctx context.Context, sc *appctx.ServiceContext, params FindParams) (*Response, error) {
	return s.table.Invoke(ctx, ActionFind, sc, params)
}

// Query returns a builder for the service's model, bound to the service
// context's transaction when it is active and restricted to active rows when
// requested.
func (s *Service[E]) Query(opts QueryOptions) ports.Query[E] {
	q := s.model.Query()
	if opts.ServiceContext != nil {
		if tx, err := opts.ServiceContext.Tx(); err == nil {
			q = q.Transacting(tx)
		}
	}
	if opts.ActiveOnly {
		q = q.Active()
	}
	return q
}

// CheckResponses merges responses; see the package-level CheckResponses.
func (s *Service[E]) CheckResponses(responses ...*Response) *Response {
	return CheckResponses(responses...)
}

// CheckResponsesWithData merges responses using data as the merged Data.
func (s *Service[E]) CheckResponsesWithData(responses []*Response, data any) *Response {
	return CheckResponsesWithData(responses, data)
}

func (s *Service[E]) actionCreate(ctx context.Context, args []any) (*Response, error) {
	tx, entity, err := txAndEntity[E](s.name, ActionCreate, args)
	if err != nil {
		return nil, err
	}
	if !entity.Base().IsNew() {
		return Failure(&domain.ValidationError{Fields: map[string]string{"id": "record already exists"}}), nil
	}
	if err := entity.Validate(); err != nil {
		return Failure(err), nil
	}
	return s.executeCallback(ctx, tx, ActionCreate, func(ctx context.Context, tx ports.Tx) (any, error) {
		return entity, s.model.Save(ctx, tx, entity)
	}), nil
}

func (s *Service[E]) actionUpdate(ctx context.Context, args []any) (*Response, error) {
	tx, entity, err := txAndEntity[E](s.name, ActionUpdate, args)
	if err != nil {
		return nil, err
	}
	if entity.Base().ID == "" || entity.Base().IsNew() {
		return Failure(&domain.ValidationError{Fields: map[string]string{"id": domain.MsgRequired}}), nil
	}
	if err := entity.Validate(); err != nil {
		return Failure(err), nil
	}
	return s.executeCallback(ctx, tx, ActionUpdate, func(ctx context.Context, tx ports.Tx) (any, error) {
		return entity, s.model.Save(ctx, tx, entity)
	}), nil
}

func (s *Service[E]) actionDelete(ctx context.Context, args []any) (*Response, error) {
	tx, entity, err := txAndEntity[E](s.name, ActionDelete, args)
	if err != nil {
		return nil, err
	}
	softDelete, err := arg[bool](s.name, ActionDelete, args, 2)
	if err != nil {
		return nil, err
	}
	if entity.Base().ID == "" {
		return Failure(&domain.ValidationError{Fields: map[string]string{"id": domain.MsgRequired}}), nil
	}

	var fn Callback
	switch m := any(s.model); {
	case softDelete:
		sd, ok := m.(ports.SoftDeleter[E])
		if !ok {
			return nil, s.missingCapability("soft delete")
		}
		fn = func(ctx context.Context, tx ports.Tx) (any, error) {
			return entity, sd.SoftDelete(ctx, tx, entity)
		}
	default:
		if td, ok := m.(ports.TxDeleter[E]); ok {
			fn = func(ctx context.Context, tx ports.Tx) (any, error) {
				return entity, td.DeleteWithinTransaction(ctx, tx, entity)
			}
			break
		}
		d, ok := m.(ports.Deleter[E])
		if !ok {
			return nil, s.missingCapability("delete")
		}
		fn = func(ctx context.Context, _ ports.Tx) (any, error) {
			return entity, d.Delete(ctx, entity)
		}
	}

	return s.executeCallback(ctx, tx, ActionDelete, fn), nil
}

func (s *Service[E]) actionUndelete(ctx context.Context, args []any) (*Response, error) {
	tx, entity, err := txAndEntity[E](s.name, ActionUndelete, args)
	if err != nil {
		return nil, err
	}
	ud, ok := any(s.model).(ports.Undeleter[E])
	if !ok {
		return nil, s.missingCapability("undelete")
	}
	if entity.Base().ID == "" {
		return Failure(&domain.ValidationError{Fields: map[string]string{"id": domain.MsgRequired}}), nil
	}
	return s.executeCallback(ctx, tx, ActionUndelete, func(ctx context.Context, tx ports.Tx) (any, error) {
		return entity, ud.Undelete(ctx, tx, entity)
	}), nil
}

func (s *Service[E]) actionFind(ctx context.Context, args []any) (*Response, error) {
	sc, err := arg[*appctx.ServiceContext](s.name, ActionFind, args, 0)
	if err != nil {
		return nil, err
	}
	tx, err := activeTx(sc)
	if err != nil {
		return nil, err
	}
	params, err := arg[FindParams](s.name, ActionFind, args, 1)
	if err != nil {
		return nil, err
	}
	if len(params.Where) == 0 {
		return Failure(&domain.ValidationError{Fields: map[string]string{"where": domain.MsgRequired}}), nil
	}
	return s.executeCallback(ctx, tx, ActionFind, func(ctx context.Context, tx ports.Tx) (any, error) {
		q := s.model.Query().Transacting(tx).Where(params.Where)
		if params.ActiveOnly {
			q = q.Active()
		}
		return q.FirstOrFail(ctx)
	}), nil
}

// executeCallback runs fn inside tx and captures its outcome in an envelope.
// It never returns an error itself. Errors that are not already domain errors
// are wrapped in a *domain.PersistenceError.
func (s *Service[E]) executeCallback(ctx context.Context, tx ports.Tx, action string, fn Callback) *Response {
	data, err := fn(ctx, tx)
	if err != nil {
		return Failure(s.classify(action, err))
	}
	return Ok(data)
}

func (s *Service[E]) classify(action string, err error) error {
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrValidation,
		domain.ErrConflict,
		domain.ErrUnavailable,
		domain.ErrPersistence,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return &domain.PersistenceError{Op: s.name + "." + action, Err: err}
}

func (s *Service[E]) missingCapability(what string) error {
	return &domain.ConfigurationError{
		Service: s.name,
		Reason:  fmt.Sprintf("model %T does not support %s", s.model, what),
	}
}

// OnEntry is the built-in debug entry hook. With debug enabled it logs the
// call and returns true; otherwise it does nothing and returns false.
func (s *Service[E]) OnEntry(ctx context.Context, call *Call) any {
	if !s.debug {
		return false
	}
	s.log(ctx).DebugContext(ctx, "action entry",
		slog.String("service", call.Service),
		logging.Action(call.Action),
		slog.Any("args", describeArgs(call.Args)),
	)
	return true
}

// OnExit is the built-in debug exit hook. With debug enabled it logs the
// call and its result and returns true; otherwise it returns false.
func (s *Service[E]) OnExit(ctx context.Context, call *Call, resp *Response) any {
	if !s.debug {
		return false
	}
	attrs := []any{
		slog.String("service", call.Service),
		logging.Action(call.Action),
		slog.Any("args", describeArgs(call.Args)),
		slog.Any("data", resp.Data),
	}
	if resp.Err != nil {
		attrs = append(attrs, slog.Any("error", resp.Err))
	}
	s.log(ctx).DebugContext(ctx, "action exit", attrs...)
	return true
}

func (s *Service[E]) log(ctx context.Context) *slog.Logger {
	if s.logger != nil {
		return s.logger
	}
	return logging.FromContext(ctx)
}

// describeArgs replaces service contexts with their ids so that debug logs
// do not dump context internals.
func describeArgs(args []any) []any {
	out := make([]any, len(args))
	for i, a := range args {
		if sc, ok := a.(*appctx.ServiceContext); ok && sc != nil {
			out[i] = "service_context:" + sc.ID()
			continue
		}
		out[i] = a
	}
	return out
}

func txAndEntity[E any](service, action string, args []any) (ports.Tx, E, error) {
	var zero E
	sc, err := arg[*appctx.ServiceContext](service, action, args, 0)
	if err != nil {
		return nil, zero, err
	}
	tx, err := activeTx(sc)
	if err != nil {
		return nil, zero, err
	}
	entity, err := arg[E](service, action, args, 1)
	if err != nil {
		return nil, zero, err
	}
	if isNil(entity) {
		return nil, zero, &domain.ConfigurationError{
			Service: service,
			Reason:  fmt.Sprintf("action %q: nil entity", action),
		}
	}
	return tx, entity, nil
}

// isNil reports whether v is nil or a nil pointer, map, slice or interface.
func isNil(v any) bool {
	if v == nil {
		return true
	}
	switch rv := reflect.ValueOf(v); rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	default:
		return false
	}
}

func activeTx(sc *appctx.ServiceContext) (ports.Tx, error) {
	if sc == nil {
		return nil, fmt.Errorf("%w: nil service context", appctx.ErrNotActive)
	}
	return sc.Tx()
}

// arg returns args[i] as T, or a *domain.ConfigurationError when the action
// was invoked with a missing or mistyped argument.
func arg[T any](service, action string, args []any, i int) (T, error) {
	var zero T
	if i >= len(args) {
		return zero, &domain.ConfigurationError{
			Service: service,
			Reason:  fmt.Sprintf("action %q: missing argument %d", action, i),
		}
	}
	v, ok := args[i].(T)
	if !ok {
		return zero, &domain.ConfigurationError{
			Service: service,
			Reason:  fmt.Sprintf("action %q: argument %d is %T, want %T", action, i, args[i], zero),
		}
	}
	return v, nil
}
