package action

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/jsamuelsen11/go-action-service/internal/app/fanout"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
)

// MetaDataSuffix is appended to an action name to form the metadata key
// under which the interceptor records hook results.
const MetaDataSuffix = "MetaData"

// Call describes one action invocation to the hooks wrapping it.
type Call struct {
	Service string
	Action  string
	Args    []any
	Started time.Time
}

// EntryHook runs before an action. Its return value is recorded in the
// response metadata.
type EntryHook func(ctx context.Context, call *Call) any

// ExitHook runs after an action with its response. Its return value is
// recorded in the response metadata.
type ExitHook func(ctx context.Context, call *Call, resp *Response) any

// Handler implements an action. Domain failures belong in the returned
// Response; a non-nil error is reserved for programmer errors and is
// returned to the caller unchanged.
type Handler func(ctx context.Context, args []any) (*Response, error)

// Descriptor is a registered action.
type Descriptor struct {
	Name       string
	Handler    Handler
	EntryHooks []EntryHook
	ExitHooks  []ExitHook
}

// ActionMetaData is the value stored under "<action>MetaData": the results
// of the entry and exit hooks, each in registration order.
type ActionMetaData struct {
	ResultOnEntryFunctions []any `json:"resultOnEntryFunctions"`
	ResultOnExitFunctions  []any `json:"resultOnExitFunctions"`
}

// Table maps action names to descriptors and wraps every invocation with
// the entry and exit hooks. Hooks given to NewTable apply to every action;
// hooks given to Register apply to that action only and run after them.
// A Table is safe for concurrent use.
type Table struct {
	service string
	entry   []EntryHook
	exit    []ExitHook

	mu      sync.RWMutex
	actions map[string]*Descriptor
}

// NewTable creates an empty table for the named service.
func NewTable(service string, opts ...Option) *Table {
	o := buildOptions(opts)
	return &Table{
		service: service,
		entry:   o.entry,
		exit:    o.exit,
		actions: make(map[string]*Descriptor),
	}
}

// Register adds an action. An empty name, a nil handler or a name that is
// already registered yields a *domain.ConfigurationError.
func (t *Table) Register(name string, handler Handler, opts ...Option) error {
	if name == "" {
		return &domain.ConfigurationError{Service: t.service, Reason: "action name is empty"}
	}
	if handler == nil {
		return &domain.ConfigurationError{Service: t.service, Reason: fmt.Sprintf("action %q has no handler", name)}
	}

	o := buildOptions(opts)

	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.actions[name]; ok {
		return &domain.ConfigurationError{Service: t.service, Reason: fmt.Sprintf("action %q already registered", name)}
	}

	t.actions[name] = &Descriptor{
		Name:       name,
		Handler:    handler,
		EntryHooks: append(append([]EntryHook(nil), t.entry...), o.entry...),
		ExitHooks:  append(append([]ExitHook(nil), t.exit...), o.exit...),
	}
	return nil
}

// Lookup returns the descriptor registered under name.
func (t *Table) Lookup(name string) (*Descriptor, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	d, ok := t.actions[name]
	return d, ok
}

// Invoke runs the named action: entry hooks concurrently, then the handler,
// then exit hooks concurrently. The hook results are stored in the response
// metadata under name+"MetaData". An unknown name yields a
// *domain.ConfigurationError.
func (t *Table) Invoke(ctx context.Context, name string, args ...any) (*Response, error) {
	d, ok := t.Lookup(name)
	if !ok {
		return nil, &domain.ConfigurationError{Service: t.service, Reason: fmt.Sprintf("unknown action %q", name)}
	}

	call := &Call{
		Service: t.service,
		Action:  name,
		Args:    args,
		Started: time.Now(),
	}

	onEntry := runHooks(ctx, d.EntryHooks, func(ctx context.Context, h EntryHook) any {
		return h(ctx, call)
	})

	resp, err := d.Handler(ctx, args)
	if err != nil {
		return nil, err
	}
	if resp == nil {
		resp = NewResponse(nil, nil)
	}
	if resp.MetaData == nil {
		resp.MetaData = NewMetaData()
	}

	onExit := runHooks(ctx, d.ExitHooks, func(ctx context.Context, h ExitHook) any {
		return h(ctx, call, resp)
	})

	resp.MetaData.Set(name+MetaDataSuffix, ActionMetaData{
		ResultOnEntryFunctions: onEntry,
		ResultOnExitFunctions:  onExit,
	})
	return resp, nil
}

// runHooks starts every hook at once and returns their results in
// registration order. Results end up in JSON metadata, so an error result,
// including the one recovered from a panicking hook, is kept as its message.
func runHooks[H any](ctx context.Context, hooks []H, run func(context.Context, H) any) []any {
	fns := make([]func(context.Context) (any, error), len(hooks))
	for i, h := range hooks {
		fns[i] = func(ctx context.Context) (any, error) {
			return run(ctx, h), nil
		}
	}

	results := fanout.Settle(ctx, fns)
	out := make([]any, len(results))
	for i, r := range results {
		switch v := r.Value.(type) {
		case error:
			out[i] = v.Error()
		default:
			out[i] = v
		}
		if r.Err != nil {
			out[i] = r.Err.Error()
		}
	}
	return out
}
