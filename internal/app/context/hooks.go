package appctx

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/go-action-service/internal/app/fanout"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// HookEvent is passed to every lifecycle hook. Tx is the context's
// transaction, still open while hooks run; it is nil for a context that was
// finalized without being initialized.
type HookEvent struct {
	Tx      ports.Tx
	Context *ServiceContext
}

// Hook observes a lifecycle phase of a ServiceContext. A returned error (or a
// panic) is reported as a hook failure; see Success and Fail.
type Hook func(ctx context.Context, ev HookEvent) error

// OnSuccess registers a hook that runs only when Success is called.
func (sc *ServiceContext) OnSuccess(h Hook) { sc.register(&sc.successHooks, h, "success") }

// OnError registers a hook that runs only when Fail is called.
func (sc *ServiceContext) OnError(h Hook) { sc.register(&sc.errorHooks, h, "error") }

// OnEnd registers a hook that runs exactly once, on either path, before the
// success or error hooks.
func (sc *ServiceContext) OnEnd(h Hook) { sc.register(&sc.endHooks, h, "end") }

// register appends h to list. Nil hooks are ignored, and hooks registered on a
// finished context are dropped since their phase has already run.
func (sc *ServiceContext) register(list *[]Hook, h Hook, phase string) {
	if h == nil {
		return
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.state == StateFinished {
		sc.lockedLogger().Debug("hook registered on finished service context ignored",
			logging.ServiceContextID(sc.id),
			slog.String("phase", phase),
		)
		return
	}
	*list = append(*list, h)
}

// dispatch starts every hook of one phase together and waits for all of
// them. The errors of failing hooks are joined in registration order.
func (sc *ServiceContext) dispatch(ctx context.Context, phase string, hooks []Hook, tx ports.Tx) error {
	if len(hooks) == 0 {
		return nil
	}

	ev := HookEvent{Tx: tx, Context: sc}
	fns := make([]func(context.Context) (struct{}, error), len(hooks))
	for i, h := range hooks {
		fns[i] = func(ctx context.Context) (struct{}, error) {
			return struct{}{}, h(ctx, ev)
		}
	}

	if err := fanout.Errors(fanout.Settle(ctx, fns)); err != nil {
		return fmt.Errorf("%s hooks: %w", phase, err)
	}
	return nil
}
