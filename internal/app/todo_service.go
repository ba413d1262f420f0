package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// ActionComplete marks a todo done. It is registered on every TodoService
// next to the standard actions.
const ActionComplete = "complete"

// TodoService runs the standard actions for todos plus completion, batch
// creation, listing and progress.
type TodoService struct {
	*action.Service[*todo.Todo]
	logger *slog.Logger
}

// NewTodoService creates a TodoService over model.
func NewTodoService(model ports.Model[*todo.Todo], logger *slog.Logger, opts ...action.Option) (*TodoService, error) {
	logger = logging.OrDiscard(logger)
	svc, err := action.NewService(model, append([]action.Option{action.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}

	s := &TodoService{Service: svc, logger: logger}
	if err := svc.Register(ActionComplete, s.actionComplete); err != nil {
		return nil, err
	}
	return s, nil
}

// Complete marks the active todo with id done at full progress.
func (s *TodoService) Complete(ctx context.Context, sc *appctx.ServiceContext, id string) (*action.Response, error) {
	return s.Invoke(ctx, ActionComplete, sc, id)
}

// CreateBatch creates todos one after another inside sc and merges the
// responses. The merged Data holds the created todos in input order; a
// failed item leaves a nil slot and its error in the merged Err.
func (s *TodoService) CreateBatch(ctx context.Context, sc *appctx.ServiceContext, todos []*todo.Todo) (*action.Response, error) {
	if len(todos) == 0 {
		return action.Failure(&domain.ValidationError{Fields: map[string]string{"todos": domain.MsgRequired}}), nil
	}

	responses := make([]*action.Response, 0, len(todos))
	for _, td := range todos {
		resp, err := s.Create(ctx, sc, td)
		if err != nil {
			return nil, err
		}
		responses = append(responses, resp)
	}
	return s.CheckResponses(responses...), nil
}

// List returns the active todos matching f, oldest first.
func (s *TodoService) List(ctx context.Context, sc *appctx.ServiceContext, f todo.Filter) ([]*todo.Todo, error) {
	todos, err := s.Query(action.QueryOptions{ServiceContext: sc, ActiveOnly: true}).
		Where(f.Attributes()).
		All(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing todos: %w", err)
	}
	return todos, nil
}

// ListForUser returns the active todos of userID matching f.
func (s *TodoService) ListForUser(ctx context.Context, sc *appctx.ServiceContext, userID string, f todo.Filter) ([]*todo.Todo, error) {
	f.UserID = userID
	return s.List(ctx, sc, f)
}

// Progress returns the average progress of the active todos of userID.
func (s *TodoService) Progress(ctx context.Context, sc *appctx.ServiceContext, userID string) (int, error) {
	todos, err := s.ListForUser(ctx, sc, userID, todo.Filter{})
	if err != nil {
		return 0, err
	}
	return todo.CalculateProgress(todos), nil
}

// actionComplete loads the todo inside the context's transaction and saves
// it through the update action, so the update hooks run as well.
func (s *TodoService) actionComplete(ctx context.Context, args []any) (*action.Response, error) {
	if len(args) != 2 {
		return nil, s.badArgs(args)
	}
	sc, ok := args[0].(*appctx.ServiceContext)
	if !ok || sc == nil {
		return nil, s.badArgs(args)
	}
	id, ok := args[1].(string)
	if !ok {
		return nil, s.badArgs(args)
	}

	found, err := s.Find(ctx, sc, action.FindParams{
		Where:      map[string]any{"id": id},
		ActiveOnly: true,
	})
	if err != nil || found.Failed() {
		return found, err
	}

	td, ok := action.DataAs[*todo.Todo](found)
	if !ok {
		return nil, fmt.Errorf("%s.%s: find returned %T", s.Name(), ActionComplete, found.Data)
	}
	td.Complete()
	return s.Update(ctx, sc, td)
}

func (s *TodoService) badArgs(args []any) error {
	return &domain.ConfigurationError{
		Service: s.Name(),
		Reason:  fmt.Sprintf("action %q wants (service context, id), got %d arguments", ActionComplete, len(args)),
	}
}
