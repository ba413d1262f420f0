package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
)

// starterDescription is the description given to todos created at signup.
const starterDescription = "Created when the account was opened"

// SignupResult is the Data of a successful signup.
type SignupResult struct {
	User  *user.User
	Todos []*todo.Todo
}

// SignupService opens an account together with its starter todos in one
// transaction. Unlike the entity services it owns the service context of
// each call.
type SignupService struct {
	contexts *appctx.Factory
	users    *UserService
	todos    *TodoService
	logger   *slog.Logger
}

// NewSignupService creates a SignupService.
func NewSignupService(contexts *appctx.Factory, users *UserService, todos *TodoService, logger *slog.Logger) *SignupService {
	logger = logging.OrDiscard(logger)
	return &SignupService{
		contexts: contexts,
		users:    users,
		todos:    todos,
		logger:   logger,
	}
}

// Signup creates u and one pending todo per starter title. Either
// everything is committed or nothing is: any failed step rolls the whole
// context back. The returned response merges the metadata of every step;
// on success its Data is a *SignupResult.
func (s *SignupService) Signup(ctx context.Context, u *user.User, starterTitles []string) (*action.Response, error) {
	sc := s.contexts.New()
	if err := sc.Init(ctx); err != nil {
		return action.Failure(fmt.Errorf("%w: %w", domain.ErrUnavailable, err)), nil
	}

	resp, err := s.signup(ctx, sc, u, starterTitles)
	if err != nil {
		s.finish(ctx, sc, action.Failure(err))
		return nil, err
	}

	if !resp.Failed() {
		sc.OnSuccess(func(ctx context.Context, _ appctx.HookEvent) error {
			s.logger.InfoContext(ctx, "account opened",
				slog.String("user_id", u.ID),
				slog.Int("starter_todos", len(starterTitles)),
				logging.ServiceContextID(sc.ID()),
			)
			return nil
		})
	}
	return s.finish(ctx, sc, resp), nil
}

func (s *SignupService) signup(ctx context.Context, sc *appctx.ServiceContext, u *user.User, starterTitles []string) (*action.Response, error) {
	if u == nil {
		return nil, &domain.ConfigurationError{Service: "signup", Reason: "nil user"}
	}
	existing, err := s.users.ByEmail(sc, u.Email).Get(ctx, sc)
	if err != nil {
		return action.Failure(err), nil
	}
	if existing != nil {
		return action.Failure(fmt.Errorf("email %s: %w", existing.Email, domain.ErrConflict)), nil
	}

	userResp, err := s.users.Create(ctx, sc, u)
	if err != nil || userResp.Failed() {
		return userResp, err
	}

	starters := make([]*todo.Todo, 0, len(starterTitles))
	for _, title := range starterTitles {
		starters = append(starters, &todo.Todo{
			UserID:      u.ID,
			Title:       strings.TrimSpace(title),
			Description: starterDescription,
			Status:      todo.StatusPending,
			Category:    todo.CategoryPersonal,
		})
	}
	if len(starters) == 0 {
		return action.CheckResponsesWithData([]*action.Response{userResp}, &SignupResult{User: u}), nil
	}

	batch, err := s.todos.CreateBatch(ctx, sc, starters)
	if err != nil {
		return nil, err
	}
	return action.CheckResponsesWithData(
		[]*action.Response{userResp, batch},
		&SignupResult{User: u, Todos: starters},
	), nil
}

// finish commits when resp succeeded and rolls back otherwise. A failed
// commit turns resp into a failure.
func (s *SignupService) finish(ctx context.Context, sc *appctx.ServiceContext, resp *action.Response) *action.Response {
	if resp.Failed() {
		if err := sc.Fail(ctx); err != nil {
			resp.Err = errors.Join(resp.Err, err)
		}
		resp.Data = nil
		return resp
	}

	if err := sc.Success(ctx); err != nil {
		resp.Err = err
		resp.Data = nil
	}
	return resp
}
