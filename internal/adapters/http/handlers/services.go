package handlers

import (
	"context"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
)

// UserService is the subset of the account service the HTTP layer calls.
type UserService interface {
	Create(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error)
	Update(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error)
	Delete(ctx context.Context, sc *appctx.ServiceContext, u *user.User, softDelete bool) (*action.Response, error)
	Undelete(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error)
	FindByID(ctx context.Context, sc *appctx.ServiceContext, id string, includeDeleted bool) (*action.Response, error)
}

// TodoService is the subset of the todo service the HTTP layer calls.
type TodoService interface {
	Create(ctx context.Context, sc *appctx.ServiceContext, t *todo.Todo) (*action.Response, error)
	Update(ctx context.Context, sc *appctx.ServiceContext, t *todo.Todo) (*action.Response, error)
	Delete(ctx context.Context, sc *appctx.ServiceContext, t *todo.Todo, softDelete bool) (*action.Response, error)
	Undelete(ctx context.Context, sc *appctx.ServiceContext, t *todo.Todo) (*action.Response, error)
	Find(ctx context.Context, sc *appctx.ServiceContext, params action.FindParams) (*action.Response, error)
	Complete(ctx context.Context, sc *appctx.ServiceContext, id string) (*action.Response, error)
	CreateBatch(ctx context.Context, sc *appctx.ServiceContext, todos []*todo.Todo) (*action.Response, error)
	List(ctx context.Context, sc *appctx.ServiceContext, f todo.Filter) ([]*todo.Todo, error)
	Progress(ctx context.Context, sc *appctx.ServiceContext, userID string) (int, error)
}

// SignupService opens accounts. It owns the service context of each call.
type SignupService interface {
	Signup(ctx context.Context, u *user.User, starterTitles []string) (*action.Response, error)
}
