package handlers

import (
	"context"
	"net/http"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
)

// TodoHandler handles HTTP requests for todo CRUD, batch creation and
// completion.
type TodoHandler struct {
	svc      TodoService
	contexts *appctx.Factory
}

// NewTodoHandler creates a new TodoHandler.
func NewTodoHandler(svc TodoService, contexts *appctx.Factory) *TodoHandler {
	return &TodoHandler{svc: svc, contexts: contexts}
}

func todoView(t *todo.Todo) any { return dto.ToTodoResponse(t) }

func todoListView(todos []*todo.Todo) any { return dto.ToTodoListResponse(todos) }

// batchView renders the merged data of a batch create, one slot per item.
func batchView(items []any) any {
	todos := make([]*todo.Todo, 0, len(items))
	for _, item := range items {
		if t, ok := item.(*todo.Todo); ok {
			todos = append(todos, t)
		}
	}
	return dto.ToTodoListResponse(todos)
}

// ListTodos handles GET /api/v1/todos.
func (h *TodoHandler) ListTodos(w http.ResponseWriter, r *http.Request) {
	filter, err := parseTodoFilter(r)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			todos, err := h.svc.List(ctx, sc, filter)
			if err != nil {
				return action.Failure(err), nil
			}
			return action.Ok(todos), nil
		})
	render(w, r, http.StatusOK, resp, err, todoListView)
}

// UserProgress handles GET /api/v1/users/{id}/progress: the average
// progress of the account's active todos, 0 when it has none.
func (h *TodoHandler) UserProgress(w http.ResponseWriter, r *http.Request) {
	userID, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			pct, err := h.svc.Progress(ctx, sc, userID)
			if err != nil {
				return action.Failure(err), nil
			}
			return action.Ok(dto.ProgressResponse{UserID: userID, ProgressPercent: pct}), nil
		})
	render(w, r, http.StatusOK, resp, err, func(p dto.ProgressResponse) any { return p })
}

// CreateTodo handles POST /api/v1/todos.
func (h *TodoHandler) CreateTodo(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.svc.Create(ctx, sc, req.ToTodo())
		})
	render(w, r, http.StatusCreated, resp, err, todoView)
}

// CreateTodos handles POST /api/v1/todos/batch. Either every item is
// created or none is.
func (h *TodoHandler) CreateTodos(w http.ResponseWriter, r *http.Request) {
	var req dto.BatchCreateTodosRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.svc.CreateBatch(ctx, sc, req.ToTodos())
		})
	render(w, r, http.StatusCreated, resp, err, batchView)
}

// GetTodo handles GET /api/v1/todos/{id}.
func (h *TodoHandler) GetTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	includeDeleted, err := queryBool(r, "include_deleted", false)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.find(ctx, sc, id, includeDeleted)
		})
	render(w, r, http.StatusOK, resp, err, todoView)
}

// UpdateTodo handles PATCH /api/v1/todos/{id}.
func (h *TodoHandler) UpdateTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	var req dto.UpdateTodoRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.modify(ctx, sc, id, false, func(ctx context.Context, t *todo.Todo) (*action.Response, error) {
				req.Apply(t)
				return h.svc.Update(ctx, sc, t)
			})
		})
	render(w, r, http.StatusOK, resp, err, todoView)
}

// CompleteTodo handles POST /api/v1/todos/{id}/complete.
func (h *TodoHandler) CompleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.svc.Complete(ctx, sc, id)
		})
	render(w, r, http.StatusOK, resp, err, todoView)
}

// DeleteTodo handles DELETE /api/v1/todos/{id}. The todo is soft deleted
// unless ?soft=false is given.
func (h *TodoHandler) DeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	soft, err := queryBool(r, "soft", true)
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.modify(ctx, sc, id, !soft, func(ctx context.Context, t *todo.Todo) (*action.Response, error) {
				return h.svc.Delete(ctx, sc, t, soft)
			})
		})
	render(w, r, http.StatusOK, resp, err, todoView)
}

// UndeleteTodo handles POST /api/v1/todos/{id}/undelete.
func (h *TodoHandler) UndeleteTodo(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.modify(ctx, sc, id, true, func(ctx context.Context, t *todo.Todo) (*action.Response, error) {
				return h.svc.Undelete(ctx, sc, t)
			})
		})
	render(w, r, http.StatusOK, resp, err, todoView)
}

func (h *TodoHandler) find(ctx context.Context, sc *appctx.ServiceContext, id string, includeDeleted bool) (*action.Response, error) {
	return h.svc.Find(ctx, sc, action.FindParams{
		Where:      map[string]any{"id": id},
		ActiveOnly: !includeDeleted,
	})
}

// modify loads the todo with id and hands it to change, merging both
// envelopes.
func (h *TodoHandler) modify(
	ctx context.Context,
	sc *appctx.ServiceContext,
	id string,
	includeDeleted bool,
	change func(context.Context, *todo.Todo) (*action.Response, error),
) (*action.Response, error) {
	found, err := h.find(ctx, sc, id, includeDeleted)
	if err != nil || found.Failed() {
		return found, err
	}
	t, ok := action.DataAs[*todo.Todo](found)
	if !ok {
		return found, nil
	}

	changed, err := change(ctx, t)
	if err != nil {
		return nil, err
	}
	return action.CheckResponsesWithData([]*action.Response{found, changed}, t), nil
}
