package handlers

import (
	"context"
	"net/http"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/dto"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
)

// UserHandler handles HTTP requests for account CRUD.
type UserHandler struct {
	svc      UserService
	contexts *appctx.Factory
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(svc UserService, contexts *appctx.Factory) *UserHandler {
	return &UserHandler{svc: svc, contexts: contexts}
}

func userView(u *user.User) any { return dto.ToUserResponse(u) }

// CreateUser handles POST /api/v1/users.
func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.svc.Create(ctx, sc, req.ToUser())
		})
	render(w, r, http.StatusCreated, resp, err, userView)
}

// GetUser handles GET /api/v1/users/{id}. Soft-deleted accounts are
// returned only with ?include_deleted=true.
func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
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
			return h.svc.FindByID(ctx, sc, id, includeDeleted)
		})
	render(w, r, http.StatusOK, resp, err, userView)
}

// UpdateUser handles PATCH /api/v1/users/{id}.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}
	var req dto.UpdateUserRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.modify(ctx, sc, id, false, func(ctx context.Context, u *user.User) (*action.Response, error) {
				req.Apply(u)
				return h.svc.Update(ctx, sc, u)
			})
		})
	render(w, r, http.StatusOK, resp, err, userView)
}

// DeleteUser handles DELETE /api/v1/users/{id}. The account is soft
// deleted unless ?soft=false is given.
func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
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
			return h.modify(ctx, sc, id, !soft, func(ctx context.Context, u *user.User) (*action.Response, error) {
				return h.svc.Delete(ctx, sc, u, soft)
			})
		})
	render(w, r, http.StatusOK, resp, err, userView)
}

// UndeleteUser handles POST /api/v1/users/{id}/undelete.
func (h *UserHandler) UndeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		dto.WriteErrorResponse(w, r, err)
		return
	}

	resp, err := runInContext(r.Context(), serviceContext(r, h.contexts),
		func(ctx context.Context, sc *appctx.ServiceContext) (*action.Response, error) {
			return h.modify(ctx, sc, id, true, func(ctx context.Context, u *user.User) (*action.Response, error) {
				return h.svc.Undelete(ctx, sc, u)
			})
		})
	render(w, r, http.StatusOK, resp, err, userView)
}

// modify loads the account with id and hands it to change. The find and
// change envelopes are merged so the metadata of both actions is returned.
func (h *UserHandler) modify(
	ctx context.Context,
	sc *appctx.ServiceContext,
	id string,
	includeDeleted bool,
	change func(context.Context, *user.User) (*action.Response, error),
) (*action.Response, error) {
	found, err := h.svc.FindByID(ctx, sc, id, includeDeleted)
	if err != nil || found.Failed() {
		return found, err
	}
	u, ok := action.DataAs[*user.User](found)
	if !ok {
		return found, nil
	}

	changed, err := change(ctx, u)
	if err != nil {
		return nil, err
	}
	return action.CheckResponsesWithData([]*action.Response{found, changed}, u), nil
}
