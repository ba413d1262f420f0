package app

import (
	"context"
	"errors"
	"log/slog"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// UserService runs the standard actions for accounts. Email addresses are
// normalized before every write and lookup.
type UserService struct {
	*action.Service[*user.User]
	logger *slog.Logger
}

// NewUserService creates a UserService over model.
func NewUserService(model ports.Model[*user.User], logger *slog.Logger, opts ...action.Option) (*UserService, error) {
	logger = logging.OrDiscard(logger)
	svc, err := action.NewService(model, append([]action.Option{action.WithLogger(logger)}, opts...)...)
	if err != nil {
		return nil, err
	}
	return &UserService{Service: svc, logger: logger}, nil
}

// emailKey is the service context cache key of the account lookup by email.
func emailKey(email string) string {
	return "user:email:" + user.NormalizeEmail(email)
}

// Create normalizes the email and inserts u. Once created, u is what
// ByEmail returns for its address within sc.
func (s *UserService) Create(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error) {
	if u != nil {
		u.Email = user.NormalizeEmail(u.Email)
	}
	resp, err := s.Service.Create(ctx, sc, u)
	if err == nil && !resp.Failed() {
		sc.Remember(emailKey(u.Email), u)
	}
	return resp, err
}

// Update normalizes the email and saves u.
func (s *UserService) Update(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error) {
	if u != nil {
		u.Email = user.NormalizeEmail(u.Email)
	}
	resp, err := s.Service.Update(ctx, sc, u)
	if err == nil && !resp.Failed() {
		sc.Forget(emailKey(u.Email))
	}
	return resp, err
}

// Delete removes u and drops any cached lookup of its address.
func (s *UserService) Delete(ctx context.Context, sc *appctx.ServiceContext, u *user.User, softDelete bool) (*action.Response, error) {
	resp, err := s.Service.Delete(ctx, sc, u, softDelete)
	if err == nil && !resp.Failed() {
		sc.Forget(emailKey(u.Email))
	}
	return resp, err
}

// FindByID returns the account with id. Soft-deleted accounts are only
// returned when includeDeleted is set.
func (s *UserService) FindByID(ctx context.Context, sc *appctx.ServiceContext, id string, includeDeleted bool) (*action.Response, error) {
	return s.Find(ctx, sc, action.FindParams{
		Where:      map[string]any{"id": id},
		ActiveOnly: !includeDeleted,
	})
}

// ByEmail returns a provider of the active account registered with email,
// memoised in the service context. The provider yields nil when no account
// uses the address.
func (s *UserService) ByEmail(sc *appctx.ServiceContext, email string) *appctx.DataProvider[*user.User] {
	return appctx.NewDataProvider(emailKey(email), func(ctx context.Context) (*user.User, error) {
		resp, err := s.FindByEmail(ctx, sc, email)
		if err != nil {
			return nil, err
		}
		if errors.Is(resp.Err, domain.ErrNotFound) {
			return nil, nil
		}
		if resp.Failed() {
			return nil, resp.Err
		}
		u, _ := action.DataAs[*user.User](resp)
		return u, nil
	})
}

// FindByEmail returns the active account registered with email.
func (s *UserService) FindByEmail(ctx context.Context, sc *appctx.ServiceContext, email string) (*action.Response, error) {
	return s.Find(ctx, sc, action.FindParams{
		Where:      map[string]any{"email": user.NormalizeEmail(email)},
		ActiveOnly: true,
	})
}
