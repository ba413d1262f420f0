package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"

	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
)

const (
	testUserID = "6d1f0c1e-0a4b-4c55-9f0e-2f2b8f0d5a11"
	testTodoID = "a4b3c2d1-1111-4222-8333-944455556666"
)

var testTime = time.Date(2026, 2, 12, 15, 4, 5, 0, time.UTC)

// --- service mocks ---

type mockUserService struct{ mock.Mock }

func newMockUserService(t *testing.T) *mockUserService {
	t.Helper()
	m := &mockUserService{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockUserService) Create(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error) {
	args := m.Called(ctx, sc, u)
	return responseArgs(args)
}

func (m *mockUserService) Update(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error) {
	args := m.Called(ctx, sc, u)
	return responseArgs(args)
}

func (m *mockUserService) Delete(ctx context.Context, sc *appctx.ServiceContext, u *user.User, softDelete bool) (*action.Response, error) {
	args := m.Called(ctx, sc, u, softDelete)
	return responseArgs(args)
}

func (m *mockUserService) Undelete(ctx context.Context, sc *appctx.ServiceContext, u *user.User) (*action.Response, error) {
	args := m.Called(ctx, sc, u)
	return responseArgs(args)
}

func (m *mockUserService) FindByID(ctx context.Context, sc *appctx.ServiceContext, id string, includeDeleted bool) (*action.Response, error) {
	args := m.Called(ctx, sc, id, includeDeleted)
	return responseArgs(args)
}

type mockTodoService struct{ mock.Mock }

func newMockTodoService(t *testing.T) *mockTodoService {
	t.Helper()
	m := &mockTodoService{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockTodoService) Create(ctx context.Context, sc *appctx.ServiceContext, td *todo.Todo) (*action.Response, error) {
	args := m.Called(ctx, sc, td)
	return responseArgs(args)
}

func (m *mockTodoService) Update(ctx context.Context, sc *appctx.ServiceContext, td *todo.Todo) (*action.Response, error) {
	args := m.Called(ctx, sc, td)
	return responseArgs(args)
}

func (m *mockTodoService) Delete(ctx context.Context, sc *appctx.ServiceContext, td *todo.Todo, softDelete bool) (*action.Response, error) {
	args := m.Called(ctx, sc, td, softDelete)
	return responseArgs(args)
}

func (m *mockTodoService) Undelete(ctx context.Context, sc *appctx.ServiceContext, td *todo.Todo) (*action.Response, error) {
	args := m.Called(ctx, sc, td)
	return responseArgs(args)
}

func (m *mockTodoService) Find(ctx context.Context, sc *appctx.ServiceContext, params action.FindParams) (*action.Response, error) {
	args := m.Called(ctx, sc, params)
	return responseArgs(args)
}

func (m *mockTodoService) Complete(ctx context.Context, sc *appctx.ServiceContext, id string) (*action.Response, error) {
	args := m.Called(ctx, sc, id)
	return responseArgs(args)
}

func (m *mockTodoService) CreateBatch(ctx context.Context, sc *appctx.ServiceContext, todos []*todo.Todo) (*action.Response, error) {
	args := m.Called(ctx, sc, todos)
	return responseArgs(args)
}

func (m *mockTodoService) List(ctx context.Context, sc *appctx.ServiceContext, f todo.Filter) ([]*todo.Todo, error) {
	args := m.Called(ctx, sc, f)
	todos, _ := args.Get(0).([]*todo.Todo)
	return todos, args.Error(1)
}

func (m *mockTodoService) Progress(ctx context.Context, sc *appctx.ServiceContext, userID string) (int, error) {
	args := m.Called(ctx, sc, userID)
	return args.Int(0), args.Error(1)
}

type mockSignupService struct{ mock.Mock }

func newMockSignupService(t *testing.T) *mockSignupService {
	t.Helper()
	m := &mockSignupService{}
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *mockSignupService) Signup(ctx context.Context, u *user.User, starterTitles []string) (*action.Response, error) {
	args := m.Called(ctx, u, starterTitles)
	return responseArgs(args)
}

func responseArgs(args mock.Arguments) (*action.Response, error) {
	resp, _ := args.Get(0).(*action.Response)
	return resp, args.Error(1)
}

// --- fixtures ---

func validUser() *user.User {
	return &user.User{
		Record: domain.Record{ID: testUserID, CreatedAt: testTime, UpdatedAt: testTime},
		Email:  "ada@example.com",
		Name:   "Ada",
	}
}

func validTodo() *todo.Todo {
	return &todo.Todo{
		Record:      domain.Record{ID: testTodoID, CreatedAt: testTime, UpdatedAt: testTime},
		UserID:      testUserID,
		Title:       "Buy groceries",
		Description: "Milk, eggs, bread",
		Status:      todo.StatusPending,
		Category:    todo.CategoryPersonal,
	}
}

// okResponse returns a clean envelope for data carrying the metadata an
// action with no hooks would record.
func okResponse(name string, data any) *action.Response {
	resp := action.Ok(data)
	resp.MetaData.Set(name+action.MetaDataSuffix, action.ActionMetaData{
		ResultOnEntryFunctions: []any{},
		ResultOnExitFunctions:  []any{},
	})
	return resp
}

// --- context tracking ---

// outcome records how the service context of a request was finalized.
type outcome struct {
	mu    sync.Mutex
	phase string
}

func (o *outcome) set(phase string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.phase = phase
}

func (o *outcome) get() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.phase
}

// tracked attaches a fresh service context to r, as the AppContext
// middleware does, and reports whether it committed or rolled back.
func tracked(r *http.Request) (*http.Request, *outcome) {
	sc := appctx.New(nil)
	o := &outcome{}
	sc.OnSuccess(func(context.Context, appctx.HookEvent) error { o.set("success"); return nil })
	sc.OnError(func(context.Context, appctx.HookEvent) error { o.set("error"); return nil })
	return r.WithContext(appctx.WithServiceContext(r.Context(), sc)), o
}

func requireOutcome(t *testing.T, o *outcome, want string) {
	t.Helper()
	if got := o.get(); got != want {
		t.Errorf("service context outcome = %q, want %q", got, want)
	}
}

// --- request helpers ---

func withChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for k, v := range params {
		rctx.URLParams.Add(k, v)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

func jsonBody(t *testing.T, v any) *bytes.Buffer {
	t.Helper()
	buf := &bytes.Buffer{}
	if err := json.NewEncoder(buf).Encode(v); err != nil {
		t.Fatalf("failed to encode JSON body: %v", err)
	}
	return buf
}

func decodeJSON[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var result T
	if err := json.NewDecoder(rec.Body).Decode(&result); err != nil {
		t.Fatalf("failed to decode JSON response: %v", err)
	}
	return result
}

func requireStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Errorf("status = %d, want %d; body = %s", rec.Code, want, rec.Body.String())
	}
}

// envelope is the decoded shape of a successful response.
type envelope[T any] struct {
	Data T              `json:"data"`
	Meta map[string]any `json:"meta"`
}
