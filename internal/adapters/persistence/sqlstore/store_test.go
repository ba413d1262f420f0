package sqlstore_test

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/persistence/sqlstore"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
	"github.com/jsamuelsen11/go-action-service/internal/platform/config"
	"github.com/jsamuelsen11/go-action-service/internal/platform/database"
)

type fixture struct {
	db    *database.Client
	users *action.Service[*user.User]
	todos *action.Service[*todo.Todo]
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	cfg := &config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN: "file:" + filepath.Join(t.TempDir(), "store.db") +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		MaxOpenConns: 4,
		Retry: config.RetryConfig{
			MaxAttempts:     2,
			InitialInterval: time.Millisecond,
			MaxInterval:     5 * time.Millisecond,
			Multiplier:      2,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
	}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	db, err := database.Open(ctx, cfg, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, db.Migrate(ctx))

	// Each save gets a distinct timestamp so insertion order is observable.
	var ticks atomic.Int64
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := sqlstore.WithClock(func() time.Time {
		return start.Add(time.Duration(ticks.Add(1)) * time.Millisecond)
	})

	dialect := sqlstore.DialectFor(db.Driver())
	users, err := action.NewService(sqlstore.NewUserModel(db.DB(), dialect, clock))
	require.NoError(t, err)
	todos, err := action.NewService(sqlstore.NewTodoModel(db.DB(), dialect, clock))
	require.NoError(t, err)

	return &fixture{db: db, users: users, todos: todos}
}

// run executes fn inside a fresh service context and finalises it according
// to the returned response.
func (f *fixture) run(t *testing.T, fn func(ctx context.Context, sc *appctx.ServiceContext) *action.Response) *action.Response {
	t.Helper()
	ctx := context.Background()

	sc := appctx.New(f.db)
	require.NoError(t, sc.Init(ctx))

	resp := fn(ctx, sc)
	if resp.Failed() {
		require.NoError(t, sc.Fail(ctx))
	} else {
		require.NoError(t, sc.Success(ctx))
	}
	return resp
}

func (f *fixture) createUser(t *testing.T, email string) *user.User {
	t.Helper()
	u := &user.User{Email: email, Name: "Test User"}
	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Create(ctx, sc, u)
		require.NoError(t, err)
		return resp
	})
	require.NoError(t, resp.Err)
	return u
}

func (f *fixture) findUser(t *testing.T, where map[string]any, activeOnly bool) *action.Response {
	t.Helper()
	return f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Find(ctx, sc, action.FindParams{Where: where, ActiveOnly: activeOnly})
		require.NoError(t, err)
		return resp
	})
}

func countRows(t *testing.T, db *sql.DB, table string) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM "+table).Scan(&n))
	return n
}

func TestUsers_CreateThenFind(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	u := f.createUser(t, "ann@example.com")
	require.NotEmpty(t, u.ID)
	assert.False(t, u.CreatedAt.IsZero())
	assert.Equal(t, u.CreatedAt, u.UpdatedAt)

	resp := f.findUser(t, map[string]any{"email": "ann@example.com"}, true)
	require.NoError(t, resp.Err)

	found, ok := action.DataAs[*user.User](resp)
	require.True(t, ok)
	assert.Equal(t, u.ID, found.ID)
	assert.Equal(t, "Test User", found.Name)
	assert.True(t, found.CreatedAt.Equal(u.CreatedAt))
	assert.Nil(t, found.DeletedAt)
}

func TestUsers_InvalidEmailWritesNothing(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Create(ctx, sc, &user.User{Email: "not-an-email", Name: "Bad"})
		require.NoError(t, err)
		return resp
	})

	require.ErrorIs(t, resp.Err, domain.ErrValidation)
	assert.Equal(t, 0, countRows(t, f.db.DB(), sqlstore.UsersTable))
}

func TestUsers_SoftDeleteAndUndelete(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.createUser(t, "bob@example.com")

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Delete(ctx, sc, u, true)
		require.NoError(t, err)
		return resp
	})
	require.NoError(t, resp.Err)
	require.NotNil(t, u.DeletedAt)

	resp = f.findUser(t, map[string]any{"id": u.ID}, true)
	require.ErrorIs(t, resp.Err, domain.ErrNotFound)

	resp = f.findUser(t, map[string]any{"id": u.ID}, false)
	require.NoError(t, resp.Err)
	deleted, _ := action.DataAs[*user.User](resp)
	require.NotNil(t, deleted.DeletedAt)

	resp = f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Undelete(ctx, sc, u)
		require.NoError(t, err)
		return resp
	})
	require.NoError(t, resp.Err)
	assert.Nil(t, u.DeletedAt)

	resp = f.findUser(t, map[string]any{"id": u.ID}, true)
	require.NoError(t, resp.Err)
}

func TestUsers_SoftDeleteTwiceIsNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.createUser(t, "twice@example.com")

	for i, wantErr := range []error{nil, domain.ErrNotFound} {
		resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
			resp, err := f.users.Delete(ctx, sc, u, true)
			require.NoError(t, err)
			return resp
		})
		if wantErr == nil {
			require.NoError(t, resp.Err, "attempt %d", i)
		} else {
			require.ErrorIs(t, resp.Err, wantErr, "attempt %d", i)
		}
	}
}

func TestUsers_HardDeleteRemovesRow(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.createUser(t, "gone@example.com")

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Delete(ctx, sc, u, false)
		require.NoError(t, err)
		return resp
	})
	require.NoError(t, resp.Err)
	assert.Equal(t, 0, countRows(t, f.db.DB(), sqlstore.UsersTable))
}

func TestUsers_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.createUser(t, "dup@example.com")

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Create(ctx, sc, &user.User{Email: "dup@example.com", Name: "Again"})
		require.NoError(t, err)
		return resp
	})

	require.ErrorIs(t, resp.Err, domain.ErrConflict)
	assert.Equal(t, 1, countRows(t, f.db.DB(), sqlstore.UsersTable))
}

func TestUsers_FailedInsertRestoresRecord(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.createUser(t, "dup2@example.com")

	u := &user.User{Email: "dup2@example.com", Name: "Again"}
	f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Create(ctx, sc, u)
		require.NoError(t, err)
		return resp
	})

	assert.Empty(t, u.ID)
	assert.True(t, u.IsNew())
}

func TestUsers_UpdateUnknownIDIsNotFound(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	ghost := &user.User{Email: "ghost@example.com", Name: "Ghost"}
	ghost.ID = "00000000-0000-0000-0000-000000000000"
	ghost.CreatedAt = time.Now()

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.users.Update(ctx, sc, ghost)
		require.NoError(t, err)
		return resp
	})
	require.ErrorIs(t, resp.Err, domain.ErrNotFound)
}

func TestServiceContext_DoubleSuccessKeepsFirstCommit(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	sc := appctx.New(f.db)
	require.NoError(t, sc.Init(ctx))
	resp, err := f.users.Create(ctx, sc, &user.User{Email: "once@example.com", Name: "Once"})
	require.NoError(t, err)
	require.NoError(t, resp.Err)

	require.NoError(t, sc.Success(ctx))
	require.ErrorIs(t, sc.Success(ctx), domain.ErrAlreadyFinished)
	require.ErrorIs(t, sc.Fail(ctx), domain.ErrAlreadyFinished)

	assert.Equal(t, 1, countRows(t, f.db.DB(), sqlstore.UsersTable))
}

func TestServiceContext_FailRollsBackEveryWrite(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	ctx := context.Background()

	sc := appctx.New(f.db)
	require.NoError(t, sc.Init(ctx))
	for _, email := range []string{"a@example.com", "b@example.com"} {
		resp, err := f.users.Create(ctx, sc, &user.User{Email: email, Name: "Rolled"})
		require.NoError(t, err)
		require.NoError(t, resp.Err)
	}
	require.NoError(t, sc.Fail(ctx))

	assert.Equal(t, 0, countRows(t, f.db.DB(), sqlstore.UsersTable))
}

func TestTodos_UnknownUserIsValidationError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	resp := f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		resp, err := f.todos.Create(ctx, sc, &todo.Todo{
			UserID:      "missing",
			Title:       "Orphan",
			Description: "no owner",
			Status:      todo.StatusPending,
			Category:    todo.CategoryPersonal,
		})
		require.NoError(t, err)
		return resp
	})

	var ve *domain.ValidationError
	require.True(t, errors.As(resp.Err, &ve), "got %v", resp.Err)
	assert.Contains(t, ve.Fields, "reference")
}

func TestTodos_QueryFiltersAndOrders(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	u := f.createUser(t, "lists@example.com")

	titles := []string{"first", "second", "third"}
	f.run(t, func(ctx context.Context, sc *appctx.ServiceContext) *action.Response {
		var parts []*action.Response
		for i, title := range titles {
			status := todo.StatusPending
			if i == 1 {
				status = todo.StatusDone
			}
			resp, err := f.todos.Create(ctx, sc, &todo.Todo{
				UserID: u.ID, Title: title, Description: "d",
				Status: status, Category: todo.CategoryWork,
			})
			require.NoError(t, err)
			parts = append(parts, resp)
		}
		return f.todos.CheckResponses(parts...)
	})

	ctx := context.Background()
	all, err := f.todos.Query(action.QueryOptions{ActiveOnly: true}).
		Where(map[string]any{"user_id": u.ID}).All(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i, td := range all {
		assert.Equal(t, titles[i], td.Title)
	}

	done, err := f.todos.Query(action.QueryOptions{}).
		Where(map[string]any{"status": todo.StatusDone}).All(ctx)
	require.NoError(t, err)
	require.Len(t, done, 1)
	assert.Equal(t, "second", done[0].Title)
	assert.Equal(t, todo.CategoryWork, done[0].Category)
}

func TestQuery_UnknownColumnIsValidationError(t *testing.T) {
	t.Parallel()
	f := newFixture(t)

	_, err := f.users.Query(action.QueryOptions{}).
		Where(map[string]any{"password": "x"}).All(context.Background())
	require.ErrorIs(t, err, domain.ErrValidation)
}

func TestQuery_NilMatchesNull(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.createUser(t, "null@example.com")

	got, found, err := f.users.Query(action.QueryOptions{}).
		Where(map[string]any{"deleted_at": nil}).First(context.Background())
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "null@example.com", got.Email)
}

func TestQuery_IsImmutable(t *testing.T) {
	t.Parallel()
	f := newFixture(t)
	f.createUser(t, "keep@example.com")
	ctx := context.Background()

	base := f.users.Query(action.QueryOptions{})
	_ = base.Where(map[string]any{"email": "other@example.com"})

	all, err := base.All(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}
