package app

import (
	"context"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/jsamuelsen11/go-action-service/internal/adapters/persistence/sqlstore"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/domain/todo"
	"github.com/jsamuelsen11/go-action-service/internal/domain/user"
	"github.com/jsamuelsen11/go-action-service/internal/platform/config"
	"github.com/jsamuelsen11/go-action-service/internal/platform/database"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

type services struct {
	db       *database.Client
	contexts *appctx.Factory
	users    *UserService
	todos    *TodoService
	signup   *SignupService
}

// newServices wires every service against a fresh, migrated SQLite file.
func newServices(t *testing.T) *services {
	t.Helper()
	ctx := context.Background()

	db, err := database.Open(ctx, &config.DatabaseConfig{
		Driver: database.DriverSQLite,
		DSN: "file:" + filepath.Join(t.TempDir(), "app.db") +
			"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)",
		MaxOpenConns: 4,
		Retry: config.RetryConfig{
			MaxAttempts:     1,
			InitialInterval: time.Millisecond,
			MaxInterval:     time.Millisecond,
			Multiplier:      2,
		},
		CircuitBreaker: config.CircuitBreakerConfig{
			MaxFailures:   5,
			Timeout:       time.Minute,
			HalfOpenLimit: 1,
		},
	}, discardLogger())
	if err != nil {
		t.Fatalf("database.Open() error = %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	if err := db.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() error = %v", err)
	}

	dialect := sqlstore.DialectFor(db.Driver())
	users, err := NewUserService(sqlstore.NewUserModel(db.DB(), dialect), discardLogger())
	if err != nil {
		t.Fatalf("NewUserService() error = %v", err)
	}
	todos, err := NewTodoService(sqlstore.NewTodoModel(db.DB(), dialect), discardLogger())
	if err != nil {
		t.Fatalf("NewTodoService() error = %v", err)
	}

	contexts := appctx.NewFactory(db)
	return &services{
		db:       db,
		contexts: contexts,
		users:    users,
		todos:    todos,
		signup:   NewSignupService(contexts, users, todos, discardLogger()),
	}
}

// inContext runs fn in a new service context, committing when fn returns
// nil and rolling back otherwise.
func (s *services) inContext(t *testing.T, fn func(ctx context.Context, sc *appctx.ServiceContext) error) error {
	t.Helper()
	ctx := context.Background()

	sc := s.contexts.New()
	if err := sc.Init(ctx); err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	if err := fn(ctx, sc); err != nil {
		if ferr := sc.Fail(ctx); ferr != nil {
			t.Fatalf("Fail() error = %v", ferr)
		}
		return err
	}
	if err := sc.Success(ctx); err != nil {
		t.Fatalf("Success() error = %v", err)
	}
	return nil
}

func (s *services) mustCreateUser(t *testing.T, email string) *user.User {
	t.Helper()
	u := &user.User{Email: email, Name: "Ann Example"}
	err := s.inContext(t, func(ctx context.Context, sc *appctx.ServiceContext) error {
		resp, err := s.users.Create(ctx, sc, u)
		if err != nil {
			return err
		}
		return resp.Err
	})
	if err != nil {
		t.Fatalf("creating user %s: %v", email, err)
	}
	return u
}

func newTodo(userID, title string) *todo.Todo {
	return &todo.Todo{
		UserID:      userID,
		Title:       title,
		Description: "details for " + title,
		Status:      todo.StatusPending,
		Category:    todo.CategoryWork,
	}
}
