// Package database provides the SQL database client: driver selection,
// connection pooling, a circuit breaker and retry around transaction begins,
// OpenTelemetry tracing of transactions, embedded schema migrations, and a
// health check.
//
// Two drivers are supported through database/sql: "sqlite"
// (modernc.org/sqlite, pure Go) and "pgx" (github.com/jackc/pgx/v5/stdlib).
//
//	db, err := database.Open(ctx, &cfg.Database, logger)
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil { ... }
//
//	tx, err := db.BeginTx(ctx) // ports.Tx, traced, committed by the caller
package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib" // register pgx as a database/sql driver
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	_ "modernc.org/sqlite" // register sqlite as a database/sql driver

	"github.com/jsamuelsen11/go-action-service/internal/platform/config"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// Supported driver names.
const (
	DriverSQLite = "sqlite"
	DriverPgx    = "pgx"
)

// ErrUnsupportedDriver is returned by Open for an unknown driver name.
var ErrUnsupportedDriver = errors.New("database: unsupported driver")

// retryConfig holds the retry policy values extracted from config.RetryConfig
// using unexported types to avoid leaking the config package through the API.
type retryConfig struct {
	maxAttempts     int
	initialInterval time.Duration
	maxInterval     time.Duration
	multiplier      float64
}

// Client wraps a *sql.DB. It opens transactions through a circuit breaker
// with retry, and satisfies ports.TxBeginner and ports.HealthChecker.
type Client struct {
	db       *sql.DB
	driver   string
	breaker  *gobreaker.CircuitBreaker[*sql.Tx]
	retryCfg retryConfig
	tracer   trace.Tracer
	logger   *slog.Logger
}

var _ ports.TxBeginner = (*Client)(nil)

// Open connects to the configured database, applies the pool settings and
// pings it. It does not run migrations; call Migrate for that.
func Open(ctx context.Context, cfg *config.DatabaseConfig, logger *slog.Logger) (*Client, error) {
	switch cfg.Driver {
	case DriverSQLite, DriverPgx:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, cfg.Driver)
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("opening %s database: %w", cfg.Driver, err)
	}

	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("pinging %s database: %w", cfg.Driver, err)
	}

	return newClient(db, cfg, logger), nil
}

func newClient(db *sql.DB, cfg *config.DatabaseConfig, logger *slog.Logger) *Client {
	cb := gobreaker.NewCircuitBreaker[*sql.Tx](gobreaker.Settings{
		Name:        "database",
		MaxRequests: toUint32(cfg.CircuitBreaker.HalfOpenLimit),
		Timeout:     cfg.CircuitBreaker.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return int(counts.ConsecutiveFailures) >= cfg.CircuitBreaker.MaxFailures
		},
		// A caller giving up is not a database failure.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state change",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})

	return &Client{
		db:      db,
		driver:  cfg.Driver,
		breaker: cb,
		retryCfg: retryConfig{
			maxAttempts:     cfg.Retry.MaxAttempts,
			initialInterval: cfg.Retry.InitialInterval,
			maxInterval:     cfg.Retry.MaxInterval,
			multiplier:      cfg.Retry.Multiplier,
		},
		tracer: otel.GetTracerProvider().Tracer("database"),
		logger: logger,
	}
}

// DB returns the underlying pool for non-transactional reads.
func (c *Client) DB() *sql.DB { return c.db }

// Driver returns the configured driver name.
func (c *Client) Driver() string { return c.driver }

// Close closes the pool.
func (c *Client) Close() error { return c.db.Close() }

// BeginTx opens a transaction through the circuit breaker, retrying
// transient failures with exponential backoff. The returned transaction
// carries a span that ends when it is committed or rolled back.
func (c *Client) BeginTx(ctx context.Context) (ports.Tx, error) {
	spanCtx, span := c.tracer.Start(ctx, "db.transaction",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attribute.String("db.system", c.system())),
	)

	tx, err := c.breaker.Execute(func() (*sql.Tx, error) {
		return c.beginWithRetry(spanCtx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "begin")
		span.End()
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}

	return &tracedTx{Tx: tx, span: span}, nil
}

// Name identifies the database in health reports.
func (c *Client) Name() string {
	return "database"
}

// HealthCheck reports the circuit breaker state and, when closed, pings the
// database.
func (c *Client) HealthCheck(ctx context.Context) error {
	state := c.breaker.State()
	switch state {
	case gobreaker.StateClosed:
		if err := c.db.PingContext(ctx); err != nil {
			return fmt.Errorf("database: ping failed: %w", err)
		}
		return nil
	case gobreaker.StateHalfOpen:
		return errors.New("database: degraded (circuit breaker half-open)")
	case gobreaker.StateOpen:
		return errors.New("database: failing (circuit breaker open)")
	default:
		return fmt.Errorf("database: unknown circuit breaker state %v", state)
	}
}

func (c *Client) system() string {
	if c.driver == DriverPgx {
		return "postgresql"
	}
	return "sqlite"
}

// toUint32 safely converts a non-negative int to uint32, clamping at the
// uint32 maximum. Negative values are treated as zero.
func toUint32(v int) uint32 {
	if v <= 0 {
		return 0
	}
	if v > math.MaxUint32 {
		return math.MaxUint32
	}
	return uint32(v)
}
