// Package main is the entry point for the service. It wires all dependencies
// using samber/do v2, migrates the database, starts the HTTP server, and
// handles graceful shutdown on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	nethttp "net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/samber/do/v2"

	adapthttp "github.com/jsamuelsen11/go-action-service/internal/adapters/http"
	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/handlers"
	"github.com/jsamuelsen11/go-action-service/internal/adapters/http/middleware"
	"github.com/jsamuelsen11/go-action-service/internal/adapters/persistence/sqlstore"

	"github.com/jsamuelsen11/go-action-service/internal/app"
	"github.com/jsamuelsen11/go-action-service/internal/app/action"
	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/platform/config"
	"github.com/jsamuelsen11/go-action-service/internal/platform/database"
	"github.com/jsamuelsen11/go-action-service/internal/platform/health"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
	"github.com/jsamuelsen11/go-action-service/internal/platform/telemetry"
	"github.com/jsamuelsen11/go-action-service/internal/ports"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

const (
	serverShutdownTimeout = 15 * time.Second
	otelShutdownTimeout   = 5 * time.Second
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	profile, err := config.ProfileFromEnv()
	if err != nil {
		return err
	}

	// Bootstrap: config, logger, telemetry.
	cfg, err := config.Load(profile)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}

	logger := logging.New(cfg.Log.Level, cfg.Log.Format, os.Stderr)
	slog.SetDefault(logger)

	ctx := context.Background()
	otel, err := initTelemetry(ctx, cfg)
	if err != nil {
		return fmt.Errorf("initializing telemetry: %w", err)
	}
	defer flushTelemetry(otel, logger)

	// Database: open, then migrate before anything can serve traffic.
	db, err := database.Open(ctx, &cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer func() {
		if err := db.Close(); err != nil {
			logger.Error("closing database", slog.Any("error", err))
		}
	}()

	if cfg.Database.Migrate {
		if err := db.Migrate(ctx); err != nil {
			return fmt.Errorf("migrating database: %w", err)
		}
	}

	// DI container.
	injector := do.New()

	do.ProvideValue(injector, cfg)
	do.ProvideValue(injector, logger)
	do.ProvideValue(injector, otel.metrics)
	do.ProvideValue(injector, db)

	registerDependencies(injector, cfg, logger)

	// Resolve the server (eagerly wires the full graph).
	server, err := do.Invoke[*adapthttp.Server](injector)
	if err != nil {
		return fmt.Errorf("resolving server: %w", err)
	}

	// Register health checkers after the graph is wired.
	registry := do.MustInvoke[ports.HealthRegistry](injector)
	registry.Register(db)

	// Serve until SIGINT/SIGTERM, then drain in-flight requests.
	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Run(sigCtx, serverShutdownTimeout); err != nil {
		return fmt.Errorf("server failed: %w", err)
	}

	logger.Info("shutdown complete")
	return nil
}

// flushTelemetry flushes both providers within otelShutdownTimeout.
func flushTelemetry(otel *otelProviders, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), otelShutdownTimeout)
	defer cancel()

	if err := otel.Shutdown(ctx); err != nil {
		logger.Error("telemetry shutdown error", slog.Any("error", err))
	}
}

// otelProviders bundles OpenTelemetry provider lifecycle. All fields are nil
// when telemetry is disabled.
type otelProviders struct {
	tracer  *sdktrace.TracerProvider
	meter   *sdkmetric.MeterProvider
	metrics *telemetry.Metrics
}

// Shutdown flushes both providers. Nil-safe.
func (o *otelProviders) Shutdown(ctx context.Context) error {
	var errs []error
	if o.tracer != nil {
		if err := o.tracer.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer shutdown: %w", err))
		}
	}
	if o.meter != nil {
		if err := o.meter.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter shutdown: %w", err))
		}
	}
	return errors.Join(errs...)
}

func initTelemetry(ctx context.Context, cfg *config.Config) (*otelProviders, error) {
	if !cfg.Telemetry.Enabled {
		return &otelProviders{}, nil
	}

	tp, err := telemetry.InitTracer(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		return nil, fmt.Errorf("init tracer: %w", err)
	}

	mp, err := telemetry.InitMeter(ctx,
		cfg.Telemetry.ServiceName,
		cfg.Telemetry.Exporter,
		cfg.Telemetry.Endpoint,
	)
	if err != nil {
		_ = tp.Shutdown(ctx)
		return nil, fmt.Errorf("init meter: %w", err)
	}

	metrics, err := telemetry.NewMetrics(mp, cfg.Telemetry.ServiceName)
	if err != nil {
		_ = tp.Shutdown(ctx)
		_ = mp.Shutdown(ctx)
		return nil, fmt.Errorf("creating metrics: %w", err)
	}

	return &otelProviders{
		tracer:  tp,
		meter:   mp,
		metrics: metrics,
	}, nil
}

func registerDependencies(injector *do.RootScope, cfg *config.Config, logger *slog.Logger) {
	do.Provide(injector, func(i do.Injector) (*appctx.Factory, error) {
		db := do.MustInvoke[*database.Client](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		return appctx.NewFactory(db, appctx.WithLogger(logger), appctx.WithMetrics(metrics)), nil
	})

	do.Provide(injector, func(i do.Injector) (*app.UserService, error) {
		db := do.MustInvoke[*database.Client](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		model := sqlstore.NewUserModel(db.DB(), sqlstore.DialectFor(db.Driver()))
		return app.NewUserService(model, logger,
			action.WithDebug(cfg.Actions.Debug),
			action.WithMetrics(metrics),
		)
	})

	do.Provide(injector, func(i do.Injector) (*app.TodoService, error) {
		db := do.MustInvoke[*database.Client](i)
		metrics := do.MustInvoke[*telemetry.Metrics](i)
		model := sqlstore.NewTodoModel(db.DB(), sqlstore.DialectFor(db.Driver()))
		return app.NewTodoService(model, logger,
			action.WithDebug(cfg.Actions.Debug),
			action.WithMetrics(metrics),
		)
	})

	do.Provide(injector, func(i do.Injector) (*app.SignupService, error) {
		return app.NewSignupService(
			do.MustInvoke[*appctx.Factory](i),
			do.MustInvoke[*app.UserService](i),
			do.MustInvoke[*app.TodoService](i),
			logger,
		), nil
	})

	do.Provide(injector, func(_ do.Injector) (ports.HealthRegistry, error) {
		return health.New(), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.SignupHandler, error) {
		return handlers.NewSignupHandler(do.MustInvoke[*app.SignupService](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.UserHandler, error) {
		svc := do.MustInvoke[*app.UserService](i)
		return handlers.NewUserHandler(svc, do.MustInvoke[*appctx.Factory](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.TodoHandler, error) {
		svc := do.MustInvoke[*app.TodoService](i)
		return handlers.NewTodoHandler(svc, do.MustInvoke[*appctx.Factory](i)), nil
	})

	do.Provide(injector, func(i do.Injector) (*handlers.HealthHandler, error) {
		registry := do.MustInvoke[ports.HealthRegistry](i)
		return handlers.NewHealthHandler(registry), nil
	})

	do.Provide(injector, func(i do.Injector) (nethttp.Handler, error) {
		metrics := do.MustInvoke[*telemetry.Metrics](i)

		return adapthttp.NewRouter(
			do.MustInvoke[*handlers.SignupHandler](i),
			do.MustInvoke[*handlers.UserHandler](i),
			do.MustInvoke[*handlers.TodoHandler](i),
			do.MustInvoke[*handlers.HealthHandler](i),
			middleware.Recovery(logger),
			middleware.RequestID(),
			middleware.CorrelationID(),
			middleware.OpenTelemetry(metrics),
			middleware.Logging(logger),
			chimw.Timeout(cfg.Server.WriteTimeout),
			middleware.AppContext(do.MustInvoke[*appctx.Factory](i)),
		), nil
	})

	do.Provide(injector, func(i do.Injector) (*adapthttp.Server, error) {
		handler := do.MustInvoke[nethttp.Handler](i)
		return adapthttp.NewServer(cfg.Server, handler, logger), nil
	})
}
