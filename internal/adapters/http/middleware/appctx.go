package middleware

import (
	"log/slog"
	"net/http"

	appctx "github.com/jsamuelsen11/go-action-service/internal/app/context"
	"github.com/jsamuelsen11/go-action-service/internal/platform/logging"
)

// AppContext returns middleware that creates a ServiceContext for each
// request and stores it in the request context. Handlers retrieve it via
// appctx.FromContext, initialize it, and finalize it with Success or Fail.
//
// A context left active when the handler returns (a handler bug, or a panic
// caught further out) is rolled back here so its transaction never leaks.
//
// This middleware should be registered after CorrelationID and Logging so
// that the rollback warning carries the request's identifiers.
func AppContext(contexts *appctx.Factory) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sc := contexts.New()
			ctx := appctx.WithServiceContext(r.Context(), sc)

			defer func() {
				if sc.State() != appctx.StateActive {
					return
				}
				logger := logging.FromContext(ctx)
				logger.WarnContext(ctx, "service context left active, rolling back",
					logging.ServiceContextID(sc.ID()),
				)
				if err := sc.Fail(ctx); err != nil {
					logger.ErrorContext(ctx, "rolling back abandoned service context",
						slog.Any("error", err),
					)
				}
			}()

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
