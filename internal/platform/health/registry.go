// Package health provides a thread-safe health check registry for tracking
// the health of the service's dependencies. The registry is used by the
// readiness endpoint to determine whether the service can accept traffic.
package health

import (
	"context"
	"slices"
	"sync"

	"github.com/jsamuelsen11/go-action-service/internal/app/fanout"
	"github.com/jsamuelsen11/go-action-service/internal/ports"
)

// Compile-time interface check.
var _ ports.HealthRegistry = (*Registry)(nil)

// maxConcurrentChecks bounds how many checks one CheckAll runs at a time.
const maxConcurrentChecks = 8

// Registry is a thread-safe implementation of [ports.HealthRegistry].
// Components that implement [ports.HealthChecker] are registered at startup
// and checked on each readiness request.
type Registry struct {
	mu       sync.RWMutex
	checkers []ports.HealthChecker
}

// New creates an empty health check registry.
func New() *Registry {
	return &Registry{}
}

// Register adds a health checker to the registry. Safe for concurrent use.
func (r *Registry) Register(checker ports.HealthChecker) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.checkers = append(r.checkers, checker)
}

// CheckAll runs the registered checks concurrently, at most
// maxConcurrentChecks at a time, and returns the results keyed by checker
// name. Nil values indicate healthy components. A panicking check, or one
// still waiting for a slot when ctx is done, is reported as unhealthy. When
// two checkers share a name the one registered last wins.
func (r *Registry) CheckAll(ctx context.Context) map[string]error {
	r.mu.RLock()
	checkers := slices.Clone(r.checkers)
	r.mu.RUnlock()

	checked := fanout.Run(ctx, maxConcurrentChecks, checkers, func(ctx context.Context, c ports.HealthChecker) (struct{}, error) {
		return struct{}{}, c.HealthCheck(ctx)
	})

	results := make(map[string]error, len(checkers))
	for i, res := range checked {
		results[checkers[i].Name()] = res.Err
	}
	return results
}
