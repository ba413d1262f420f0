package ports

import "context"

// HealthChecker is implemented by any component that can report its health.
// The database client is the main implementation: it pings the pool and
// fails while the breaker guarding transaction starts is open.
type HealthChecker interface {
	// Name returns a human-readable identifier for this component
	// (e.g., "database", "replica").
	Name() string

	// HealthCheck performs the health check and returns nil if healthy,
	// or an error describing the failure.
	// Implementations should respect context cancellation and deadlines.
	HealthCheck(ctx context.Context) error
}

// HealthRegistry manages registration and execution of health checkers.
// Used by the readiness endpoint handler to determine service readiness.
type HealthRegistry interface {
	// Register adds a HealthChecker to the registry.
	Register(checker HealthChecker)

	// CheckAll executes all registered health checks and returns results
	// keyed by checker name. Nil values indicate healthy components. Checks
	// may run concurrently and share ctx's deadline.
	CheckAll(ctx context.Context) map[string]error
}
