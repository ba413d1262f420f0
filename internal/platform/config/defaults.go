package config

const (
	defaultServerPort = 8080

	defaultRetryMaxAttempts = 3
	defaultRetryMultiplier  = 2.0

	defaultCircuitBreakerMaxFailures = 5
	defaultCircuitBreakerHalfOpen    = 1

	defaultDBMaxOpenConns = 10
	defaultDBMaxIdleConns = 5
)

// defaults returns the default configuration values.
// These are loaded first and can be overridden by base.yaml, profile YAML, and env vars.
func defaults() map[string]any {
	return map[string]any{
		"server.host":          "0.0.0.0",
		"server.port":          defaultServerPort,
		"server.read_timeout":  "5s",
		"server.write_timeout": "10s",
		"server.idle_timeout":  "120s",

		"log.level":  "info",
		"log.format": "json",

		"database.driver":                          "sqlite",
		"database.dsn":                             "file:action-service.db?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)",
		"database.max_open_conns":                  defaultDBMaxOpenConns,
		"database.max_idle_conns":                  defaultDBMaxIdleConns,
		"database.conn_max_lifetime":               "30m",
		"database.migrate":                         true,
		"database.retry.max_attempts":              defaultRetryMaxAttempts,
		"database.retry.initial_interval":          "50ms",
		"database.retry.max_interval":              "2s",
		"database.retry.multiplier":                defaultRetryMultiplier,
		"database.circuit_breaker.max_failures":    defaultCircuitBreakerMaxFailures,
		"database.circuit_breaker.timeout":         "30s",
		"database.circuit_breaker.half_open_limit": defaultCircuitBreakerHalfOpen,

		"actions.debug": false,

		"telemetry.enabled":      false,
		"telemetry.exporter":     "stdout",
		"telemetry.endpoint":     "",
		"telemetry.service_name": "go-action-service",
	}
}
