// Package observability provides structured logging, Prometheus metrics and
// health checking for the TaskForge server.
//
// The Logger wraps log/slog with a JSON handler so every log line is machine
// parseable. Metrics are registered on a private registry and exposed on the
// health port. The HealthChecker probes the SQL database and, when configured,
// the Redis counter store.
package observability
