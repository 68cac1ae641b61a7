// Package telemetry builds the observability collaborators the rest of
// the service is configured with: a Zap logger, Prometheus counters and
// a histogram exposed at /metrics, and an OpenTelemetry tracer provider.
package telemetry

import "go.uber.org/zap"

// NewLogger builds a Zap logger, production config for a real
// deployment and development config (human-readable, caller-annotated)
// otherwise, mirroring the teacher's `zap.NewProduction()` construction
// in cmd/server/main.go.
func NewLogger(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
