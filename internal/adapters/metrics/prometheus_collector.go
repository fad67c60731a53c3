package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	// Namespace for all metrics
	namespace = "spacebo"
	// Subsystem for simulation metrics
	subsystem = "simulation"
)

var (
	// Registry is the global Prometheus registry for all metrics
	Registry *prometheus.Registry

	// globalCollector is the singleton simulation metrics collector
	// Set by SetGlobalCollector() when metrics are enabled
	globalCollector SimulationMetricsRecorder
)

// SimulationMetricsRecorder defines the interface for recording simulation
// metrics events. Used by application code so it never touches Prometheus
// types directly.
type SimulationMetricsRecorder interface {
	RecordCompletion(kind string, success bool)
	RecordLedgerRejection(ledger string)
	RecordRecoveredTasks(count int)
}

// InitRegistry initializes the Prometheus registry
// Should be called once at application startup if metrics are enabled
func InitRegistry() {
	Registry = prometheus.NewRegistry()
}

// GetRegistry returns the global Prometheus registry
// Returns nil if metrics are not initialized
func GetRegistry() *prometheus.Registry {
	return Registry
}

// IsEnabled returns true if metrics collection is enabled
func IsEnabled() bool {
	return Registry != nil
}

// SetGlobalCollector sets the global metrics collector
// This should be called after the collector is created and registered
func SetGlobalCollector(collector SimulationMetricsRecorder) {
	globalCollector = collector
}

// RecordCompletion records a completion task firing globally
func RecordCompletion(kind string, success bool) {
	if globalCollector != nil {
		globalCollector.RecordCompletion(kind, success)
	}
}

// RecordLedgerRejection records a ledger change set rejected for
// insufficiency globally
func RecordLedgerRejection(ledger string) {
	if globalCollector != nil {
		globalCollector.RecordLedgerRejection(ledger)
	}
}

// RecordRecoveredTasks records tasks re-derived by a recovery scan globally
func RecordRecoveredTasks(count int) {
	if globalCollector != nil {
		globalCollector.RecordRecoveredTasks(count)
	}
}
