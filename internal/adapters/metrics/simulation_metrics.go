package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// SimulationMetricsCollector handles all simulation backbone metrics
type SimulationMetricsCollector struct {
	// Completion task metrics
	completionsTotal *prometheus.CounterVec

	// Ledger metrics
	ledgerRejectionsTotal *prometheus.CounterVec

	// Recovery metrics
	recoveredTasksTotal prometheus.Counter
}

// NewSimulationMetricsCollector creates a new simulation metrics collector
func NewSimulationMetricsCollector() *SimulationMetricsCollector {
	return &SimulationMetricsCollector{
		// Completion task counter by kind (arrival, mining, refinery)
		completionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "completions_total",
				Help:      "Total number of completion tasks fired by kind and status",
			},
			[]string{"kind", "status"},
		),

		// Ledger rejection counter by ledger (inventory, ships)
		ledgerRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "ledger_rejections_total",
				Help:      "Total number of change sets rejected for insufficient quantity",
			},
			[]string{"ledger"},
		),

		// Recovery scan counter
		recoveredTasksTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "recovered_tasks_total",
				Help:      "Total number of pending tasks re-derived from entity state",
			},
		),
	}
}

// Register registers all simulation metrics with the Prometheus registry
func (c *SimulationMetricsCollector) Register() error {
	if Registry == nil {
		return nil // Metrics not enabled
	}

	collectors := []prometheus.Collector{
		c.completionsTotal,
		c.ledgerRejectionsTotal,
		c.recoveredTasksTotal,
	}

	for _, collector := range collectors {
		if err := Registry.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// RecordCompletion records a completion task firing
func (c *SimulationMetricsCollector) RecordCompletion(kind string, success bool) {
	status := "success"
	if !success {
		status = "error"
	}

	c.completionsTotal.WithLabelValues(kind, status).Inc()
}

// RecordLedgerRejection records a change set rejected for insufficiency
func (c *SimulationMetricsCollector) RecordLedgerRejection(ledger string) {
	c.ledgerRejectionsTotal.WithLabelValues(ledger).Inc()
}

// RecordRecoveredTasks records tasks re-derived by a recovery scan
func (c *SimulationMetricsCollector) RecordRecoveredTasks(count int) {
	c.recoveredTasksTotal.Add(float64(count))
}
