package metrics

import "github.com/prometheus/client_golang/prometheus"

// DispatchMetrics tracks assignment engine outcomes per run.
type DispatchMetrics struct {
	assigned  *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	conflicts prometheus.Counter
	flagged   *prometheus.CounterVec
}

// NewDispatchMetrics registers the dispatch counters on the provided registerer.
func NewDispatchMetrics(reg prometheus.Registerer) *DispatchMetrics {
	if reg == nil {
		return &DispatchMetrics{}
	}
	assigned := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_orders_assigned_total",
		Help: "Orders assigned to a brigade, by brigade type.",
	}, []string{"brigade_type"})
	skipped := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "dispatch_orders_skipped_total",
		Help: "Orders left unassigned, by reason.",
	}, []string{"reason"})
	conflicts := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "dispatch_snapshot_conflicts_total",
		Help: "Capacity snapshot conflicts detected during batch commits.",
	})
	flagged := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "closure_audit_flags_total",
		Help: "Closure audit flags raised, by flag.",
	}, []string{"flag"})
	reg.MustRegister(assigned, skipped, conflicts, flagged)
	return &DispatchMetrics{
		assigned:  assigned,
		skipped:   skipped,
		conflicts: conflicts,
		flagged:   flagged,
	}
}

func (d *DispatchMetrics) IncAssigned(brigadeType string) {
	if d == nil || d.assigned == nil {
		return
	}
	d.assigned.WithLabelValues(normalizeLabel(brigadeType)).Inc()
}

func (d *DispatchMetrics) IncSkipped(reason string) {
	if d == nil || d.skipped == nil {
		return
	}
	d.skipped.WithLabelValues(normalizeLabel(reason)).Inc()
}

func (d *DispatchMetrics) IncConflict() {
	if d == nil || d.conflicts == nil {
		return
	}
	d.conflicts.Inc()
}

func (d *DispatchMetrics) IncFlag(flag string) {
	if d == nil || d.flagged == nil {
		return
	}
	d.flagged.WithLabelValues(normalizeLabel(flag)).Inc()
}
