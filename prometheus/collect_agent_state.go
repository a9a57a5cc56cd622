package prometheus

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// collectAgentState turns the agent's reconcile state into metrics. The state
// is plain in-memory data, so unlike a remote scrape this can not fail.
func (e *Exporter) collectAgentState(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(
		e.lastReconcileTime,
		prometheus.GaugeValue,
		unixSeconds(e.agentSvc.LastReconcileTime()),
	)
	ch <- prometheus.MustNewConstMetric(
		e.lastSuccessTime,
		prometheus.GaugeValue,
		unixSeconds(e.agentSvc.LastSuccessTime()),
	)
	ch <- prometheus.MustNewConstMetric(
		e.reconcileDuration,
		prometheus.GaugeValue,
		e.agentSvc.LastReconcileDuration().Seconds(),
	)
	ch <- prometheus.MustNewConstMetric(
		e.managedPrincipals,
		prometheus.GaugeValue,
		float64(e.agentSvc.ManagedPrincipalCount()),
	)
	ch <- prometheus.MustNewConstMetric(
		e.writtenKeytabs,
		prometheus.GaugeValue,
		float64(e.agentSvc.WrittenKeytabCount()),
	)

	for phase, ok := range e.agentSvc.PhaseResults() {
		value := 0.0
		if ok {
			value = 1.0
		}
		ch <- prometheus.MustNewConstMetric(e.phaseSuccess, prometheus.GaugeValue, value, phase)
	}
}

func unixSeconds(t time.Time) float64 {
	if t.IsZero() {
		return 0
	}
	return float64(t.Unix())
}
