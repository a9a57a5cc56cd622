package prometheus

import (
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/cloudhut/kadminion/agent"
)

// agentState is what the exporter reads from the agent on every scrape.
type agentState interface {
	IsReady() bool
	LastReconcileTime() time.Time
	LastSuccessTime() time.Time
	LastReconcileDuration() time.Duration
	PhaseResults() map[string]bool
	ManagedPrincipalCount() int64
	WrittenKeytabCount() int64
}

// Exporter is the Prometheus exporter that implements the prometheus.Collector interface
type Exporter struct {
	cfg      Config
	logger   *zap.Logger
	agentSvc agentState

	// Exporter metrics
	exporterUp *prometheus.Desc

	// Agent metrics
	lastReconcileTime *prometheus.Desc
	lastSuccessTime   *prometheus.Desc
	reconcileDuration *prometheus.Desc
	phaseSuccess      *prometheus.Desc
	managedPrincipals *prometheus.Desc
	writtenKeytabs    *prometheus.Desc
}

func NewExporter(cfg Config, logger *zap.Logger, agentSvc *agent.Service) (*Exporter, error) {
	return &Exporter{cfg: cfg, logger: logger, agentSvc: agentSvc}, nil
}

func (e *Exporter) InitializeMetrics() {
	e.exporterUp = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "exporter", "up"),
		"Build info about this Prometheus Exporter. Gauge value is 0 if the most recent reconcile failed.",
		nil,
		map[string]string{"version": os.Getenv("EXPORTER_VERSION")},
	)

	// Agent metrics
	e.lastReconcileTime = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "last_reconcile_timestamp_seconds"),
		"Unix timestamp of the most recent reconcile run, 0 if none ran yet",
		nil,
		nil,
	)
	e.lastSuccessTime = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "last_success_timestamp_seconds"),
		"Unix timestamp of the most recent fully successful reconcile run, 0 if none succeeded yet",
		nil,
		nil,
	)
	e.reconcileDuration = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "reconcile_duration_seconds"),
		"Duration of the most recent reconcile run",
		nil,
		nil,
	)
	e.phaseSuccess = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "phase_success"),
		"Reconcile phase info. It will report 1 if the phase succeeded in the most recent run, otherwise 0.",
		[]string{"phase"},
		nil,
	)
	e.managedPrincipals = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "managed_principals"),
		"Number of principals the agent ensured during the most recent reconcile",
		nil,
		nil,
	)
	e.writtenKeytabs = prometheus.NewDesc(
		prometheus.BuildFQName(e.cfg.Namespace, "agent", "written_keytabs"),
		"Number of keytab files the agent materialized during the most recent reconcile",
		nil,
		nil,
	)
}

// Describe implements the prometheus.Collector interface. It sends the
// super-set of all possible descriptors of metrics collected by this
// Collector to the provided channel and returns once the last descriptor
// has been sent. The sent descriptors fulfill the consistency and uniqueness
// requirements described in the Desc documentation.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- e.exporterUp
	ch <- e.lastReconcileTime
	ch <- e.lastSuccessTime
	ch <- e.reconcileDuration
	ch <- e.phaseSuccess
	ch <- e.managedPrincipals
	ch <- e.writtenKeytabs
}

func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	e.collectAgentState(ch)

	if e.agentSvc.IsReady() {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 1.0)
	} else {
		ch <- prometheus.MustNewConstMetric(e.exporterUp, prometheus.GaugeValue, 0.0)
	}
}
