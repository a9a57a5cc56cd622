package agent

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/cloudhut/kadminion/audit"
	"github.com/cloudhut/kadminion/kadmin"
)

// lifecycleClient is the slice of the kadmin service the reconciler drives.
// *kadmin.Service implements it, tests substitute a scripted fake.
type lifecycleClient interface {
	EnsureAdminIdentity(ctx context.Context, identity *kadmin.Identity) error
	CreatePrincipal(ctx context.Context, identity *kadmin.Identity, admin *kadmin.Identity) (bool, error)
	RequirePrincipal(ctx context.Context, identity *kadmin.Identity, admin *kadmin.Identity) error
	CreateKeytab(ctx context.Context, principal string, admin *kadmin.Identity) (string, error)
	WriteKeytabFiles(specs []kadmin.KeytabSpec) error
	TestKinit(ctx context.Context, identity *kadmin.Identity) error
}

// auditSink receives one event per lifecycle operation. A nil sink disables
// auditing.
type auditSink interface {
	Emit(ctx context.Context, event audit.Event)
}

type Service struct {
	cfg    Config
	logger *zap.Logger

	kadminSvc lifecycleClient
	auditSink auditSink

	state *reconcileState

	// Metrics
	reconcilesTotal *prometheus.CounterVec
}

func NewService(cfg Config, logger *zap.Logger, kadminSvc *kadmin.Service, auditSvc *audit.Service, metricsNamespace string) (*Service, error) {
	svc := &Service{
		cfg:       cfg,
		logger:    logger.Named("agent"),
		kadminSvc: kadminSvc,
		state:     newReconcileState(),
	}
	if auditSvc != nil {
		svc.auditSink = auditSvc
	}

	svc.reconcilesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "agent",
		Name:      "reconciles_total",
		Help:      "Number of reconcile runs, partitioned by their overall result",
	}, []string{"result"})
	for _, result := range []string{"success", "error"} {
		svc.reconcilesTotal.WithLabelValues(result).Add(0)
	}

	return svc, nil
}

// Start runs the first reconcile synchronously and then keeps reconciling on
// a ticker until the context is cancelled. With a zero interval the outcome
// of the single reconcile is returned right away.
func (s *Service) Start(ctx context.Context) error {
	err := s.reconcile(ctx)
	if s.cfg.ReconcileInterval == 0 {
		return err
	}
	if err != nil {
		s.logger.Error("reconcile failed", zap.Error(err))
	}

	go s.reconcileLoop(ctx)

	return nil
}

func (s *Service) reconcileLoop(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.ReconcileInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("stopping reconcile loop, context was cancelled")
			return
		case <-ticker.C:
			// A run must not outlive its tick interval, otherwise runs would
			// start to overlap.
			childCtx, cancel := context.WithTimeout(ctx, s.cfg.ReconcileInterval)
			if err := s.reconcile(childCtx); err != nil {
				s.logger.Error("reconcile failed", zap.Error(err))
			}
			cancel()
		}
	}
}

func (s *Service) recordReconcile(result string) {
	if s.reconcilesTotal == nil {
		return
	}
	s.reconcilesTotal.WithLabelValues(result).Inc()
}
