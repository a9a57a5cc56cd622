package kadmin

import (
	"fmt"

	"github.com/jellydator/ttlcache/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/cloudhut/kadminion/logging"
)

// Service drives the MIT Kerberos admin tools. All lifecycle operations go
// through it so that command execution, redaction and metrics stay in one
// place.
type Service struct {
	cfg      Config
	logger   *zap.Logger
	redactor *logging.Redactor

	runner CommandRunner

	// requestGroup deduplicates concurrent existence queries for the same principal
	requestGroup *singleflight.Group
	existsCache  *ttlcache.Cache

	invocationsTotal *prometheus.CounterVec
}

func NewService(cfg Config, logger *zap.Logger, redactor *logging.Redactor, metricsNamespace string) (*Service, error) {
	if redactor == nil {
		return nil, fmt.Errorf("a redactor is required so that credentials never reach the log")
	}

	existsCache := ttlcache.NewCache()
	existsCache.SkipTTLExtensionOnHit(true)
	if cfg.ExistsCacheTTL > 0 {
		if err := existsCache.SetTTL(cfg.ExistsCacheTTL); err != nil {
			return nil, fmt.Errorf("failed to configure principal cache: %w", err)
		}
	}

	invocationsTotal := promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: metricsNamespace,
		Subsystem: "kadmin",
		Name:      "invocations_total",
		Help:      "Total number of Kerberos tool invocations partitioned by operation and result.",
	}, []string{"operation", "result"})

	return &Service{
		cfg:      cfg,
		logger:   logger.Named("kadmin"),
		redactor: redactor,

		runner: execRunner{},

		requestGroup: &singleflight.Group{},
		existsCache:  existsCache,

		invocationsTotal: invocationsTotal,
	}, nil
}

// Close releases the existence cache's janitor goroutine.
func (s *Service) Close() {
	_ = s.existsCache.Close()
}

func (s *Service) recordInvocation(operation string, exitCode int, err error) {
	if s.invocationsTotal == nil {
		return
	}
	result := "success"
	if err != nil || exitCode != 0 {
		result = "failure"
	}
	s.invocationsTotal.WithLabelValues(operation, result).Inc()
}
