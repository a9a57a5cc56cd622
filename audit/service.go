package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kgo"
	"github.com/twmb/franz-go/pkg/kmsg"
	"github.com/twmb/franz-go/pkg/kversion"
	"go.uber.org/zap"

	"github.com/cloudhut/kadminion/logging"
)

// Service publishes an audit event to a Kafka topic for every lifecycle
// operation the agent performs. Publishing is fire and forget, a lost audit
// event must never fail or delay the operation it describes.
type Service struct {
	// General
	cfg      Config
	logger   *zap.Logger
	redactor *logging.Redactor

	client *kgo.Client

	// Metrics
	eventsProduced prometheus.Counter
	eventsAcked    prometheus.Counter
	eventsFailed   prometheus.Counter
}

// NewService creates a new audit service including a Kafka client that is
// configured from the given audit config.
func NewService(cfg Config, logger *zap.Logger, redactor *logging.Redactor, metricsNamespace string) (*Service, error) {
	kgoOpts, err := NewKgoConfig(cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create a valid kafka client config: %w", err)
	}

	// Audit events should survive the loss of a single broker, hence require
	// acknowledgements from all in-sync replicas.
	kgoOpts = append(kgoOpts,
		kgo.RequiredAcks(kgo.AllISRAcks()),
		kgo.ProduceRequestTimeout(3*time.Second),
		kgo.WithHooks(newAuditClientHooks(logger)))

	client, err := kgo.NewClient(kgoOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka client: %w", err)
	}

	svc := &Service{
		cfg:      cfg,
		logger:   logger.Named("audit"),
		redactor: redactor,
		client:   client,
	}

	makeCounter := func(name string, help string) prometheus.Counter {
		return promauto.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Subsystem: "audit",
			Name:      name,
			Help:      help,
		})
	}
	svc.eventsProduced = makeCounter("events_produced_total", "Number of audit events that have been handed to the kafka producer")
	svc.eventsAcked = makeCounter("events_acked_total", "Number of audit events kafka acknowledged as produced")
	svc.eventsFailed = makeCounter("events_failed_total", "Number of audit events that could not be serialized or produced")

	return svc, nil
}

// Start connects to the configured cluster and makes sure the audit topic
// exists. It must be called before the first Emit.
func (s *Service) Start(ctx context.Context) error {
	err := s.testConnection(ctx)
	if err != nil {
		return fmt.Errorf("failed to test connectivity to kafka cluster: %w", err)
	}

	err = s.ensureAuditTopic(ctx)
	if err != nil {
		return fmt.Errorf("could not validate audit topic: %w", err)
	}

	return nil
}

// Emit publishes the given event. Events are produced asynchronously and
// errors are only counted and logged so that a broken audit pipeline never
// blocks the lifecycle operation it describes.
func (s *Service) Emit(ctx context.Context, event Event) {
	event.stamp()
	if s.redactor != nil {
		// The detail may quote a kadmin query including credentials
		event.Detail = s.redactor.Filter(event.Detail)
	}

	value, err := json.Marshal(event)
	if err != nil {
		s.eventsFailed.Inc()
		s.logger.Error("failed to serialize audit event", zap.Error(err))
		return
	}

	record := &kgo.Record{
		Topic: s.cfg.Topic.Name,
		Key:   []byte(event.Principal),
		Value: value,
	}

	s.eventsProduced.Inc()
	s.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			s.eventsFailed.Inc()
			s.logger.Error("failed to produce audit event",
				zap.String("action", event.Action),
				zap.Error(err))
			return
		}
		s.eventsAcked.Inc()
	})
}

// Close flushes all buffered events and then tears the Kafka client down.
func (s *Service) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 6*time.Second)
	defer cancel()

	if err := s.client.Flush(ctx); err != nil {
		s.logger.Warn("failed to flush pending audit events", zap.Error(err))
	}
	s.client.Close()
}

// testConnection tries to fetch broker metadata and prints some information
// if the connection succeeds. An error will be returned if connecting fails.
func (s *Service) testConnection(ctx context.Context) error {
	s.logger.Info("connecting to kafka seed brokers, trying to fetch cluster metadata",
		zap.String("seed_brokers", strings.Join(s.cfg.Brokers, ",")))

	req := kmsg.NewMetadataRequest()
	res, err := req.RequestWith(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to request metadata: %w", err)
	}

	// Request versions in order to guess the Kafka cluster version
	versionsReq := kmsg.NewApiVersionsRequest()
	versionsRes, err := versionsReq.RequestWith(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to request api versions: %w", err)
	}
	err = kerr.ErrorForCode(versionsRes.ErrorCode)
	if err != nil {
		return fmt.Errorf("failed to request api versions. Inner kafka error: %w", err)
	}
	versions := kversion.FromApiVersionsResponse(versionsRes)

	s.logger.Info("successfully connected to kafka cluster",
		zap.Int("advertised_broker_count", len(res.Brokers)),
		zap.Int("topic_count", len(res.Topics)),
		zap.Int32("controller_id", res.ControllerID),
		zap.String("kafka_version", versions.VersionGuess()))

	return nil
}
