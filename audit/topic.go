package audit

import (
	"context"
	"fmt"
	"time"

	"github.com/twmb/franz-go/pkg/kerr"
	"github.com/twmb/franz-go/pkg/kmsg"
)

// ensureAuditTopic checks whether the audit topic exists and creates it if
// it doesn't. Partition count and assignments of an existing topic are left
// alone, audit events are low volume and do not profit from rebalancing.
func (s *Service) ensureAuditTopic(ctx context.Context) error {
	cfg := s.cfg.Topic
	meta, err := s.getTopicMetadata(ctx)
	if err != nil {
		return err
	}

	if len(meta.Topics) == 0 {
		return fmt.Errorf("unable to retrieve topic metadata, please make sure the brokers are up and/or you have the right to access them")
	}

	topicErrCode := meta.Topics[0].ErrorCode
	if topicErrCode == 0 {
		// Topic exists already
		return nil
	}
	if topicErrCode != kerr.UnknownTopicOrPartition.Code {
		return fmt.Errorf("failed to describe topic '%v': %w", cfg.Name, kerr.ErrorForCode(topicErrCode))
	}

	if len(meta.Brokers) < cfg.ReplicationFactor {
		return fmt.Errorf("cluster size is too small for the configured replication factor. "+
			"available brokers: %v, replication factor: %v", len(meta.Brokers), cfg.ReplicationFactor)
	}

	return s.createAuditTopic(ctx)
}

func (s *Service) createAuditTopic(ctx context.Context) error {
	cfg := s.cfg.Topic
	s.logger.Info(fmt.Sprintf("creating topic '%v' for audit events", cfg.Name))

	topic := kmsg.NewCreateTopicsRequestTopic()
	topic.Topic = cfg.Name
	topic.NumPartitions = int32(cfg.PartitionCount)
	topic.ReplicationFactor = int16(cfg.ReplicationFactor)
	topic.Configs = createTopicConfig(cfg)

	req := kmsg.NewCreateTopicsRequest()
	req.Topics = []kmsg.CreateTopicsRequestTopic{topic}

	res, err := req.RequestWith(ctx, s.client)
	if err != nil {
		return fmt.Errorf("failed to create topic: %w", err)
	}

	if len(res.Topics) > 0 && res.Topics[0].ErrorMessage != nil {
		return fmt.Errorf("failed to create topic: %s", *res.Topics[0].ErrorMessage)
	}

	return nil
}

func (s *Service) getTopicMetadata(ctx context.Context) (*kmsg.MetadataResponse, error) {
	topicName := s.cfg.Topic.Name
	topicReq := kmsg.NewMetadataRequestTopic()
	topicReq.Topic = &topicName

	req := kmsg.NewMetadataRequest()
	req.Topics = []kmsg.MetadataRequestTopic{topicReq}

	res, err := req.RequestWith(ctx, s.client)
	if err != nil {
		return nil, fmt.Errorf("failed to request topic metadata: %w", err)
	}

	return res, nil
}

func createTopicConfig(cfgTopic TopicConfig) []kmsg.CreateTopicsRequestTopicConfig {
	topicConfig := func(name string, value interface{}) kmsg.CreateTopicsRequestTopicConfig {
		prop := kmsg.NewCreateTopicsRequestTopicConfig()
		prop.Name = name
		valStr := fmt.Sprintf("%v", value)
		prop.Value = &valStr
		return prop
	}

	minISR := 1
	if cfgTopic.ReplicationFactor >= 3 {
		// Only with 3+ replicas does it make sense to require acks from more than one broker
		minISR = 2
	}

	// Audit records are kept for 30 days so operators can reconstruct who
	// changed which principal.
	retention := 30 * 24 * time.Hour

	return []kmsg.CreateTopicsRequestTopicConfig{
		topicConfig("cleanup.policy", "delete"),
		topicConfig("retention.ms", retention.Milliseconds()),
		topicConfig("min.insync.replicas", minISR),
	}
}
