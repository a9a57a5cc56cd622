package audit

import "fmt"

// TopicConfig is the topic audit events are produced to. The topic is
// created on startup when the cluster does not have it yet.
type TopicConfig struct {
	Name              string `koanf:"name"`
	PartitionCount    int    `koanf:"partitionCount"`
	ReplicationFactor int    `koanf:"replicationFactor"`
}

func (c *TopicConfig) SetDefaults() {
	c.Name = "kadminion-audit"
	c.PartitionCount = 1
	c.ReplicationFactor = 1
}

func (c *TopicConfig) Validate() error {
	if c.Name == "" {
		return fmt.Errorf("topic name must be set")
	}

	if c.PartitionCount < 1 {
		return fmt.Errorf("failed to parse partitionCount, it should be at least 1, retrieved value %v", c.PartitionCount)
	}

	if c.ReplicationFactor < 1 {
		return fmt.Errorf("failed to parse replicationFactor, it should be at least 1, retrieved value %v", c.ReplicationFactor)
	}

	return nil
}
