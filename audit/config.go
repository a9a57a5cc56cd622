package audit

import "fmt"

// Config describes where audit events are published to. Auditing is off by
// default, the agent works fine without a Kafka cluster at hand.
type Config struct {
	Enabled bool `koanf:"enabled"`

	// General
	Brokers  []string `koanf:"brokers"`
	ClientID string   `koanf:"clientId"`
	RackID   string   `koanf:"rackId"`

	TLS  TLSConfig  `koanf:"tls"`
	SASL SASLConfig `koanf:"sasl"`

	Topic TopicConfig `koanf:"topic"`
}

func (c *Config) SetDefaults() {
	c.Enabled = false
	c.ClientID = "kadminion"

	c.TLS.SetDefaults()
	c.SASL.SetDefaults()
	c.Topic.SetDefaults()
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if len(c.Brokers) == 0 {
		return fmt.Errorf("no seed brokers specified, at least one must be configured")
	}

	err := c.TLS.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate tls config: %w", err)
	}

	err = c.SASL.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate sasl config: %w", err)
	}

	err = c.Topic.Validate()
	if err != nil {
		return fmt.Errorf("failed to validate topic config: %w", err)
	}

	return nil
}
