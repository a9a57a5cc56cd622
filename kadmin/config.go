package kadmin

import (
	"fmt"
	"time"
)

type Config struct {
	// Binary names or absolute paths of the MIT Kerberos client tools.
	KadminPath      string `koanf:"kadminPath"`
	KadminLocalPath string `koanf:"kadminLocalPath"`
	KinitPath       string `koanf:"kinitPath"`
	KdestroyPath    string `koanf:"kdestroyPath"`

	// Timeout applies to every single tool invocation.
	Timeout time.Duration `koanf:"timeout"`

	// ExistsCacheTTL controls how long a principal existence lookup is served
	// from cache. Zero disables caching.
	ExistsCacheTTL time.Duration `koanf:"existsCacheTtl"`
}

func (c *Config) SetDefaults() {
	c.KadminPath = "kadmin"
	c.KadminLocalPath = "kadmin.local"
	c.KinitPath = "kinit"
	c.KdestroyPath = "kdestroy"
	c.Timeout = 30 * time.Second
	c.ExistsCacheTTL = 30 * time.Second
}

func (c *Config) Validate() error {
	if c.KadminPath == "" || c.KadminLocalPath == "" {
		return fmt.Errorf("kadmin and kadmin.local paths must both be set")
	}
	if c.KinitPath == "" || c.KdestroyPath == "" {
		return fmt.Errorf("kinit and kdestroy paths must both be set")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got '%v'", c.Timeout)
	}
	if c.ExistsCacheTTL < 0 {
		return fmt.Errorf("existsCacheTtl must not be negative, got '%v'", c.ExistsCacheTTL)
	}

	return nil
}
