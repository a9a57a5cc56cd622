package krbconf

import (
	"fmt"
	"text/template"
)

type Config struct {
	// Enabled controls whether the agent manages the krb5.conf file at all.
	Enabled bool   `koanf:"enabled"`
	Path    string `koanf:"path"`
	Owner   string `koanf:"owner"`
	Group   string `koanf:"group"`

	// Template optionally replaces the canonical layout. It is parsed as a
	// Go text template and sees the canonical rendering as {{.Default}}.
	Template string `koanf:"template"`

	// Sections beyond what the agent derives from its realm config, e.g.
	// libdefaults tuning.
	Sections []Section `koanf:"sections"`
}

func (c *Config) SetDefaults() {
	c.Path = "/etc/krb5.conf"
	c.Owner = "root"
	c.Group = "root"
}

func (c *Config) Validate() error {
	if !c.Enabled {
		return nil
	}

	if c.Path == "" {
		return fmt.Errorf("path must be set when krb5.conf management is enabled")
	}
	if c.Template != "" {
		if _, err := template.New("krb5.conf").Parse(c.Template); err != nil {
			return fmt.Errorf("failed to parse krb5.conf template: %w", err)
		}
	}

	return nil
}
