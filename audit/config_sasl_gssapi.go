package audit

import "fmt"

const (
	GSSAPIAuthTypeUserAuth   = "USER_AUTH"
	GSSAPIAuthTypeKeytabAuth = "KEYTAB_AUTH"
)

// SASLGSSAPIConfig represents the Kafka Kerberos config
type SASLGSSAPIConfig struct {
	AuthType           string `koanf:"authType"`
	KeyTabPath         string `koanf:"keyTabPath"`
	KerberosConfigPath string `koanf:"kerberosConfigPath"`
	ServiceName        string `koanf:"serviceName"`
	Username           string `koanf:"username"`
	Password           string `koanf:"password"`
	Realm              string `koanf:"realm"`
	EnableFast         bool   `koanf:"enableFast"`
}

func (c *SASLGSSAPIConfig) SetDefaults() {
	c.AuthType = GSSAPIAuthTypeUserAuth
	c.ServiceName = "kafka"
	c.EnableFast = true
}

func (c *SASLGSSAPIConfig) Validate() error {
	switch c.AuthType {
	case GSSAPIAuthTypeUserAuth, GSSAPIAuthTypeKeytabAuth:
	default:
		return fmt.Errorf("given gssapi auth type '%v' is invalid", c.AuthType)
	}

	if c.KerberosConfigPath == "" {
		return fmt.Errorf("gssapi requires the kerberosConfigPath to be set")
	}

	if c.AuthType == GSSAPIAuthTypeKeytabAuth && c.KeyTabPath == "" {
		return fmt.Errorf("gssapi auth type KEYTAB_AUTH requires the keyTabPath to be set")
	}

	return nil
}
