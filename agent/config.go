package agent

import (
	"fmt"
	"time"

	"github.com/cloudhut/kadminion/kadmin"
	"github.com/cloudhut/kadminion/krbconf"
)

// RealmConfig describes the Kerberos realm the agent manages and the
// administrative identity used to manage it. An empty admin principal makes
// the agent operate through the KDC host's local authority (kadmin.local).
type RealmConfig struct {
	Name  string          `koanf:"name"`
	Admin kadmin.Identity `koanf:"admin"`

	// Properties end up in the realm's block of the managed krb5.conf
	// (kdc, admin_server, default_domain, master_kdc).
	Properties []krbconf.Property `koanf:"properties"`
}

func (c *RealmConfig) Validate() error {
	if err := c.Admin.Validate(); err != nil {
		return fmt.Errorf("failed to validate admin identity: %w", err)
	}
	return nil
}

// ManagedIdentity is one principal the agent keeps present on the KDC.
type ManagedIdentity struct {
	Identity kadmin.Identity `koanf:"identity"`

	// VerifyKinit authenticates as the identity at the end of every reconcile
	// to prove the stored credentials actually work against the KDC.
	VerifyKinit bool `koanf:"verifyKinit"`
}

type Config struct {
	Realm      RealmConfig       `koanf:"realm"`
	Identities []ManagedIdentity `koanf:"identities"`

	// Keytabs are materialized on the host on every reconcile.
	Keytabs []kadmin.KeytabSpec `koanf:"keytabs"`

	// KeytabExportDir, when set, receives a freshly extracted keytab for every
	// managed identity, named after the principal.
	KeytabExportDir string `koanf:"keytabExportDir"`

	KrbConf krbconf.Config `koanf:"krb5Conf"`

	// ReconcileInterval is the time between two reconcile runs. Zero means
	// reconcile once and return.
	ReconcileInterval time.Duration `koanf:"reconcileInterval"`
}

func (c *Config) SetDefaults() {
	c.KrbConf.SetDefaults()
	c.ReconcileInterval = 5 * time.Minute
}

func (c *Config) Validate() error {
	if err := c.Realm.Validate(); err != nil {
		return fmt.Errorf("failed to validate realm config: %w", err)
	}

	for i := range c.Identities {
		identity := &c.Identities[i].Identity
		if identity.Principal == "" {
			return fmt.Errorf("managed identity at index '%v' must set a principal", i)
		}
		if err := identity.Validate(); err != nil {
			return fmt.Errorf("failed to validate managed identity at index '%v': %w", i, err)
		}
	}

	for i := range c.Keytabs {
		if err := c.Keytabs[i].Validate(); err != nil {
			return fmt.Errorf("failed to validate keytab at index '%v': %w", i, err)
		}
	}

	if err := c.KrbConf.Validate(); err != nil {
		return fmt.Errorf("failed to validate krb5Conf config: %w", err)
	}

	if c.ReconcileInterval < 0 {
		return fmt.Errorf("reconcileInterval must not be negative, got '%v'", c.ReconcileInterval)
	}

	return nil
}
