package kadmin

import "fmt"

// Identity describes a Kerberos principal together with the credential forms
// that may be available for it. Password, Keytab (base64 encoded keytab
// content) and KeytabFile are all optional; operations pick the form they
// need and treat a fully absent credential as "nothing to do".
type Identity struct {
	Principal  string `koanf:"principal"`
	Password   string `koanf:"password"`
	Keytab     string `koanf:"keytab"`
	KeytabFile string `koanf:"keytabFile"`
}

func (i *Identity) Validate() error {
	if i.Principal == "" && (i.Password != "" || i.Keytab != "" || i.KeytabFile != "") {
		return fmt.Errorf("a credential is set but the principal is missing")
	}
	return nil
}

// KeytabSpec describes one keytab file to materialize on disk: base64 encoded
// content, the target path and the ownership and access to apply afterwards.
type KeytabSpec struct {
	Content     string `koanf:"content"`
	Path        string `koanf:"path"`
	Owner       string `koanf:"owner"`
	OwnerAccess string `koanf:"ownerAccess"`
	Group       string `koanf:"group"`
	GroupAccess string `koanf:"groupAccess"`
}

func (s *KeytabSpec) SetDefaults() {
	s.OwnerAccess = "rw"
}

func (s *KeytabSpec) Validate() error {
	switch s.OwnerAccess {
	case "", "r", "rw":
	default:
		return fmt.Errorf("ownerAccess must be one of 'r' or 'rw', got '%v'", s.OwnerAccess)
	}

	switch s.GroupAccess {
	case "", "r", "rw":
	default:
		return fmt.Errorf("groupAccess must be one of '', 'r' or 'rw', got '%v'", s.GroupAccess)
	}

	return nil
}
