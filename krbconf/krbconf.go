// Package krbconf renders krb5.conf files. Sections and properties are
// ordered lists, so the emitted bytes are deterministic and never depend on
// map iteration.
package krbconf

import (
	"fmt"
	"io"
	"strings"
)

// Property is one `key = value` line. Properties render in the order given.
type Property struct {
	Key   string `koanf:"key"`
	Value string `koanf:"value"`
}

// Realm is one realm block within a realms section.
type Realm struct {
	Name       string     `koanf:"name"`
	Properties []Property `koanf:"properties"`
}

// Section is one named section of a krb5.conf file. A section with realm
// blocks renders those, otherwise its flat properties.
type Section struct {
	Name       string     `koanf:"name"`
	Properties []Property `koanf:"properties"`
	Realms     []Realm    `koanf:"realms"`
}

// realmProperties are the only keys emitted inside a realm block, everything
// else is dropped.
var realmProperties = []string{
	"kdc",
	"admin_server",
	"default_domain",
	"master_kdc",
}

// sectionOrder is the canonical order of sections in a rendered file.
var sectionOrder = []string{
	"libdefaults",
	"logging",
	"realms",
	"domain_realm",
	"capaths",
	"ca_paths",
	"appdefaults",
	"plugins",
}

func isRealmProperty(key string) bool {
	for _, allowed := range realmProperties {
		if key == allowed {
			return true
		}
	}
	return false
}

// WriteSection writes a flat section: the bracketed name followed by one
// indented `key = value` line per property.
func WriteSection(w io.Writer, name string, properties []Property) error {
	if name == "" {
		return nil
	}
	if _, err := fmt.Fprintf(w, "[%s]\n", name); err != nil {
		return err
	}
	for _, property := range properties {
		if _, err := fmt.Fprintf(w, " %s = %s\n", property.Key, property.Value); err != nil {
			return err
		}
	}
	return nil
}

// WriteRealm writes one realm block:
//
//	EXAMPLE.COM = {
//	 kdc = kerberos.example.com
//	 admin_server = kerberos.example.com
//	}
//
// Only the well known realm properties are emitted.
func WriteRealm(w io.Writer, realm Realm) error {
	if realm.Name == "" {
		return nil
	}
	if _, err := fmt.Fprintf(w, " %s = {\n", realm.Name); err != nil {
		return err
	}
	for _, property := range realm.Properties {
		if !isRealmProperty(property.Key) {
			continue
		}
		if _, err := fmt.Fprintf(w, "  %s = %s\n", property.Key, property.Value); err != nil {
			return err
		}
	}
	_, err := io.WriteString(w, " }\n")
	return err
}

// WriteRealmsSection writes the bracketed section name followed by all realm
// blocks, each one followed by a blank line.
func WriteRealmsSection(w io.Writer, name string, realms []Realm) error {
	if name == "" {
		return nil
	}
	if _, err := fmt.Fprintf(w, "[%s]\n", name); err != nil {
		return err
	}
	for _, realm := range realms {
		if err := WriteRealm(w, realm); err != nil {
			return err
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return err
		}
	}
	return nil
}

// Render assembles a complete krb5.conf. Sections render in canonical order
// (libdefaults first, plugins last); sections with names outside the
// canonical set follow in their given order.
func Render(sections []Section) string {
	var sb strings.Builder

	for _, section := range orderSections(sections) {
		if len(section.Realms) > 0 {
			_ = WriteRealmsSection(&sb, section.Name, section.Realms)
			continue
		}
		_ = WriteSection(&sb, section.Name, section.Properties)
		sb.WriteString("\n")
	}

	return sb.String()
}

func orderSections(sections []Section) []Section {
	ordered := make([]Section, 0, len(sections))
	taken := make([]bool, len(sections))

	for _, name := range sectionOrder {
		for i, section := range sections {
			if !taken[i] && section.Name == name {
				ordered = append(ordered, section)
				taken[i] = true
			}
		}
	}
	for i, section := range sections {
		if !taken[i] {
			ordered = append(ordered, section)
		}
	}

	return ordered
}
