package krbconf

import (
	"fmt"
	"strings"
	"text/template"
)

// templateData is what a configured krb5.conf template renders against.
// Default carries the canonical rendering so a template can wrap or replace
// it, Sections allows rendering from scratch.
type templateData struct {
	Default  string
	Sections []Section
}

// RenderTemplate renders the configured template text instead of the
// canonical layout. The template sees the canonical rendering as {{.Default}}
// and the raw section data as {{.Sections}}.
func RenderTemplate(templateText string, sections []Section) (string, error) {
	tmpl, err := template.New("krb5.conf").Parse(templateText)
	if err != nil {
		return "", fmt.Errorf("failed to parse krb5.conf template: %w", err)
	}

	var sb strings.Builder
	err = tmpl.Execute(&sb, templateData{
		Default:  Render(sections),
		Sections: sections,
	})
	if err != nil {
		return "", fmt.Errorf("failed to render krb5.conf template: %w", err)
	}

	return sb.String(), nil
}
