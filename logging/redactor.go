package logging

import (
	"strings"

	cmap "github.com/orcaman/concurrent-map"
)

// Redactor replaces sensitive substrings in log output before it is emitted.
// Code that handles a credential registers the secret together with the text
// that shall be printed in its place, and every log line as well as every
// rendered command line is filtered through the registered pairs.
//
// The registry is shared by all components that log through the same logger,
// hence the concurrent map.
type Redactor struct {
	pairs cmap.ConcurrentMap
}

func NewRedactor() *Redactor {
	return &Redactor{
		pairs: cmap.New(),
	}
}

// Register adds one unprotected -> protected replacement pair. Registering
// an empty secret is a no-op so that callers don't have to guard against
// unset passwords.
func (r *Redactor) Register(unprotected, protected string) {
	if unprotected == "" {
		return
	}
	r.pairs.Set(unprotected, protected)
}

// Filter returns text with every registered secret replaced by its
// protected counterpart.
func (r *Redactor) Filter(text string) string {
	for unprotected, protected := range r.pairs.Items() {
		text = strings.ReplaceAll(text, unprotected, protected.(string))
	}
	return text
}
