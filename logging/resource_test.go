package logging

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func namedCallback() {}

func TestResource_String(t *testing.T) {
	tests := []struct {
		name     string
		resource Resource
		expected string
	}{
		{
			name: "file with owner and mode",
			resource: Resource{
				Kind: "File",
				Name: "/etc/krb5.conf",
				Args: []Arg{
					StringArg("owner", "root"),
					ModeArg("mode", 0644),
				},
			},
			expected: "File['/etc/krb5.conf'] {'owner': 'root', 'mode': 0644}",
		},
		{
			name: "no arguments",
			resource: Resource{
				Kind: "Directory",
				Name: "/etc/security/keytabs",
			},
			expected: "Directory['/etc/security/keytabs'] {}",
		},
		{
			name: "oversized string collapses",
			resource: Resource{
				Kind: "File",
				Name: "/etc/krb5.conf",
				Args: []Arg{StringArg("content", strings.Repeat("x", 300))},
			},
			expected: "File['/etc/krb5.conf'] {'content': '...'}",
		},
		{
			name: "string at limit is kept",
			resource: Resource{
				Kind: "File",
				Name: "/tmp/f",
				Args: []Arg{StringArg("content", strings.Repeat("x", 256))},
			},
			expected: "File['/tmp/f'] {'content': '" + strings.Repeat("x", 256) + "'}",
		},
		{
			name: "mapping collapses outside debug",
			resource: Resource{
				Kind: "Krb5Conf",
				Name: "/etc/krb5.conf",
				Args: []Arg{MappingArg("realms", map[string]string{"kdc": "k.example.com"})},
			},
			expected: "Krb5Conf['/etc/krb5.conf'] {'realms': ...}",
		},
		{
			name: "missing value renders as empty marker",
			resource: Resource{
				Kind: "Keytab",
				Name: "svc@EXAMPLE.COM",
				Args: []Arg{AbsentArg("content")},
			},
			expected: "Keytab['svc@EXAMPLE.COM'] {'content': [EMPTY]}",
		},
		{
			name: "callback renders as bare name",
			resource: Resource{
				Kind: "Execute",
				Name: "kinit",
				Args: []Arg{CallbackArg("not_if", namedCallback)},
			},
			expected: "Execute['kinit'] {'not_if': namedCallback}",
		},
		{
			name: "mode below three digits keeps octal form",
			resource: Resource{
				Kind: "File",
				Name: "/tmp/kt",
				Args: []Arg{ModeArg("mode", 0600)},
			},
			expected: "File['/tmp/kt'] {'mode': 0600}",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.resource.String())
		})
	}
}

func TestLogResource_MappingExpandsAtDebug(t *testing.T) {
	res := Resource{
		Kind: "Krb5Conf",
		Name: "/etc/krb5.conf",
		Args: []Arg{MappingArg("realms", map[string]string{
			"kdc":          "k.example.com",
			"admin_server": "a.example.com",
		})},
	}

	observed, logs := observer.New(zapcore.DebugLevel)
	LogResource(zap.New(observed), zapcore.InfoLevel, res)
	require.Len(t, logs.All(), 1)
	assert.Equal(t,
		"Krb5Conf['/etc/krb5.conf'] {'realms': {'admin_server': 'a.example.com', 'kdc': 'k.example.com'}}",
		logs.All()[0].Message)

	observed, logs = observer.New(zapcore.InfoLevel)
	LogResource(zap.New(observed), zapcore.InfoLevel, res)
	require.Len(t, logs.All(), 1)
	assert.Equal(t, "Krb5Conf['/etc/krb5.conf'] {'realms': ...}", logs.All()[0].Message)
}

func TestLogResource_DropsEntriesBelowLevel(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	LogResource(zap.New(observed), zapcore.DebugLevel, Resource{Kind: "File", Name: "/tmp/f"})
	assert.Empty(t, logs.All())
}

func TestLogResource_RedactsSecrets(t *testing.T) {
	redactor := NewRedactor()
	redactor.Register("hunter2", "[PROTECTED]")

	observed, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(newRedactCore(observed, redactor))

	LogResource(logger, zapcore.InfoLevel, Resource{
		Kind: "Execute",
		Name: "kadmin",
		Args: []Arg{StringArg("query", `addprinc -pw "hunter2" alice@EXAMPLE.COM`)},
	})

	require.Len(t, logs.All(), 1)
	assert.Equal(t,
		`Execute['kadmin'] {'query': 'addprinc -pw "[PROTECTED]" alice@EXAMPLE.COM'}`,
		logs.All()[0].Message)
}
