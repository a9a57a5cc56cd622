package logging

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestRedactor_Filter(t *testing.T) {
	tests := []struct {
		name     string
		pairs    map[string]string
		input    string
		expected string
	}{
		{
			name:     "no registered pairs",
			pairs:    nil,
			input:    "addprinc -pw hunter2 alice@EXAMPLE.COM",
			expected: "addprinc -pw hunter2 alice@EXAMPLE.COM",
		},
		{
			name:     "single pair",
			pairs:    map[string]string{"hunter2": "[PROTECTED]"},
			input:    `addprinc -pw "hunter2" alice@EXAMPLE.COM`,
			expected: `addprinc -pw "[PROTECTED]" alice@EXAMPLE.COM`,
		},
		{
			name: "multiple pairs and repeated occurrences",
			pairs: map[string]string{
				"hunter2":  "[PROTECTED]",
				"s3cr3t!!": "[PROTECTED]",
			},
			input:    "old=hunter2 new=s3cr3t!! confirm=s3cr3t!!",
			expected: "old=[PROTECTED] new=[PROTECTED] confirm=[PROTECTED]",
		},
		{
			name:     "empty secret is ignored",
			pairs:    map[string]string{"": "[PROTECTED]"},
			input:    "nothing to hide",
			expected: "nothing to hide",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			redactor := NewRedactor()
			for unprotected, protected := range tt.pairs {
				redactor.Register(unprotected, protected)
			}
			assert.Equal(t, tt.expected, redactor.Filter(tt.input))
		})
	}
}

func TestRedactCore_FiltersAllOutputPaths(t *testing.T) {
	observed, logs := observer.New(zapcore.DebugLevel)
	redactor := NewRedactor()
	redactor.Register("hunter2", "[PROTECTED]")
	logger := zap.New(newRedactCore(observed, redactor))

	logger.Info(`Execution of kinit returned 1. Password incorrect: hunter2`)
	logger.Warn("command failed",
		zap.String("cmdline", `kadmin -p admin -w "hunter2" -q "getprinc alice"`),
		zap.Error(fmt.Errorf("stderr contained hunter2")),
	)
	logger.With(zap.String("password", "hunter2")).Info("identity refreshed")

	entries := logs.All()
	require.Len(t, entries, 3)

	assert.Equal(t, "Execution of kinit returned 1. Password incorrect: [PROTECTED]", entries[0].Message)

	fields := entries[1].ContextMap()
	assert.Equal(t, `kadmin -p admin -w "[PROTECTED]" -q "getprinc alice"`, fields["cmdline"])
	assert.Equal(t, "stderr contained [PROTECTED]", fields["error"])

	assert.Equal(t, "[PROTECTED]", entries[2].ContextMap()["password"])

	for _, entry := range entries {
		assert.NotContains(t, entry.Message, "hunter2")
		for _, value := range entry.ContextMap() {
			if s, ok := value.(string); ok {
				assert.NotContains(t, s, "hunter2")
			}
		}
	}
}

func TestRedactCore_RespectsLevel(t *testing.T) {
	observed, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(newRedactCore(observed, NewRedactor()))

	logger.Debug("below threshold")
	logger.Info("at threshold")

	require.Len(t, logs.All(), 1)
	assert.Equal(t, "at threshold", logs.All()[0].Message)
}
