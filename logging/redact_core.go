package logging

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// redactCore wraps a zapcore.Core and filters entry messages, string fields
// and error fields through a Redactor before they reach the inner core. This
// way a secret is scrubbed even when it travels inside an error returned by
// a failed command invocation.
type redactCore struct {
	zapcore.Core
	redactor *Redactor
}

func newRedactCore(core zapcore.Core, redactor *Redactor) zapcore.Core {
	return &redactCore{Core: core, redactor: redactor}
}

func (c *redactCore) With(fields []zapcore.Field) zapcore.Core {
	return &redactCore{Core: c.Core.With(c.filterFields(fields)), redactor: c.redactor}
}

func (c *redactCore) Check(entry zapcore.Entry, checked *zapcore.CheckedEntry) *zapcore.CheckedEntry {
	if c.Enabled(entry.Level) {
		return checked.AddCore(entry, c)
	}
	return checked
}

func (c *redactCore) Write(entry zapcore.Entry, fields []zapcore.Field) error {
	entry.Message = c.redactor.Filter(entry.Message)
	return c.Core.Write(entry, c.filterFields(fields))
}

func (c *redactCore) filterFields(fields []zapcore.Field) []zapcore.Field {
	filtered := make([]zapcore.Field, len(fields))
	for i, field := range fields {
		switch field.Type {
		case zapcore.StringType:
			field.String = c.redactor.Filter(field.String)
		case zapcore.ErrorType:
			if err, ok := field.Interface.(error); ok {
				field = zap.String(field.Key, c.redactor.Filter(err.Error()))
			}
		}
		filtered[i] = field
	}
	return filtered
}
