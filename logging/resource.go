package logging

import (
	"fmt"
	"io/fs"
	"reflect"
	"runtime"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Values longer than this render as '...' so that a config blob or keytab
// dump can't blow up a log line.
const messageMaxLen = 256

// Resource describes one unit of work applied to the host, for example a
// keytab file materialized at a path. It renders to a single bounded line
// such as:
//
//	File['/etc/security/keytabs/svc.keytab'] {'owner': 'root', 'mode': 0600}
type Resource struct {
	Kind string
	Name string
	Args []Arg
}

// Arg is one named argument of a Resource. Values go through a closed set of
// constructors so that nothing unbounded and no raw secret ends up in the
// rendering by accident.
type Arg struct {
	Key   string
	value argValue
}

type argKind int8

const (
	argString argKind = iota
	argPath
	argMode
	argMapping
	argCallback
	argAbsent
)

type argValue struct {
	kind    argKind
	str     string
	mode    fs.FileMode
	mapping map[string]string
}

// StringArg renders as a quoted string, replaced by '...' beyond 256 chars.
func StringArg(key, value string) Arg {
	return Arg{Key: key, value: argValue{kind: argString, str: value}}
}

// PathArg renders as a quoted string without length limit.
func PathArg(key, path string) Arg {
	return Arg{Key: key, value: argValue{kind: argPath, str: path}}
}

// ModeArg renders as an octal literal, e.g. 0644.
func ModeArg(key string, mode fs.FileMode) Arg {
	return Arg{Key: key, value: argValue{kind: argMode, mode: mode}}
}

// MappingArg renders as "..." unless the logger has debug enabled.
func MappingArg(key string, mapping map[string]string) Arg {
	return Arg{Key: key, value: argValue{kind: argMapping, mapping: mapping}}
}

// CallbackArg renders as the bare function name only.
func CallbackArg(key string, fn interface{}) Arg {
	name := runtime.FuncForPC(reflect.ValueOf(fn).Pointer()).Name()
	if idx := strings.LastIndex(name, "."); idx >= 0 {
		name = name[idx+1:]
	}
	return Arg{Key: key, value: argValue{kind: argCallback, str: name}}
}

// AbsentArg marks a value that never arrived, rendered as [EMPTY].
func AbsentArg(key string) Arg {
	return Arg{Key: key, value: argValue{kind: argAbsent}}
}

func (v argValue) render(verbose bool) string {
	switch v.kind {
	case argString:
		if len(v.str) > messageMaxLen {
			return "'...'"
		}
		return "'" + v.str + "'"
	case argPath:
		return "'" + v.str + "'"
	case argMode:
		return fmt.Sprintf("0%o", uint32(v.mode))
	case argMapping:
		if !verbose {
			return "..."
		}
		keys := make([]string, 0, len(v.mapping))
		for key := range v.mapping {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		pairs := make([]string, len(keys))
		for i, key := range keys {
			pairs[i] = fmt.Sprintf("'%s': '%s'", key, v.mapping[key])
		}
		return "{" + strings.Join(pairs, ", ") + "}"
	case argCallback:
		return v.str
	case argAbsent:
		return "[EMPTY]"
	}
	return "''"
}

func (r Resource) render(verbose bool) string {
	parts := make([]string, len(r.Args))
	for i, arg := range r.Args {
		parts[i] = fmt.Sprintf("'%s': %s", arg.Key, arg.value.render(verbose))
	}
	return fmt.Sprintf("%s['%s'] {%s}", r.Kind, r.Name, strings.Join(parts, ", "))
}

// String renders the resource with mappings collapsed.
func (r Resource) String() string {
	return r.render(false)
}

// LogResource writes the rendering of res at the given level. Mapping
// arguments expand to their full contents only when the logger has debug
// enabled. Redaction applies as for any other log line.
func LogResource(logger *zap.Logger, level zapcore.Level, res Resource) {
	verbose := logger.Core().Enabled(zapcore.DebugLevel)
	if checked := logger.Check(level, res.render(verbose)); checked != nil {
		checked.Write()
	}
}

var _ fmt.Stringer = Resource{}
