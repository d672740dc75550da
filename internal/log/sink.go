package log

import (
	"fmt"
	"strings"
)

// Sink receives structured events from the filesystem core. Events are
// short snake_case names; kv is an alternating key/value list.
type Sink interface {
	Debug(event string, kv ...any)
	Exception(event string, err error, kv ...any)
}

// Logger is the Sink implementation backed by the package-level leveled
// output. Debug events are emitted at LevelDebug, exceptions at LevelError.
type Logger struct {
	component string
}

// New returns a Sink tagging every line with component.
func New(component string) *Logger {
	return &Logger{component: component}
}

// Debug logs a debug event.
func (l *Logger) Debug(event string, kv ...any) {
	if !canOutput(LevelDebug) {
		return
	}
	Debug(l.line(event, kv))
}

// Exception logs a failure event with its error.
func (l *Logger) Exception(event string, err error, kv ...any) {
	if !canOutput(LevelError) {
		return
	}
	Error(l.line(event, append([]any{"error", err}, kv...)))
}

func (l *Logger) line(event string, kv []any) string {
	var b strings.Builder
	if l.component != "" {
		b.WriteString(l.component)
		b.WriteString(": ")
	}
	b.WriteString(event)
	b.WriteString(FormatFields(kv...))
	return b.String()
}

// FormatFields renders kv as " key=value key=value". A trailing key
// without a value is rendered as key=MISSING.
func FormatFields(kv ...any) string {
	var b strings.Builder
	for i := 0; i < len(kv); i += 2 {
		key := fmt.Sprint(kv[i])
		value := any("MISSING")
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		text := fmt.Sprint(value)
		if text == "" || strings.ContainsAny(text, " \t\"=") {
			text = fmt.Sprintf("%q", text)
		}
		b.WriteString(" ")
		b.WriteString(key)
		b.WriteString("=")
		b.WriteString(text)
	}
	return b.String()
}

// Discard is a Sink that drops every event.
var Discard Sink = discard{}

type discard struct{}

func (discard) Debug(string, ...any)            {}
func (discard) Exception(string, error, ...any) {}
