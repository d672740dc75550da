// Package log provides the leveled logger used by every logaggfs command.
//
// Uses lipgloss for terminal styling, stderr for warn/error, stdout for everything else.
// The filesystem core never calls the package functions directly; it receives
// a Sink (see sink.go) so tests and embedders can substitute their own.
package log

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"
)

// LogLevel controls the verbosity of log output.
type LogLevel int

const (
	// LevelDebug is the most verbose level.
	LevelDebug LogLevel = iota
	// LevelInfo is the default level.
	LevelInfo
	// LevelWarn shows only warnings and errors.
	LevelWarn
	// LevelError shows only errors.
	LevelError
	// LevelSilent suppresses all output.
	LevelSilent
)

// ParseLevel maps a level name (debug, info, warn, error, silent) to a LogLevel.
func ParseLevel(name string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return LevelDebug, nil
	case "", "info":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	case "silent", "quiet":
		return LevelSilent, nil
	}
	return LevelInfo, fmt.Errorf("unknown log level %q", name)
}

// styles is the set of lipgloss styles bound to one renderer.
type styles struct {
	dim    lipgloss.Style
	bold   lipgloss.Style
	red    lipgloss.Style
	green  lipgloss.Style
	yellow lipgloss.Style
	cyan   lipgloss.Style
}

func newStyles(r *lipgloss.Renderer) styles {
	return styles{
		dim:    r.NewStyle().Faint(true),
		bold:   r.NewStyle().Bold(true),
		red:    r.NewStyle().Foreground(lipgloss.Color("9")),
		green:  r.NewStyle().Foreground(lipgloss.Color("10")),
		yellow: r.NewStyle().Foreground(lipgloss.Color("11")),
		cyan:   r.NewStyle().Foreground(lipgloss.Color("14")),
	}
}

// config holds the global logger configuration.
type config struct {
	mu     sync.RWMutex
	level  LogLevel
	prefix bool
	quiet  bool

	// writeMu serialises whole lines so concurrent FUSE workers never
	// interleave partial output.
	writeMu   sync.Mutex
	stdout    io.Writer
	stderr    io.Writer
	outStyles styles
	errStyles styles
}

var cfg = &config{
	level:     LevelInfo,
	stdout:    os.Stdout,
	stderr:    os.Stderr,
	outStyles: newStyles(lipgloss.NewRenderer(os.Stdout)),
	errStyles: newStyles(lipgloss.NewRenderer(os.Stderr)),
}

// --- Configuration functions ---

// SetLevel sets the minimum log level. Messages below this level are suppressed.
func SetLevel(level LogLevel) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.level = level
}

// GetLevel returns the current log level.
func GetLevel() LogLevel {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.level
}

// SetPrefix enables or disables the [logaggfs] prefix on all messages.
func SetPrefix(enabled bool) {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.prefix = enabled
}

// EnableQuietMode suppresses ALL output including errors.
// Only exit codes communicate success/failure.
func EnableQuietMode() {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.quiet = true
	cfg.level = LevelSilent
}

// DisableQuietMode restores normal output.
func DisableQuietMode() {
	cfg.mu.Lock()
	defer cfg.mu.Unlock()
	cfg.quiet = false
	cfg.level = LevelInfo
}

// IsQuiet returns whether quiet mode is enabled.
func IsQuiet() bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return cfg.quiet
}

// SetOutput redirects normal and warning/error output. Styles are rebuilt
// for the new writers, so a plain file receives no escape sequences.
func SetOutput(stdout, stderr io.Writer) {
	cfg.writeMu.Lock()
	defer cfg.writeMu.Unlock()
	cfg.stdout = stdout
	cfg.stderr = stderr
	cfg.outStyles = newStyles(lipgloss.NewRenderer(stdout))
	cfg.errStyles = newStyles(lipgloss.NewRenderer(stderr))
}

// --- Internal helpers ---

// canOutput checks if output is allowed at the given level.
func canOutput(level LogLevel) bool {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	return !cfg.quiet && cfg.level <= level
}

// formatMessage applies the optional [logaggfs] prefix.
func formatMessage(message string) string {
	cfg.mu.RLock()
	defer cfg.mu.RUnlock()
	if cfg.prefix {
		return "[logaggfs] " + message
	}
	return message
}

func emitOut(pick func(styles) lipgloss.Style, message string) {
	cfg.writeMu.Lock()
	defer cfg.writeMu.Unlock()
	if pick == nil {
		fmt.Fprintln(cfg.stdout, message)
		return
	}
	fmt.Fprintln(cfg.stdout, pick(cfg.outStyles).Render(message))
}

func emitErr(pick func(styles) lipgloss.Style, message string) {
	cfg.writeMu.Lock()
	defer cfg.writeMu.Unlock()
	fmt.Fprintln(cfg.stderr, pick(cfg.errStyles).Render(message))
}

func dim(s styles) lipgloss.Style    { return s.dim }
func bold(s styles) lipgloss.Style   { return s.bold }
func red(s styles) lipgloss.Style    { return s.red }
func green(s styles) lipgloss.Style  { return s.green }
func yellow(s styles) lipgloss.Style { return s.yellow }
func cyan(s styles) lipgloss.Style   { return s.cyan }

// --- Log output functions ---

// Debug outputs a debug-level message (dim styling).
// Only shown when level <= LevelDebug.
func Debug(message string) {
	if canOutput(LevelDebug) {
		emitOut(dim, formatMessage(message))
	}
}

// Debugf outputs a formatted debug-level message.
func Debugf(format string, args ...any) {
	if canOutput(LevelDebug) {
		Debug(fmt.Sprintf(format, args...))
	}
}

// Info outputs an info-level message (no styling).
func Info(message string) {
	if canOutput(LevelInfo) {
		emitOut(nil, formatMessage(message))
	}
}

// Infof outputs a formatted info-level message.
func Infof(format string, args ...any) {
	if canOutput(LevelInfo) {
		Info(fmt.Sprintf(format, args...))
	}
}

// Warn outputs a warning message (yellow, to stderr).
func Warn(message string) {
	if canOutput(LevelWarn) {
		emitErr(yellow, formatMessage(message))
	}
}

// Warnf outputs a formatted warning message.
func Warnf(format string, args ...any) {
	if canOutput(LevelWarn) {
		Warn(fmt.Sprintf(format, args...))
	}
}

// Error outputs an error message (red, to stderr).
func Error(message string) {
	if canOutput(LevelError) {
		emitErr(red, formatMessage(message))
	}
}

// Success outputs a success message (green, info level).
func Success(message string) {
	if canOutput(LevelInfo) {
		emitOut(green, formatMessage(message))
	}
}

// Dim outputs a subtle/dim message (info level).
func Dim(message string) {
	if canOutput(LevelInfo) {
		emitOut(dim, formatMessage(message))
	}
}

// Bold outputs a bold/emphasized message (info level).
func Bold(message string) {
	if canOutput(LevelInfo) {
		emitOut(bold, formatMessage(message))
	}
}

// Raw outputs a message without any styling (for pre-styled content).
// Respects log level (info).
func Raw(message string) {
	if canOutput(LevelInfo) {
		emitOut(nil, message)
	}
}

// Newline outputs an empty line. Respects log level (info).
func Newline() {
	if canOutput(LevelInfo) {
		emitOut(nil, "")
	}
}

// --- Style builders (return styled strings without printing) ---

// Style provides string styling functions that return styled strings
// without printing them. Use with Raw() for complex compositions.
var Style = struct {
	Dim    func(...string) string
	Bold   func(...string) string
	Red    func(...string) string
	Green  func(...string) string
	Yellow func(...string) string
	Cyan   func(...string) string
}{
	Dim:    func(s ...string) string { return styledOut(dim, s) },
	Bold:   func(s ...string) string { return styledOut(bold, s) },
	Red:    func(s ...string) string { return styledOut(red, s) },
	Green:  func(s ...string) string { return styledOut(green, s) },
	Yellow: func(s ...string) string { return styledOut(yellow, s) },
	Cyan:   func(s ...string) string { return styledOut(cyan, s) },
}

func styledOut(pick func(styles) lipgloss.Style, s []string) string {
	cfg.writeMu.Lock()
	defer cfg.writeMu.Unlock()
	return pick(cfg.outStyles).Render(s...)
}
