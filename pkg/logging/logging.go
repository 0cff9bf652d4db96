package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Level is a slog level.
type Level = slog.Level

// Log levels.
const (
	LevelDebug = slog.LevelDebug
	LevelInfo  = slog.LevelInfo
	LevelWarn  = slog.LevelWarn
	LevelError = slog.LevelError
)

// DefaultLevel keeps recording runs quiet inside go test output.
const DefaultLevel = LevelWarn

// Format selects the handler.
type Format string

// Output formats.
const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// ComponentKey is the attribute naming the subsystem that logged.
const ComponentKey = "component"

// Config holds logging configuration.
type Config struct {
	Level  Level
	Format Format
	// Output defaults to os.Stderr.
	Output io.Writer
	// AddSource adds file:line to every record.
	AddSource bool
}

// DefaultConfig returns warn-level text logging to stderr.
func DefaultConfig() Config {
	return Config{Level: DefaultLevel, Format: FormatText, Output: os.Stderr}
}

// New creates a logger from cfg.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	opts := &slog.HandlerOptions{Level: cfg.Level, AddSource: cfg.AddSource}

	if cfg.Format == FormatJSON {
		return slog.New(slog.NewJSONHandler(out, opts))
	}
	return slog.New(slog.NewTextHandler(out, opts))
}

// Nop returns a logger that discards everything.
func Nop() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

// OrNop returns l, or Nop when l is nil.
func OrNop(l *slog.Logger) *slog.Logger {
	if l == nil {
		return Nop()
	}
	return l
}

// Component returns l (or Nop) tagged with the subsystem name.
func Component(l *slog.Logger, name string) *slog.Logger {
	return OrNop(l).With(ComponentKey, name)
}

// ParseLevel parses "debug", "info", "warn"/"warning" or "error", ignoring
// case and surrounding space. Anything else yields DefaultLevel.
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "error":
		return LevelError
	default:
		return DefaultLevel
	}
}

// ParseFormat returns FormatJSON for "json" (any case) and FormatText otherwise.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), string(FormatJSON)) {
		return FormatJSON
	}
	return FormatText
}
