package config

import (
	"strings"
	"time"
)

// Mode selects whether sessions talk to the real service or replay stubs.
type Mode string

// Modes.
const (
	ModePlayback Mode = "playback"
	ModeRecord   Mode = "record"
)

// ParseMode parses a mode switch. Matching is case-insensitive and anything
// other than "record" selects playback.
func ParseMode(s string) Mode {
	if strings.EqualFold(strings.TrimSpace(s), string(ModeRecord)) {
		return ModeRecord
	}
	return ModePlayback
}

// IsRecord reports whether m is record mode.
func (m Mode) IsRecord() bool {
	return m == ModeRecord
}

// String returns the mode name.
func (m Mode) String() string {
	if m == "" {
		return string(ModePlayback)
	}
	return string(m)
}

// Config is the resolved process configuration.
type Config struct {
	// Mode is the default session mode.
	Mode Mode `yaml:"mode" json:"mode"`

	// BaseURL overrides the endpoint handed to code under test when no
	// session is bound.
	BaseURL string `yaml:"baseUrl,omitempty" json:"baseUrl,omitempty"`

	// ProxyTimeout bounds each request forwarded in record mode.
	ProxyTimeout time.Duration `yaml:"proxyTimeout" json:"proxyTimeout"`

	// StartupDelay is slept after a session's server starts.
	StartupDelay time.Duration `yaml:"startupDelay" json:"startupDelay"`

	// RootDir holds recordings, snapshots and detection results.
	RootDir string `yaml:"root" json:"root"`

	// ExtractThreshold is the response size in bytes above which recorded
	// bodies are written to a payload file. Zero keeps every body inline.
	ExtractThreshold int `yaml:"extractThreshold" json:"extractThreshold"`

	// HistoryLimit bounds the per-identity snapshot history.
	HistoryLimit int `yaml:"historyLimit" json:"historyLimit"`

	// Logging settings
	LogLevel  string `yaml:"logLevel" json:"logLevel"`
	LogFormat string `yaml:"logFormat" json:"logFormat"`

	// Sources tracks where each value came from (for debugging)
	Sources map[string]string `yaml:"-" json:"-"`
}

// ConfigSource identifies where a config value originated.
const (
	SourceDefault = "default"
	SourceFile    = "file"
	SourceEnv     = "env"
	SourceFlag    = "flag"
)
