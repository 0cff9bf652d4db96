package config

import (
	"io"
	"log/slog"
	"time"

	"github.com/getmockd/replayd/pkg/logging"
)

// Default values.
const (
	DefaultMode             = ModePlayback
	DefaultProxyTimeout     = 30 * time.Second
	DefaultStartupDelay     = time.Duration(0)
	DefaultRootDir          = "testdata/recordings"
	DefaultExtractThreshold = 2048
	DefaultHistoryLimit     = 10
	DefaultLogLevel         = "warn"
	DefaultLogFormat        = "text"
)

// Default returns a Config with default values.
func Default() *Config {
	cfg := &Config{
		Mode:             DefaultMode,
		ProxyTimeout:     DefaultProxyTimeout,
		StartupDelay:     DefaultStartupDelay,
		RootDir:          DefaultRootDir,
		ExtractThreshold: DefaultExtractThreshold,
		HistoryLimit:     DefaultHistoryLimit,
		LogLevel:         DefaultLogLevel,
		LogFormat:        DefaultLogFormat,
		Sources:          make(map[string]string),
	}
	for _, key := range []string{
		"mode", "proxyTimeout", "startupDelay", "root",
		"extractThreshold", "historyLimit", "logLevel", "logFormat",
	} {
		cfg.Sources[key] = SourceDefault
	}
	return cfg
}

// Logger builds the logger described by the logging settings.
func (c *Config) Logger(out io.Writer) *slog.Logger {
	return logging.New(logging.Config{
		Level:  logging.ParseLevel(c.LogLevel),
		Format: logging.ParseFormat(c.LogFormat),
		Output: out,
	})
}
