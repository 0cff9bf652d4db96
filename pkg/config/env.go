package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Environment variable names
const (
	EnvConfig           = "REPLAYD_CONFIG"
	EnvMode             = "REPLAYD_MODE"
	EnvBaseURL          = "REPLAYD_BASE_URL"
	EnvProxyTimeout     = "REPLAYD_PROXY_TIMEOUT"
	EnvStartupDelay     = "REPLAYD_STARTUP_DELAY"
	EnvRoot             = "REPLAYD_ROOT"
	EnvExtractThreshold = "REPLAYD_EXTRACT_THRESHOLD"
	EnvHistoryLimit     = "REPLAYD_HISTORY_LIMIT"
	EnvLogLevel         = "REPLAYD_LOG_LEVEL"
	EnvLogFormat        = "REPLAYD_LOG_FORMAT"
)

// LoadEnvConfig loads configuration from environment variables.
// It only sets values that are present in the environment; numeric values
// that do not parse are ignored.
func LoadEnvConfig(cfg *Config) {
	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}

	// REPLAYD_MODE
	if v := os.Getenv(EnvMode); v != "" {
		cfg.Mode = ParseMode(v)
		cfg.Sources["mode"] = SourceEnv
	}

	// REPLAYD_BASE_URL
	if v := strings.TrimSpace(os.Getenv(EnvBaseURL)); v != "" {
		cfg.BaseURL = v
		cfg.Sources["baseUrl"] = SourceEnv
	}

	// REPLAYD_PROXY_TIMEOUT (milliseconds)
	if v := os.Getenv(EnvProxyTimeout); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.ProxyTimeout = time.Duration(ms) * time.Millisecond
			cfg.Sources["proxyTimeout"] = SourceEnv
		}
	}

	// REPLAYD_STARTUP_DELAY (milliseconds)
	if v := os.Getenv(EnvStartupDelay); v != "" {
		if ms, err := strconv.Atoi(v); err == nil {
			cfg.StartupDelay = time.Duration(ms) * time.Millisecond
			cfg.Sources["startupDelay"] = SourceEnv
		}
	}

	// REPLAYD_ROOT
	if v := os.Getenv(EnvRoot); v != "" {
		cfg.RootDir = v
		cfg.Sources["root"] = SourceEnv
	}

	// REPLAYD_EXTRACT_THRESHOLD
	if v := os.Getenv(EnvExtractThreshold); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.ExtractThreshold = n
			cfg.Sources["extractThreshold"] = SourceEnv
		}
	}

	// REPLAYD_HISTORY_LIMIT
	if v := os.Getenv(EnvHistoryLimit); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.HistoryLimit = n
			cfg.Sources["historyLimit"] = SourceEnv
		}
	}

	// REPLAYD_LOG_LEVEL
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.LogLevel = v
		cfg.Sources["logLevel"] = SourceEnv
	}

	// REPLAYD_LOG_FORMAT
	if v := os.Getenv(EnvLogFormat); v != "" {
		cfg.LogFormat = v
		cfg.Sources["logFormat"] = SourceEnv
	}
}
