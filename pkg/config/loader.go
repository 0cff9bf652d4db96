package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// LocalConfigFileNames are the names searched in the working directory (in order).
var LocalConfigFileNames = []string{"replayd.yaml", "replayd.yml"}

// FindLocalConfig searches the current directory for a config file.
// Returns an empty string if none exists.
func FindLocalConfig() (string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for _, name := range LocalConfigFileNames {
		path := filepath.Join(cwd, name)
		if _, err := os.Stat(path); err == nil {
			return path, nil
		}
	}
	return "", nil
}

// fileConfig mirrors Config with optional fields so an explicit zero in the
// file can be told apart from an absent key.
type fileConfig struct {
	Mode             *string `yaml:"mode"`
	BaseURL          *string `yaml:"baseUrl"`
	ProxyTimeout     *string `yaml:"proxyTimeout"`
	StartupDelay     *string `yaml:"startupDelay"`
	RootDir          *string `yaml:"root"`
	ExtractThreshold *int    `yaml:"extractThreshold"`
	HistoryLimit     *int    `yaml:"historyLimit"`
	LogLevel         *string `yaml:"logLevel"`
	LogFormat        *string `yaml:"logFormat"`
}

// ConfigError represents a configuration file error with location info.
type ConfigError struct {
	Path    string
	Line    int
	Message string
}

func (e *ConfigError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s (line %d): %s", e.Path, e.Line, e.Message)
	}
	return e.Path + ": " + e.Message
}

// LoadFile applies the YAML file at path on top of cfg.
func LoadFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return &ConfigError{Path: path, Line: yamlErrorLine(err.Error()), Message: err.Error()}
	}

	if cfg.Sources == nil {
		cfg.Sources = make(map[string]string)
	}
	set := func(key string) { cfg.Sources[key] = SourceFile }

	if fc.Mode != nil {
		cfg.Mode = ParseMode(*fc.Mode)
		set("mode")
	}
	if fc.BaseURL != nil {
		cfg.BaseURL = strings.TrimSpace(*fc.BaseURL)
		set("baseUrl")
	}
	if fc.ProxyTimeout != nil {
		d, err := time.ParseDuration(*fc.ProxyTimeout)
		if err != nil {
			return &ConfigError{Path: path, Message: "proxyTimeout: " + err.Error()}
		}
		cfg.ProxyTimeout = d
		set("proxyTimeout")
	}
	if fc.StartupDelay != nil {
		d, err := time.ParseDuration(*fc.StartupDelay)
		if err != nil {
			return &ConfigError{Path: path, Message: "startupDelay: " + err.Error()}
		}
		cfg.StartupDelay = d
		set("startupDelay")
	}
	if fc.RootDir != nil {
		cfg.RootDir = *fc.RootDir
		set("root")
	}
	if fc.ExtractThreshold != nil {
		cfg.ExtractThreshold = *fc.ExtractThreshold
		set("extractThreshold")
	}
	if fc.HistoryLimit != nil {
		cfg.HistoryLimit = *fc.HistoryLimit
		set("historyLimit")
	}
	if fc.LogLevel != nil {
		cfg.LogLevel = *fc.LogLevel
		set("logLevel")
	}
	if fc.LogFormat != nil {
		cfg.LogFormat = *fc.LogFormat
		set("logFormat")
	}
	return nil
}

// yamlErrorLine extracts the line number from a yaml.v3 syntax error
// ("yaml: line 3: ...").
func yamlErrorLine(msg string) int {
	var line int
	if _, err := fmt.Sscanf(msg, "yaml: line %d:", &line); err != nil {
		return 0
	}
	return line
}

// Load resolves the configuration from defaults, the config file and the
// environment. An explicit path (from a flag) wins over REPLAYD_CONFIG and
// the working directory search; an explicit file that cannot be read is an
// error, a missing discovered file is not.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfig)
	}
	if path == "" {
		found, err := FindLocalConfig()
		if err != nil {
			return nil, err
		}
		path = found
	}
	if path != "" {
		if err := LoadFile(cfg, path); err != nil {
			return nil, err
		}
	}

	LoadEnvConfig(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that values are in range.
func (c *Config) Validate() error {
	var errs []error
	if c.ProxyTimeout <= 0 {
		errs = append(errs, fmt.Errorf("proxyTimeout %s must be positive", c.ProxyTimeout))
	}
	if c.StartupDelay < 0 {
		errs = append(errs, fmt.Errorf("startupDelay %s must not be negative", c.StartupDelay))
	}
	if c.ExtractThreshold < 0 {
		errs = append(errs, fmt.Errorf("extractThreshold %d must not be negative", c.ExtractThreshold))
	}
	if c.HistoryLimit < 1 {
		errs = append(errs, fmt.Errorf("historyLimit %d must be at least 1", c.HistoryLimit))
	}
	if strings.TrimSpace(c.RootDir) == "" {
		errs = append(errs, errors.New("root must not be empty"))
	}
	return errors.Join(errs...)
}
