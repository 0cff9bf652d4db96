package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/pkg/cli/internal/output"
	"github.com/getmockd/replayd/pkg/config"
)

// ConfigEntry is one resolved setting.
type ConfigEntry struct {
	Key    string `json:"key"`
	Value  string `json:"value"`
	Source string `json:"source"`
}

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration and where each value came from",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		entries := configEntries(cfg)
		if jsonOutput {
			return output.JSON(stdout(cmd), entries)
		}

		w := output.Table(stdout(cmd))
		fmt.Fprintln(w, "KEY\tVALUE\tSOURCE")
		for _, e := range entries {
			fmt.Fprintf(w, "%s\t%s\t%s\n", e.Key, e.Value, e.Source)
		}
		return w.Flush()
	},
}

func configEntries(cfg *config.Config) []ConfigEntry {
	source := func(key string) string {
		if s, ok := cfg.Sources[key]; ok {
			return s
		}
		return config.SourceDefault
	}
	entry := func(key, value string) ConfigEntry {
		return ConfigEntry{Key: key, Value: value, Source: source(key)}
	}
	return []ConfigEntry{
		entry("mode", cfg.Mode.String()),
		entry("baseUrl", cfg.BaseURL),
		entry("proxyTimeout", cfg.ProxyTimeout.String()),
		entry("startupDelay", cfg.StartupDelay.String()),
		entry("root", cfg.RootDir),
		entry("extractThreshold", strconv.Itoa(cfg.ExtractThreshold)),
		entry("historyLimit", strconv.Itoa(cfg.HistoryLimit)),
		entry("logLevel", cfg.LogLevel),
		entry("logFormat", cfg.LogFormat),
	}
}

func init() {
	rootCmd.AddCommand(configCmd)
}
