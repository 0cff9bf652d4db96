package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/pkg/config"
)

var (
	// Persistent flags available to all subcommands
	configPath string
	logLevel   string
	logFormat  string
	jsonOutput bool

	// Version is injected during build
	Version = "dev"
	// Commit is injected during build
	Commit = "none"
	// BuildDate is injected during build
	BuildDate = "unknown"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "replayd",
	Short: "replayd records and replays the HTTP traffic of your tests",
	Long: `replayd records the HTTP calls tests make to external services and replays
them on later runs. Request fields that change between runs (timestamps,
request ids) are detected automatically and ignored during matching.

Configuration is read from replayd.yaml (or the file named by REPLAYD_CONFIG),
then REPLAYD_* environment variables, then flags.`,
	SilenceUsage:  true,
	SilenceErrors: true, // We handle errors in Execute()
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	os.Exit(Main())
}

// Main runs the root command with os.Args and returns the exit code.
func Main() int {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
		return 1
	}
	return 0
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: ./replayd.yaml or $REPLAYD_CONFIG)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "Output command results in JSON format")
}

// loadConfig resolves the configuration and applies the global flags on top.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
		cfg.Sources["logLevel"] = config.SourceFlag
	}
	if cmd.Flags().Changed("log-format") {
		cfg.LogFormat = logFormat
		cfg.Sources["logFormat"] = config.SourceFlag
	}
	return cfg, nil
}

// applyRoot overrides the recordings root when --root was given.
func applyRoot(cmd *cobra.Command, cfg *config.Config, root string) {
	if cmd.Flags().Changed("root") {
		cfg.RootDir = root
		cfg.Sources["root"] = config.SourceFlag
	}
}

// logger writes to the command's stderr so stdout stays machine readable.
func logger(cmd *cobra.Command, cfg *config.Config) *slog.Logger {
	return cfg.Logger(cmd.ErrOrStderr())
}

func stdout(cmd *cobra.Command) io.Writer {
	return cmd.OutOrStdout()
}
