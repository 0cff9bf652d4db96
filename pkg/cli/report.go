package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/pkg/cli/internal/output"
	"github.com/getmockd/replayd/pkg/report"
)

var (
	reportRoot string
	reportOut  string
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Summarize recorded test identities as JSON",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyRoot(cmd, cfg, reportRoot)

		r, err := report.BuildWithOptions(cfg.RootDir, report.Options{Logger: logger(cmd, cfg)})
		if err != nil {
			return err
		}
		if reportOut == "" {
			return output.JSON(stdout(cmd), r)
		}
		if err := report.Write(reportOut, r); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "report for %d class(es) written to %s\n", len(r.Classes), reportOut)
		return nil
	},
}

func init() {
	reportCmd.Flags().StringVar(&reportRoot, "root", "", "Recordings root (default from config)")
	reportCmd.Flags().StringVarP(&reportOut, "out", "o", "", "Write the report to this file instead of stdout")
	rootCmd.AddCommand(reportCmd)
}
