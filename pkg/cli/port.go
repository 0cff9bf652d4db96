package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/internal/ports"
	"github.com/getmockd/replayd/pkg/cli/internal/output"
)

var portCheck int

// PortOutput represents the JSON output format for the port command.
type PortOutput struct {
	Port      int  `json:"port"`
	Available bool `json:"available"`
}

var portCmd = &cobra.Command{
	Use:   "port",
	Short: "Print a free local port, or check one with --check",
	Example: `  # Reserve a port for a manually started upstream
  PORT=$(replayd port)

  # Check whether 8080 is free
  replayd port --check 8080`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		out := PortOutput{Port: portCheck, Available: true}
		if cmd.Flags().Changed("check") {
			if err := ports.Check(portCheck); err != nil {
				out.Available = false
				if jsonOutput {
					return output.JSON(stdout(cmd), out)
				}
				return fmt.Errorf("port %d is not available: %w", portCheck, err)
			}
		} else {
			port, err := ports.FindFree()
			if err != nil {
				return err
			}
			out.Port = port
		}

		if jsonOutput {
			return output.JSON(stdout(cmd), out)
		}
		fmt.Fprintln(stdout(cmd), out.Port)
		return nil
	},
}

func init() {
	portCmd.Flags().IntVar(&portCheck, "check", 0, "Check whether this port is free instead of allocating one")
	rootCmd.AddCommand(portCmd)
}
