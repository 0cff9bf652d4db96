package cli

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/internal/atomicfile"
	"github.com/getmockd/replayd/pkg/cli/internal/output"
	"github.com/getmockd/replayd/pkg/detection"
	"github.com/getmockd/replayd/pkg/identity"
	"github.com/getmockd/replayd/pkg/snapshot"
)

var (
	detectOut    string
	detectClass  string
	detectMethod string
)

var detectCmd = &cobra.Command{
	Use:   "detect <snapshots.json>",
	Short: "Detect dynamic fields in a request history file",
	Long: `Runs dynamic field detection over a snapshots file and prints the result.

The test identity is taken from the file location
(<root>/<class>/<method>/snapshots[-<index>][.<request>].json) unless
--class and --method are given.`,
	Example: `  # Print the detection result
  replayd detect testdata/recordings/TestOrders/create/snapshots.json

  # Write it next to the history, as a recording session would
  replayd detect testdata/recordings/TestOrders/create/snapshots.json \
      --out testdata/recordings/TestOrders/create/detected-fields.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		log := logger(cmd, cfg)

		path := args[0]
		history, err := snapshot.ReadFile(path)
		if err != nil {
			return fmt.Errorf("reading history: %w", err)
		}

		id := identityFromPath(path)
		if detectClass != "" {
			id.Class = detectClass
		}
		if detectMethod != "" {
			id.Method = detectMethod
		}

		result := detection.New(detection.Options{Logger: log}).Detect(id, history)
		if len(history) < detection.MinSnapshots {
			output.Warn(cmd.ErrOrStderr(), "history holds %d snapshot(s), detection needs at least %d", len(history), detection.MinSnapshots)
		}

		if detectOut == "" {
			return output.JSON(stdout(cmd), result)
		}
		if err := (atomicfile.Writer{Logger: log}).WriteJSON(detectOut, result); err != nil {
			return err
		}
		fmt.Fprintf(stdout(cmd), "%d dynamic field(s) written to %s\n", len(result.DynamicFields), detectOut)
		return nil
	},
}

// identityFromPath reads class, method, annotation index and request name
// from the standard history location.
func identityFromPath(path string) identity.Identity {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	dir := filepath.Dir(abs)
	id := identity.New(filepath.Base(filepath.Dir(dir)), filepath.Base(dir))
	if id.Method == identity.ClassDirName {
		id.Method = ""
	}

	name := strings.TrimSuffix(filepath.Base(abs), filepath.Ext(abs))
	if !strings.HasPrefix(name, identity.SnapshotsFile) {
		return id
	}
	name, request, _ := strings.Cut(name, ".")
	id = id.WithRequest(request)
	if rest, ok := strings.CutPrefix(name, identity.SnapshotsFile+"-"); ok {
		if n, err := strconv.Atoi(rest); err == nil && n > 0 {
			id = id.WithIndex(n)
		}
	}
	return id
}

func init() {
	detectCmd.Flags().StringVarP(&detectOut, "out", "o", "", "Write the result to this file instead of stdout")
	detectCmd.Flags().StringVar(&detectClass, "class", "", "Test class name recorded in the result")
	detectCmd.Flags().StringVar(&detectMethod, "method", "", "Test method name recorded in the result")
	rootCmd.AddCommand(detectCmd)
}
