package cli

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"

	"github.com/getmockd/replayd/pkg/cli/internal/output"
)

// VersionOutput is the --json form of the version command.
type VersionOutput struct {
	Version string `json:"version"`
	Commit  string `json:"commit"`
	Date    string `json:"date"`
	Go      string `json:"go"`
	OS      string `json:"os"`
	Arch    string `json:"arch"`
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show replayd version information",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		v := currentVersion(debug.ReadBuildInfo)
		if jsonOutput {
			return output.JSON(stdout(cmd), v)
		}
		fmt.Fprintf(stdout(cmd), "replayd %s (%s, %s)\n%s %s/%s\n", v.Version, v.Commit, v.Date, v.Go, v.OS, v.Arch)
		return nil
	},
}

// currentVersion fills values not injected at link time from the module and
// VCS build info.
func currentVersion(readBuildInfo func() (*debug.BuildInfo, bool)) VersionOutput {
	v := VersionOutput{
		Version: Version,
		Commit:  Commit,
		Date:    BuildDate,
		Go:      runtime.Version(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
	}

	info, ok := readBuildInfo()
	if !ok {
		return v
	}
	if v.Version == "dev" && info.Main.Version != "" && info.Main.Version != "(devel)" {
		v.Version = info.Main.Version
	}
	settings := make(map[string]string, len(info.Settings))
	for _, s := range info.Settings {
		settings[s.Key] = s.Value
	}
	if rev := settings["vcs.revision"]; rev != "" && v.Commit == "none" {
		v.Commit = rev
		if settings["vcs.modified"] == "true" {
			v.Commit += "-dirty"
		}
	}
	if t := settings["vcs.time"]; t != "" && v.Date == "unknown" {
		v.Date = t
	}
	return v
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
