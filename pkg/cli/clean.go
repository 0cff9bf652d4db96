package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"slices"

	"github.com/spf13/cobra"
)

var (
	cleanRoot   string
	cleanDryRun bool
)

var cleanCmd = &cobra.Command{
	Use:   "clean",
	Short: "Remove empty directories under the recordings root",
	Long: `Removes every directory under the recordings root whose tree holds no
file, such as the mapping directories of sessions that recorded nothing.
The root itself is kept.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		applyRoot(cmd, cfg, cleanRoot)

		removed, err := removeEmptyDirs(cfg.RootDir, cleanDryRun)
		if err != nil {
			return err
		}
		for _, dir := range removed {
			fmt.Fprintln(stdout(cmd), dir)
		}
		logger(cmd, cfg).Info("clean finished", "root", cfg.RootDir, "removed", len(removed), "dryRun", cleanDryRun)
		return nil
	},
}

// removeEmptyDirs removes directories below root that contain no file,
// deepest first, and returns them in removal order.
func removeEmptyDirs(root string, dryRun bool) ([]string, error) {
	var dirs []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() && path != root {
			dirs = append(dirs, path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	// WalkDir visits parents first; reversed, children come before parents.
	slices.Reverse(dirs)

	gone := make(map[string]bool)
	var removed []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			return removed, err
		}
		empty := true
		for _, e := range entries {
			if !gone[filepath.Join(dir, e.Name())] {
				empty = false
				break
			}
		}
		if !empty {
			continue
		}
		if !dryRun {
			if err := os.Remove(dir); err != nil {
				return removed, err
			}
		}
		gone[dir] = true
		removed = append(removed, dir)
	}
	return removed, nil
}

func init() {
	cleanCmd.Flags().StringVar(&cleanRoot, "root", "", "Recordings root (default from config)")
	cleanCmd.Flags().BoolVar(&cleanDryRun, "dry-run", false, "Only print what would be removed")
	rootCmd.AddCommand(cleanCmd)
}
