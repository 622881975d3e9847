package main

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/cobra"
)

func newDedupeCommand(cmdCtx *commandContext) *cobra.Command {
	var remove bool

	cmd := &cobra.Command{
		Use:   "dedupe",
		Short: "Find archives placed more than once across bucket folders",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := cmdCtx.ensureConfig()
			if err != nil {
				return err
			}

			groups, err := collectPlacedArchives(cfg.Paths.OutputDir)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			duplicates := 0
			removed := 0
			for _, mapID := range sortedKeys(groups) {
				paths := groups[mapID]
				if len(paths) < 2 {
					continue
				}
				sort.Strings(paths)
				fmt.Fprintf(out, "%s:\n  keep   %s\n", mapID, paths[0])
				for _, dup := range paths[1:] {
					duplicates++
					if remove {
						if err := os.Remove(dup); err != nil {
							return fmt.Errorf("remove %s: %w", dup, err)
						}
						removed++
						fmt.Fprintf(out, "  removed %s\n", dup)
					} else {
						fmt.Fprintf(out, "  dupe   %s\n", dup)
					}
				}
			}

			switch {
			case duplicates == 0:
				fmt.Fprintln(out, "No duplicate archives found")
			case remove:
				fmt.Fprintf(out, "Removed %d duplicate archives\n", removed)
			default:
				fmt.Fprintf(out, "Found %d duplicate archives (re-run with --remove to delete)\n", duplicates)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&remove, "remove", false, "Delete duplicates instead of only reporting them")
	return cmd
}

// collectPlacedArchives groups placed zip files by the map identifier
// prefix of their filename.
func collectPlacedArchives(outputDir string) (map[string][]string, error) {
	groups := make(map[string][]string)
	err := filepath.WalkDir(outputDir, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if os.IsNotExist(walkErr) && path == outputDir {
				return filepath.SkipAll
			}
			return walkErr
		}
		if d.IsDir() || !strings.EqualFold(filepath.Ext(path), ".zip") {
			return nil
		}
		base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
		mapID, _, _ := strings.Cut(base, "_")
		if mapID == "" {
			return nil
		}
		groups[mapID] = append(groups[mapID], path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan output directory: %w", err)
	}
	return groups, nil
}

func sortedKeys(m map[string][]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
