package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"velo/internal/cachekey"
	"velo/internal/config"
	"velo/internal/cross"
	"velo/internal/envtable"
	"velo/internal/vcs"
	"velo/internal/workspace"
)

var (
	cleanAll    bool
	cleanTarget string
)

var cleanCmd = &cobra.Command{
	Use:   "clean [bucket-key]",
	Short: "Remove cache buckets",
	Long: `Remove build cache buckets.

Without arguments, removes the current branch's bucket. Pass a bucket key
to remove a specific bucket, or --all to remove every bucket under the
cache root.

Examples:
  velo clean                  # Remove the current branch's bucket
  velo clean --all            # Remove all buckets
  velo clean main-a1b2c3d4e5f6-0f1e2d3c4b5a  # Remove one bucket by key`,
	Args: cobra.MaximumNArgs(1),
	RunE: runCleanCmd,
}

func init() {
	rootCmd.AddCommand(cleanCmd)
	cleanCmd.Flags().BoolVar(&cleanAll, "all", false, "Remove every bucket under the cache root")
	cleanCmd.Flags().StringVarP(&cleanTarget, "target", "t", "", "Target triple or alias (selects the per-target bucket)")
}

func runCleanCmd(cmd *cobra.Command, args []string) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return fmt.Errorf("not in a velo workspace: %w", err)
	}

	env := envtable.Capture()
	user, _ := config.LoadUserConfig()
	resolver := config.NewResolver(user, env)

	info := vcs.Query(root, nil)
	worktree := info.WorktreeRoot
	if worktree == "" {
		worktree = root
	}
	cacheRoot := resolver.ResolveCacheRoot("", worktree)

	if cleanAll {
		fmt.Printf("🗑️  Removing cache root %s...\n", cacheRoot)
		if err := os.RemoveAll(cacheRoot); err != nil {
			return fmt.Errorf("failed to remove %s: %w", cacheRoot, err)
		}
		fmt.Println("✅ Clean completed successfully")
		return nil
	}

	var dir string
	if len(args) == 1 {
		dir = filepath.Join(cacheRoot, cachekey.Sanitize(args[0]))
	} else {
		target := cleanTarget
		if target != "" {
			target = cross.CanonicalTriple(target)
		}
		bucket := cachekey.Resolve(info.BranchLabel, worktree, target, resolver.ResolveCacheKey(""), cacheRoot)
		dir = bucket.Directory
	}

	if _, err := os.Stat(dir); os.IsNotExist(err) {
		fmt.Printf("Nothing to clean: %s does not exist\n", dir)
		return nil
	}

	fmt.Printf("🗑️  Removing bucket %s...\n", dir)
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("failed to remove %s: %w", dir, err)
	}
	fmt.Println("✅ Clean completed successfully")
	return nil
}
