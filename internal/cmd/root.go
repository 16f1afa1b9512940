package cmd

import (
	"github.com/spf13/cobra"

	"velo/internal/logging"
)

var rootVerbosity int

var rootCmd = &cobra.Command{
	Use:   "velo",
	Short: "Velo - fast cargo builds with branch-scoped caches",
	Long: `Velo is a fast build front-end for cargo workspaces.

It keeps one build cache per branch and worktree so switching branches never
invalidates incremental state, pins the toolchain per invocation, configures
cross-compilation SDKs automatically, and publishes binaries to stable paths.`,
	Version: "1.0.0",
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logging.Setup(rootVerbosity)
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().CountVarP(&rootVerbosity, "verbose", "v", "Increase log verbosity (repeatable)")
}
