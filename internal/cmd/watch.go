package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"velo/internal/daemon"
	"velo/internal/logging"
	"velo/internal/workspace"
)

var (
	watchProfile string
	watchTarget  string
	watchBins    string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Rebuild automatically when sources change",
	Long: `Watch the workspace and rebuild whenever a source file, manifest, or
lockfile changes. Build failures are reported and watching continues.

Examples:
  velo watch                        # Rebuild the configured binaries on change
  velo watch --profile=dev          # Watch with the dev profile
  velo watch --bins=server`,
	RunE: runWatchCmd,
}

func init() {
	rootCmd.AddCommand(watchCmd)
	watchCmd.Flags().StringVarP(&watchProfile, "profile", "p", "", "Build profile (dev|fast|release)")
	watchCmd.Flags().StringVarP(&watchTarget, "target", "t", "", "Target triple or alias")
	watchCmd.Flags().StringVar(&watchBins, "bins", "", "Comma-separated binary names to build")
}

func runWatchCmd(cmd *cobra.Command, args []string) error {
	log := logging.GetLogger("watch")
	ctx := cmd.Context()

	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return fmt.Errorf("not in a velo workspace: %w", err)
	}

	rebuild := func() {
		req := buildRequestFromFlags(nil)
		req.Profile = watchProfile
		req.Target = watchTarget
		req.BinariesCSV = watchBins

		sum, _, err := executeBuild(ctx, req)
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n", err)
			fmt.Println("👀 Watching for changes...")
			return
		}
		sum.Print(os.Stdout)
		fmt.Println("\n👀 Watching for changes...")
	}

	// One build up front so the watcher starts from a known-good state.
	rebuild()

	watcher, err := daemon.NewWatcher(daemon.DefaultWatcherConfig(root))
	if err != nil {
		return err
	}
	if err := watcher.Start(ctx); err != nil {
		return err
	}
	defer watcher.Stop()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-stop:
			fmt.Println("\n👋 Stopping watch")
			return nil
		case change := <-watcher.Changes():
			fmt.Printf("📝 %s %s\n", change.Path, change.Op)
			rebuild()
		case err := <-watcher.Errors():
			log.Warn().Err(err).Msg("watch error")
		}
	}
}
