package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"velo/internal/config"
	"velo/internal/publish"
)

var (
	runProfile string
	runTarget  string
	runDir     string
)

var runCmd = &cobra.Command{
	Use:   "run <binary> [-- args...]",
	Short: "Build a binary and execute it",
	Long: `Build one binary and run it from its published path.

Arguments after -- are passed to the binary unchanged. Cross-compiled
binaries are refused: a foreign-architecture binary cannot execute here.

Examples:
  velo run server                  # Build and run the server binary
  velo run server -- --port 8080   # Pass flags through
  velo run --profile=release worker`,
	Args: cobra.MinimumNArgs(1),
	RunE: runRunCmd,
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().StringVarP(&runProfile, "profile", "p", "", "Build profile (dev|fast|release)")
	runCmd.Flags().StringVarP(&runTarget, "target", "t", "", "Target triple or alias")
	runCmd.Flags().StringVar(&runDir, "dir", "", "Working directory for the binary (default: workspace root)")
}

func runRunCmd(cmd *cobra.Command, args []string) error {
	binary := args[0]

	req := &config.Request{
		Profile:       runProfile,
		Target:        runTarget,
		BinariesCSV:   binary,
		RunAfterBuild: true,
		RunDir:        runDir,
		RunArgs:       args[1:],
	}

	sum, env, err := executeBuild(cmd.Context(), req)
	if err != nil {
		return err
	}

	if err := publish.CheckRunnable(sum.Target, sum.Host); err != nil {
		return fmt.Errorf("cannot run %s: %w", binary, err)
	}

	var artifact *publish.Artifact
	for i := range sum.Artifacts {
		if sum.Artifacts[i].Name == binary {
			artifact = &sum.Artifacts[i]
			break
		}
	}
	if artifact == nil {
		return fmt.Errorf("binary %q was not published", binary)
	}

	workdir := req.RunDir
	if workdir == "" {
		workdir = req.WorkspaceRoot
	}

	fmt.Printf("🚀 Running %s\n", artifact.PublishedPath)

	code, err := publish.Run(cmd.Context(), artifact.PublishedPath, workdir, req.RunArgs, env)
	if code != 0 {
		// Pass the child's exit status through unchanged.
		os.Exit(code)
	}
	return err
}
