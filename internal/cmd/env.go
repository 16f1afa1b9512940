package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"velo/internal/cachekey"
	"velo/internal/config"
	"velo/internal/cross"
	"velo/internal/envtable"
	"velo/internal/fingerprint"
	"velo/internal/toolchain"
	"velo/internal/vcs"
	"velo/internal/workspace"
)

var (
	envProfile string
	envTarget  string
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Show the resolved build configuration without building",
	Long: `Show which cache bucket, toolchain channel, and environment a build
would use, without running the compiler. Useful for debugging why two
machines produce different caches.`,
	RunE: runEnvCmd,
}

func init() {
	rootCmd.AddCommand(envCmd)
	envCmd.Flags().StringVarP(&envProfile, "profile", "p", "", "Build profile (dev|fast|release)")
	envCmd.Flags().StringVarP(&envTarget, "target", "t", "", "Target triple or alias")
}

func runEnvCmd(cmd *cobra.Command, args []string) error {
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

	profile := resolver.ResolveProfile(envProfile)
	target := envTarget
	if target != "" {
		target = cross.CanonicalTriple(target)
	}

	info := vcs.Query(root, nil)
	worktree := info.WorktreeRoot
	if worktree == "" {
		worktree = root
	}
	cacheRoot := resolver.ResolveCacheRoot("", worktree)
	bucket := cachekey.Resolve(info.BranchLabel, worktree, target, resolver.ResolveCacheKey(""), cacheRoot)

	channel := resolver.ResolveToolchain("")
	channelSource := "override"
	if channel == "" {
		channel = toolchain.ScanManifestChannel(root)
		channelSource = "manifest"
	}
	if channel == "" {
		channel = "(active rustup default)"
		channelSource = "active"
	}

	buildEnv := env.Clone()
	config.SanitizeInherited(buildEnv)
	buildEnv.Set("CARGO_TARGET_DIR", bucket.Directory)

	snap := fingerprint.Capture(fingerprint.Inputs{
		Profile: profile,
		Target:  target,
		Channel: channel,
	}, buildEnv)

	fmt.Printf("Workspace:  %s\n", root)
	fmt.Printf("Branch:     %s\n", info.BranchLabel)
	fmt.Printf("Bucket:     %s (%s)\n", bucket.Key, bucket.Provenance)
	fmt.Printf("Directory:  %s\n", bucket.Directory)
	fmt.Printf("Toolchain:  %s (%s)\n", channel, channelSource)
	fmt.Printf("Profile:    %s\n", profile)
	if target != "" {
		fmt.Printf("Target:     %s\n", target)
	}
	fmt.Printf("\nFingerprint inputs:\n%s", snap.Blob())

	// Toolchain probes are skipped here, so the snapshot is partial and a
	// content comparison would always drift. Report baseline presence only.
	if fingerprint.Compare(bucket.Directory, profile, snap) == fingerprint.NoBaseline {
		fmt.Printf("\nBaseline:   none (first build of this bucket)\n")
	} else {
		fmt.Printf("\nBaseline:   %s\n", fingerprint.FilePath(bucket.Directory, profile))
	}
	return nil
}
