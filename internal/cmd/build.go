package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"velo/internal/cachekey"
	"velo/internal/cargo"
	"velo/internal/config"
	"velo/internal/cross"
	"velo/internal/envtable"
	"velo/internal/fingerprint"
	"velo/internal/logging"
	"velo/internal/publish"
	"velo/internal/summary"
	"velo/internal/toolchain"
	"velo/internal/vcs"
	"velo/internal/workspace"
)

var (
	buildProfile        string
	buildTarget         string
	buildBins           string
	buildCacheKey       string
	buildCacheRoot      string
	buildToolchain      string
	buildSDKRoot        string
	buildDeterministic  bool
	buildReleasePromote bool
	buildKeepEnv        bool
	buildDebugSymbols   bool
	buildTrace          bool
)

var buildCmd = &cobra.Command{
	Use:   "build [binary...]",
	Short: "Build binaries into the branch-scoped cache bucket",
	Long: `Build the workspace binaries with cargo and publish them to stable paths.

Each branch (and worktree) gets its own cache bucket, so switching branches
never throws away incremental compilation state. Cross targets get their SDK
configured automatically.

Examples:
  velo build                          # Build configured binaries (fast profile)
  velo build --profile=release        # Optimized build
  velo build --target=android         # Cross-compile for aarch64-linux-android
  velo build server worker            # Build specific binaries
  velo build --deterministic          # Reproducible paths and timestamps`,
	RunE: runBuildCmd,
}

func init() {
	rootCmd.AddCommand(buildCmd)
	buildCmd.Flags().StringVarP(&buildProfile, "profile", "p", "", "Build profile (dev|fast|release)")
	buildCmd.Flags().StringVarP(&buildTarget, "target", "t", "", "Target triple or alias (e.g. android)")
	buildCmd.Flags().StringVar(&buildBins, "bins", "", "Comma-separated binary names to build")
	buildCmd.Flags().StringVar(&buildCacheKey, "cache-key", "", "Override the cache bucket key")
	buildCmd.Flags().StringVar(&buildCacheRoot, "cache-root", "", "Override the cache root directory")
	buildCmd.Flags().StringVar(&buildToolchain, "toolchain", "", "Override the toolchain channel")
	buildCmd.Flags().StringVar(&buildSDKRoot, "sdk-root", "", "Override the cross-compilation SDK root (Android NDK)")
	buildCmd.Flags().BoolVar(&buildDeterministic, "deterministic", false, "Pin timestamps and remap source paths")
	buildCmd.Flags().BoolVar(&buildReleasePromote, "release-promote", false, "Promote the profile to release")
	buildCmd.Flags().BoolVar(&buildKeepEnv, "keep-env", false, "Inherit build-affecting variables from the shell")
	buildCmd.Flags().BoolVar(&buildDebugSymbols, "debug-symbols", false, "Force debug info for the selected profile")
	buildCmd.Flags().BoolVar(&buildTrace, "trace", false, "Dump the compiler environment before building")
}

func runBuildCmd(cmd *cobra.Command, args []string) error {
	req := buildRequestFromFlags(args)

	sum, _, err := executeBuild(cmd.Context(), req)
	if err != nil {
		return err
	}

	sum.Print(os.Stdout)
	fmt.Println("\n✅ Build completed successfully!")
	return nil
}

// buildRequestFromFlags assembles a request from the build command flags.
// Positional args win over --bins.
func buildRequestFromFlags(args []string) *config.Request {
	bins := buildBins
	if len(args) > 0 {
		bins = strings.Join(args, ",")
	}
	return &config.Request{
		Profile:           buildProfile,
		Target:            buildTarget,
		CacheKeyOverride:  buildCacheKey,
		CacheRoot:         buildCacheRoot,
		SDKRoot:           buildSDKRoot,
		ToolchainOverride: buildToolchain,
		Deterministic:     buildDeterministic,
		ReleasePromote:    buildReleasePromote,
		KeepEnv:           buildKeepEnv,
		DebugSymbols:      buildDebugSymbols,
		Trace:             buildTrace,
		BinariesCSV:       bins,
	}
}

// executeBuild runs the full pipeline: resolve the cache bucket, pin the
// toolchain, configure cross targets, fingerprint the environment, compile,
// and publish. The request is mutated in place to its resolved values.
func executeBuild(ctx context.Context, req *config.Request) (*summary.Build, *envtable.Table, error) {
	log := logging.GetLogger("build")

	cwd, err := os.Getwd()
	if err != nil {
		return nil, nil, err
	}
	root, err := workspace.FindRoot(cwd)
	if err != nil {
		return nil, nil, fmt.Errorf("not in a velo workspace: %w", err)
	}
	req.WorkspaceRoot = root

	manifest, err := workspace.LoadConfig(root)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, nil, fmt.Errorf("failed to load %s: %w", workspace.ConfigFileName, err)
	}

	env := envtable.Capture()
	user, err := config.LoadUserConfig()
	if err != nil {
		log.Debug().Err(err).Msg("no user config")
	}
	resolver := config.NewResolver(user, env)

	req.Profile = resolver.ResolveProfile(req.Profile)
	if !config.ValidProfile(req.Profile) {
		return nil, nil, fmt.Errorf("unknown profile %q (expected dev, fast, or release)", req.Profile)
	}
	if req.Target != "" {
		req.Target = cross.CanonicalTriple(req.Target)
	}

	req.Binaries, err = resolver.ResolveBinaries(req.BinariesCSV, manifest)
	if err != nil {
		return nil, nil, err
	}

	// Cache bucket selection runs before anything touches the environment.
	info := vcs.Query(root, nil)
	worktree := info.WorktreeRoot
	if worktree == "" {
		worktree = root
	}
	cacheRoot := resolver.ResolveCacheRoot(req.CacheRoot, worktree)
	bucket := cachekey.Resolve(info.BranchLabel, worktree, req.Target, resolver.ResolveCacheKey(req.CacheKeyOverride), cacheRoot)
	log.Debug().Str("bucket", bucket.Key).Str("dir", bucket.Directory).Msg("cache bucket selected")

	// The compiler sees an explicit env table, never mutated process state.
	buildEnv := env.Clone()
	if !req.KeepEnv {
		config.SanitizeInherited(buildEnv)
	}

	rustup, err := toolchain.NewCLI(buildEnv)
	if err != nil {
		return nil, nil, err
	}
	desc, err := toolchain.NewResolver(rustup, false).Resolve(ctx, root, resolver.ResolveToolchain(req.ToolchainOverride))
	if err != nil {
		return nil, nil, err
	}
	if req.Target != "" && req.Target != desc.Host {
		if cross.NeedsSDK(req.Target) {
			configurator := cross.NewConfigurator(resolver.ResolveSDKRoot(req.SDKRoot), resolver.ResolveAPILevel(), env)
			target, err := configurator.Configure(req.Target)
			if err != nil {
				return nil, nil, err
			}
			target.Export(buildEnv)
			fmt.Printf("🔗 Cross SDK: %s\n", target.SDKRoot)
		}
		if err := cross.EnsureStdlib(ctx, rustup, desc.Channel, req.Target); err != nil {
			return nil, nil, err
		}
	}

	var promoted bool
	req.Profile, promoted = config.PromoteProfile(req.Profile, req.ReleasePromote, resolver.PromotionDisabled())
	subdir, err := config.ProfileSubdir(req.Profile)
	if err != nil {
		return nil, nil, err
	}

	var epoch int64
	if req.Deterministic {
		epoch = vcs.CommitTime(root, nil)
	}
	config.ApplyModes(req, buildEnv, epoch)
	buildEnv.Set("CARGO_TARGET_DIR", bucket.Directory)

	snap := fingerprint.Capture(fingerprint.Inputs{
		Profile:      req.Profile,
		Target:       req.Target,
		Channel:      desc.Channel,
		Host:         desc.Host,
		RustcPath:    desc.RustcPath,
		CargoPath:    desc.CargoPath,
		RustcVersion: desc.RustcVersion,
		CargoVersion: desc.CargoVersion,
	}, buildEnv)
	drift := fingerprint.Compare(bucket.Directory, req.Profile, snap)
	if drift == fingerprint.Drift {
		fmt.Println("⚠️  Environment changed since the last build of this bucket; expect recompilation")
	}

	req.LockMode = cargo.DetectLockMode(root)
	if req.LockMode == cargo.Unlocked {
		fmt.Println("⚠️  No Cargo.lock found; building with unlocked dependencies")
	}

	if req.Trace {
		dumpEnv(buildEnv)
		fmt.Fprintf(os.Stderr, "--- fingerprint (%s) ---\n%s", snap.Digest(), snap.Blob())
	}

	binNames := make([]string, len(req.Binaries))
	for i, bin := range req.Binaries {
		binNames[i] = bin.DiskName()
	}

	fmt.Printf("🔨 Building %s [%s] in bucket %s...\n", joinNames(binNames), req.Profile, bucket.Key)

	executor := cargo.NewExecutor(root, desc.CargoPath, buildEnv, rootVerbosity > 1)
	buildErr := executor.Build(ctx, cargo.BuildOptions{
		Profile:  req.Profile,
		Target:   req.Target,
		Binaries: binNames,
		LockMode: req.LockMode,
	})

	// The fingerprint records the attempted configuration, success or not,
	// so the next run compares against what actually ran.
	if perr := fingerprint.Persist(bucket.Directory, req.Profile, snap); perr != nil {
		log.Warn().Err(perr).Msg("failed to persist fingerprint")
	}

	if buildErr != nil {
		translator := cargo.NewErrorTranslator()
		return nil, nil, fmt.Errorf("❌ Build failed:\n%s", translator.Translate(buildErr.Error()))
	}

	publisher := publish.New(bucket.Directory, req.Profile, subdir, req.Target, desc.Host)
	artifacts, err := publisher.Publish(req.Binaries)
	if err != nil {
		return nil, nil, err
	}

	return &summary.Build{
		Bucket:       bucket,
		Channel:      desc.Channel,
		Host:         desc.Host,
		Target:       req.Target,
		Profile:      req.Profile,
		Promoted:     promoted,
		DebugSymbols: req.DebugSymbols,
		LockMode:     req.LockMode,
		Drift:        drift,
		Artifacts:    artifacts,
	}, buildEnv, nil
}
