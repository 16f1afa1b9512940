// Package cross configures cross-compilation: it maps friendly platform
// names to canonical triples, discovers the foreign-architecture SDK,
// verifies the cross linker and archiver exist, and exports the
// target-qualified variables cargo and cc-crate build scripts read.
package cross

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"velo/internal/envtable"
	"velo/internal/logging"
	"velo/internal/toolchain"
)

const defaultAPILevel = 24

var (
	// ErrSDKNotFound means no discovery strategy produced a usable SDK.
	ErrSDKNotFound = errors.New("cross SDK not found")
	// ErrLinkerMissing means the accepted SDK lacks the cross linker.
	ErrLinkerMissing = errors.New("cross linker missing")
	// ErrArchiverMissing means the accepted SDK lacks the cross archiver.
	ErrArchiverMissing = errors.New("cross archiver missing")
)

// aliases maps friendly platform names to canonical triples. Lookup happens
// before anything else; canonical triples pass through untouched.
var aliases = map[string]string{
	"android":     "aarch64-linux-android",
	"android-arm": "armv7-linux-androideabi",
	"android-x86": "x86_64-linux-android",
}

// clangPrefixes covers triples whose NDK clang wrapper is spelled
// differently from the Rust triple.
var clangPrefixes = map[string]string{
	"armv7-linux-androideabi": "armv7a-linux-androideabi",
}

// CanonicalTriple resolves a friendly alias to its triple. Unknown names
// are assumed to already be triples.
func CanonicalTriple(name string) string {
	if triple, ok := aliases[name]; ok {
		return triple
	}
	return name
}

// NeedsSDK reports whether the triple requires an external prebuilt SDK
// (Android NDK family) as opposed to only a standard-library component.
func NeedsSDK(triple string) bool {
	return strings.Contains(triple, "-android")
}

// Target is the fully validated cross-compilation configuration.
type Target struct {
	Triple   string
	SDKRoot  string
	Linker   string
	Archiver string
	CC       string
	Ranlib   string
}

// Configurator discovers and validates the SDK for a foreign target.
type Configurator struct {
	strategies []Strategy
	apiLevel   int
}

// NewConfigurator builds the default discovery chain. overrideRoot, when
// non-empty, is consulted first and exclusively trusted if set. apiLevel
// zero selects the default.
func NewConfigurator(overrideRoot string, apiLevel int, env *envtable.Table) *Configurator {
	home, _ := os.UserHomeDir()
	get := func(key string) string {
		if env == nil {
			return ""
		}
		v, _ := env.Get(key)
		return v
	}
	if overrideRoot == "" {
		overrideRoot = get("VELO_NDK_ROOT")
	}
	if overrideRoot == "" {
		overrideRoot = get("ANDROID_NDK_HOME")
	}
	if apiLevel == 0 {
		apiLevel = defaultAPILevel
	}
	return &Configurator{
		apiLevel: apiLevel,
		strategies: []Strategy{
			OverrideStrategy{Root: overrideRoot},
			SDKHomeStrategy{AndroidHome: get("ANDROID_HOME")},
			KnownPathsStrategy{Home: home},
		},
	}
}

// NewConfiguratorWithStrategies is the test seam: a fixed chain, no
// environment consultation.
func NewConfiguratorWithStrategies(apiLevel int, strategies ...Strategy) *Configurator {
	return &Configurator{apiLevel: apiLevel, strategies: strategies}
}

// Configure finds the SDK for triple and validates the required tools.
// Either required tool missing is a terminal configuration error: there is
// no point starting a compile that cannot link.
func (c *Configurator) Configure(triple string) (*Target, error) {
	log := logging.GetLogger("cross")

	root := ""
	for _, s := range c.strategies {
		for _, candidate := range s.Discover() {
			if !layoutMatches(candidate) {
				log.Debug().Str("strategy", s.Name()).Str("candidate", candidate).Msg("candidate rejected: unexpected layout")
				continue
			}
			log.Debug().Str("strategy", s.Name()).Str("root", candidate).Msg("SDK accepted")
			root = candidate
			break
		}
		if root != "" {
			break
		}
	}
	if root == "" {
		return nil, fmt.Errorf("%w for target %s (set VELO_NDK_ROOT or ANDROID_NDK_HOME)", ErrSDKNotFound, triple)
	}

	bin := filepath.Join(root, "toolchains", "llvm", "prebuilt", hostTag(), "bin")

	clangTriple := triple
	if p, ok := clangPrefixes[triple]; ok {
		clangTriple = p
	}
	linker := filepath.Join(bin, fmt.Sprintf("%s%d-clang", clangTriple, c.apiLevel))
	if !isExecutable(linker) {
		return nil, fmt.Errorf("%w: %s", ErrLinkerMissing, linker)
	}
	archiver := filepath.Join(bin, "llvm-ar")
	if !isExecutable(archiver) {
		return nil, fmt.Errorf("%w: %s", ErrArchiverMissing, archiver)
	}

	t := &Target{
		Triple:   triple,
		SDKRoot:  root,
		Linker:   linker,
		Archiver: archiver,
		CC:       linker,
		Ranlib:   filepath.Join(bin, "llvm-ranlib"),
	}
	return t, nil
}

// Export writes the target-qualified variables into the env table: the
// cargo linker/ar pair plus the companion variables cc-crate build scripts
// shell out with.
func (t *Target) Export(env *envtable.Table) {
	key := EnvTripleKey(t.Triple)
	env.Set("CARGO_TARGET_"+key+"_LINKER", t.Linker)
	env.Set("CARGO_TARGET_"+key+"_AR", t.Archiver)
	env.Set("CC_"+t.Triple, t.CC)
	env.Set("AR_"+t.Triple, t.Archiver)
	env.Set("RANLIB_"+t.Triple, t.Ranlib)
	env.Set("TARGET_CC", t.CC)
	env.Set("TARGET_AR", t.Archiver)
}

// EnsureStdlib installs the target's standard-library component in the
// resolved toolchain if it is not already present.
func EnsureStdlib(ctx context.Context, rustup toolchain.Rustup, channel, triple string) error {
	installed, err := rustup.InstalledTargets(ctx, channel)
	if err == nil {
		for _, t := range installed {
			if t == triple {
				return nil
			}
		}
	}
	if err := rustup.AddTarget(ctx, channel, triple); err != nil {
		return fmt.Errorf("installing stdlib for %s: %w", triple, err)
	}
	return nil
}

// EnvTripleKey renders a triple the way cargo spells env keys: uppercased
// with separators normalized to underscores.
func EnvTripleKey(triple string) string {
	var b strings.Builder
	for _, r := range triple {
		switch {
		case r >= 'a' && r <= 'z':
			b.WriteRune(r - 32)
		case (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9'):
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}

// layoutMatches is the wholesale acceptance check: the prebuilt toolchain
// bin directory must exist. Candidates are accepted or rejected entirely.
func layoutMatches(root string) bool {
	info, err := os.Stat(filepath.Join(root, "toolchains", "llvm", "prebuilt", hostTag(), "bin"))
	return err == nil && info.IsDir()
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir() && info.Mode().Perm()&0o111 != 0
}
