// Package config resolves the effective build request from flags,
// environment variables, the user config file, and defaults, in that
// order of precedence.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"velo/internal/cargo"
	"velo/internal/workspace"
)

// UserConfig represents ~/.config/velo/config.yaml.
type UserConfig struct {
	// CacheRoot overrides where cache buckets live.
	CacheRoot string `yaml:"cache_root,omitempty"`
	// DefaultProfile is used when no --profile flag is given.
	DefaultProfile string `yaml:"default_profile,omitempty"`
	// AndroidAPILevel selects the NDK clang wrapper suffix.
	AndroidAPILevel int `yaml:"android_api_level,omitempty"`
}

// LoadUserConfig reads the user config file. A missing file yields an
// empty config; a malformed one is an error worth surfacing.
func LoadUserConfig() (*UserConfig, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return &UserConfig{}, nil
	}
	return LoadUserConfigFrom(filepath.Join(dir, "velo", "config.yaml"))
}

// LoadUserConfigFrom reads a user config from an explicit path.
func LoadUserConfigFrom(path string) (*UserConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &UserConfig{}, nil
		}
		return nil, fmt.Errorf("reading user config: %w", err)
	}
	var c UserConfig
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing user config %s: %w", path, err)
	}
	return &c, nil
}

// Request describes one invocation. The command layer fills it from flags
// and the pipeline resolves the remaining fields in place.
type Request struct {
	Profile       string
	Target        string // canonical triple, empty for host builds
	WorkspaceRoot string
	BinariesCSV   string // raw flag value, resolved into Binaries
	Binaries      []workspace.Binary

	CacheKeyOverride  string
	CacheRoot         string
	SDKRoot           string
	ToolchainOverride string

	Deterministic  bool
	ReleasePromote bool
	KeepEnv        bool
	DebugSymbols   bool
	Trace          bool

	RunAfterBuild bool
	RunDir        string
	RunArgs       []string

	LockMode cargo.LockMode
}

// Environment variable names recognized alongside flags.
const (
	EnvCacheBucket = "VELO_CACHE_BUCKET"
	EnvCacheRoot   = "VELO_CACHE_ROOT"
	EnvToolchain   = "VELO_TOOLCHAIN"
	EnvNDKRoot     = "VELO_NDK_ROOT"
	EnvBinaries    = "VELO_BINS"
	// EnvNoPromotion is the escape hatch disabling release promotion.
	EnvNoPromotion = "VELO_NO_PROFILE_PROMOTION"
)

// knownProfiles maps a profile id to the subdirectory cargo writes its
// output under. The fast profile is a custom cargo profile sharing dev
// semantics with lighter codegen.
var knownProfiles = map[string]string{
	"dev":     "debug",
	"release": "release",
	"fast":    "fast",
}

// ProfileSubdir maps a profile id to its output subdirectory.
func ProfileSubdir(profile string) (string, error) {
	subdir, ok := knownProfiles[profile]
	if !ok {
		return "", fmt.Errorf("unknown profile %q (expected dev, fast, or release)", profile)
	}
	return subdir, nil
}

// ValidProfile reports whether profile is recognized.
func ValidProfile(profile string) bool {
	_, ok := knownProfiles[profile]
	return ok
}
