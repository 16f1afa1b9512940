package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"velo/internal/envtable"
	"velo/internal/workspace"
)

// Resolver applies the option precedence: CLI flag > environment variable
// > user config file > default. The environment is read from the captured
// table, never from os.Getenv, so resolution stays testable.
type Resolver struct {
	user *UserConfig
	env  *envtable.Table
}

// NewResolver creates a resolver over the loaded user config and the
// captured environment.
func NewResolver(user *UserConfig, env *envtable.Table) *Resolver {
	if user == nil {
		user = &UserConfig{}
	}
	return &Resolver{user: user, env: env}
}

func (r *Resolver) envVal(key string) string {
	if r.env == nil {
		return ""
	}
	v, _ := r.env.Get(key)
	return v
}

// ResolveCacheRoot picks the directory cache buckets live under.
func (r *Resolver) ResolveCacheRoot(flagVal, worktreeRoot string) string {
	if flagVal != "" {
		return flagVal
	}
	if v := r.envVal(EnvCacheRoot); v != "" {
		return v
	}
	if r.user.CacheRoot != "" {
		return r.user.CacheRoot
	}
	return filepath.Join(worktreeRoot, "target-fast")
}

// ResolveProfile picks the build profile.
func (r *Resolver) ResolveProfile(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	if r.user.DefaultProfile != "" {
		return r.user.DefaultProfile
	}
	return "fast"
}

// ResolveCacheKey picks the explicit bucket override, empty for derived.
func (r *Resolver) ResolveCacheKey(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return r.envVal(EnvCacheBucket)
}

// ResolveToolchain picks the channel override, empty for manifest/default.
func (r *Resolver) ResolveToolchain(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return r.envVal(EnvToolchain)
}

// ResolveSDKRoot picks the explicit SDK root override.
func (r *Resolver) ResolveSDKRoot(flagVal string) string {
	if flagVal != "" {
		return flagVal
	}
	return r.envVal(EnvNDKRoot)
}

// ResolveAPILevel picks the Android API level for NDK tool names.
func (r *Resolver) ResolveAPILevel() int {
	if r.user.AndroidAPILevel != 0 {
		return r.user.AndroidAPILevel
	}
	return 24
}

// ResolveBinaries determines the ordered binaries to produce: the flag or
// VELO_BINS override (comma-separated logical names, resolved against the
// manifest when present), else the manifest list.
func (r *Resolver) ResolveBinaries(flagCSV string, manifest *workspace.Config) ([]workspace.Binary, error) {
	csv := flagCSV
	if csv == "" {
		csv = r.envVal(EnvBinaries)
	}
	if csv == "" {
		if manifest == nil || len(manifest.Binaries) == 0 {
			return nil, fmt.Errorf("no binaries configured: add a binaries list to %s or pass --bins", workspace.ConfigFileName)
		}
		return manifest.Binaries, nil
	}

	var out []workspace.Binary
	for _, name := range strings.Split(csv, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		bin := workspace.Binary{Name: name}
		if manifest != nil {
			for _, b := range manifest.Binaries {
				if b.Name == name {
					bin = b
					break
				}
			}
		}
		out = append(out, bin)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("binaries override %q resolved to an empty list", csv)
	}
	return out, nil
}

// PromotionDisabled reports whether the escape hatch suppresses release
// promotion.
func (r *Resolver) PromotionDisabled() bool {
	return r.envVal(EnvNoPromotion) == "1"
}
