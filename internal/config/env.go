package config

import (
	"fmt"
	"strings"

	"velo/internal/envtable"
)

// inheritedBuildVars are the inherited variables that silently change what
// a build produces. They are dropped from the captured table unless the
// keep-environment toggle is set.
var inheritedBuildVars = []string{
	"RUSTFLAGS",
	"RUSTC_WRAPPER",
	"CARGO_INCREMENTAL",
	"CARGO_BUILD_JOBS",
	"CARGO_BUILD_RUSTFLAGS",
	"CARGO_ENCODED_RUSTFLAGS",
}

// SanitizeInherited removes build-affecting inherited variables from env.
func SanitizeInherited(env *envtable.Table) {
	for _, key := range inheritedBuildVars {
		env.Unset(key)
	}
}

// PromoteProfile applies release promotion when requested and not disabled
// by the escape hatch. The second return reports whether promotion
// actually happened, for the summary.
func PromoteProfile(profile string, promote, disabled bool) (string, bool) {
	if !promote || disabled || profile == "release" {
		return profile, false
	}
	return "release", true
}

// ApplyModes writes the deterministic and debug-symbol settings into the
// env table. sourceEpoch is the pinned source timestamp for deterministic
// builds (the last commit time, or zero when unknown).
func ApplyModes(req *Request, env *envtable.Table, sourceEpoch int64) {
	if req.Deterministic {
		env.Set("SOURCE_DATE_EPOCH", fmt.Sprintf("%d", sourceEpoch))
		remap := fmt.Sprintf("--remap-path-prefix=%s=/src", req.WorkspaceRoot)
		if existing, ok := env.Get("RUSTFLAGS"); ok && existing != "" {
			remap = existing + " " + remap
		}
		env.Set("RUSTFLAGS", remap)
	}
	if req.DebugSymbols {
		key := fmt.Sprintf("CARGO_PROFILE_%s_DEBUG", strings.ToUpper(req.Profile))
		env.Set(key, "true")
	}
}
