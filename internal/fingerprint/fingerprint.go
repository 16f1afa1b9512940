// Package fingerprint snapshots the toolchain and environment facts that
// affect build reproducibility and compares them against the previous run.
//
// The fingerprint is advisory only. It never blocks a build and it is not a
// cache-invalidation key; cargo's own fingerprinting owns correctness. A
// mismatch means the bucket may hold artifacts built under different
// settings, which is worth a warning and nothing more.
package fingerprint

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"velo/internal/envtable"
	"velo/internal/hashutil"
	"velo/pkg/xos"
)

// Field order is fixed: the blob must be byte-identical across runs with
// identical inputs, so the digest only moves when a fact moves.
var fieldOrder = []string{
	"profile",
	"target",
	"channel",
	"host",
	"rustc_path",
	"cargo_path",
	"rustc_version",
	"cargo_version",
	"uname",
	"rustflags",
	"rustc_wrapper",
	"incremental",
	"macosx_deployment_target",
	"cargo_home",
	"rustup_home",
}

// Snapshot is one canonical capture of the environment.
type Snapshot struct {
	fields map[string]string
}

// DriftStatus names the outcome of comparing against the persisted baseline.
type DriftStatus string

const (
	// NoBaseline means no prior fingerprint file existed for this
	// (bucket, profile) pair.
	NoBaseline DriftStatus = "no-baseline"
	Match      DriftStatus = "match"
	Drift      DriftStatus = "drift"
)

// Inputs carries the resolved facts worth fingerprinting. Probe failures
// upstream should leave the corresponding field empty rather than abort.
type Inputs struct {
	Profile      string
	Target       string
	Channel      string
	Host         string
	RustcPath    string
	CargoPath    string
	RustcVersion string
	CargoVersion string
	Uname        string
}

// Capture builds a snapshot from the resolved inputs plus the
// reproducibility-relevant variables in the captured environment.
func Capture(in Inputs, env *envtable.Table) Snapshot {
	get := func(key string) string {
		if env == nil {
			return ""
		}
		v, _ := env.Get(key)
		return v
	}
	uname := in.Uname
	if uname == "" {
		uname = runtime.GOOS + " " + runtime.GOARCH
	}
	return Snapshot{fields: map[string]string{
		"profile":                  in.Profile,
		"target":                   in.Target,
		"channel":                  in.Channel,
		"host":                     in.Host,
		"rustc_path":               in.RustcPath,
		"cargo_path":               in.CargoPath,
		"rustc_version":            in.RustcVersion,
		"cargo_version":            in.CargoVersion,
		"uname":                    uname,
		"rustflags":                get("RUSTFLAGS"),
		"rustc_wrapper":            get("RUSTC_WRAPPER"),
		"incremental":              get("CARGO_INCREMENTAL"),
		"macosx_deployment_target": get("MACOSX_DEPLOYMENT_TARGET"),
		"cargo_home":               get("CARGO_HOME"),
		"rustup_home":              get("RUSTUP_HOME"),
	}}
}

// Blob renders the snapshot as the canonical newline-delimited key=value
// text in fixed field order.
func (s Snapshot) Blob() string {
	var b strings.Builder
	for _, key := range fieldOrder {
		fmt.Fprintf(&b, "%s=%s\n", key, s.fields[key])
	}
	return b.String()
}

// Digest returns the hash of the canonical blob.
func (s Snapshot) Digest() string {
	return hashutil.String(s.Blob())
}

// Field returns one captured field, empty if unknown.
func (s Snapshot) Field(key string) string {
	return s.fields[key]
}

// FilePath returns the fingerprint file location for a (bucket, profile).
func FilePath(bucketDir, profile string) string {
	return filepath.Join(bucketDir, fmt.Sprintf("fingerprint-%s.txt", profile))
}

// Compare reads the persisted fingerprint for (bucketDir, profile) and
// reports drift against snap. A missing or malformed baseline is
// NoBaseline, never an error: this path must not fail the build.
func Compare(bucketDir, profile string, snap Snapshot) DriftStatus {
	data, err := os.ReadFile(FilePath(bucketDir, profile))
	if err != nil {
		return NoBaseline
	}
	first, _, _ := strings.Cut(string(data), "\n")
	prev, ok := strings.CutPrefix(first, "HASH=")
	if !ok || prev == "" {
		return NoBaseline
	}
	if prev == snap.Digest() {
		return Match
	}
	return Drift
}

// Persist rewrites the fingerprint file with the current snapshot,
// last-observed semantics. Called after every build attempt regardless of
// outcome.
func Persist(bucketDir, profile string, snap Snapshot) error {
	if err := os.MkdirAll(bucketDir, 0o755); err != nil {
		return err
	}
	content := fmt.Sprintf("HASH=%s\n%s", snap.Digest(), snap.Blob())
	return xos.WriteFile(FilePath(bucketDir, profile), []byte(content), 0o644)
}
