package cargo

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDetectLockMode(t *testing.T) {
	dir := t.TempDir()
	assert.Equal(t, Unlocked, DetectLockMode(dir))

	require.NoError(t, os.WriteFile(filepath.Join(dir, "Cargo.lock"), []byte("# lock\n"), 0o644))
	assert.Equal(t, Locked, DetectLockMode(dir))
}

func TestTranslateKnownFailures(t *testing.T) {
	tr := NewErrorTranslator()

	tests := []struct {
		name   string
		output string
		want   string
	}{
		{
			name:   "stale lockfile",
			output: "error: the lock file /w/Cargo.lock needs to be updated but --locked was passed",
			want:   "Dependency lockfile is out of date. Re-run without --locked or refresh Cargo.lock.",
		},
		{
			name:   "missing linker",
			output: "error: linker `aarch64-linux-android24-clang` not found",
			want:   "Linker not found. For cross builds, check the SDK configuration.",
		},
		{
			name:   "outside workspace",
			output: "error: could not find `Cargo.toml` in `/tmp` or any parent directory",
			want:   "Not inside a cargo workspace (no Cargo.toml found).",
		},
		{
			name:   "bad binary name",
			output: "error: no bin target named `velox`",
			want:   "Unknown binary name. Check the binaries list in velo.json.",
		},
		{
			name:   "compile error",
			output: "error[E0425]: cannot find value `x` in this scope",
			want:   "Compilation failed. See the compiler output above.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tr.Translate(tt.output))
		})
	}
}

func TestTranslateUnknownFailureKeepsFirstLine(t *testing.T) {
	tr := NewErrorTranslator()
	assert.Equal(t, "something odd happened", tr.Translate("something odd happened\nmore detail\n"))
	assert.Equal(t, "build failed", tr.Translate("   \n"))
}
