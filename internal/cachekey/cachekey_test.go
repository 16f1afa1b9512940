package cachekey

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"velo/internal/hashutil"
)

func TestResolveDerivedKeyShape(t *testing.T) {
	b := Resolve("main", "/work/repo", "", "", "/cache")
	want := "main-" + hashutil.Short("main", 12) + "-" + hashutil.Short("/work/repo", 12)
	assert.Equal(t, want, b.Key)
	assert.Equal(t, filepath.Join("/cache", want), b.Directory)
	assert.Equal(t, ProvenanceDerived, b.Provenance)
}

func TestResolveIsDeterministic(t *testing.T) {
	a := Resolve("main", "/work/repo", "", "", "/cache")
	b := Resolve("main", "/work/repo", "", "", "/cache")
	assert.Equal(t, a, b)
}

func TestResolveWorktreeDisambiguation(t *testing.T) {
	a := Resolve("main", "/work/repo", "", "", "/cache")
	b := Resolve("main", "/work/clone", "", "", "/cache")
	assert.NotEqual(t, a.Key, b.Key)
}

func TestResolveAppendsTargetTriple(t *testing.T) {
	host := Resolve("main", "/work/repo", "", "", "/cache")
	cross := Resolve("main", "/work/repo", "aarch64-linux-android", "", "/cache")
	assert.Equal(t, host.Key+"-aarch64-linux-android", cross.Key)
}

func TestResolveOverride(t *testing.T) {
	b := Resolve("main", "/work/repo", "", "my bucket!", "/cache")
	assert.Equal(t, "my-bucket", b.Key)
	assert.Equal(t, ProvenanceOverride, b.Provenance)
}

func TestSanitizeBranchWithSlashAndPunctuation(t *testing.T) {
	assert.Equal(t, "feature-x", Sanitize("feature/x!!"))
}

func TestSanitizeIdempotence(t *testing.T) {
	inputs := []string{"feature/x!!", "a//b", "--x--", strings.Repeat("é", 300), "ok.name_1"}
	for _, in := range inputs {
		once := Sanitize(in)
		assert.Equal(t, once, Sanitize(once), "input %q", in)
	}
}

func TestSanitizeAllDisallowed(t *testing.T) {
	assert.Equal(t, "default", Sanitize("!!!///"))
	assert.Equal(t, "default", Sanitize(""))
}

func TestSanitizeLengthBound(t *testing.T) {
	long := strings.Repeat("a", 500)
	assert.LessOrEqual(t, len(Sanitize(long)), 120)

	// Truncation must not leave a trailing dash.
	tricky := strings.Repeat("a", 119) + "-" + strings.Repeat("b", 100)
	got := Sanitize(tricky)
	assert.LessOrEqual(t, len(got), 120)
	assert.False(t, strings.HasSuffix(got, "-"))
}
