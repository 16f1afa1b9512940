package daemon

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWatcher(t *testing.T, root string) *Watcher {
	t.Helper()
	cfg := DefaultWatcherConfig(root)
	cfg.Debounce = 20 * time.Millisecond
	w, err := NewWatcher(cfg)
	require.NoError(t, err)
	require.NoError(t, w.Start(context.Background()))
	t.Cleanup(func() { _ = w.Stop() })
	return w
}

func waitForChange(t *testing.T, w *Watcher) (Change, bool) {
	t.Helper()
	select {
	case change := <-w.Changes():
		return change, true
	case <-time.After(2 * time.Second):
		return Change{}, false
	}
}

func TestWatcherReportsSourceEdit(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	path := filepath.Join(root, "main.rs")
	require.NoError(t, os.WriteFile(path, []byte("fn main() {}"), 0o644))

	change, ok := waitForChange(t, w)
	require.True(t, ok, "expected a change for a source edit")
	assert.Equal(t, path, change.Path)
}

func TestWatcherIgnoresCacheBucket(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "target-fast"), 0o755))
	w := newTestWatcher(t, root)

	ignored := filepath.Join(root, "target-fast", "generated.rs")
	require.NoError(t, os.WriteFile(ignored, []byte("x"), 0o644))

	select {
	case change := <-w.Changes():
		t.Fatalf("unexpected change from cache bucket: %s", change.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherIgnoresUnrelatedFiles(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	require.NoError(t, os.WriteFile(filepath.Join(root, "notes.txt"), []byte("x"), 0o644))

	select {
	case change := <-w.Changes():
		t.Fatalf("unexpected change for unrelated file: %s", change.Path)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestWatcherDebouncesBursts(t *testing.T) {
	root := t.TempDir()
	w := newTestWatcher(t, root)

	path := filepath.Join(root, "lib.rs")
	for i := 0; i < 5; i++ {
		require.NoError(t, os.WriteFile(path, []byte("fn a() {}"), 0o644))
	}

	_, ok := waitForChange(t, w)
	require.True(t, ok)

	// The burst collapses; no second change should follow immediately.
	select {
	case change := <-w.Changes():
		t.Fatalf("burst was not debounced, extra change: %s (%s)", change.Path, change.Op)
	case <-time.After(200 * time.Millisecond):
	}
}

func TestStopIsIdempotent(t *testing.T) {
	w := newTestWatcher(t, t.TempDir())
	require.NoError(t, w.Stop())
	require.NoError(t, w.Stop())
}
