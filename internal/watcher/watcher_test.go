package watcher

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, path string) <-chan Change {
	t.Helper()
	changes := make(chan Change, 16)
	w, err := New(path, func(c Change) { changes <- c })
	require.NoError(t, err)
	w.SetDebounce(20 * time.Millisecond)
	require.NoError(t, w.Start())
	t.Cleanup(func() { _ = w.Stop() })
	return changes
}

func waitChange(t *testing.T, changes <-chan Change) Change {
	t.Helper()
	select {
	case c := <-changes:
		return c
	case <-time.After(3 * time.Second):
		t.Fatal("no change reported")
	}
	return 0
}

func TestWatcher_ReportsWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	changes := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte(`{"SOILSENSE_WORKER_PORT":"1"}`), 0600))

	assert.Equal(t, Modified, waitChange(t, changes))
}

func TestWatcher_ReportsRemoval(t *testing.T) {
	path := filepath.Join(t.TempDir(), "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	changes := startWatcher(t, path)
	require.NoError(t, os.Remove(path))

	assert.Equal(t, Removed, waitChange(t, changes))
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "settings.json")
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0600))

	changes := startWatcher(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "soilsense.db"), []byte("x"), 0600))

	select {
	case c := <-changes:
		t.Fatalf("unexpected change %s", c)
	case <-time.After(150 * time.Millisecond):
	}
}

func TestWatcher_StopIsIdempotent(t *testing.T) {
	w, err := New(filepath.Join(t.TempDir(), "settings.json"), nil)
	require.NoError(t, err)
	require.NoError(t, w.Start())
	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}

func TestChangeString(t *testing.T) {
	assert.Equal(t, "modified", Modified.String())
	assert.Equal(t, "removed", Removed.String())
	assert.Equal(t, "unknown", Change(0).String())
}
