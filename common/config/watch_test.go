package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWatchReloadsWithoutOverlap(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "synthkit.yaml")
	zonesPath := filepath.Join(dir, "zones.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte("kit:\n  author: Before\n"), 0644))
	require.NoError(t, os.WriteFile(zonesPath, []byte("zones: []\n"), 0644))

	oldPath, oldDebounce := Path, watchDebounce
	Path, watchDebounce = configPath, 50*time.Millisecond
	defer func() {
		Path, watchDebounce = oldPath, oldDebounce
	}()

	var running, overlapped int32
	authors := make(chan string, 10)
	watcher, err := Watch(func() {
		if atomic.AddInt32(&running, 1) > 1 {
			atomic.StoreInt32(&overlapped, 1)
		}
		time.Sleep(300 * time.Millisecond)
		authors <- Get().Kit.Author
		atomic.AddInt32(&running, -1)
	}, zonesPath)
	require.NoError(t, err)
	defer watcher.Close()

	require.NoError(t, os.WriteFile(configPath, []byte("kit:\n  author: After\n"), 0644))
	// Lands while the first rebuild is still sleeping.
	time.Sleep(150 * time.Millisecond)
	require.NoError(t, os.WriteFile(zonesPath, []byte("zones:\n  - note: 36\n"), 0644))

	for i := 0; i < 2; i++ {
		select {
		case author := <-authors:
			assert.Equal(t, "After", author)
		case <-time.After(5 * time.Second):
			require.FailNow(t, "timed out waiting for a reload")
		}
	}
	assert.Equal(t, int32(0), atomic.LoadInt32(&overlapped))
}

func TestWatchFailsForMissingPath(t *testing.T) {
	oldPath := Path
	Path = filepath.Join(t.TempDir(), "synthkit.yaml")
	defer func() {
		Path = oldPath
	}()
	require.NoError(t, os.WriteFile(Path, []byte("{}\n"), 0644))

	_, err := Watch(nil, filepath.Join(t.TempDir(), "missing", "zones.yaml"))
	assert.Error(t, err)
}
