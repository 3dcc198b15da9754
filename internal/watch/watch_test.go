package watch

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startWatcher(t *testing.T, dir string) (*Watcher, <-chan struct{}) {
	t.Helper()

	w, err := New([]string{dir}, Options{Debounce: 50 * time.Millisecond})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	calls := make(chan struct{}, 16)
	done := make(chan struct{})

	go func() {
		defer close(done)

		_ = w.Run(ctx, func(context.Context) error {
			calls <- struct{}{}

			return nil
		})
	}()

	t.Cleanup(func() {
		cancel()
		<-done
		_ = w.Close()
	})

	return w, calls
}

func TestWatcher_DebouncesChanges(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	for i := range 5 {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "model.go"), []byte{byte('a' + i)}, 0o644))
	}

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a run after changes")
	}

	select {
	case <-calls:
		t.Fatal("expected the burst to be coalesced into one run")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_IgnoresOwnOutputs(t *testing.T) {
	dir := t.TempDir()
	w, calls := startWatcher(t, dir)

	own := filepath.Join(dir, "inline.txt")
	w.Ignore(own)

	for _, name := range []string{"models.generated.go", ".models.go.tmp-1", "broken.generated.go.unformatted"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644))
	}

	require.NoError(t, os.WriteFile(own, []byte("x"), 0o644))

	select {
	case <-calls:
		t.Fatal("own outputs must not trigger a run")
	case <-time.After(300 * time.Millisecond):
	}
}

func TestWatcher_NewSubdirectory(t *testing.T) {
	dir := t.TempDir()
	_, calls := startWatcher(t, dir)

	sub := filepath.Join(dir, "sub")
	require.NoError(t, os.Mkdir(sub, 0o755))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a run after creating a directory")
	}

	require.NoError(t, os.WriteFile(filepath.Join(sub, "x.go"), []byte("x"), 0o644))

	select {
	case <-calls:
	case <-time.After(5 * time.Second):
		t.Fatal("expected a run after a change in the new directory")
	}
}

func TestWatcher_SkipsHiddenDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, ".git"), 0o755))

	w, err := New([]string{dir}, Options{})
	require.NoError(t, err)

	defer w.Close()

	assert.Equal(t, []string{dir}, w.watcher.WatchList())
}

func TestNew_MissingDir(t *testing.T) {
	_, err := New([]string{filepath.Join(t.TempDir(), "absent")}, Options{})
	require.Error(t, err)
}
