package filex

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "a.txt")
	require.NoError(t, os.WriteFile(path, []byte("hello"), 0o644))

	data, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))
}

func TestReadFileMissing(t *testing.T) {
	_, err := ReadFile(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestReadFileCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadFile(ctx, "whatever")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestListDirs(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Mkdir(filepath.Join(dir, "B"), 0o755))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "A"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "file.txt"), nil, 0o644))
	require.NoError(t, os.Symlink(filepath.Join(dir, "A"), filepath.Join(dir, "C")))

	names, err := ListDirs(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B", "C"}, names)
}

func TestListDirsMissing(t *testing.T) {
	_, err := ListDirs(context.Background(), filepath.Join(t.TempDir(), "missing"))
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestListDirsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ListDirs(ctx, t.TempDir())
	assert.ErrorIs(t, err, context.Canceled)
}

func TestBoundedAbandonsStalledCall(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := bounded(ctx, "list", "/hung/mount", func() ([]string, error) {
		<-release
		return nil, nil
	})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "/hung/mount")
	assert.Less(t, time.Since(start), time.Second)
}

func TestListPrefixed(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"test1.txt", "TEST2", "config.cfg", "atest"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}

	names, err := ListPrefixed(context.Background(), dir, "test")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"test1.txt", "TEST2"}, names)
}

func TestWriteFileAtomicOverwrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.cpp")

	require.NoError(t, WriteFileAtomic(path, []byte("first")))
	require.NoError(t, WriteFileAtomic(path, []byte("second")))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestCreateIfAbsent(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cfg")

	created, err := CreateIfAbsent(path, []byte("one"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = CreateIfAbsent(path, []byte("two"))
	require.NoError(t, err)
	assert.False(t, created)

	data, _ := os.ReadFile(path)
	assert.Equal(t, "one", string(data))

	// No temp files left behind
	entries, _ := os.ReadDir(dir)
	assert.Len(t, entries, 1)
}

func TestCreateIfAbsentReplacesDanglingLink(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.cfg")
	require.NoError(t, os.Symlink(filepath.Join(dir, "gone"), path))

	created, err := CreateIfAbsent(path, []byte("default"))
	require.NoError(t, err)
	assert.True(t, created)

	data, err := ReadFile(context.Background(), path)
	require.NoError(t, err)
	assert.Equal(t, "default", string(data))
}

func TestCreateIfAbsentKeepsLiveLink(t *testing.T) {
	dir := t.TempDir()
	target := filepath.Join(dir, "shared.cfg")
	path := filepath.Join(dir, "config.cfg")
	require.NoError(t, os.WriteFile(target, []byte("shared"), 0o644))
	require.NoError(t, os.Symlink(target, path))

	created, err := CreateIfAbsent(path, []byte("default"))
	require.NoError(t, err)
	assert.False(t, created)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "shared", string(data))
}

func TestCreateIfAbsentConcurrent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.cfg")

	var (
		wg      sync.WaitGroup
		mu      sync.Mutex
		winners int
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			created, err := CreateIfAbsent(path, []byte("payload"))
			assert.NoError(t, err)
			if created {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	data, _ := os.ReadFile(path)
	assert.Equal(t, "payload", string(data))
}

func TestEnsureDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "users", "alice")

	require.NoError(t, EnsureDir(dir))
	require.NoError(t, EnsureDir(dir))

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}
