// Package filex holds the filesystem primitives shared by the catalog, the
// account reader and submission intake: context-bounded reads, directory
// listing, atomic replace and atomic create-if-absent.
package filex

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/natefinch/atomic"
)

type result[T any] struct {
	val T
	err error
}

// bounded runs fn, giving up when ctx is done. An abandoned fn keeps running
// in the background until the OS returns.
func bounded[T any](ctx context.Context, op, path string, fn func() (T, error)) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	ch := make(chan result[T], 1)
	go func() {
		val, err := fn()
		ch <- result[T]{val: val, err: err}
	}()

	select {
	case res := <-ch:
		return res.val, res.err
	case <-ctx.Done():
		return zero, fmt.Errorf("%s %s: %w", op, path, ctx.Err())
	}
}

// ReadFile reads a whole file, giving up when ctx is done
func ReadFile(ctx context.Context, path string) ([]byte, error) {
	return bounded(ctx, "read", path, func() ([]byte, error) {
		return os.ReadFile(path)
	})
}

// ListDirs returns the names of the subdirectories of dir, following
// symlinks. Order is the order os.ReadDir reports (sorted by name); callers
// must not rely on it matching other platforms' listing order.
func ListDirs(ctx context.Context, dir string) ([]string, error) {
	return bounded(ctx, "list", dir, func() ([]string, error) {
		entries, err := readDir(dir)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if isDir(dir, e) {
				names = append(names, e.Name())
			}
		}
		return names, nil
	})
}

// ListPrefixed returns the names of entries in dir whose name starts with
// prefix, compared case-insensitively
func ListPrefixed(ctx context.Context, dir, prefix string) ([]string, error) {
	prefix = strings.ToLower(prefix)
	return bounded(ctx, "list", dir, func() ([]string, error) {
		entries, err := readDir(dir)
		if err != nil {
			return nil, err
		}

		names := make([]string, 0, len(entries))
		for _, e := range entries {
			if strings.HasPrefix(strings.ToLower(e.Name()), prefix) {
				names = append(names, e.Name())
			}
		}
		return names, nil
	})
}

func readDir(dir string) ([]os.DirEntry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read dir %s: %w", dir, err)
	}
	return entries, nil
}

func isDir(dir string, e os.DirEntry) bool {
	if e.IsDir() {
		return true
	}
	if e.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := os.Stat(filepath.Join(dir, e.Name()))
	return err == nil && info.IsDir()
}

// EnsureDir creates dir and any missing parents
func EnsureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}
	return nil
}

// WriteFileAtomic replaces path with data. Readers see either the old or the
// new content, and concurrent writers never interleave: the last rename wins.
func WriteFileAtomic(path string, data []byte) error {
	if err := atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

// CreateIfAbsent writes data to path only if path does not exist yet.
// The file appears fully written or not at all. It reports whether this
// call created the file; losing a race to another creator is not an error.
func CreateIfAbsent(path string, data []byte) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}
	if err := removeDanglingLink(path); err != nil {
		return false, err
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return false, fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()
	defer func() { _ = os.Remove(tmpName) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return false, fmt.Errorf("sync temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return false, fmt.Errorf("close temp for %s: %w", path, err)
	}

	// link(2) fails if the target exists, making the publish step atomic
	err = os.Link(tmpName, path)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, fs.ErrExist):
		return false, nil
	}

	// Filesystems without hard links fall back to an exclusive create
	return createExclusive(path, data)
}

// removeDanglingLink deletes path if it is a symlink whose target is missing,
// so that a fresh file can take its place
func removeDanglingLink(path string) error {
	info, err := os.Lstat(path)
	if err != nil || info.Mode()&fs.ModeSymlink == 0 {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove dangling link %s: %w", path, err)
	}
	return nil
}

func createExclusive(path string, data []byte) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return false, nil
		}
		return false, fmt.Errorf("create %s: %w", path, err)
	}
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return true, fmt.Errorf("write %s: %w", path, err)
	}
	return true, f.Close()
}
