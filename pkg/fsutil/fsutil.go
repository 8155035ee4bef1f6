// Package fsutil holds the filesystem primitives the engine needs on top of
// a billy.Filesystem: atomic replace, lock files, recursive copy, and
// cleanup of empty directories.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
)

const (
	lockRetryDelay = 5 * time.Millisecond
	lockWaitLimit  = 2 * time.Second
)

// ErrLockTimeout is returned when a lock file stays held past the wait limit.
var ErrLockTimeout = errors.New("timeout waiting for lock")

type syncer interface {
	Sync() error
}

// WriteFileAtomic writes data to a temp file next to name and renames it
// into place, so readers observe either the old or the new content.
func WriteFileAtomic(fs billy.Filesystem, name string, data []byte) error {
	dir := path.Dir(name)
	if err := fs.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := fs.TempFile(dir, ".tmp-")
	if err != nil {
		return fmt.Errorf("tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		fs.Remove(tmpName)
		return fmt.Errorf("write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("close: %w", err)
	}
	if err := fs.Rename(tmpName, name); err != nil {
		fs.Remove(tmpName)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Lock is an exclusive "<name>.lock" file. Commit renames the lock over the
// target; Release drops it without touching the target.
type Lock struct {
	fs     billy.Filesystem
	target string
	path   string
	file   billy.File
	done   bool
}

// AcquireLock creates name+".lock" with O_EXCL, retrying for a bounded
// time while another writer holds it.
func AcquireLock(fs billy.Filesystem, name string) (*Lock, error) {
	if err := fs.MkdirAll(path.Dir(name), 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", path.Dir(name), err)
	}
	lockPath := name + ".lock"
	deadline := time.Now().Add(lockWaitLimit)
	for {
		f, err := fs.OpenFile(lockPath, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return &Lock{fs: fs, target: name, path: lockPath, file: f}, nil
		}
		if !os.IsExist(err) && !errors.Is(err, os.ErrExist) {
			return nil, err
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("%w %q", ErrLockTimeout, lockPath)
		}
		time.Sleep(lockRetryDelay)
	}
}

// Write appends data to the lock file.
func (l *Lock) Write(data []byte) error {
	_, err := l.file.Write(data)
	return err
}

// Commit flushes the lock file and renames it over the target.
func (l *Lock) Commit() error {
	if l.done {
		return fmt.Errorf("lock %q already released", l.path)
	}
	if s, ok := l.file.(syncer); ok {
		if err := s.Sync(); err != nil {
			l.Release()
			return fmt.Errorf("sync: %w", err)
		}
	}
	if err := l.file.Close(); err != nil {
		l.done = true
		l.fs.Remove(l.path)
		return fmt.Errorf("close: %w", err)
	}
	l.done = true
	if err := l.fs.Rename(l.path, l.target); err != nil {
		l.fs.Remove(l.path)
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

// Release removes the lock file. It is a no-op after Commit.
func (l *Lock) Release() {
	if l.done {
		return
	}
	l.done = true
	l.file.Close()
	l.fs.Remove(l.path)
}

// Exists reports whether name exists on fs.
func Exists(fs billy.Basic, name string) bool {
	_, err := fs.Stat(name)
	return err == nil
}

// IsFile reports whether name exists on fs and is not a directory.
func IsFile(fs billy.Basic, name string) bool {
	info, err := fs.Stat(name)
	return err == nil && !info.IsDir()
}

// CopyDir recursively copies the directory src on srcFS to dst on dstFS.
// Lock files are skipped so an interrupted writer is not replicated, as is
// any entry for which skip (if non-nil) returns true.
func CopyDir(srcFS billy.Filesystem, src string, dstFS billy.Filesystem, dst string, skip func(name string) bool) error {
	infos, err := srcFS.ReadDir(src)
	if err != nil {
		return fmt.Errorf("copy: read dir %s: %w", src, err)
	}
	if err := dstFS.MkdirAll(dst, 0o755); err != nil {
		return fmt.Errorf("copy: mkdir %s: %w", dst, err)
	}
	for _, info := range infos {
		from := path.Join(src, info.Name())
		to := path.Join(dst, info.Name())
		if skip != nil && skip(from) {
			continue
		}
		if info.IsDir() {
			if err := CopyDir(srcFS, from, dstFS, to, skip); err != nil {
				return err
			}
			continue
		}
		if path.Ext(info.Name()) == ".lock" {
			continue
		}
		if err := copyFile(srcFS, from, dstFS, to, info.Mode().Perm()); err != nil {
			return err
		}
	}
	return nil
}

func copyFile(srcFS billy.Filesystem, src string, dstFS billy.Filesystem, dst string, perm os.FileMode) error {
	in, err := srcFS.Open(src)
	if err != nil {
		return fmt.Errorf("copy: open %s: %w", src, err)
	}
	defer in.Close()

	out, err := dstFS.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, perm)
	if err != nil {
		return fmt.Errorf("copy: create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy: %s: %w", src, err)
	}
	return out.Close()
}

// RemoveEmptyParents removes empty directories from dir upward, stopping
// at the filesystem root.
func RemoveEmptyParents(fs billy.Filesystem, dir string) {
	RemoveEmptyDirs(fs, dir, "")
}

// RemoveEmptyDirs removes empty directories from dir upward. stop and its
// ancestors are never removed.
func RemoveEmptyDirs(fs billy.Filesystem, dir, stop string) {
	stop = path.Clean(stop)
	for dir != "." && dir != "/" && dir != "" && dir != stop {
		infos, err := fs.ReadDir(dir)
		if err != nil || len(infos) > 0 {
			return
		}
		if err := fs.Remove(dir); err != nil {
			return
		}
		dir = path.Dir(dir)
	}
}

// ReadFile is util.ReadFile, re-exported so callers need only this package.
func ReadFile(fs billy.Basic, name string) ([]byte, error) {
	return util.ReadFile(fs, name)
}
