package repo

import (
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/object"
)

// FileStatus represents the state of a file in the working tree or index.
type FileStatus int

const (
	StatusClean     FileStatus = iota // file matches between compared areas
	StatusNew                         // in index, not in HEAD tree
	StatusModified                    // in index, different from HEAD
	StatusConflict                    // unresolved merge conflict recorded in index
	StatusDeleted                     // in HEAD but not in index (or in index but not on disk)
	StatusUntracked                   // in working dir but not in index
	StatusDirty                       // staged but working copy differs from staged
)

func (s FileStatus) String() string {
	switch s {
	case StatusClean:
		return "clean"
	case StatusNew:
		return "new"
	case StatusModified:
		return "modified"
	case StatusConflict:
		return "conflict"
	case StatusDeleted:
		return "deleted"
	case StatusUntracked:
		return "untracked"
	case StatusDirty:
		return "dirty"
	}
	return fmt.Sprintf("FileStatus(%d)", int(s))
}

// StatusEntry records the status of a single file.
type StatusEntry struct {
	Path        string     // repo-relative path
	IndexStatus FileStatus // index vs HEAD comparison
	WorkStatus  FileStatus // working tree vs index comparison
}

// Status computes the working tree status for the repository.
//
// Algorithm:
//  1. Read the index and the HEAD tree.
//  2. Walk the working tree, skipping .scs/ and ignored paths.
//  3. Compare working tree files against index entries by content hash.
//  4. Compare index entries against the HEAD tree.
//  5. Return the non-clean entries sorted by path.
func (r *Repo) Status() ([]StatusEntry, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headHash, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	headEntries, err := r.commitTreeMap(headHash)
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}
	workFiles, err := r.workTreeFiles()
	if err != nil {
		return nil, fmt.Errorf("status: %w", err)
	}

	result := make(map[string]*StatusEntry)
	entry := func(path string) *StatusEntry {
		e, ok := result[path]
		if !ok {
			e = &StatusEntry{Path: path}
			result[path] = e
		}
		return e
	}

	// Working tree vs index.
	for path, info := range workFiles {
		se, staged := idx.Get(path)
		if !staged {
			e := entry(path)
			e.IndexStatus = StatusUntracked
			e.WorkStatus = StatusUntracked
			continue
		}
		dirty, err := r.workFileDiffers(path, info, se)
		if err != nil {
			return nil, fmt.Errorf("status: %w", err)
		}
		if dirty {
			entry(path).WorkStatus = StatusDirty
		}
	}
	for _, se := range idx.Entries() {
		if _, onDisk := workFiles[se.Path]; !onDisk {
			entry(se.Path).WorkStatus = StatusDeleted
		}
	}

	// Index vs HEAD.
	for _, se := range idx.Entries() {
		head, inHead := headEntries[se.Path]
		switch {
		case !inHead:
			entry(se.Path).IndexStatus = StatusNew
		case se.BlobHash != head.BlobHash || se.Mode != normalizeFileMode(head.Mode):
			entry(se.Path).IndexStatus = StatusModified
		}
	}
	for path := range headEntries {
		if _, staged := idx.Get(path); !staged {
			entry(path).IndexStatus = StatusDeleted
		}
	}
	for _, c := range idx.Conflicts() {
		e := entry(c.Path)
		e.IndexStatus = StatusConflict
		e.WorkStatus = StatusConflict
	}

	entries := make([]StatusEntry, 0, len(result))
	for _, e := range result {
		if e.IndexStatus == StatusClean && e.WorkStatus == StatusClean {
			continue
		}
		entries = append(entries, *e)
	}
	slices.SortFunc(entries, func(a, b StatusEntry) int { return strings.Compare(a.Path, b.Path) })
	return entries, nil
}

// workFileDiffers reports whether the file at path no longer matches the
// staged entry in content or mode.
func (r *Repo) workFileDiffers(path string, info os.FileInfo, se IndexEntry) (bool, error) {
	if modeFromFileInfo(info) != se.Mode {
		return true, nil
	}
	content, err := util.ReadFile(r.FS, path)
	if err != nil {
		return false, fmt.Errorf("read %q: %w", path, err)
	}
	return object.HashObject(object.TypeBlob, content) != se.BlobHash, nil
}

// workTreeFiles walks the working tree and returns every regular,
// non-ignored file keyed by repo-relative path.
func (r *Repo) workTreeFiles() (map[string]os.FileInfo, error) {
	files := make(map[string]os.FileInfo)
	err := util.Walk(r.FS, ".", func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		rel := filepath.ToSlash(p)
		if rel == "." {
			return nil
		}
		if r.Ignore.Matches(rel) {
			if info.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if info.Mode().IsRegular() {
			files[rel] = info
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk: %w", err)
	}
	return files, nil
}

// ensureClean fails with ErrDirtyWorkTree when any tracked file has staged
// or unstaged changes, or a merge is waiting to be concluded.
func (r *Repo) ensureClean() error {
	entries, err := r.Status()
	if err != nil {
		return err
	}
	for _, e := range entries {
		if e.IndexStatus == StatusUntracked {
			continue
		}
		return &PathError{Op: "check clean", Path: e.Path, Err: ErrDirtyWorkTree}
	}
	return nil
}
