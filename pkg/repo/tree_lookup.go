package repo

import (
	"fmt"
	"strings"

	"github.com/odvcencio/scs/pkg/object"
)

// FileAt returns the tree entry for path in the tree of commit rev. rev is
// anything ResolveRevision accepts.
func (r *Repo) FileAt(rev, path string) (IndexEntry, error) {
	h, err := r.ResolveRevision(rev)
	if err != nil {
		return IndexEntry{}, err
	}
	if h == "" {
		return IndexEntry{}, fmt.Errorf("%s: %w", rev, ErrUnbornBranch)
	}
	tree, err := r.TreeOf(h)
	if err != nil {
		return IndexEntry{}, err
	}
	e, ok, err := r.treeEntryAtPath(tree, cleanRel(path))
	if err != nil {
		return IndexEntry{}, err
	}
	if !ok {
		return IndexEntry{}, &PathError{Op: "show", Path: path, Err: ErrFileNotFound}
	}
	return e, nil
}

// treeEntryAtPath looks relPath up in a flat tree. Entries are sorted by
// path, so a binary search finds it.
func (r *Repo) treeEntryAtPath(treeHash object.Hash, relPath string) (IndexEntry, bool, error) {
	tr, err := r.Store.ReadTree(treeHash)
	if err != nil {
		return IndexEntry{}, false, fmt.Errorf("read tree %s: %w", treeHash, err)
	}
	lo, hi := 0, len(tr.Entries)
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if strings.Compare(tr.Entries[mid].Path, relPath) < 0 {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo < len(tr.Entries) && tr.Entries[lo].Path == relPath {
		te := tr.Entries[lo]
		return IndexEntry{Mode: normalizeFileMode(te.Mode), Path: te.Path, BlobHash: te.BlobHash}, true, nil
	}
	return IndexEntry{}, false, nil
}
