package repo

import (
	"fmt"
	"os"

	"github.com/odvcencio/scs/pkg/object"
)

// BuildTree snapshots the current index into a flat tree object and returns
// its hash. An empty index fails with ErrEmptyIndex. The result depends only
// on the set of staged entries, never on the order they were staged in.
func (r *Repo) BuildTree() (object.Hash, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	return r.buildTree(idx.Entries())
}

func (r *Repo) buildTree(entries []IndexEntry) (object.Hash, error) {
	if len(entries) == 0 {
		return "", fmt.Errorf("build tree: %w", ErrEmptyIndex)
	}
	return r.writeTree(entries)
}

// writeTree stores entries as a tree object. An empty entry list is
// allowed and produces the empty tree.
func (r *Repo) writeTree(entries []IndexEntry) (object.Hash, error) {
	tr := &object.TreeObj{Entries: make([]object.TreeEntry, 0, len(entries))}
	for _, e := range entries {
		tr.Entries = append(tr.Entries, object.TreeEntry{
			Mode:     normalizeFileMode(e.Mode),
			Path:     e.Path,
			BlobHash: e.BlobHash,
		})
	}
	h, err := r.Store.WriteTree(tr)
	if err != nil {
		return "", fmt.Errorf("build tree: %w", err)
	}
	return h, nil
}

// ReadTreeEntries returns the entries of a tree object sorted by path.
func (r *Repo) ReadTreeEntries(h object.Hash) ([]IndexEntry, error) {
	tr, err := r.Store.ReadTree(h)
	if err != nil {
		return nil, fmt.Errorf("read tree %s: %w", h, err)
	}
	out := make([]IndexEntry, 0, len(tr.Entries))
	for _, e := range tr.Entries {
		out = append(out, IndexEntry{Mode: e.Mode, Path: e.Path, BlobHash: e.BlobHash})
	}
	return out, nil
}

// commitTreeMap returns the tree of commit h keyed by path. An empty h
// yields an empty map.
func (r *Repo) commitTreeMap(h object.Hash) (map[string]IndexEntry, error) {
	m := make(map[string]IndexEntry)
	if h == "" {
		return m, nil
	}
	treeHash, err := r.TreeOf(h)
	if err != nil {
		return nil, err
	}
	entries, err := r.ReadTreeEntries(treeHash)
	if err != nil {
		return nil, err
	}
	for _, e := range entries {
		m[e.Path] = e
	}
	return m, nil
}

// modeFromFileInfo maps any executable bit to the executable tree mode.
func modeFromFileInfo(info os.FileInfo) string {
	if info.Mode().Perm()&0o111 != 0 {
		return object.TreeModeExecutable
	}
	return object.TreeModeFile
}

func normalizeFileMode(mode string) string {
	if mode == object.TreeModeExecutable {
		return mode
	}
	return object.TreeModeFile
}

func permForMode(mode string) os.FileMode {
	if mode == object.TreeModeExecutable {
		return 0o755
	}
	return 0o644
}
