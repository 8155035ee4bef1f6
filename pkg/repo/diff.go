package repo

import (
	"errors"
	"fmt"
	"os"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/diff"
	"github.com/odvcencio/scs/pkg/object"
)

// DiffWorkTree reports unstaged changes: tracked files whose working copy
// differs from the index, or is missing. Untracked files are not listed.
func (r *Repo) DiffWorkTree() ([]diff.FileDiff, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	staged := make(map[string]IndexEntry, idx.Len())
	work := make(map[string]IndexEntry, idx.Len())
	for _, se := range idx.Entries() {
		staged[se.Path] = se
		info, err := r.FS.Stat(se.Path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				continue
			}
			return nil, fmt.Errorf("diff: %w", err)
		}
		if !info.Mode().IsRegular() {
			continue
		}
		dirty, err := r.workFileDiffers(se.Path, info, se)
		if err != nil {
			return nil, fmt.Errorf("diff: %w", err)
		}
		if !dirty {
			work[se.Path] = se
			continue
		}
		// Empty hash marks content that lives only on disk.
		work[se.Path] = IndexEntry{Path: se.Path, Mode: modeFromFileInfo(info)}
	}
	return r.diffEntries(staged, work)
}

// DiffStaged reports changes staged for the next commit: the index compared
// with HEAD's tree.
func (r *Repo) DiffStaged() ([]diff.FileDiff, error) {
	head, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	before, err := r.commitTreeMap(head)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	after := make(map[string]IndexEntry, idx.Len())
	for _, se := range idx.Entries() {
		after[se.Path] = se
	}
	return r.diffEntries(before, after)
}

// DiffCommits compares the trees of two commits. Either may be "" for an
// empty snapshot.
func (r *Repo) DiffCommits(from, to object.Hash) ([]diff.FileDiff, error) {
	before, err := r.commitTreeMap(from)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	after, err := r.commitTreeMap(to)
	if err != nil {
		return nil, fmt.Errorf("diff: %w", err)
	}
	return r.diffEntries(before, after)
}

func (r *Repo) diffEntries(before, after map[string]IndexEntry) ([]diff.FileDiff, error) {
	var out []diff.FileDiff
	for _, p := range collectAllPaths(before, after) {
		b, inBefore := before[p]
		a, inAfter := after[p]
		if inBefore && inAfter && sameEntry(&b, &a) {
			continue
		}

		d := diff.FileDiff{Path: p, Type: diff.Modified}
		switch {
		case !inBefore:
			d.Type = diff.Added
		case !inAfter:
			d.Type = diff.Removed
		}
		var err error
		if inBefore {
			d.OldMode = normalizeFileMode(b.Mode)
			if d.Before, err = r.entryContent(b); err != nil {
				return nil, fmt.Errorf("diff %s: %w", p, err)
			}
		}
		if inAfter {
			d.NewMode = normalizeFileMode(a.Mode)
			if d.After, err = r.entryContent(a); err != nil {
				return nil, fmt.Errorf("diff %s: %w", p, err)
			}
		}
		out = append(out, d)
	}
	return out, nil
}

// entryContent loads a blob, or the working copy when e has no hash.
func (r *Repo) entryContent(e IndexEntry) ([]byte, error) {
	if e.BlobHash == "" {
		return util.ReadFile(r.FS, e.Path)
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		return nil, err
	}
	return blob.Data, nil
}
