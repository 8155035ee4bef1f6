package repo

import (
	"fmt"

	"github.com/odvcencio/scs/pkg/object"
)

// FsckReport summarizes a repository consistency check.
type FsckReport struct {
	Objects int
	// Missing lists objects named by a ref, the index or another object
	// that are not in the store.
	Missing []object.Hash
	// Dangling lists stored objects nothing reaches. They are left in place.
	Dangling []object.Hash
}

// OK reports whether no referenced object is missing.
func (f *FsckReport) OK() bool { return len(f.Missing) == 0 }

// Fsck re-hashes every stored object, then walks from all refs, HEAD,
// MERGE_HEAD and the staged blobs to find missing and dangling objects.
func (r *Repo) Fsck() (*FsckReport, error) {
	summary, err := r.Store.Verify()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	roots, err := r.reachabilityRoots()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	reach, err := r.Store.Reachable(roots)
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}
	all, err := r.Store.ListHashes()
	if err != nil {
		return nil, fmt.Errorf("fsck: %w", err)
	}

	report := &FsckReport{Objects: summary.Objects, Missing: reach.Missing}
	for _, h := range all {
		if _, ok := reach.Reachable[h]; !ok {
			report.Dangling = append(report.Dangling, h)
		}
	}
	r.Logger.Debug("fsck done", "objects", report.Objects, "missing", len(report.Missing), "dangling", len(report.Dangling))
	return report, nil
}

func (r *Repo) reachabilityRoots() ([]object.Hash, error) {
	refs, err := r.ListRefs("")
	if err != nil {
		return nil, err
	}
	roots := make([]object.Hash, 0, len(refs)+2)
	for _, h := range refs {
		roots = append(roots, h)
	}
	head, err := r.ResolveHead()
	if err != nil {
		return nil, err
	}
	mergeHead, err := r.readMergeHead()
	if err != nil {
		return nil, err
	}
	roots = append(roots, head, mergeHead)

	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	for _, e := range idx.Entries() {
		roots = append(roots, e.BlobHash)
	}
	for _, c := range idx.Conflicts() {
		roots = append(roots, c.Base, c.Ours, c.Theirs)
	}
	return roots, nil
}
