package repo

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
	"github.com/odvcencio/scs/pkg/object"
)

const mergeMsgFile = "MERGE_MSG"

// MergeStatus is the terminal outcome of a merge.
type MergeStatus int

const (
	MergeClean       MergeStatus = iota // merge commit created
	MergeFastForward                    // branch moved to theirs, no commit created
	MergeConflicted                     // conflicts recorded, no commit created
)

func (s MergeStatus) String() string {
	switch s {
	case MergeClean:
		return "clean"
	case MergeFastForward:
		return "fast-forward"
	case MergeConflicted:
		return "conflicted"
	}
	return fmt.Sprintf("MergeStatus(%d)", int(s))
}

// Conflict describes a path that diverged on both sides. An empty hash
// means the path is absent on that side.
type Conflict struct {
	Path   string
	Base   object.Hash
	Ours   object.Hash
	Theirs object.Hash
}

// MergeOptions tunes Merge. With the zero value, a branch whose history
// already contains ours is fast-forwarded rather than merged.
type MergeOptions struct {
	NoFastForward bool // write a merge commit even when ours is an ancestor of theirs
	Message       string // defaults to "Merge branch '<name>'"
	Author        string // defaults to DefaultAuthor
}

// MergeResult reports a completed merge attempt. For MergeConflicted,
// Commit is empty and Conflicts lists every conflicted path sorted by path.
type MergeResult struct {
	Status    MergeStatus
	Ours      object.Hash
	Theirs    object.Hash
	Base      object.Hash
	Commit    object.Hash
	Conflicts []Conflict
}

// Err returns a *ConflictError when the merge stopped on conflicts, nil
// otherwise.
func (m *MergeResult) Err() error {
	if m == nil || m.Status != MergeConflicted {
		return nil
	}
	return &ConflictError{Conflicts: m.Conflicts}
}

// ClassifyPath decides one path of a three-way merge. A nil entry means
// the path is absent on that side. It returns the merged entry (nil for a
// deletion) or conflict=true when both sides changed the path differently.
//
//   - unchanged on both sides, or changed identically: keep it
//   - changed only in ours: take ours
//   - changed only in theirs: take theirs
//   - changed differently on both sides, including divergent additions and
//     delete-versus-modify: conflict
func ClassifyPath(base, ours, theirs *IndexEntry) (merged *IndexEntry, conflict bool) {
	switch {
	case sameEntry(ours, theirs):
		return ours, false
	case sameEntry(base, ours):
		return theirs, false
	case sameEntry(base, theirs):
		return ours, false
	}
	return nil, true
}

func sameEntry(a, b *IndexEntry) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.BlobHash == b.BlobHash && normalizeFileMode(a.Mode) == normalizeFileMode(b.Mode)
}

// MergeTrees runs the three-way merge over path-keyed entry maps. It
// touches neither the store nor the filesystem. merged holds every
// non-conflicted path that survives; conflicts are sorted by path.
func MergeTrees(base, ours, theirs map[string]IndexEntry) (merged map[string]IndexEntry, conflicts []Conflict) {
	merged = make(map[string]IndexEntry)
	for _, p := range collectAllPaths(base, ours, theirs) {
		b, o, t := entryPtr(base, p), entryPtr(ours, p), entryPtr(theirs, p)
		result, conflict := ClassifyPath(b, o, t)
		if conflict {
			conflicts = append(conflicts, Conflict{
				Path:   p,
				Base:   entryHash(b),
				Ours:   entryHash(o),
				Theirs: entryHash(t),
			})
			continue
		}
		if result != nil {
			merged[p] = *result
		}
	}
	return merged, conflicts
}

func entryPtr(m map[string]IndexEntry, p string) *IndexEntry {
	if e, ok := m[p]; ok {
		return &e
	}
	return nil
}

func entryHash(e *IndexEntry) object.Hash {
	if e == nil {
		return ""
	}
	return e.BlobHash
}

func collectAllPaths(maps ...map[string]IndexEntry) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, m := range maps {
		for p := range m {
			if !seen[p] {
				seen[p] = true
				paths = append(paths, p)
			}
		}
	}
	slices.Sort(paths)
	return paths
}

// Merge merges branch into HEAD.
//
//  1. Resolve ours (HEAD) and theirs (the branch tip). Equal tips, or
//     theirs already reachable from ours, fail with ErrNothingToMerge.
//  2. If ours is an ancestor of theirs, fast-forward unless
//     opts.NoFastForward is set. Otherwise find the merge base.
//  3. Classify every path in base ∪ ours ∪ theirs.
//  4. Without conflicts: write a two-parent commit, update the working
//     tree and index, and advance the branch with a compare-and-swap
//     against ours. With conflicts: apply the clean paths, keep ours for
//     conflicted paths plus a conflict marker, record MERGE_HEAD, and
//     leave the branch where it was.
//
// Untracked files that the merge would overwrite fail the merge with
// ErrDirtyWorkTree before anything is written.
//
// A conflicted merge is not an error: the result has Status
// MergeConflicted and Err returns the *ConflictError.
func (r *Repo) Merge(branch string, opts MergeOptions) (*MergeResult, error) {
	if inProgress, err := r.MergeInProgress(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	} else if inProgress {
		return nil, fmt.Errorf("merge: %w", ErrMergeInProgress)
	}

	ours, err := r.ResolveHead()
	if err != nil {
		return nil, fmt.Errorf("merge: resolve HEAD: %w", err)
	}
	if !r.BranchExists(branch) {
		return nil, &BranchError{Op: "merge", Branch: branch, Err: ErrBranchNotFound}
	}
	theirs, err := r.ResolveRef(branch)
	if err != nil {
		return nil, fmt.Errorf("merge: resolve branch %q: %w", branch, err)
	}
	if ours == "" || theirs == "" {
		return nil, fmt.Errorf("merge %q: %w", branch, ErrUnbornBranch)
	}
	if ours == theirs {
		return nil, fmt.Errorf("merge %q: %w", branch, ErrNothingToMerge)
	}
	if merged, err := r.IsAncestor(theirs, ours); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	} else if merged {
		return nil, fmt.Errorf("merge %q: %w", branch, ErrNothingToMerge)
	}
	if err := r.ensureClean(); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	result := &MergeResult{Ours: ours, Theirs: theirs}

	if !opts.NoFastForward {
		ff, err := r.IsAncestor(ours, theirs)
		if err != nil {
			return nil, fmt.Errorf("merge: %w", err)
		}
		if ff {
			if err := r.fastForward(ours, theirs, branch); err != nil {
				return nil, fmt.Errorf("merge: %w", err)
			}
			result.Status = MergeFastForward
			result.Base = ours
			result.Commit = theirs
			return result, nil
		}
	}

	base, err := r.MergeBase(ours, theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	result.Base = base

	baseMap, err := r.commitTreeMap(base)
	if err != nil {
		return nil, fmt.Errorf("merge: base tree: %w", err)
	}
	oursMap, err := r.commitTreeMap(ours)
	if err != nil {
		return nil, fmt.Errorf("merge: ours tree: %w", err)
	}
	theirsMap, err := r.commitTreeMap(theirs)
	if err != nil {
		return nil, fmt.Errorf("merge: theirs tree: %w", err)
	}

	merged, conflicts := MergeTrees(baseMap, oursMap, theirsMap)
	target := mergeTarget(merged, oursMap, conflicts)
	if err := r.checkUntrackedOverwrites("merge", target); err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}

	message := opts.Message
	if strings.TrimSpace(message) == "" {
		message = fmt.Sprintf("Merge branch '%s'", branch)
	}

	if len(conflicts) > 0 {
		if err := r.stageConflictState(target, conflicts, theirs, message); err != nil {
			return nil, fmt.Errorf("merge: stage conflicts: %w", err)
		}
		r.Logger.Debug("merge stopped on conflicts", "branch", branch, "conflicts", len(conflicts))
		result.Status = MergeConflicted
		result.Conflicts = conflicts
		return result, nil
	}

	author := opts.Author
	if strings.TrimSpace(author) == "" {
		author = r.DefaultAuthor()
	}
	commitHash, err := r.commitMerge(merged, oursMap, ours, theirs, author, message)
	if err != nil {
		return nil, fmt.Errorf("merge: %w", err)
	}
	result.Status = MergeClean
	result.Commit = commitHash
	return result, nil
}

// commitMerge writes the two-parent merge commit, reconciles the working
// tree and index to the merged entries, then advances HEAD's ref. If the
// ref update fails the working tree is put back to ours.
func (r *Repo) commitMerge(merged, oursMap map[string]IndexEntry, ours, theirs object.Hash, author, message string) (object.Hash, error) {
	entries := sortedEntries(merged)
	treeHash, err := r.writeTree(entries)
	if err != nil {
		return "", err
	}
	commitHash, err := r.writeCommit(treeHash, []object.Hash{ours, theirs}, author, message, r.now(), nil)
	if err != nil {
		return "", err
	}

	if err := r.materialize(merged, nil); err != nil {
		return "", err
	}
	if err := r.advanceHead(commitHash, ours, "merge: "+firstLine(message)); err != nil {
		if rbErr := r.materialize(oursMap, nil); rbErr != nil {
			return "", errors.Join(err, fmt.Errorf("restore working tree: %w", rbErr))
		}
		return "", err
	}
	return commitHash, nil
}

func (r *Repo) fastForward(ours, theirs object.Hash, branch string) error {
	theirsMap, err := r.commitTreeMap(theirs)
	if err != nil {
		return err
	}
	oursMap, err := r.commitTreeMap(ours)
	if err != nil {
		return err
	}
	if err := r.checkUntrackedOverwrites("merge", theirsMap); err != nil {
		return err
	}
	if err := r.materialize(theirsMap, nil); err != nil {
		return err
	}
	if err := r.advanceHead(theirs, ours, "merge "+branch+": fast-forward"); err != nil {
		if rbErr := r.materialize(oursMap, nil); rbErr != nil {
			return errors.Join(err, fmt.Errorf("restore working tree: %w", rbErr))
		}
		return err
	}
	return nil
}

// advanceHead moves the ref HEAD points at (or a detached HEAD) from old
// to h.
func (r *Repo) advanceHead(h, old object.Hash, reason string) error {
	head, err := r.Head()
	if err != nil {
		return err
	}
	refName := headFile
	if strings.HasPrefix(head, "refs/") {
		refName = head
	}
	return r.updateRef(refUpdate{name: refName, hash: h, reason: reason, checkOld: true, old: old})
}

// mergeTarget is the tree the working tree and index will hold after the
// merge: the merged entries, with ours kept for every conflicted path.
func mergeTarget(merged, oursMap map[string]IndexEntry, conflicts []Conflict) map[string]IndexEntry {
	if len(conflicts) == 0 {
		return merged
	}
	target := make(map[string]IndexEntry, len(merged)+len(conflicts))
	for p, e := range merged {
		target[p] = e
	}
	for _, c := range conflicts {
		if e, ok := oursMap[c.Path]; ok {
			target[c.Path] = e
		}
	}
	return target
}

// stageConflictState applies target (clean paths plus ours for conflicted
// ones) to the working tree and index, marks the conflicts in the index and
// records MERGE_HEAD so the resolving commit gets both parents.
func (r *Repo) stageConflictState(target map[string]IndexEntry, conflicts []Conflict, theirs object.Hash, message string) error {
	if err := r.materialize(target, conflicts); err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(r.Dir, mergeHeadFile, []byte(string(theirs)+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", mergeHeadFile, err)
	}
	if err := fsutil.WriteFileAtomic(r.Dir, mergeMsgFile, []byte(message+"\n")); err != nil {
		return fmt.Errorf("write %s: %w", mergeMsgFile, err)
	}
	return nil
}

// AbortMerge abandons a conflicted merge: the working tree and index are
// restored to HEAD's tree and the merge state is cleared.
func (r *Repo) AbortMerge() error {
	inProgress, err := r.MergeInProgress()
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if !inProgress {
		return fmt.Errorf("abort merge: %w", ErrNoMergeInProgress)
	}
	head, err := r.ResolveHead()
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	headMap, err := r.commitTreeMap(head)
	if err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.materialize(headMap, nil); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	if err := r.clearMergeState(); err != nil {
		return fmt.Errorf("abort merge: %w", err)
	}
	return nil
}

// MergeInProgress reports whether a conflicted merge awaits resolution.
func (r *Repo) MergeInProgress() (bool, error) {
	h, err := r.readMergeHead()
	return h != "", err
}

// MergeMessage returns the message prepared by a conflicted merge, or "".
func (r *Repo) MergeMessage() string {
	data, err := util.ReadFile(r.Dir, mergeMsgFile)
	if err != nil {
		return ""
	}
	return strings.TrimRight(string(data), "\n")
}

func (r *Repo) readMergeHead() (object.Hash, error) {
	data, err := util.ReadFile(r.Dir, mergeHeadFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("read %s: %w", mergeHeadFile, err)
	}
	h := object.Hash(strings.TrimSpace(string(data)))
	if !object.ValidHash(h) {
		return "", fmt.Errorf("read %s: %w: invalid hash %q", mergeHeadFile, ErrCorrupt, h)
	}
	return h, nil
}

func (r *Repo) clearMergeState() error {
	for _, name := range []string{mergeHeadFile, mergeMsgFile} {
		if err := r.Dir.Remove(name); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %s: %w", name, err)
		}
	}
	return nil
}

func sortedEntries(m map[string]IndexEntry) []IndexEntry {
	out := make([]IndexEntry, 0, len(m))
	for _, e := range m {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b IndexEntry) int { return strings.Compare(a.Path, b.Path) })
	return out
}
