package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
	"github.com/odvcencio/scs/pkg/object"
)

// Switch checks out branch name: tracked files absent from the target are
// removed, target files are written, the index is rewritten to equal the
// target tree exactly, and HEAD becomes a symbolic ref to name. It refuses
// with ErrDirtyWorkTree when tracked files have uncommitted changes or an
// untracked file would be overwritten.
func (r *Repo) Switch(name string) error {
	if !r.BranchExists(name) {
		return &BranchError{Op: "switch", Branch: name, Err: ErrBranchNotFound}
	}
	target, err := r.ResolveRef(name)
	if err != nil {
		return fmt.Errorf("switch: %w", err)
	}
	if err := r.checkoutCommit(target); err != nil {
		return fmt.Errorf("switch to %q: %w", name, err)
	}
	if err := r.setHead(name, ""); err != nil {
		return fmt.Errorf("switch: %w", err)
	}
	return nil
}

// Detach checks out commit h directly and leaves HEAD detached.
func (r *Repo) Detach(h object.Hash) error {
	if _, err := r.ReadCommit(h); err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	if err := r.checkoutCommit(h); err != nil {
		return fmt.Errorf("detach at %s: %w", h.Short(), err)
	}
	if err := r.setHead("", h); err != nil {
		return fmt.Errorf("detach: %w", err)
	}
	return nil
}

// Checkout switches to target, which is a branch name or a commit revision
// (detached HEAD).
func (r *Repo) Checkout(target string) error {
	if r.BranchExists(target) {
		return r.Switch(target)
	}
	h, err := r.ResolveRevision(target)
	if err != nil {
		return &BranchError{Op: "checkout", Branch: target, Err: ErrBranchNotFound}
	}
	return r.Detach(h)
}

// ResolveRevision resolves HEAD, a branch name, a tag name, or a full or
// abbreviated commit hash. Branches win over tags of the same name.
func (r *Repo) ResolveRevision(rev string) (object.Hash, error) {
	rev = strings.TrimSpace(rev)
	if rev == headFile || rev == "" {
		return r.ResolveHead()
	}
	if r.BranchExists(rev) || strings.HasPrefix(rev, "refs/") {
		return r.ResolveRef(rev)
	}
	if r.TagExists(rev) {
		return r.ResolveTag(rev)
	}
	h, err := r.Store.ResolvePrefix(rev)
	if err != nil {
		return "", fmt.Errorf("resolve revision %q: %w", rev, err)
	}
	return h, nil
}

func (r *Repo) checkoutCommit(target object.Hash) error {
	if inProgress, err := r.MergeInProgress(); err != nil {
		return err
	} else if inProgress {
		return ErrMergeInProgress
	}
	if err := r.ensureClean(); err != nil {
		return err
	}
	targetEntries, err := r.commitTreeMap(target)
	if err != nil {
		return err
	}
	if err := r.checkUntrackedOverwrites("checkout", targetEntries); err != nil {
		return err
	}
	return r.materialize(targetEntries, nil)
}

// checkUntrackedOverwrites refuses to clobber untracked files whose content
// differs from what the target would write at the same path.
func (r *Repo) checkUntrackedOverwrites(op string, target map[string]IndexEntry) error {
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	for p, te := range target {
		if _, tracked := idx.Get(p); tracked {
			continue
		}
		info, err := r.FS.Stat(p)
		if err != nil {
			continue
		}
		if info.IsDir() {
			return &PathError{Op: op, Path: p, Err: ErrDirtyWorkTree}
		}
		differs, err := r.workFileDiffers(p, info, te)
		if err != nil {
			return err
		}
		if differs {
			return &PathError{Op: op, Path: p, Err: fmt.Errorf("%w: untracked file would be overwritten", ErrDirtyWorkTree)}
		}
	}
	return nil
}

// materialize makes the working tree and index match target exactly.
// Files tracked by HEAD or the index but absent from target are removed;
// files whose content already matches are left alone. conflicts are
// recorded as markers in the new index.
func (r *Repo) materialize(target map[string]IndexEntry, conflicts []Conflict) error {
	head, err := r.ResolveHead()
	if err != nil {
		return err
	}
	current, err := r.commitTreeMap(head)
	if err != nil {
		return err
	}
	idx, err := r.ReadIndex()
	if err != nil {
		return err
	}
	for _, e := range idx.Entries() {
		current[e.Path] = e
	}

	removed := 0
	for p := range current {
		if _, keep := target[p]; keep {
			continue
		}
		if err := r.FS.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("remove %q: %w", p, err)
		}
		fsutil.RemoveEmptyParents(r.FS, path.Dir(p))
		removed++
	}

	next := NewIndex()
	written := 0
	for _, te := range target {
		wrote, err := r.writeWorkFile(te)
		if err != nil {
			return err
		}
		if wrote {
			written++
		}
		next.Set(te)
	}
	for _, c := range conflicts {
		next.MarkConflict(c)
	}
	if err := r.WriteIndex(next); err != nil {
		return err
	}
	r.Logger.Debug("working tree reconciled", "removed", removed, "written", written, "entries", next.Len())
	return nil
}

// writeWorkFile writes blob e.BlobHash to e.Path unless the file already
// holds that content with the same mode.
func (r *Repo) writeWorkFile(e IndexEntry) (bool, error) {
	if info, err := r.FS.Stat(e.Path); err == nil && !info.IsDir() {
		differs, err := r.workFileDiffers(e.Path, info, e)
		if err != nil {
			return false, err
		}
		if !differs {
			return false, nil
		}
	}
	blob, err := r.Store.ReadBlob(e.BlobHash)
	if err != nil {
		return false, fmt.Errorf("read blob for %q: %w", e.Path, err)
	}
	if dir := path.Dir(e.Path); dir != "." {
		if err := r.FS.MkdirAll(dir, 0o755); err != nil {
			return false, fmt.Errorf("mkdir %q: %w", dir, err)
		}
	}
	if err := r.FS.Remove(e.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return false, fmt.Errorf("replace %q: %w", e.Path, err)
	}
	if err := util.WriteFile(r.FS, e.Path, blob.Data, permForMode(e.Mode)); err != nil {
		return false, fmt.Errorf("write %q: %w", e.Path, err)
	}
	return true, nil
}
