package repo

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/odvcencio/scs/pkg/fsutil"
	"github.com/odvcencio/scs/pkg/object"
)

// CreateBranch creates a branch pointing at the commit HEAD resolves to.
// On an unborn branch the new branch is unborn too. Fails with
// ErrBranchExists if the name is taken.
func (r *Repo) CreateBranch(name string) error {
	target, err := r.ResolveHead()
	if err != nil {
		return fmt.Errorf("create branch %q: %w", name, err)
	}
	return r.CreateBranchAt(name, target)
}

// CreateBranchAt creates a branch pointing at target.
func (r *Repo) CreateBranchAt(name string, target object.Hash) error {
	if err := validateBranchName(name); err != nil {
		return &BranchError{Op: "create branch", Branch: name, Err: err}
	}
	if target != "" {
		if _, err := r.Store.ReadCommit(target); err != nil {
			return &BranchError{Op: "create branch", Branch: name, Err: err}
		}
	}
	return r.updateRef(refUpdate{
		name:   headsPrefix + name,
		hash:   target,
		reason: "branch: created",
		create: true,
	})
}

// DeleteBranch removes refs/heads/<name> and its reflog. The current
// branch cannot be deleted.
func (r *Repo) DeleteBranch(name string) error {
	if err := validateBranchName(name); err != nil {
		return &BranchError{Op: "delete branch", Branch: name, Err: err}
	}
	current, err := r.CurrentBranch()
	if err != nil {
		return fmt.Errorf("delete branch: %w", err)
	}
	if current == name {
		return &BranchError{Op: "delete branch", Branch: name, Err: fmt.Errorf("%w: branch is checked out", ErrInvalidState)}
	}

	refName := headsPrefix + name
	if err := r.removeRef(refName); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &BranchError{Op: "delete branch", Branch: name, Err: ErrBranchNotFound}
		}
		return fmt.Errorf("delete branch %q: %w", name, err)
	}
	r.Logger.Debug("branch deleted", "branch", name)
	return nil
}

// ListBranches returns the branch names sorted alphabetically.
func (r *Repo) ListBranches() ([]string, error) {
	refs, err := r.ListRefs("heads")
	if err != nil {
		return nil, fmt.Errorf("list branches: %w", err)
	}
	names := make([]string, 0, len(refs))
	for ref := range refs {
		names = append(names, strings.TrimPrefix(ref, "heads/"))
	}
	slices.Sort(names)
	return names, nil
}

// BranchExists reports whether refs/heads/<name> exists.
func (r *Repo) BranchExists(name string) bool {
	if validateBranchName(name) != nil {
		return false
	}
	return fsutil.IsFile(r.Dir, headsPrefix+name)
}

// CurrentBranch reads HEAD and returns the branch name if HEAD is a symbolic
// ref (e.g. "ref: refs/heads/main" → "main"). If HEAD is detached (contains
// a raw hash), it returns "".
func (r *Repo) CurrentBranch() (string, error) {
	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("current branch: %w", err)
	}
	if strings.HasPrefix(head, headsPrefix) {
		return strings.TrimPrefix(head, headsPrefix), nil
	}
	return "", nil
}

// validateBranchName applies git-style ref name rules to a branch name.
func validateBranchName(name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty branch name", ErrInvalidName)
	}
	if name == headFile || strings.HasPrefix(name, "-") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, part := range strings.Split(name, "/") {
		if part == "" || strings.HasPrefix(part, ".") || strings.HasSuffix(part, ".lock") {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	if strings.Contains(name, "..") || strings.Contains(name, "@{") || strings.HasSuffix(name, ".") {
		return fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	for _, c := range name {
		if c <= ' ' || c == 0x7f || strings.ContainsRune("~^:?*[\\", c) {
			return fmt.Errorf("%w: %q", ErrInvalidName, name)
		}
	}
	return nil
}

// validateRefName checks a full ref path such as "refs/heads/main".
func validateRefName(ref string) error {
	rest, ok := strings.CutPrefix(ref, "refs/")
	if !ok {
		return fmt.Errorf("%w: %q", ErrInvalidName, ref)
	}
	return validateBranchName(rest)
}
