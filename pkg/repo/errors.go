package repo

import (
	"errors"
	"fmt"
	"strings"

	"github.com/odvcencio/scs/pkg/object"
)

// Taxonomy sentinels, re-exported so callers of this package need not
// import pkg/object to classify errors.
var (
	ErrNotFound      = object.ErrNotFound
	ErrAlreadyExists = object.ErrAlreadyExists
	ErrCorrupt       = object.ErrCorrupt
	ErrInvalidState  = object.ErrInvalidState
	ErrConflict      = object.ErrConflict

	ErrObjectNotFound = object.ErrObjectNotFound
	ErrObjectCorrupt  = object.ErrObjectCorrupt
)

var (
	ErrBranchNotFound = fmt.Errorf("branch %w", ErrNotFound)
	ErrFileNotFound   = fmt.Errorf("file %w", ErrNotFound)
	ErrTagNotFound    = fmt.Errorf("tag %w", ErrNotFound)
	ErrNotRepository  = fmt.Errorf("not an scs repository (or any parent up to /): %w", ErrNotFound)

	ErrBranchExists = fmt.Errorf("branch %w", ErrAlreadyExists)
	ErrRepoExists   = fmt.Errorf("repository %w", ErrAlreadyExists)
	ErrTagExists    = fmt.Errorf("tag %w", ErrAlreadyExists)

	ErrEmptyIndex          = fmt.Errorf("%w: nothing staged", ErrInvalidState)
	ErrNothingToMerge      = fmt.Errorf("%w: already up to date", ErrInvalidState)
	ErrNoCommonAncestor    = fmt.Errorf("%w: no common ancestor", ErrInvalidState)
	ErrUnresolvedConflicts = fmt.Errorf("%w: unresolved merge conflicts", ErrInvalidState)
	ErrMergeInProgress     = fmt.Errorf("%w: merge in progress", ErrInvalidState)
	ErrNoMergeInProgress   = fmt.Errorf("%w: no merge in progress", ErrInvalidState)
	ErrDirtyWorkTree       = fmt.Errorf("%w: working tree has uncommitted changes", ErrInvalidState)
	ErrUnbornBranch        = fmt.Errorf("%w: branch has no commits yet", ErrInvalidState)
	ErrInvalidName         = fmt.Errorf("%w: invalid name", ErrInvalidState)
)

var ErrRefCASMismatch = errors.New("ref compare-and-swap mismatch")
var ErrRefUpdatedButReflogAppendFailed = errors.New("ref updated but reflog append failed")

// RefUpdateReflogError indicates the ref file update succeeded, but appending
// the corresponding reflog entry failed.
type RefUpdateReflogError struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	Err     error
}

func (e *RefUpdateReflogError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf(
		"update ref %q: %s (old=%s new=%s): %v",
		e.Ref,
		ErrRefUpdatedButReflogAppendFailed,
		e.OldHash,
		e.NewHash,
		e.Err,
	)
}

func (e *RefUpdateReflogError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func (e *RefUpdateReflogError) Is(target error) bool {
	return target == ErrRefUpdatedButReflogAppendFailed
}

// BranchError records a failed operation on a named branch.
type BranchError struct {
	Op     string
	Branch string
	Err    error
}

func (e *BranchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Branch, e.Err)
}

func (e *BranchError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// PathError records a failed operation on a repository-relative path.
type PathError struct {
	Op   string
	Path string
	Err  error
}

func (e *PathError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Path, e.Err)
}

func (e *PathError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConflictError is the error form of a conflicted merge. It matches
// ErrConflict under errors.Is.
type ConflictError struct {
	Conflicts []Conflict
}

func (e *ConflictError) Error() string {
	if e == nil {
		return "<nil>"
	}
	paths := make([]string, 0, len(e.Conflicts))
	for _, c := range e.Conflicts {
		paths = append(paths, c.Path)
	}
	return fmt.Sprintf("merge %v in %d path(s): %s", ErrConflict, len(e.Conflicts), strings.Join(paths, ", "))
}

func (e *ConflictError) Unwrap() error {
	return ErrConflict
}
