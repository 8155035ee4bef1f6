package repo

import (
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
	"github.com/odvcencio/scs/pkg/object"
)

const (
	headFile      = "HEAD"
	mergeHeadFile = "MERGE_HEAD"
	headsPrefix   = "refs/heads/"
	tagsPrefix    = "refs/tags/"
)

// Head reads .scs/HEAD. If the content starts with "ref: ", it returns the
// ref path (e.g., "refs/heads/main"). Otherwise it returns the raw content
// as a detached hash string.
func (r *Repo) Head() (string, error) {
	data, err := util.ReadFile(r.Dir, headFile)
	if err != nil {
		return "", fmt.Errorf("head: %w", err)
	}
	content := strings.TrimRight(string(data), "\n")

	if strings.HasPrefix(content, "ref: ") {
		return strings.TrimPrefix(content, "ref: "), nil
	}
	return content, nil
}

// ResolveRef resolves a ref name to a commit hash. An unborn branch resolves
// to "" with no error.
//
// Resolution order:
//  1. If name is "HEAD", read HEAD. If HEAD is symbolic, resolve the target ref.
//  2. If name starts with "refs/", read .scs/<name>.
//  3. Otherwise, try "refs/heads/<name>".
func (r *Repo) ResolveRef(name string) (object.Hash, error) {
	if name == headFile {
		head, err := r.Head()
		if err != nil {
			return "", err
		}
		if strings.HasPrefix(head, "refs/") {
			return r.ResolveRef(head)
		}
		return object.Hash(head), nil
	}

	refName := name
	if !strings.HasPrefix(name, "refs/") {
		refName = headsPrefix + name
	}
	if err := validateRefName(refName); err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}

	h, exists, err := r.readRefHash(refName)
	if err != nil {
		return "", fmt.Errorf("resolve ref %q: %w", name, err)
	}
	if !exists {
		return "", &BranchError{Op: "resolve", Branch: strings.TrimPrefix(refName, headsPrefix), Err: ErrBranchNotFound}
	}
	return h, nil
}

// ResolveHead returns the commit HEAD points at, or "" on an unborn branch.
func (r *Repo) ResolveHead() (object.Hash, error) {
	return r.ResolveRef(headFile)
}

// UpdateRef writes a hash to the named ref file under .scs/. Parent
// directories are created as needed.
func (r *Repo) UpdateRef(name string, h object.Hash) error {
	return r.UpdateRefCAS(name, h)
}

// UpdateRefCAS writes a hash to the named ref file under .scs/ using
// lockfile + rename atomic semantics. If expectedOld is provided, the
// update only succeeds when the current ref hash matches it.
//
// Reflog append happens after the ref rename; if reflog append fails, the ref
// update remains committed and a RefUpdateReflogError is returned.
func (r *Repo) UpdateRefCAS(name string, h object.Hash, expectedOld ...object.Hash) error {
	if len(expectedOld) > 1 {
		return fmt.Errorf("update ref %q: expected at most one old hash", name)
	}
	u := refUpdate{name: name, hash: h, reason: "update"}
	if len(expectedOld) == 1 {
		u.checkOld = true
		u.old = expectedOld[0]
	}
	return r.updateRef(u)
}

type refUpdate struct {
	name      string
	hash      object.Hash
	reason    string
	checkOld  bool
	old       object.Hash
	mustExist bool
	create    bool // fail with ErrBranchExists if the ref file exists
}

func (r *Repo) updateRef(u refUpdate) error {
	if u.name != headFile {
		if err := validateRefName(u.name); err != nil {
			return fmt.Errorf("update ref %q: %w", u.name, err)
		}
	}
	if u.hash != "" && !object.ValidHash(u.hash) {
		return fmt.Errorf("update ref %q: invalid hash %q", u.name, u.hash)
	}

	lock, err := fsutil.AcquireLock(r.Dir, u.name)
	if err != nil {
		return fmt.Errorf("update ref %q: lock: %w", u.name, err)
	}
	defer lock.Release()

	oldHash, exists, err := r.readRefHash(u.name)
	if err != nil {
		return fmt.Errorf("update ref %q: read old hash: %w", u.name, err)
	}
	if u.create && exists {
		if tag, ok := strings.CutPrefix(u.name, tagsPrefix); ok {
			return fmt.Errorf("create tag %q: %w", tag, ErrTagExists)
		}
		return &BranchError{Op: "create branch", Branch: strings.TrimPrefix(u.name, headsPrefix), Err: ErrBranchExists}
	}
	if u.mustExist && !exists {
		return &BranchError{Op: "update", Branch: strings.TrimPrefix(u.name, headsPrefix), Err: ErrBranchNotFound}
	}
	if u.checkOld && oldHash != u.old {
		return fmt.Errorf(
			"update ref %q: %w (expected %s, found %s)",
			u.name,
			ErrRefCASMismatch,
			u.old,
			oldHash,
		)
	}

	if u.hash != "" {
		if err := lock.Write([]byte(string(u.hash) + "\n")); err != nil {
			return fmt.Errorf("update ref %q: write: %w", u.name, err)
		}
	}
	if err := lock.Commit(); err != nil {
		return fmt.Errorf("update ref %q: %w", u.name, err)
	}
	r.Logger.Debug("ref updated", "ref", u.name, "old", oldHash, "new", u.hash, "reason", u.reason)

	if err := r.appendReflog(u.name, oldHash, u.hash, u.reason); err != nil {
		return &RefUpdateReflogError{
			Ref:     u.name,
			OldHash: oldHash,
			NewHash: u.hash,
			Err:     err,
		}
	}
	return nil
}

// readRefHash returns the hash stored in a ref and whether the ref file
// exists. An existing empty ref is an unborn branch.
func (r *Repo) readRefHash(name string) (object.Hash, bool, error) {
	data, err := util.ReadFile(r.Dir, name)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", false, nil
		}
		return "", false, err
	}
	if strings.HasPrefix(string(data), "ref: ") {
		return "", true, fmt.Errorf("ref %q is symbolic", name)
	}
	return object.Hash(strings.TrimSpace(string(data))), true, nil
}

// setHead rewrites HEAD through a lock file. A branch name makes HEAD
// symbolic; a hash detaches it.
func (r *Repo) setHead(branch string, detached object.Hash) error {
	var content string
	if branch != "" {
		content = "ref: " + headsPrefix + branch + "\n"
	} else {
		content = string(detached) + "\n"
	}

	old, _ := r.Head()
	lock, err := fsutil.AcquireLock(r.Dir, headFile)
	if err != nil {
		return fmt.Errorf("set HEAD: lock: %w", err)
	}
	defer lock.Release()
	if err := lock.Write([]byte(content)); err != nil {
		return fmt.Errorf("set HEAD: write: %w", err)
	}
	if err := lock.Commit(); err != nil {
		return fmt.Errorf("set HEAD: %w", err)
	}
	r.Logger.Debug("HEAD moved", "from", old, "to", strings.TrimSpace(content))
	return nil
}

// ListRefs lists references under .scs/refs.
// Names are returned relative to refs root, e.g. "heads/main".
func (r *Repo) ListRefs(prefix string) (map[string]object.Hash, error) {
	root := "refs"
	dir := root
	if strings.TrimSpace(prefix) != "" {
		dir = path.Join(root, prefix)
	}

	refs := make(map[string]object.Hash)
	err := util.Walk(r.Dir, dir, func(p string, info os.FileInfo, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if info.IsDir() || strings.HasSuffix(p, ".lock") {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return err
		}
		data, err := util.ReadFile(r.Dir, p)
		if err != nil {
			return err
		}
		refs[filepath.ToSlash(rel)] = object.Hash(strings.TrimSpace(string(data)))
		return nil
	})
	if errors.Is(err, os.ErrNotExist) {
		return refs, nil
	}
	if err != nil {
		return nil, fmt.Errorf("list refs: %w", err)
	}
	return refs, nil
}

// removeRef deletes a ref file and its reflog under the ref's lock, then
// prunes directories left empty by nested names such as feat/x. A missing
// ref returns an error wrapping os.ErrNotExist.
func (r *Repo) removeRef(refName string) error {
	lock, err := fsutil.AcquireLock(r.Dir, refName)
	if err != nil {
		return fmt.Errorf("lock: %w", err)
	}
	removeErr := r.Dir.Remove(refName)
	lock.Release()

	logPath := path.Join("logs", refName)
	if removeErr == nil {
		if err := r.Dir.Remove(logPath); err != nil && !errors.Is(err, os.ErrNotExist) {
			removeErr = fmt.Errorf("reflog: %w", err)
		}
	}
	ns := path.Dir(refName)
	for strings.Count(ns, "/") > 1 {
		ns = path.Dir(ns)
	}
	fsutil.RemoveEmptyDirs(r.Dir, path.Dir(refName), ns)
	fsutil.RemoveEmptyDirs(r.Dir, path.Dir(logPath), path.Join("logs", ns))
	return removeErr
}
