package repo

import (
	"fmt"
	"os"
	"path"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/osfs"

	"github.com/odvcencio/scs/pkg/fsutil"
)

// Clone copies the repository at src into a new directory dst and checks
// out HEAD there. dst must not exist yet. The clone shares no state with
// the source: objects, refs, reflogs and config are copied, while
// in-progress merge state and the commit-graph cache are not.
func Clone(src, dst string) (*Repo, error) {
	srcAbs, err := filepath.Abs(src)
	if err != nil {
		return nil, fmt.Errorf("clone: abs path: %w", err)
	}
	dstAbs, err := filepath.Abs(dst)
	if err != nil {
		return nil, fmt.Errorf("clone: abs path: %w", err)
	}
	if info, err := os.Stat(filepath.Join(srcAbs, MarkerDir)); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("clone %s: %w", srcAbs, ErrNotRepository)
	}
	if _, err := os.Lstat(dstAbs); err == nil {
		return nil, fmt.Errorf("clone: destination %s: %w", dstAbs, ErrAlreadyExists)
	}
	if err := os.MkdirAll(dstAbs, 0o755); err != nil {
		return nil, fmt.Errorf("clone: mkdir %s: %w", dstAbs, err)
	}

	r, err := cloneInto(osfs.New(srcAbs), osfs.New(dstAbs), dstAbs)
	if err != nil {
		os.RemoveAll(dstAbs)
		return nil, err
	}
	return r, nil
}

// CloneFS clones the repository rooted at src into the empty filesystem dst.
func CloneFS(src, dst billy.Filesystem) (*Repo, error) {
	if info, err := src.Stat(MarkerDir); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("clone: %w", ErrNotRepository)
	}
	if fsutil.Exists(dst, MarkerDir) {
		return nil, fmt.Errorf("clone: destination: %w", ErrAlreadyExists)
	}
	return cloneInto(src, dst, "")
}

// cloneSkipped lists metadata that belongs to one working copy only.
var cloneSkipped = map[string]bool{
	mergeHeadFile:  true,
	mergeMsgFile:   true,
	"commit-graph": true,
}

func cloneInto(src, dst billy.Filesystem, root string) (*Repo, error) {
	skip := func(name string) bool {
		return path.Dir(name) == MarkerDir && cloneSkipped[path.Base(name)]
	}
	if err := fsutil.CopyDir(src, MarkerDir, dst, MarkerDir, skip); err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}

	r, err := openAt(dst, root)
	if err != nil {
		return nil, fmt.Errorf("clone: %w", err)
	}
	head, err := r.ResolveHead()
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("clone: %w", err)
	}
	target, err := r.commitTreeMap(head)
	if err != nil {
		r.Close()
		return nil, fmt.Errorf("clone: %w", err)
	}
	if err := r.materialize(target, nil); err != nil {
		r.Close()
		return nil, fmt.Errorf("clone: checkout: %w", err)
	}
	r.Logger.Debug("cloned repository", "head", head.Short(), "files", len(target))
	return r, nil
}
