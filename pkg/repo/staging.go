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

// StageStatus is the per-path outcome of a staging request.
type StageStatus int

const (
	StageAdded     StageStatus = iota // blob written, entry added or replaced
	StageUnchanged                    // entry already matched the file
	StageIgnored                      // path matched an ignore pattern
	StageMissing                      // path does not exist
	StageInvalid                      // path cannot be tracked
)

func (s StageStatus) String() string {
	switch s {
	case StageAdded:
		return "added"
	case StageUnchanged:
		return "unchanged"
	case StageIgnored:
		return "ignored"
	case StageMissing:
		return "missing"
	case StageInvalid:
		return "invalid"
	}
	return fmt.Sprintf("StageStatus(%d)", int(s))
}

// StageResult reports what happened to one path. Err is set for
// StageMissing and StageInvalid.
type StageResult struct {
	Path     string
	Status   StageStatus
	BlobHash object.Hash
	Err      error
}

// Stage stages a single file. A missing path fails with ErrFileNotFound.
// An ignored path is reported as StageIgnored and leaves the index
// unchanged. Use Add to stage directories.
func (r *Repo) Stage(p string) (StageResult, error) {
	rel, err := r.repoRelPath(p)
	if err != nil {
		return StageResult{Path: p, Status: StageInvalid, Err: err}, err
	}
	if info, err := r.FS.Stat(rel); err == nil && info.IsDir() {
		err := &PathError{Op: "stage", Path: rel, Err: fmt.Errorf("%w: is a directory", ErrInvalidState)}
		return StageResult{Path: rel, Status: StageInvalid, Err: err}, err
	}
	results, err := r.Add([]string{p})
	if err != nil {
		return StageResult{Path: rel, Status: StageInvalid, Err: err}, err
	}
	res := results[0]
	return res, res.Err
}

// Add stages the given paths. Each path is resolved relative to the repo
// root and directories are expanded recursively. Per-path problems (missing,
// ignored, untrackable) are reported in the results and do not stop the
// batch. A store or index failure aborts the whole batch with the index
// unchanged.
func (r *Repo) Add(paths []string) ([]StageResult, error) {
	var results []StageResult
	err := r.modifyIndex(func(idx *Index) (*Index, error) {
		changed := false
		for _, p := range paths {
			rel, err := r.repoRelPath(p)
			if err != nil {
				results = append(results, StageResult{Path: p, Status: StageInvalid, Err: err})
				continue
			}
			files, res, err := r.expandStagePath(rel)
			if err != nil {
				return nil, fmt.Errorf("add: %w", err)
			}
			results = append(results, res...)
			for _, f := range files {
				sr, err := r.stageFile(idx, f)
				if err != nil {
					return nil, fmt.Errorf("add: %w", err)
				}
				if sr.Status == StageAdded {
					changed = true
				}
				results = append(results, sr)
			}
		}
		if !changed {
			return nil, nil
		}
		return idx, nil
	})
	if err != nil {
		return nil, err
	}
	for _, res := range results {
		if res.Status == StageIgnored {
			r.Logger.Debug("skipped ignored path", "path", res.Path)
		}
	}
	return results, nil
}

// expandStagePath turns one requested path into the files to stage plus
// results for paths that will not be staged.
func (r *Repo) expandStagePath(rel string) ([]string, []StageResult, error) {
	if rel != "." {
		if err := validateTrackedPath(rel); err != nil {
			return nil, []StageResult{{Path: rel, Status: StageInvalid, Err: err}}, nil
		}
	}
	info, err := r.FS.Stat(rel)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			missing := &PathError{Op: "stage", Path: rel, Err: ErrFileNotFound}
			return nil, []StageResult{{Path: rel, Status: StageMissing, Err: missing}}, nil
		}
		return nil, nil, fmt.Errorf("stat %q: %w", rel, err)
	}
	if r.Ignore.Matches(rel) {
		return nil, []StageResult{{Path: rel, Status: StageIgnored}}, nil
	}
	if !info.IsDir() {
		return []string{rel}, nil, nil
	}

	var files []string
	var skipped []StageResult
	walkErr := util.Walk(r.FS, rel, func(p string, fi os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		p = filepath.ToSlash(p)
		if p == rel {
			return nil
		}
		if r.Ignore.Matches(p) {
			if !fi.IsDir() {
				skipped = append(skipped, StageResult{Path: p, Status: StageIgnored})
			}
			if fi.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if fi.IsDir() || !fi.Mode().IsRegular() {
			return nil
		}
		if err := validateTrackedPath(p); err != nil {
			skipped = append(skipped, StageResult{Path: p, Status: StageInvalid, Err: err})
			return nil
		}
		files = append(files, p)
		return nil
	})
	if walkErr != nil {
		return nil, nil, fmt.Errorf("walk %q: %w", rel, walkErr)
	}
	return files, skipped, nil
}

// stageFile writes the blob for rel and records it in idx. Staging a path
// clears any conflict marker for it.
func (r *Repo) stageFile(idx *Index, rel string) (StageResult, error) {
	info, err := r.FS.Stat(rel)
	if err != nil {
		return StageResult{}, fmt.Errorf("stat %q: %w", rel, err)
	}
	content, err := util.ReadFile(r.FS, rel)
	if err != nil {
		return StageResult{}, fmt.Errorf("read %q: %w", rel, err)
	}
	h, err := r.Store.WriteBlob(&object.Blob{Data: content})
	if err != nil {
		return StageResult{}, fmt.Errorf("write blob %q: %w", rel, err)
	}

	entry := IndexEntry{Mode: modeFromFileInfo(info), Path: rel, BlobHash: h}
	_, conflicted := idx.conflicts[rel]
	if cur, ok := idx.Get(rel); ok && cur == entry && !conflicted {
		return StageResult{Path: rel, Status: StageUnchanged, BlobHash: h}, nil
	}
	idx.Set(entry)
	idx.ClearConflict(rel)
	return StageResult{Path: rel, Status: StageAdded, BlobHash: h}, nil
}

// Remove drops paths from the index. Unless cached is set the files are
// also deleted from the working tree. Paths that are not tracked fail with
// ErrFileNotFound and nothing is changed.
func (r *Repo) Remove(paths []string, cached bool) error {
	var removed []string
	err := r.modifyIndex(func(idx *Index) (*Index, error) {
		for _, p := range paths {
			rel, err := r.repoRelPath(p)
			if err != nil {
				return nil, fmt.Errorf("rm: %w", err)
			}
			if _, ok := idx.Get(rel); !ok {
				return nil, &PathError{Op: "rm", Path: rel, Err: ErrFileNotFound}
			}
			idx.Delete(rel)
			removed = append(removed, rel)
		}
		return idx, nil
	})
	if err != nil {
		return err
	}
	if cached {
		return nil
	}
	for _, rel := range removed {
		if err := r.FS.Remove(rel); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("rm: remove %q: %w", rel, err)
		}
		fsutil.RemoveEmptyParents(r.FS, path.Dir(rel))
	}
	return nil
}

// validateTrackedPath rejects paths the index cannot represent.
func validateTrackedPath(p string) error {
	switch {
	case p == "" || p == ".":
		return &PathError{Op: "stage", Path: p, Err: fmt.Errorf("%w: empty path", ErrInvalidName)}
	case strings.ContainsAny(p, "\n\r\x00"):
		return &PathError{Op: "stage", Path: p, Err: fmt.Errorf("%w: control character in path", ErrInvalidName)}
	case p == ".." || strings.HasPrefix(p, "../"):
		return &PathError{Op: "stage", Path: p, Err: fmt.Errorf("%w: outside repository", ErrInvalidName)}
	case p == MarkerDir || strings.HasPrefix(p, MarkerDir+"/"):
		return &PathError{Op: "stage", Path: p, Err: fmt.Errorf("%w: inside %s", ErrInvalidName, MarkerDir)}
	}
	return nil
}

// repoRelPath converts a path (absolute, or relative to CWD) into a path
// relative to the repository root. If the path is already relative and does
// not start with the repo root, it is assumed to already be repo-relative.
// In-memory repositories only accept repo-relative paths.
func (r *Repo) repoRelPath(p string) (string, error) {
	if r.RootDir == "" {
		return cleanRel(p), nil
	}
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(r.RootDir, p)
		if err != nil {
			return "", fmt.Errorf("cannot make %q relative to %q: %w", p, r.RootDir, err)
		}
		return cleanRel(rel), nil
	}

	cwd, err := os.Getwd()
	if err != nil {
		return cleanRel(p), nil
	}
	rel, err := filepath.Rel(r.RootDir, filepath.Join(cwd, p))
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return cleanRel(p), nil
	}
	return cleanRel(rel), nil
}

func cleanRel(p string) string {
	return strings.TrimPrefix(filepath.ToSlash(filepath.Clean(p)), "/")
}
