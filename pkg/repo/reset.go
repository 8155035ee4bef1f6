package repo

import (
	"fmt"
	"slices"
	"strings"
)

// Reset unstages paths by restoring their index entries to HEAD.
//
// A path present in HEAD gets HEAD's blob and mode back; a path absent from
// HEAD is dropped from the index. A directory path resets everything under
// it, and no paths resets the whole index. Conflict markers on reset paths
// are cleared. The working tree is never touched.
func (r *Repo) Reset(paths []string) error {
	head, err := r.ResolveHead()
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	headEntries, err := r.commitTreeMap(head)
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}

	err = r.modifyIndex(func(idx *Index) (*Index, error) {
		targets, err := r.resolveResetTargets(paths, idx, headEntries)
		if err != nil {
			return nil, err
		}
		for _, p := range targets {
			idx.ClearConflict(p)
			if e, ok := headEntries[p]; ok {
				idx.Set(e)
				continue
			}
			idx.Delete(p)
		}
		r.Logger.Debug("index reset", "paths", len(targets))
		return idx, nil
	})
	if err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	return nil
}

func (r *Repo) resolveResetTargets(paths []string, idx *Index, head map[string]IndexEntry) ([]string, error) {
	all := make(map[string]struct{}, idx.Len()+len(head))
	for _, e := range idx.Entries() {
		all[e.Path] = struct{}{}
	}
	for _, c := range idx.Conflicts() {
		all[c.Path] = struct{}{}
	}
	for p := range head {
		all[p] = struct{}{}
	}

	if len(paths) == 0 {
		return sortedPathSet(all), nil
	}

	targets := make(map[string]struct{})
	for _, raw := range paths {
		rel, err := r.repoRelPath(strings.TrimSpace(raw))
		if err != nil {
			return nil, err
		}
		if rel == "" || rel == "." {
			for p := range all {
				targets[p] = struct{}{}
			}
			continue
		}

		matched := false
		if _, ok := all[rel]; ok {
			targets[rel] = struct{}{}
			matched = true
		}
		prefix := rel + "/"
		for p := range all {
			if strings.HasPrefix(p, prefix) {
				targets[p] = struct{}{}
				matched = true
			}
		}
		if !matched {
			return nil, &PathError{Op: "reset", Path: rel, Err: ErrFileNotFound}
		}
	}
	return sortedPathSet(targets), nil
}

func sortedPathSet(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}
