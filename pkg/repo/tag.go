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

// CreateTag creates a lightweight tag, refs/tags/<name>, pointing at the
// commit target. An existing tag is replaced only when force is set.
func (r *Repo) CreateTag(name string, target object.Hash, force bool) error {
	name = strings.TrimSpace(name)
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("create tag: %w", err)
	}
	if _, err := r.Store.ReadCommit(target); err != nil {
		return fmt.Errorf("create tag %q: %w", name, err)
	}
	return r.updateRef(refUpdate{
		name:   tagsPrefix + name,
		hash:   target,
		reason: "tag: " + name,
		create: !force,
	})
}

// DeleteTag removes refs/tags/<name>.
func (r *Repo) DeleteTag(name string) error {
	name = strings.TrimSpace(name)
	if err := validateBranchName(name); err != nil {
		return fmt.Errorf("delete tag: %w", err)
	}

	if err := r.removeRef(tagsPrefix + name); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("delete tag %q: %w", name, ErrTagNotFound)
		}
		return fmt.Errorf("delete tag %q: %w", name, err)
	}
	return nil
}

// ResolveTag returns the commit a tag points at.
func (r *Repo) ResolveTag(name string) (object.Hash, error) {
	name = strings.TrimSpace(name)
	if !r.TagExists(name) {
		return "", fmt.Errorf("resolve tag %q: %w", name, ErrTagNotFound)
	}
	return r.ResolveRef(tagsPrefix + name)
}

// TagExists reports whether refs/tags/<name> exists.
func (r *Repo) TagExists(name string) bool {
	if validateBranchName(name) != nil {
		return false
	}
	return fsutil.IsFile(r.Dir, tagsPrefix+name)
}

// ListTags lists tag names sorted alphabetically.
func (r *Repo) ListTags() ([]string, error) {
	tags, err := r.ListTagsWithHashes()
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(tags))
	for name := range tags {
		names = append(names, name)
	}
	slices.Sort(names)
	return names, nil
}

// ListTagsWithHashes returns tag name -> target hash.
func (r *Repo) ListTagsWithHashes() (map[string]object.Hash, error) {
	refs, err := r.ListRefs("tags")
	if err != nil {
		return nil, fmt.Errorf("list tags: %w", err)
	}
	out := make(map[string]object.Hash, len(refs))
	for full, h := range refs {
		out[strings.TrimPrefix(full, "tags/")] = h
	}
	return out, nil
}
