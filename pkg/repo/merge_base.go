package repo

import (
	"fmt"

	"github.com/odvcencio/scs/pkg/object"
)

// MergeBase returns the nearest common ancestor of ours and theirs. The
// ancestor set of theirs is collected first, then ours is walked
// breadth-first and the first commit found in that set wins, so ties
// between equally near candidates go to the one discovered first from
// ours. Disjoint histories fail with ErrNoCommonAncestor.
func (r *Repo) MergeBase(ours, theirs object.Hash) (object.Hash, error) {
	theirsSet := make(map[object.Hash]bool)
	for h, err := range r.WalkAncestors(theirs) {
		if err != nil {
			return "", fmt.Errorf("merge base: %w", err)
		}
		theirsSet[h] = true
	}

	for h, err := range r.WalkAncestors(ours) {
		if err != nil {
			return "", fmt.Errorf("merge base: %w", err)
		}
		if theirsSet[h] {
			r.Logger.Debug("merge base selected", "ours", ours, "theirs", theirs, "base", h)
			return h, nil
		}
	}
	return "", fmt.Errorf("merge base of %s and %s: %w", ours.Short(), theirs.Short(), ErrNoCommonAncestor)
}
