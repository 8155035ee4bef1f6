package repo

import (
	"fmt"
	"strings"
	"time"

	"github.com/odvcencio/scs/pkg/object"
)

// CommitSigner signs canonical commit payload bytes and returns an encoded
// signature string to be persisted in CommitObj.Signature.
type CommitSigner func(payload []byte) (string, error)

const maxParents = 2

// WriteCommit writes a commit object for tree with the given parents and
// returns its hash. Refs are not touched. The tree and every parent must
// already be in the store.
func (r *Repo) WriteCommit(tree object.Hash, parents []object.Hash, author, message string, when time.Time) (object.Hash, error) {
	return r.writeCommit(tree, parents, author, message, when, nil)
}

func (r *Repo) writeCommit(tree object.Hash, parents []object.Hash, author, message string, when time.Time, signer CommitSigner) (object.Hash, error) {
	if len(parents) > maxParents {
		return "", fmt.Errorf("write commit: %w: %d parents", ErrInvalidState, len(parents))
	}
	author = strings.TrimSpace(author)
	if author == "" || strings.ContainsAny(author, "\n\x00") {
		return "", fmt.Errorf("write commit: %w: author %q", ErrInvalidName, author)
	}
	if _, err := r.Store.ReadTree(tree); err != nil {
		return "", fmt.Errorf("write commit: tree: %w", err)
	}
	for _, p := range parents {
		if _, err := r.Store.ReadCommit(p); err != nil {
			return "", fmt.Errorf("write commit: parent: %w", err)
		}
	}

	c := &object.CommitObj{
		TreeHash:  tree,
		Parents:   append([]object.Hash(nil), parents...),
		Author:    author,
		Timestamp: when.Unix(),
		Timezone:  when.Format("-0700"),
		Message:   message,
	}
	if signer != nil {
		signature, err := signer(object.CommitSigningPayload(c))
		if err != nil {
			return "", fmt.Errorf("write commit: sign commit: %w", err)
		}
		c.Signature = signature
	}

	h, err := r.Store.WriteCommit(c)
	if err != nil {
		return "", fmt.Errorf("write commit: %w", err)
	}
	return h, nil
}

// Commit creates a new commit from the current index.
//
//  1. Read the index; refuse while conflict markers remain
//  2. Build the tree (ErrEmptyIndex when nothing is staged)
//  3. Parents: resolved HEAD (none on an unborn branch), plus MERGE_HEAD
//     when concluding a conflicted merge
//  4. Write the commit and advance the branch, or a detached HEAD, with a
//     compare-and-swap against the parent
//
// The index is left as is. An empty author falls back to DefaultAuthor; an
// empty message falls back to the one prepared by a conflicted merge.
func (r *Repo) Commit(message, author string) (object.Hash, error) {
	return r.CommitWithSigner(message, author, nil)
}

// CommitWithSigner creates a new commit and signs it when signer is provided.
func (r *Repo) CommitWithSigner(message, author string, signer CommitSigner) (object.Hash, error) {
	if strings.TrimSpace(message) == "" {
		message = r.MergeMessage()
	}
	if strings.TrimSpace(message) == "" {
		return "", fmt.Errorf("commit: %w: empty message", ErrInvalidState)
	}
	if strings.TrimSpace(author) == "" {
		author = r.DefaultAuthor()
	}

	idx, err := r.ReadIndex()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if conflicts := idx.Conflicts(); len(conflicts) > 0 {
		return "", fmt.Errorf("commit: %w (%d path(s), first %q)", ErrUnresolvedConflicts, len(conflicts), conflicts[0].Path)
	}
	treeHash, err := r.buildTree(idx.Entries())
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	head, err := r.Head()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	parent, err := r.ResolveHead()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	var parents []object.Hash
	if parent != "" {
		parents = append(parents, parent)
	}
	mergeHead, err := r.readMergeHead()
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}
	if mergeHead != "" {
		parents = append(parents, mergeHead)
	}

	commitHash, err := r.writeCommit(treeHash, parents, author, message, r.now(), signer)
	if err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	refName := headFile
	if strings.HasPrefix(head, "refs/") {
		refName = head
	}
	reason := "commit: " + firstLine(message)
	if mergeHead != "" {
		reason = "commit (merge): " + firstLine(message)
	}
	if err := r.updateRef(refUpdate{
		name:     refName,
		hash:     commitHash,
		reason:   reason,
		checkOld: true,
		old:      parent,
	}); err != nil {
		return "", fmt.Errorf("commit: %w", err)
	}

	if mergeHead != "" {
		if err := r.clearMergeState(); err != nil {
			return "", fmt.Errorf("commit: %w", err)
		}
	}
	return commitHash, nil
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
