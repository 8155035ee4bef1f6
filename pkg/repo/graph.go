package repo

import (
	"container/heap"
	"fmt"
	"iter"

	"github.com/odvcencio/scs/pkg/commitgraph"
	"github.com/odvcencio/scs/pkg/object"
)

// LogEntry pairs a commit with its hash.
type LogEntry struct {
	Hash   object.Hash
	Commit *object.CommitObj
}

// ReadCommit reads the commit h.
func (r *Repo) ReadCommit(h object.Hash) (*object.CommitObj, error) {
	c, err := r.Store.ReadCommit(h)
	if err != nil {
		return nil, fmt.Errorf("read commit %s: %w", h, err)
	}
	return c, nil
}

// Parents returns the parent hashes of commit h in order.
func (r *Repo) Parents(h object.Hash) ([]object.Hash, error) {
	n, err := r.node(h)
	if err != nil {
		return nil, err
	}
	return n.Parents, nil
}

// TreeOf returns the tree hash recorded in commit h.
func (r *Repo) TreeOf(h object.Hash) (object.Hash, error) {
	c, err := r.ReadCommit(h)
	if err != nil {
		return "", err
	}
	return c.TreeHash, nil
}

// Generation returns the generation number of h: 1 for a root commit,
// otherwise one more than its highest parent.
func (r *Repo) Generation(h object.Hash) (uint64, error) {
	n, err := r.node(h)
	if err != nil {
		return 0, err
	}
	return n.Generation, nil
}

// node returns the cached graph node for h, parsing h and any uncached
// ancestors first. The traversal uses an explicit stack so deep histories
// do not grow the goroutine stack.
func (r *Repo) node(h object.Hash) (commitgraph.Node, error) {
	cache := r.cache()
	if n, ok, err := cache.Get(h); err != nil {
		return commitgraph.Node{}, err
	} else if ok {
		return n, nil
	}

	parentsOf := make(map[object.Hash][]object.Hash)
	stack := []object.Hash{h}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		if _, ok, err := cache.Get(cur); err != nil {
			return commitgraph.Node{}, err
		} else if ok {
			stack = stack[:len(stack)-1]
			continue
		}

		parents, expanded := parentsOf[cur]
		if !expanded {
			c, err := r.ReadCommit(cur)
			if err != nil {
				return commitgraph.Node{}, err
			}
			parents = c.Parents
			parentsOf[cur] = parents
		}

		var maxGen uint64
		ready := true
		for _, p := range parents {
			pn, ok, err := cache.Get(p)
			if err != nil {
				return commitgraph.Node{}, err
			}
			if !ok {
				ready = false
				stack = append(stack, p)
				continue
			}
			maxGen = max(maxGen, pn.Generation)
		}
		if !ready {
			if expanded {
				return commitgraph.Node{}, fmt.Errorf("commit graph: cycle detected at %s", cur)
			}
			continue
		}
		if err := cache.Put(cur, commitgraph.Node{Parents: parents, Generation: maxGen + 1}); err != nil {
			return commitgraph.Node{}, err
		}
		stack = stack[:len(stack)-1]
	}

	n, _, err := cache.Get(h)
	return n, err
}

// WalkAncestors lazily yields start and every commit reachable from it,
// breadth-first, each exactly once. Iteration stops after yielding an
// error.
func (r *Repo) WalkAncestors(start object.Hash) iter.Seq2[object.Hash, error] {
	return func(yield func(object.Hash, error) bool) {
		if start == "" {
			return
		}
		visited := map[object.Hash]bool{start: true}
		queue := []object.Hash{start}
		for len(queue) > 0 {
			cur := queue[0]
			queue = queue[1:]

			parents, err := r.Parents(cur)
			if err != nil {
				yield("", err)
				return
			}
			if !yield(cur, nil) {
				return
			}
			for _, p := range parents {
				if !visited[p] {
					visited[p] = true
					queue = append(queue, p)
				}
			}
		}
	}
}

// Log walks the commit history starting from the given hash, following
// first-parent links, returning up to limit commits in reverse-chronological
// order (newest first). A limit <= 0 means no limit.
func (r *Repo) Log(start object.Hash, limit int) ([]LogEntry, error) {
	var entries []LogEntry
	current := start

	for current != "" && (limit <= 0 || len(entries) < limit) {
		c, err := r.ReadCommit(current)
		if err != nil {
			return nil, fmt.Errorf("log: %w", err)
		}
		entries = append(entries, LogEntry{Hash: current, Commit: c})

		if len(c.Parents) == 0 {
			break
		}
		current = c.Parents[0]
	}
	return entries, nil
}

// IsAncestor reports whether ancestor is reachable from descendant (a
// commit is its own ancestor). Commits whose generation is below the
// ancestor's cannot reach it and are not expanded.
func (r *Repo) IsAncestor(ancestor, descendant object.Hash) (bool, error) {
	if ancestor == "" || descendant == "" {
		return false, nil
	}
	if ancestor == descendant {
		return true, nil
	}
	target, err := r.Generation(ancestor)
	if err != nil {
		return false, err
	}
	start, err := r.Generation(descendant)
	if err != nil {
		return false, err
	}
	if start <= target {
		return false, nil
	}

	queue := &generationHeap{{hash: descendant, generation: start}}
	seen := map[object.Hash]bool{descendant: true}
	for queue.Len() > 0 {
		item := heap.Pop(queue).(generationItem)
		if item.hash == ancestor {
			return true, nil
		}
		if item.generation <= target {
			continue
		}
		parents, err := r.Parents(item.hash)
		if err != nil {
			return false, err
		}
		for _, p := range parents {
			if seen[p] {
				continue
			}
			seen[p] = true
			g, err := r.Generation(p)
			if err != nil {
				return false, err
			}
			if g >= target {
				heap.Push(queue, generationItem{hash: p, generation: g})
			}
		}
	}
	return false, nil
}
