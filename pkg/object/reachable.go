package object

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Reachability is the result of Store.Reachable.
type Reachability struct {
	// Reachable holds every stored object reachable from the roots.
	Reachable map[Hash]struct{}
	// Missing holds hashes named by a root or a reachable object that are
	// not in the store, sorted.
	Missing []Hash
}

// Reachable returns all object hashes reachable from roots by following
// commit parents, commit trees and tree entries. Missing objects are
// reported, not treated as errors; corrupt ones are errors.
func (s *Store) Reachable(roots []Hash) (*Reachability, error) {
	roots = uniqueHashes(roots)
	out := &Reachability{Reachable: make(map[Hash]struct{}, len(roots))}
	missing := make(map[Hash]struct{})

	stack := append([]Hash(nil), roots...)
	for len(stack) > 0 {
		h := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if _, ok := out.Reachable[h]; ok {
			continue
		}
		if _, ok := missing[h]; ok {
			continue
		}

		objType, data, err := s.Read(h)
		if err != nil {
			if errors.Is(err, ErrObjectNotFound) {
				missing[h] = struct{}{}
				continue
			}
			return nil, fmt.Errorf("reachable: %w", err)
		}
		out.Reachable[h] = struct{}{}

		refs, err := referencedHashes(objType, data)
		if err != nil {
			return nil, corruptf("reachable", h, "%v", err)
		}
		stack = append(stack, refs...)
	}

	for h := range missing {
		out.Missing = append(out.Missing, h)
	}
	slices.Sort(out.Missing)
	return out, nil
}

func referencedHashes(objType ObjectType, data []byte) ([]Hash, error) {
	switch objType {
	case TypeBlob:
		return nil, nil
	case TypeCommit:
		c, err := UnmarshalCommit(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, 1+len(c.Parents))
		refs = append(refs, c.TreeHash)
		return append(refs, c.Parents...), nil
	case TypeTree:
		tr, err := UnmarshalTree(data)
		if err != nil {
			return nil, err
		}
		refs := make([]Hash, 0, len(tr.Entries))
		for _, e := range tr.Entries {
			refs = append(refs, e.BlobHash)
		}
		return refs, nil
	default:
		return nil, fmt.Errorf("unsupported object type %q", objType)
	}
}

func uniqueHashes(in []Hash) []Hash {
	seen := make(map[Hash]struct{}, len(in))
	out := make([]Hash, 0, len(in))
	for _, h := range in {
		h = Hash(strings.TrimSpace(string(h)))
		if h == "" {
			continue
		}
		if _, ok := seen[h]; ok {
			continue
		}
		seen[h] = struct{}{}
		out = append(out, h)
	}
	slices.Sort(out)
	return out
}
