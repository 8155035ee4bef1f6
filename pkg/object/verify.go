package object

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"
)

// VerifySummary reports the result of Store.Verify.
type VerifySummary struct {
	Objects int
	ByType  map[ObjectType]int
}

// ListHashes returns the hashes of every object in the store, sorted.
func (s *Store) ListHashes() ([]Hash, error) {
	fanouts, err := s.fs.ReadDir("objects")
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list objects: %w", err)
	}

	var hashes []Hash
	for _, dir := range fanouts {
		if !dir.IsDir() || len(dir.Name()) != 2 {
			continue
		}
		files, err := s.fs.ReadDir(s.fs.Join("objects", dir.Name()))
		if err != nil {
			return nil, fmt.Errorf("list objects %s: %w", dir.Name(), err)
		}
		for _, f := range files {
			if f.IsDir() || strings.HasPrefix(f.Name(), ".") {
				continue
			}
			h := Hash(dir.Name() + f.Name())
			if ValidHash(h) {
				hashes = append(hashes, h)
			}
		}
	}
	sort.Slice(hashes, func(i, j int) bool { return hashes[i] < hashes[j] })
	return hashes, nil
}

// Verify re-reads every stored object and checks that its content hashes to
// the name it is stored under.
func (s *Store) Verify() (*VerifySummary, error) {
	hashes, err := s.ListHashes()
	if err != nil {
		return nil, err
	}

	report := &VerifySummary{ByType: make(map[ObjectType]int)}
	for _, h := range hashes {
		objType, content, err := s.Read(h)
		if err != nil {
			return nil, fmt.Errorf("verify: %w", err)
		}
		if actual := HashObject(objType, content); actual != h {
			return nil, corruptf("verify", h, "hash mismatch (computed %s)", actual)
		}
		report.Objects++
		report.ByType[objType]++
	}
	return report, nil
}

// ResolvePrefix expands an abbreviated hex hash to the one stored object it
// names. A prefix matching nothing yields ErrObjectNotFound; a prefix
// matching several objects is an error naming the count.
func (s *Store) ResolvePrefix(prefix string) (Hash, error) {
	prefix = strings.ToLower(strings.TrimSpace(prefix))
	if len(prefix) < 4 || len(prefix) > 2*HashSize {
		return "", fmt.Errorf("resolve %q: prefix must be 4 to %d hex characters", prefix, 2*HashSize)
	}
	if len(prefix) == 2*HashSize {
		if s.Has(Hash(prefix)) {
			return Hash(prefix), nil
		}
		return "", &ObjectError{Op: "resolve", Hash: Hash(prefix), Err: ErrObjectNotFound}
	}

	files, err := s.fs.ReadDir(s.fs.Join("objects", prefix[:2]))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", &ObjectError{Op: "resolve", Hash: Hash(prefix), Err: ErrObjectNotFound}
		}
		return "", fmt.Errorf("resolve %q: %w", prefix, err)
	}
	var match Hash
	n := 0
	for _, f := range files {
		h := Hash(prefix[:2] + f.Name())
		if ValidHash(h) && strings.HasPrefix(string(h), prefix) {
			match = h
			n++
		}
	}
	switch n {
	case 0:
		return "", &ObjectError{Op: "resolve", Hash: Hash(prefix), Err: ErrObjectNotFound}
	case 1:
		return match, nil
	}
	return "", fmt.Errorf("resolve %q: ambiguous prefix matches %d objects", prefix, n)
}
