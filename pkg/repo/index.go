package repo

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/fsutil"
	"github.com/odvcencio/scs/pkg/object"
)

const (
	indexFile      = "index"
	conflictPrefix = "conflict"
	absentMarker   = "-"
)

// IndexEntry records the staged state of a single file.
type IndexEntry struct {
	Mode     string
	Path     string
	BlobHash object.Hash
}

// Index is the staging area: the proposed next tree plus any conflict
// markers left by an unfinished merge. It is keyed by path.
type Index struct {
	entries   map[string]IndexEntry
	conflicts map[string]Conflict
}

// NewIndex returns an empty index.
func NewIndex() *Index {
	return &Index{
		entries:   make(map[string]IndexEntry),
		conflicts: make(map[string]Conflict),
	}
}

// Set adds or replaces the entry for e.Path.
func (idx *Index) Set(e IndexEntry) {
	e.Mode = normalizeFileMode(e.Mode)
	idx.entries[e.Path] = e
}

// Get returns the entry for path.
func (idx *Index) Get(path string) (IndexEntry, bool) {
	e, ok := idx.entries[path]
	return e, ok
}

// Delete drops the entry and any conflict marker for path.
func (idx *Index) Delete(path string) {
	delete(idx.entries, path)
	delete(idx.conflicts, path)
}

func (idx *Index) Len() int { return len(idx.entries) }

// Entries returns the entries sorted by path.
func (idx *Index) Entries() []IndexEntry {
	out := make([]IndexEntry, 0, len(idx.entries))
	for _, e := range idx.entries {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b IndexEntry) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// MarkConflict records an unresolved conflict for c.Path.
func (idx *Index) MarkConflict(c Conflict) {
	idx.conflicts[c.Path] = c
}

// ClearConflict drops the conflict marker for path.
func (idx *Index) ClearConflict(path string) {
	delete(idx.conflicts, path)
}

// Conflicts returns the unresolved conflicts sorted by path.
func (idx *Index) Conflicts() []Conflict {
	out := make([]Conflict, 0, len(idx.conflicts))
	for _, c := range idx.conflicts {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b Conflict) int { return strings.Compare(a.Path, b.Path) })
	return out
}

// Marshal encodes the index as text: one "<mode> <path> <digest>" line per
// entry, then one "conflict <path> <base> <ours> <theirs>" line per
// conflict with "-" standing for an absent side.
func (idx *Index) Marshal() []byte {
	var buf bytes.Buffer
	for _, e := range idx.Entries() {
		fmt.Fprintf(&buf, "%s %s %s\n", e.Mode, e.Path, e.BlobHash)
	}
	for _, c := range idx.Conflicts() {
		fmt.Fprintf(&buf, "%s %s %s %s %s\n", conflictPrefix, c.Path,
			hashOrAbsent(c.Base), hashOrAbsent(c.Ours), hashOrAbsent(c.Theirs))
	}
	return buf.Bytes()
}

// ParseIndex decodes the format written by Marshal. Paths may contain
// spaces; the fixed-width fields on either side delimit them.
func ParseIndex(data []byte) (*Index, error) {
	idx := NewIndex()
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, conflictPrefix+" ") {
			c, err := parseConflictLine(strings.TrimPrefix(line, conflictPrefix+" "))
			if err != nil {
				return nil, fmt.Errorf("index line %d: %w", lineNo, err)
			}
			idx.conflicts[c.Path] = c
			continue
		}

		mode, rest, ok := strings.Cut(line, " ")
		sp := strings.LastIndexByte(rest, ' ')
		if !ok || sp <= 0 {
			return nil, fmt.Errorf("index line %d: malformed entry %q", lineNo, line)
		}
		p, h := rest[:sp], object.Hash(rest[sp+1:])
		if mode != object.TreeModeFile && mode != object.TreeModeExecutable {
			return nil, fmt.Errorf("index line %d: unknown mode %q", lineNo, mode)
		}
		if !object.ValidHash(h) {
			return nil, fmt.Errorf("index line %d: invalid hash %q", lineNo, h)
		}
		if _, dup := idx.entries[p]; dup {
			return nil, fmt.Errorf("index line %d: duplicate path %q", lineNo, p)
		}
		idx.entries[p] = IndexEntry{Mode: mode, Path: p, BlobHash: h}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("index: %w", err)
	}
	return idx, nil
}

func parseConflictLine(rest string) (Conflict, error) {
	fields := strings.Split(rest, " ")
	if len(fields) < 4 {
		return Conflict{}, fmt.Errorf("malformed conflict %q", rest)
	}
	n := len(fields)
	c := Conflict{Path: strings.Join(fields[:n-3], " ")}
	sides := []*object.Hash{&c.Base, &c.Ours, &c.Theirs}
	for i, dst := range sides {
		v := fields[n-3+i]
		if v == absentMarker {
			continue
		}
		if !object.ValidHash(object.Hash(v)) {
			return Conflict{}, fmt.Errorf("conflict %q: invalid hash %q", c.Path, v)
		}
		*dst = object.Hash(v)
	}
	return c, nil
}

func hashOrAbsent(h object.Hash) string {
	if h == "" {
		return absentMarker
	}
	return string(h)
}

// ReadIndex loads .scs/index. A missing file is an empty index.
func (r *Repo) ReadIndex() (*Index, error) {
	data, err := util.ReadFile(r.Dir, indexFile)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return NewIndex(), nil
		}
		return nil, fmt.Errorf("read index: %w", err)
	}
	idx, err := ParseIndex(data)
	if err != nil {
		return nil, fmt.Errorf("read index: %w", err)
	}
	return idx, nil
}

// WriteIndex atomically replaces .scs/index.
func (r *Repo) WriteIndex(idx *Index) error {
	return r.modifyIndex(func(cur *Index) (*Index, error) { return idx, nil })
}

// modifyIndex runs a read-modify-write cycle on the index while holding
// index.lock. If fn returns an error the index is left untouched. fn may
// return nil to skip the write.
func (r *Repo) modifyIndex(fn func(idx *Index) (*Index, error)) error {
	lock, err := fsutil.AcquireLock(r.Dir, indexFile)
	if err != nil {
		return fmt.Errorf("index: lock: %w", err)
	}
	defer lock.Release()

	cur, err := r.ReadIndex()
	if err != nil {
		return err
	}
	next, err := fn(cur)
	if err != nil {
		return err
	}
	if next == nil {
		return nil
	}
	if err := lock.Write(next.Marshal()); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	if err := lock.Commit(); err != nil {
		return fmt.Errorf("write index: %w", err)
	}
	return nil
}

// Entries returns the staged entries ordered by path.
func (r *Repo) Entries() ([]IndexEntry, error) {
	idx, err := r.ReadIndex()
	if err != nil {
		return nil, err
	}
	return idx.Entries(), nil
}
