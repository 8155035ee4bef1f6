package repo

import (
	"errors"
	"testing"
	"time"

	"github.com/odvcencio/scs/pkg/object"
)

// dag builds commits with an empty tree so tests can shape history
// without touching the working tree.
type dag struct {
	t    *testing.T
	r    *Repo
	tree object.Hash
	when time.Time
}

func newDAG(t *testing.T, r *Repo) *dag {
	t.Helper()
	tree, err := r.writeTree(nil)
	if err != nil {
		t.Fatalf("writeTree: %v", err)
	}
	return &dag{t: t, r: r, tree: tree, when: time.Unix(1700000000, 0)}
}

func (d *dag) commit(message string, parents ...object.Hash) object.Hash {
	d.t.Helper()
	d.when = d.when.Add(time.Minute)
	h, err := d.r.WriteCommit(d.tree, parents, "dag <dag@example.com>", message, d.when)
	if err != nil {
		d.t.Fatalf("WriteCommit(%s): %v", message, err)
	}
	return h
}

// buildDiamond shapes this history:
//
//	root - a - b - m
//	   \         /
//	    c ----- d
func buildDiamond(t *testing.T, r *Repo) map[string]object.Hash {
	d := newDAG(t, r)
	h := map[string]object.Hash{}
	h["root"] = d.commit("root")
	h["a"] = d.commit("a", h["root"])
	h["b"] = d.commit("b", h["a"])
	h["c"] = d.commit("c", h["root"])
	h["d"] = d.commit("d", h["c"])
	h["m"] = d.commit("m", h["b"], h["d"])
	return h
}

func TestGeneration(t *testing.T) {
	r := newTestRepo(t)
	h := buildDiamond(t, r)
	want := map[string]uint64{"root": 1, "a": 2, "b": 3, "c": 2, "d": 3, "m": 4}
	for name, gen := range want {
		got, err := r.Generation(h[name])
		if err != nil {
			t.Fatalf("Generation(%s): %v", name, err)
		}
		if got != gen {
			t.Errorf("Generation(%s) = %d, want %d", name, got, gen)
		}
	}
}

func TestWalkAncestors_VisitsEachOnce(t *testing.T) {
	r := newTestRepo(t)
	h := buildDiamond(t, r)

	seen := map[object.Hash]int{}
	var order []object.Hash
	for c, err := range r.WalkAncestors(h["m"]) {
		if err != nil {
			t.Fatalf("WalkAncestors: %v", err)
		}
		seen[c]++
		order = append(order, c)
	}
	if len(seen) != 6 {
		t.Fatalf("visited %d commits, want 6", len(seen))
	}
	for c, n := range seen {
		if n != 1 {
			t.Errorf("%s visited %d times", c, n)
		}
	}
	if order[0] != h["m"] || order[len(order)-1] != h["root"] {
		t.Errorf("walk order = %v", order)
	}
}

func TestWalkAncestors_StopsEarly(t *testing.T) {
	r := newTestRepo(t)
	h := buildDiamond(t, r)
	n := 0
	for range r.WalkAncestors(h["m"]) {
		n++
		if n == 2 {
			break
		}
	}
	if n != 2 {
		t.Fatalf("iterated %d times, want 2", n)
	}
}

func TestIsAncestor(t *testing.T) {
	r := newTestRepo(t)
	h := buildDiamond(t, r)
	tests := []struct {
		anc, desc string
		want      bool
	}{
		{"root", "m", true},
		{"c", "m", true},
		{"a", "b", true},
		{"b", "b", true},
		{"m", "root", false},
		{"c", "b", false},
		{"b", "d", false},
	}
	for _, tc := range tests {
		got, err := r.IsAncestor(h[tc.anc], h[tc.desc])
		if err != nil {
			t.Fatalf("IsAncestor(%s, %s): %v", tc.anc, tc.desc, err)
		}
		if got != tc.want {
			t.Errorf("IsAncestor(%s, %s) = %v, want %v", tc.anc, tc.desc, got, tc.want)
		}
	}
}

func TestMergeBase(t *testing.T) {
	r := newTestRepo(t)
	h := buildDiamond(t, r)
	tests := []struct {
		ours, theirs, want string
	}{
		{"b", "d", "root"},
		{"d", "b", "root"},
		{"m", "d", "d"},
		{"b", "a", "a"},
		{"m", "m", "m"},
	}
	for _, tc := range tests {
		got, err := r.MergeBase(h[tc.ours], h[tc.theirs])
		if err != nil {
			t.Fatalf("MergeBase(%s, %s): %v", tc.ours, tc.theirs, err)
		}
		if got != h[tc.want] {
			t.Errorf("MergeBase(%s, %s) = %s, want %s", tc.ours, tc.theirs, got, tc.want)
		}
	}
}

func TestMergeBase_DisjointHistories(t *testing.T) {
	r := newTestRepo(t)
	d := newDAG(t, r)
	left := d.commit("left root")
	right := d.commit("right root")
	if _, err := r.MergeBase(left, right); !errors.Is(err, ErrNoCommonAncestor) || !errors.Is(err, ErrInvalidState) {
		t.Fatalf("MergeBase of disjoint roots: got %v, want ErrNoCommonAncestor", err)
	}
}

func TestGraph_CorruptCommit(t *testing.T) {
	r := newTestRepo(t)
	blob, err := r.Store.WriteBlob(&object.Blob{Data: []byte("not a commit")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	if _, err := r.Generation(blob); err == nil {
		t.Fatal("Generation of a blob should fail")
	}
	missing := object.HashObject(object.TypeCommit, []byte("missing"))
	if _, err := r.Parents(missing); !errors.Is(err, ErrObjectNotFound) {
		t.Fatalf("Parents(missing): got %v, want ErrObjectNotFound", err)
	}
}
