package repo

import (
	"testing"

	"github.com/odvcencio/scs/pkg/diff"
)

func TestDiffWorkTree(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "initial", map[string]string{
		"a.txt": "one\n",
		"b.txt": "keep\n",
		"c.txt": "gone\n",
	})
	writeWork(t, r, "a.txt", "two\n")
	writeWork(t, r, "untracked.txt", "x\n")
	if err := r.FS.Remove("c.txt"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	diffs, err := r.DiffWorkTree()
	if err != nil {
		t.Fatalf("DiffWorkTree: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("len(diffs) = %d, want 2: %+v", len(diffs), diffs)
	}
	if diffs[0].Path != "a.txt" || diffs[0].Type != diff.Modified {
		t.Errorf("diffs[0] = %s %s, want a.txt modified", diffs[0].Path, diffs[0].Type)
	}
	if string(diffs[0].Before) != "one\n" || string(diffs[0].After) != "two\n" {
		t.Errorf("a.txt before/after = %q/%q", diffs[0].Before, diffs[0].After)
	}
	if diffs[1].Path != "c.txt" || diffs[1].Type != diff.Removed {
		t.Errorf("diffs[1] = %s %s, want c.txt removed", diffs[1].Path, diffs[1].Type)
	}
}

func TestDiffStaged(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "initial", map[string]string{"a.txt": "one\n"})
	writeWork(t, r, "a.txt", "two\n")
	writeWork(t, r, "new.txt", "fresh\n")
	if _, err := r.Add([]string{"a.txt", "new.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	diffs, err := r.DiffStaged()
	if err != nil {
		t.Fatalf("DiffStaged: %v", err)
	}
	if len(diffs) != 2 {
		t.Fatalf("len(diffs) = %d, want 2", len(diffs))
	}
	if diffs[0].Type != diff.Modified || diffs[1].Type != diff.Added {
		t.Errorf("types = %s, %s; want modified, added", diffs[0].Type, diffs[1].Type)
	}

	unstaged, err := r.DiffWorkTree()
	if err != nil {
		t.Fatalf("DiffWorkTree: %v", err)
	}
	if len(unstaged) != 0 {
		t.Errorf("unstaged diffs after add = %+v, want none", unstaged)
	}
}

func TestDiffCommits(t *testing.T) {
	r := newTestRepo(t)
	first := commitFiles(t, r, "first", map[string]string{"a.txt": "one\n"})
	second := commitFiles(t, r, "second", map[string]string{"a.txt": "one\nmore\n"})

	diffs, err := r.DiffCommits(first, second)
	if err != nil {
		t.Fatalf("DiffCommits: %v", err)
	}
	if len(diffs) != 1 {
		t.Fatalf("len(diffs) = %d, want 1", len(diffs))
	}
	want := "diff --scs a/a.txt b/a.txt\n--- a/a.txt\n+++ b/a.txt\n@@ -1 +1,2 @@\n one\n+more\n"
	if got := diff.Format(&diffs[0]); got != want {
		t.Errorf("Format =\n%s\nwant\n%s", got, want)
	}

	fromEmpty, err := r.DiffCommits("", first)
	if err != nil {
		t.Fatalf("DiffCommits from empty: %v", err)
	}
	if len(fromEmpty) != 1 || fromEmpty[0].Type != diff.Added {
		t.Errorf("DiffCommits(\"\", first) = %+v", fromEmpty)
	}
}
