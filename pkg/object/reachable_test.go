package object

import (
	"testing"
)

func TestStoreReachable(t *testing.T) {
	s := tempStore(t)
	blob, err := s.WriteBlob(&Blob{Data: []byte("tracked\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	orphan, err := s.WriteBlob(&Blob{Data: []byte("orphan\n")})
	if err != nil {
		t.Fatalf("WriteBlob: %v", err)
	}
	tree, err := s.WriteTree(&TreeObj{Entries: []TreeEntry{{Mode: TreeModeFile, Path: "a.txt", BlobHash: blob}}})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	root, err := s.WriteCommit(&CommitObj{TreeHash: tree, Author: "A <a@example.com>", Timestamp: 1, Timezone: "+0000", Message: "root"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}
	child, err := s.WriteCommit(&CommitObj{TreeHash: tree, Parents: []Hash{root}, Author: "A <a@example.com>", Timestamp: 2, Timezone: "+0000", Message: "child"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	got, err := s.Reachable([]Hash{child, child, ""})
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}
	for _, h := range []Hash{child, root, tree, blob} {
		if _, ok := got.Reachable[h]; !ok {
			t.Errorf("%s not reachable", h.Short())
		}
	}
	if _, ok := got.Reachable[orphan]; ok {
		t.Error("orphan blob reported reachable")
	}
	if len(got.Missing) != 0 {
		t.Errorf("Missing = %v, want none", got.Missing)
	}
}

func TestStoreReachableReportsMissing(t *testing.T) {
	s := tempStore(t)
	tree, err := s.WriteTree(&TreeObj{})
	if err != nil {
		t.Fatalf("WriteTree: %v", err)
	}
	ghost := HashObject(TypeCommit, []byte("never stored"))
	c, err := s.WriteCommit(&CommitObj{TreeHash: tree, Parents: []Hash{ghost}, Author: "A <a@example.com>", Timestamp: 1, Timezone: "+0000", Message: "dangling"})
	if err != nil {
		t.Fatalf("WriteCommit: %v", err)
	}

	got, err := s.Reachable([]Hash{c})
	if err != nil {
		t.Fatalf("Reachable: %v", err)
	}
	if len(got.Missing) != 1 || got.Missing[0] != ghost {
		t.Fatalf("Missing = %v, want [%s]", got.Missing, ghost)
	}
	if len(got.Reachable) != 2 {
		t.Errorf("len(Reachable) = %d, want 2", len(got.Reachable))
	}
}
