package repo

import (
	"testing"
)

func TestResetUnstagesToHead(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "initial", map[string]string{"main.go": "package main\n\nfunc A() {}\n"})

	writeWork(t, r, "main.go", "package main\n\nfunc A() {}\nfunc B() {}\n")
	if _, err := r.Add([]string{"main.go"}); err != nil {
		t.Fatalf("add modified file: %v", err)
	}

	before, err := r.Status()
	if err != nil {
		t.Fatalf("status before reset: %v", err)
	}
	if len(before) == 0 {
		t.Fatal("expected non-empty status before reset")
	}

	if err := r.Reset([]string{"main.go"}); err != nil {
		t.Fatalf("reset: %v", err)
	}

	after, err := r.Status()
	if err != nil {
		t.Fatalf("status after reset: %v", err)
	}
	entry := findStatusEntry(after, "main.go")
	if entry == nil {
		t.Fatalf("expected status entry for main.go after reset, got %+v", after)
	}
	if entry.IndexStatus != StatusClean {
		t.Fatalf("IndexStatus = %v, want %v", entry.IndexStatus, StatusClean)
	}
	if entry.WorkStatus != StatusDirty {
		t.Fatalf("WorkStatus = %v, want %v", entry.WorkStatus, StatusDirty)
	}
}

func TestResetRemovesStagedNewFile(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "new.txt", "hello\n")
	if _, err := r.Add([]string{"new.txt"}); err != nil {
		t.Fatalf("add new file: %v", err)
	}

	if err := r.Reset([]string{"new.txt"}); err != nil {
		t.Fatalf("reset new file: %v", err)
	}

	idx, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("read index: %v", err)
	}
	if e, ok := idx.Get("new.txt"); ok {
		t.Fatalf("expected new.txt to be unstaged, got index entry %+v", e)
	}
	status, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if e := findStatusEntry(status, "new.txt"); e == nil || e.IndexStatus != StatusUntracked {
		t.Fatalf("new.txt status = %+v, want untracked", e)
	}
}

func TestResetDirectoryPrefix(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "initial", map[string]string{"keep.txt": "k\n"})

	writeWork(t, r, "dir/a.txt", "a\n")
	writeWork(t, r, "dir/sub/b.txt", "b\n")
	writeWork(t, r, "dirty.txt", "not under dir\n")
	if _, err := r.Add([]string{"dir", "dirty.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}

	if err := r.Reset([]string{"dir"}); err != nil {
		t.Fatalf("Reset dir: %v", err)
	}
	idx, err := r.ReadIndex()
	if err != nil {
		t.Fatalf("ReadIndex: %v", err)
	}
	for _, p := range []string{"dir/a.txt", "dir/sub/b.txt"} {
		if _, ok := idx.Get(p); ok {
			t.Errorf("%s still staged", p)
		}
	}
	for _, p := range []string{"keep.txt", "dirty.txt"} {
		if _, ok := idx.Get(p); !ok {
			t.Errorf("%s unstaged by a reset of dir", p)
		}
	}
}

func findStatusEntry(entries []StatusEntry, path string) *StatusEntry {
	for i := range entries {
		if entries[i].Path == path {
			return &entries[i]
		}
	}
	return nil
}
