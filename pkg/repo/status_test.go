package repo

import (
	"testing"

	"github.com/odvcencio/scs/pkg/ignore"
)

func statusOf(t *testing.T, r *Repo) map[string]StatusEntry {
	t.Helper()
	entries, err := r.Status()
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	out := make(map[string]StatusEntry, len(entries))
	for _, e := range entries {
		out[e.Path] = e
	}
	return out
}

func TestStatus(t *testing.T) {
	r := newTestRepo(t)
	r.Ignore = ignore.New("*.log")
	commitFiles(t, r, "base", map[string]string{
		"clean.txt":    "c",
		"modified.txt": "m",
		"dirty.txt":    "d",
		"deleted.txt":  "x",
		"removed.txt":  "r",
	})

	writeWork(t, r, "modified.txt", "m2")
	writeWork(t, r, "new.txt", "n")
	if _, err := r.Add([]string{"modified.txt", "new.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	writeWork(t, r, "dirty.txt", "d2")
	if err := r.FS.Remove("deleted.txt"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := r.Remove([]string{"removed.txt"}, true); err != nil {
		t.Fatalf("Remove cached: %v", err)
	}
	writeWork(t, r, "untracked.txt", "u")
	writeWork(t, r, "debug.log", "ignored")

	tests := []struct {
		path      string
		index     FileStatus
		work      FileStatus
		wantEntry bool
	}{
		{"clean.txt", StatusClean, StatusClean, false},
		{"debug.log", StatusClean, StatusClean, false},
		{"modified.txt", StatusModified, StatusClean, true},
		{"new.txt", StatusNew, StatusClean, true},
		{"dirty.txt", StatusClean, StatusDirty, true},
		{"deleted.txt", StatusClean, StatusDeleted, true},
		{"removed.txt", StatusDeleted, StatusUntracked, true},
		{"untracked.txt", StatusUntracked, StatusUntracked, true},
	}
	got := statusOf(t, r)
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			e, ok := got[tc.path]
			if ok != tc.wantEntry {
				t.Fatalf("entry present = %v, want %v (%+v)", ok, tc.wantEntry, e)
			}
			if !ok {
				return
			}
			if e.IndexStatus != tc.index || e.WorkStatus != tc.work {
				t.Errorf("status = %v/%v, want %v/%v", e.IndexStatus, e.WorkStatus, tc.index, tc.work)
			}
		})
	}
}

func TestStatus_CleanAfterCommit(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "base", map[string]string{"a.txt": "a", "dir/b.txt": "b"})
	if got := statusOf(t, r); len(got) != 0 {
		t.Fatalf("status = %+v, want clean", got)
	}
	if err := r.ensureClean(); err != nil {
		t.Fatalf("ensureClean: %v", err)
	}
}

func TestFileStatusString(t *testing.T) {
	if StatusDirty.String() != "dirty" || FileStatus(99).String() != "FileStatus(99)" {
		t.Errorf("unexpected String output: %q %q", StatusDirty, FileStatus(99))
	}
}
