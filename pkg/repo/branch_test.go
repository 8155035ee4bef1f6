package repo

import (
	"errors"
	"slices"
	"testing"
)

func TestBranch_CreateListDelete(t *testing.T) {
	r := newTestRepo(t)
	h := commitFiles(t, r, "init", map[string]string{"a.txt": "a"})

	for _, name := range []string{"feature", "fix/bug-1"} {
		if err := r.CreateBranch(name); err != nil {
			t.Fatalf("CreateBranch(%s): %v", name, err)
		}
	}
	branches, err := r.ListBranches()
	if err != nil {
		t.Fatalf("ListBranches: %v", err)
	}
	if want := []string{"feature", "fix/bug-1", "main"}; !slices.Equal(branches, want) {
		t.Fatalf("branches = %v, want %v", branches, want)
	}
	if got, _ := r.ResolveRef("fix/bug-1"); got != h {
		t.Errorf("fix/bug-1 = %s, want %s", got, h)
	}

	if err := r.DeleteBranch("feature"); err != nil {
		t.Fatalf("DeleteBranch: %v", err)
	}
	if r.BranchExists("feature") {
		t.Error("feature still exists")
	}
	if entries, _ := r.ReadReflog("feature", 0); len(entries) != 0 {
		t.Errorf("reflog for deleted branch = %+v", entries)
	}
}

func TestBranch_CreateDuplicate(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a"})
	if err := r.CreateBranch("dup"); err != nil {
		t.Fatalf("CreateBranch: %v", err)
	}
	err := r.CreateBranch("dup")
	if !errors.Is(err, ErrBranchExists) || !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second CreateBranch: got %v, want ErrBranchExists", err)
	}
	if err := r.CreateBranch("main"); !errors.Is(err, ErrBranchExists) {
		t.Fatalf("CreateBranch(main): got %v, want ErrBranchExists", err)
	}
}

func TestBranch_CreateOnUnbornBranch(t *testing.T) {
	r := newTestRepo(t)
	if err := r.CreateBranch("dev"); err != nil {
		t.Fatalf("CreateBranch on unborn main: %v", err)
	}
	h, err := r.ResolveRef("dev")
	if err != nil {
		t.Fatalf("ResolveRef(dev): %v", err)
	}
	if h != "" {
		t.Errorf("dev = %s, want unborn", h)
	}
}

func TestBranch_DeleteCurrent(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a"})
	if err := r.DeleteBranch("main"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("DeleteBranch(main): got %v, want ErrInvalidState", err)
	}
	if !r.BranchExists("main") {
		t.Fatal("current branch was deleted")
	}
}

func TestBranch_DeleteNestedPrunesNamespace(t *testing.T) {
	r := newTestRepo(t)
	commitFiles(t, r, "init", map[string]string{"a.txt": "a"})
	if err := r.CreateBranch("feat/x"); err != nil {
		t.Fatalf("CreateBranch(feat/x): %v", err)
	}
	if err := r.DeleteBranch("feat/x"); err != nil {
		t.Fatalf("DeleteBranch(feat/x): %v", err)
	}

	if r.BranchExists("feat") {
		t.Fatal("BranchExists(feat) = true after deleting feat/x")
	}
	for _, dir := range []string{"refs/heads/feat", "logs/refs/heads/feat"} {
		if _, err := r.Dir.Stat(dir); err == nil {
			t.Errorf("%s left behind", dir)
		}
	}
	if _, err := r.Dir.Stat("refs/heads"); err != nil {
		t.Errorf("refs/heads removed: %v", err)
	}
	if err := r.Switch("feat"); !errors.Is(err, ErrBranchNotFound) {
		t.Fatalf("Switch(feat): got %v, want ErrBranchNotFound", err)
	}
	if err := r.CreateBranch("feat"); err != nil {
		t.Fatalf("CreateBranch(feat): %v", err)
	}
}

func TestBranch_ExistsRejectsDirectory(t *testing.T) {
	r := newTestRepo(t)
	if err := r.Dir.MkdirAll("refs/heads/group", 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if r.BranchExists("group") {
		t.Error("BranchExists reported a directory as a branch")
	}
}

func TestBranch_DeleteMissing(t *testing.T) {
	r := newTestRepo(t)
	if err := r.DeleteBranch("ghost"); !errors.Is(err, ErrBranchNotFound) {
		t.Fatalf("DeleteBranch(ghost): got %v, want ErrBranchNotFound", err)
	}
}

func TestValidateBranchName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"main", true},
		{"feature/login", true},
		{"release-1.2", true},
		{"", false},
		{"HEAD", false},
		{"-x", false},
		{"a..b", false},
		{"a//b", false},
		{".hidden", false},
		{"x.lock", false},
		{"has space", false},
		{"what?", false},
		{"tail.", false},
		{"at@{1}", false},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := validateBranchName(tc.name)
			if tc.valid && err != nil {
				t.Fatalf("validateBranchName(%q) = %v, want nil", tc.name, err)
			}
			if !tc.valid && !errors.Is(err, ErrInvalidName) {
				t.Fatalf("validateBranchName(%q) = %v, want ErrInvalidName", tc.name, err)
			}
		})
	}
}
