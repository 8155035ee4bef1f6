package repo

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"

	"github.com/odvcencio/scs/pkg/object"
)

func TestInit_CreatesStructure(t *testing.T) {
	dir := t.TempDir()

	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init(%q): %v", dir, err)
	}
	defer r.Close()
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}

	scsDir := filepath.Join(dir, MarkerDir)
	assertDir(t, scsDir)
	assertFile(t, filepath.Join(scsDir, "HEAD"))
	assertFile(t, filepath.Join(scsDir, "index"))
	assertFile(t, filepath.Join(scsDir, "config.toml"))
	assertFile(t, filepath.Join(scsDir, "refs", "heads", "main"))
	assertDir(t, filepath.Join(scsDir, "objects"))
	assertDir(t, filepath.Join(scsDir, "logs", "refs", "heads"))

	if r.Store == nil {
		t.Error("Store is nil after Init")
	}
}

func TestInit_ExistingRepo_NoChanges(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("first Init: %v", err)
	}
	h := commitFilesOS(t, r, "keep", map[string]string{"a.txt": "a"})
	r.Close()

	headBefore, _ := os.ReadFile(filepath.Join(dir, MarkerDir, "HEAD"))
	indexBefore, _ := os.ReadFile(filepath.Join(dir, MarkerDir, "index"))

	_, err = Init(dir)
	if !errors.Is(err, ErrRepoExists) || !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("second Init: got %v, want ErrRepoExists", err)
	}

	headAfter, _ := os.ReadFile(filepath.Join(dir, MarkerDir, "HEAD"))
	indexAfter, _ := os.ReadFile(filepath.Join(dir, MarkerDir, "index"))
	if string(headBefore) != string(headAfter) || string(indexBefore) != string(indexAfter) {
		t.Fatal("failed Init modified repository files")
	}

	reopened, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer reopened.Close()
	if got, _ := reopened.ResolveHead(); got != h {
		t.Errorf("HEAD = %s, want %s", got, h)
	}
}

func TestInitFS_ExistingRepo(t *testing.T) {
	fs := memfs.New()
	if _, err := InitFS(fs); err != nil {
		t.Fatalf("InitFS: %v", err)
	}
	if _, err := InitFS(fs); !errors.Is(err, ErrRepoExists) {
		t.Fatalf("second InitFS: got %v, want ErrRepoExists", err)
	}
}

func TestOpen_FromSubdirectory(t *testing.T) {
	dir := t.TempDir()
	r, err := Init(dir)
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	r.Close()

	sub := filepath.Join(dir, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	r, err = Open(sub)
	if err != nil {
		t.Fatalf("Open(%q): %v", sub, err)
	}
	defer r.Close()
	if r.RootDir != dir {
		t.Errorf("RootDir = %q, want %q", r.RootDir, dir)
	}
}

func TestOpen_NoRepo_Error(t *testing.T) {
	if _, err := Open(t.TempDir()); !errors.Is(err, ErrNotRepository) {
		t.Fatalf("Open: got %v, want ErrNotRepository", err)
	}
	if _, err := OpenFS(memfs.New()); !errors.Is(err, ErrNotRepository) {
		t.Fatalf("OpenFS: got %v, want ErrNotRepository", err)
	}
}

func TestInit_HeadDefault(t *testing.T) {
	r := newTestRepo(t)
	ref, err := r.Head()
	if err != nil {
		t.Fatalf("Head(): %v", err)
	}
	if ref != "refs/heads/main" {
		t.Errorf("Head() = %q, want %q", ref, "refs/heads/main")
	}
	branch, err := r.CurrentBranch()
	if err != nil {
		t.Fatalf("CurrentBranch: %v", err)
	}
	if branch != "main" {
		t.Errorf("CurrentBranch = %q, want main", branch)
	}
}

func TestOpenFS_LoadsIgnoreFile(t *testing.T) {
	fs := memfs.New()
	if _, err := InitFS(fs); err != nil {
		t.Fatalf("InitFS: %v", err)
	}
	if err := util.WriteFile(fs, ".scsignore", []byte("*.log\n"), 0o644); err != nil {
		t.Fatalf("write ignore file: %v", err)
	}
	r, err := OpenFS(fs)
	if err != nil {
		t.Fatalf("OpenFS: %v", err)
	}
	if !r.Ignore.Matches("build.log") {
		t.Error("build.log should be ignored after reopening")
	}
}

// commitFilesOS is commitFiles for repositories backed by the real
// filesystem, where paths are resolved against RootDir.
func commitFilesOS(t *testing.T, r *Repo, message string, files map[string]string) object.Hash {
	t.Helper()
	var paths []string
	for name, content := range files {
		full := filepath.Join(r.RootDir, name)
		if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
			t.Fatalf("MkdirAll: %v", err)
		}
		if err := os.WriteFile(full, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
		paths = append(paths, full)
	}
	if _, err := r.Add(paths); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit(message, "Test Author <test@example.com>")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return h
}

func assertDir(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected directory %q to exist: %v", path, err)
	}
	if !info.IsDir() {
		t.Fatalf("expected %q to be a directory", path)
	}
}

func assertFile(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("expected file %q to exist: %v", path, err)
	}
	if info.IsDir() {
		t.Fatalf("expected %q to be a file, got directory", path)
	}
}
