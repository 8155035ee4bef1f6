package repo

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"path"
	"strings"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"golang.org/x/crypto/ssh"

	"github.com/odvcencio/scs/pkg/object"
	"github.com/odvcencio/scs/pkg/signing"
)

// newTestRepo initializes a repository on an in-memory filesystem.
func newTestRepo(t *testing.T) *Repo {
	t.Helper()
	r, err := InitFS(memfs.New())
	if err != nil {
		t.Fatalf("InitFS: %v", err)
	}
	t.Cleanup(func() { r.Close() })
	return r
}

// writeWork writes a working tree file, creating parent directories.
func writeWork(t *testing.T, r *Repo, name, content string) {
	t.Helper()
	if dir := path.Dir(name); dir != "." {
		if err := r.FS.MkdirAll(dir, 0o755); err != nil {
			t.Fatalf("mkdir %s: %v", dir, err)
		}
	}
	r.FS.Remove(name)
	if err := util.WriteFile(r.FS, name, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func readWork(t *testing.T, r *Repo, name string) string {
	t.Helper()
	data, err := util.ReadFile(r.FS, name)
	if err != nil {
		t.Fatalf("read %s: %v", name, err)
	}
	return string(data)
}

// commitFiles writes and stages files, then commits them.
func commitFiles(t *testing.T, r *Repo, message string, files map[string]string) object.Hash {
	t.Helper()
	var paths []string
	for name, content := range files {
		writeWork(t, r, name, content)
		paths = append(paths, name)
	}
	if _, err := r.Add(paths); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit(message, "Test Author <test@example.com>")
	if err != nil {
		t.Fatalf("Commit(%q): %v", message, err)
	}
	return h
}

func TestCommit_CreatesObject(t *testing.T) {
	r := newTestRepo(t)
	h := commitFiles(t, r, "initial commit", map[string]string{"main.go": "package main\n"})

	c, err := r.Store.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit(%s): %v", h, err)
	}
	if c.Message != "initial commit" {
		t.Errorf("Message = %q, want %q", c.Message, "initial commit")
	}
	if c.Author != "Test Author <test@example.com>" {
		t.Errorf("Author = %q", c.Author)
	}
	if c.Timestamp == 0 {
		t.Error("Timestamp is zero")
	}
	if len(c.Parents) != 0 {
		t.Errorf("first commit should have no parents, got %d", len(c.Parents))
	}

	entries, err := r.ReadTreeEntries(c.TreeHash)
	if err != nil {
		t.Fatalf("ReadTreeEntries: %v", err)
	}
	if len(entries) != 1 || entries[0].Path != "main.go" {
		t.Fatalf("tree entries = %+v", entries)
	}
}

func TestCommit_UpdatesBranchNotHEADFile(t *testing.T) {
	r := newTestRepo(t)
	h := commitFiles(t, r, "initial", map[string]string{"a.txt": "a"})

	head, err := r.Head()
	if err != nil {
		t.Fatalf("Head: %v", err)
	}
	if head != "refs/heads/main" {
		t.Errorf("HEAD = %q, want symbolic refs/heads/main", head)
	}
	got, err := r.ResolveRef("main")
	if err != nil {
		t.Fatalf("ResolveRef(main): %v", err)
	}
	if got != h {
		t.Errorf("main = %s, want %s", got, h)
	}
}

func TestCommit_SecondHasParent(t *testing.T) {
	r := newTestRepo(t)
	first := commitFiles(t, r, "first", map[string]string{"a.txt": "one"})
	second := commitFiles(t, r, "second", map[string]string{"a.txt": "two"})

	c, err := r.ReadCommit(second)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if len(c.Parents) != 1 || c.Parents[0] != first {
		t.Fatalf("Parents = %v, want [%s]", c.Parents, first)
	}
}

func TestCommit_EmptyIndex(t *testing.T) {
	r := newTestRepo(t)
	_, err := r.Commit("nothing", "a <a@b>")
	if !errors.Is(err, ErrEmptyIndex) {
		t.Fatalf("Commit on empty index: got %v, want ErrEmptyIndex", err)
	}
	if !errors.Is(err, ErrInvalidState) {
		t.Fatalf("ErrEmptyIndex should be an ErrInvalidState, got %v", err)
	}
	if h, _ := r.ResolveHead(); h != "" {
		t.Errorf("HEAD moved to %s", h)
	}
}

func TestCommit_EmptyMessage(t *testing.T) {
	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "a")
	if _, err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := r.Commit("  \n", "a <a@b>"); !errors.Is(err, ErrInvalidState) {
		t.Fatalf("got %v, want ErrInvalidState", err)
	}
}

func TestCommit_DefaultAuthorFromConfig(t *testing.T) {
	r := newTestRepo(t)
	if err := r.SetConfigValue("user.name", "Config User"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	if err := r.SetConfigValue("user.email", "config@example.com"); err != nil {
		t.Fatalf("SetConfigValue: %v", err)
	}
	writeWork(t, r, "a.txt", "a")
	if _, err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.Commit("msg", "")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	c, _ := r.ReadCommit(h)
	if c.Author != "Config User <config@example.com>" {
		t.Errorf("Author = %q", c.Author)
	}
}

func TestCommit_Signed(t *testing.T) {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("GenerateKey: %v", err)
	}
	sshSigner, err := ssh.NewSignerFromKey(priv)
	if err != nil {
		t.Fatalf("NewSignerFromKey: %v", err)
	}

	r := newTestRepo(t)
	writeWork(t, r, "a.txt", "a")
	if _, err := r.Add([]string{"a.txt"}); err != nil {
		t.Fatalf("Add: %v", err)
	}
	h, err := r.CommitWithSigner("signed", "a <a@b>", CommitSigner(signing.FromSigner(sshSigner)))
	if err != nil {
		t.Fatalf("CommitWithSigner: %v", err)
	}
	c, err := r.ReadCommit(h)
	if err != nil {
		t.Fatalf("ReadCommit: %v", err)
	}
	if !strings.HasPrefix(c.Signature, signing.Prefix+":") {
		t.Fatalf("Signature = %q", c.Signature)
	}
	pub, err := signing.Verify(object.CommitSigningPayload(c), c.Signature)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if !signing.SameKey(pub, sshSigner.PublicKey()) {
		t.Error("signature verified with a different key")
	}
}

func TestWriteCommit_Validation(t *testing.T) {
	r := newTestRepo(t)
	base := commitFiles(t, r, "base", map[string]string{"a.txt": "a"})
	tree, _ := r.TreeOf(base)

	tests := []struct {
		name    string
		tree    object.Hash
		parents []object.Hash
		author  string
	}{
		{"missing tree", object.HashObject(object.TypeTree, []byte("nope")), nil, "a"},
		{"missing parent", tree, []object.Hash{object.HashObject(object.TypeCommit, []byte("nope"))}, "a"},
		{"too many parents", tree, []object.Hash{base, base, base}, "a"},
		{"empty author", tree, nil, " "},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := r.WriteCommit(tc.tree, tc.parents, tc.author, "m", r.now()); err == nil {
				t.Fatal("expected error")
			}
		})
	}
}

func TestLog_ReverseChronological(t *testing.T) {
	r := newTestRepo(t)
	var want []object.Hash
	for _, content := range []string{"1", "2", "3"} {
		h := commitFiles(t, r, "commit "+content, map[string]string{"f.txt": content})
		want = append([]object.Hash{h}, want...)
	}

	head, _ := r.ResolveHead()
	entries, err := r.Log(head, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != len(want) {
		t.Fatalf("Log returned %d entries, want %d", len(entries), len(want))
	}
	for i := range want {
		if entries[i].Hash != want[i] {
			t.Errorf("entry %d = %s, want %s", i, entries[i].Hash, want[i])
		}
	}

	limited, err := r.Log(head, 2)
	if err != nil {
		t.Fatalf("Log limit: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("Log(limit=2) returned %d entries", len(limited))
	}
}

func TestLog_UnbornBranch(t *testing.T) {
	r := newTestRepo(t)
	head, err := r.ResolveHead()
	if err != nil {
		t.Fatalf("ResolveHead: %v", err)
	}
	if head != "" {
		t.Fatalf("fresh repo HEAD = %q, want unborn", head)
	}
	entries, err := r.Log(head, 0)
	if err != nil {
		t.Fatalf("Log: %v", err)
	}
	if len(entries) != 0 {
		t.Fatalf("Log on unborn branch returned %d entries", len(entries))
	}
}
