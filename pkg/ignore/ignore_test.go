package ignore

import (
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
)

func TestMatches(t *testing.T) {
	p := New(
		"# build output",
		"*.log",
		"",
		"temp/",
		"/secret.txt",
		"!keep.log",
	)

	tests := []struct {
		path string
		want bool
	}{
		{"error.log", true},
		{"nested/dir/debug.log", true},
		{"keep.log", false},
		{"temp/data.txt", true},
		{"temp", false},
		{"src/temp/data.txt", true},
		{"secret.txt", true},
		{"sub/secret.txt", false},
		{"main.go", false},
		{".scs/HEAD", true},
		{".scs", true},
	}
	for _, tc := range tests {
		t.Run(tc.path, func(t *testing.T) {
			if got := p.Matches(tc.path); got != tc.want {
				t.Errorf("Matches(%q) = %v, want %v", tc.path, got, tc.want)
			}
		})
	}
}

func TestLinesSkipsComments(t *testing.T) {
	p := New("# comment", "  ", "*.tmp")
	lines := p.Lines()
	if len(lines) != 1 || lines[0] != "*.tmp" {
		t.Fatalf("Lines() = %v, want [*.tmp]", lines)
	}
}

func TestLoad(t *testing.T) {
	fs := memfs.New()
	if err := util.WriteFile(fs, FileName, []byte("*.o\nbuild/\n"), 0o644); err != nil {
		t.Fatalf("write %s: %v", FileName, err)
	}
	p, err := Load(fs)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !p.Matches("main.o") {
		t.Error("main.o should be ignored")
	}
	if !p.Matches("build/out/bin") {
		t.Error("build/out/bin should be ignored")
	}
	if p.Matches("main.c") {
		t.Error("main.c should not be ignored")
	}
}

func TestLoadMissingFile(t *testing.T) {
	p, err := Load(memfs.New())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if p.Matches("anything.txt") {
		t.Error("empty matcher ignored a regular file")
	}
	if !None.Matches(".scs/index") {
		t.Error("None must still ignore the marker directory")
	}
}
