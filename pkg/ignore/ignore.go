// Package ignore decides which repository paths are excluded from staging.
// Patterns follow gitignore syntax and are read from a .scsignore file at
// the repository root.
package ignore

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"
	"github.com/go-git/go-git/v5/plumbing/format/gitignore"
)

// FileName is the ignore file looked up at the repository root.
const FileName = ".scsignore"

// MarkerDir is always ignored.
const MarkerDir = ".scs"

// Matcher reports whether a repository-relative, slash-separated path is
// ignored.
type Matcher interface {
	Matches(path string) bool
}

// Patterns is a Matcher built from gitignore-style pattern lines.
type Patterns struct {
	lines   []string
	matcher gitignore.Matcher
}

// New compiles the given pattern lines. Blank lines and lines starting with
// '#' are skipped. The marker directory is always excluded.
func New(lines ...string) *Patterns {
	ps := []gitignore.Pattern{gitignore.ParsePattern(MarkerDir, nil)}
	var kept []string
	for _, line := range lines {
		line = strings.TrimRight(line, " \t\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		kept = append(kept, line)
		ps = append(ps, gitignore.ParsePattern(line, nil))
	}
	return &Patterns{lines: kept, matcher: gitignore.NewMatcher(ps)}
}

// Load reads FileName from the root of fs. A missing file yields a matcher
// that only excludes the marker directory.
func Load(fs billy.Filesystem) (*Patterns, error) {
	data, err := util.ReadFile(fs, FileName)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, fmt.Errorf("load %s: %w", FileName, err)
	}

	var lines []string
	scanner := bufio.NewScanner(bytes.NewReader(data))
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("load %s: %w", FileName, err)
	}
	return New(lines...), nil
}

// Matches implements Matcher. A path is ignored when it, or any of its
// parent directories, matches a pattern.
func (p *Patterns) Matches(path string) bool {
	path = strings.Trim(path, "/")
	if path == "" || path == "." {
		return false
	}
	parts := strings.Split(path, "/")
	for i := 1; i < len(parts); i++ {
		if p.matcher.Match(parts[:i], true) {
			return true
		}
	}
	return p.matcher.Match(parts, false)
}

// Lines returns the effective pattern lines, excluding the built-in marker.
func (p *Patterns) Lines() []string {
	return append([]string(nil), p.lines...)
}

// None is a Matcher that ignores nothing but the marker directory.
var None Matcher = New()
