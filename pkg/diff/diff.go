// Package diff computes line-level differences between two revisions of a
// file and renders them as unified diffs.
package diff

import (
	"bytes"
	"strings"
)

// ChangeType classifies what happened to a path between two snapshots.
type ChangeType int

const (
	Added    ChangeType = iota // path exists only in the after snapshot
	Removed                    // path exists only in the before snapshot
	Modified                   // path exists in both with different content or mode
)

func (c ChangeType) String() string {
	switch c {
	case Added:
		return "added"
	case Removed:
		return "removed"
	default:
		return "modified"
	}
}

// FileDiff is the change to one path. Before is empty for Added and After
// is empty for Removed.
type FileDiff struct {
	Path          string
	Type          ChangeType
	Before, After []byte
	OldMode       string
	NewMode       string
}

// Hunk is a contiguous run of the edit script with surrounding context.
// Starts are 1-based; a zero-length side points at the line before it.
type Hunk struct {
	OldStart, OldLines int
	NewStart, NewLines int
	Lines              []Line
}

// DefaultContext is the number of unchanged lines kept around each change.
const DefaultContext = 3

// Lines computes the edit script between a and b.
func Lines(a, b []byte) []Line {
	return myers(splitLines(a), splitLines(b))
}

// splitLines splits text into lines; a trailing newline does not produce an
// extra empty line.
func splitLines(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	s := strings.TrimSuffix(string(data), "\n")
	return strings.Split(s, "\n")
}

// IsBinary reports whether data looks like binary content: a NUL byte in
// the first 8000 bytes.
func IsBinary(data []byte) bool {
	if len(data) > 8000 {
		data = data[:8000]
	}
	return bytes.IndexByte(data, 0) >= 0
}

// Hunks groups an edit script into hunks, merging changes separated by at
// most 2*context unchanged lines.
func Hunks(script []Line, context int) []Hunk {
	if context < 0 {
		context = 0
	}
	oldPos := make([]int, len(script)+1)
	newPos := make([]int, len(script)+1)
	for i, l := range script {
		oldPos[i+1], newPos[i+1] = oldPos[i], newPos[i]
		if l.Op != Insert {
			oldPos[i+1]++
		}
		if l.Op != Delete {
			newPos[i+1]++
		}
	}

	var hunks []Hunk
	i := 0
	for i < len(script) {
		if script[i].Op == Equal {
			i++
			continue
		}
		last := i
		for j := i; j < len(script); j++ {
			if script[j].Op != Equal {
				last = j
			} else if j-last > 2*context {
				break
			}
		}
		start := max(0, i-context)
		stop := min(len(script), last+context+1)

		h := Hunk{
			OldStart: oldPos[start] + 1,
			NewStart: newPos[start] + 1,
			OldLines: oldPos[stop] - oldPos[start],
			NewLines: newPos[stop] - newPos[start],
			Lines:    script[start:stop],
		}
		if h.OldLines == 0 {
			h.OldStart--
		}
		if h.NewLines == 0 {
			h.NewStart--
		}
		hunks = append(hunks, h)
		i = stop
	}
	return hunks
}
