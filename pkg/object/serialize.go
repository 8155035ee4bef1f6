package object

import (
	"bytes"
	"encoding/hex"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ---------------------------------------------------------------------------
// Blob
// ---------------------------------------------------------------------------

// MarshalBlob serializes a Blob to raw bytes (identity).
func MarshalBlob(b *Blob) []byte {
	out := make([]byte, len(b.Data))
	copy(out, b.Data)
	return out
}

// UnmarshalBlob deserializes raw bytes into a Blob.
func UnmarshalBlob(data []byte) (*Blob, error) {
	out := make([]byte, len(data))
	copy(out, data)
	return &Blob{Data: out}, nil
}

// ---------------------------------------------------------------------------
// TreeObj
// ---------------------------------------------------------------------------

// MarshalTree serializes a flat TreeObj as the concatenation of
//
//	mode SP path NUL <20-byte raw blob hash>
//
// for every entry, sorted by path (byte-wise). Identical entry sets always
// produce identical bytes. Duplicate paths are rejected.
func MarshalTree(tr *TreeObj) ([]byte, error) {
	sorted := make([]TreeEntry, len(tr.Entries))
	copy(sorted, tr.Entries)
	sort.Slice(sorted, func(i, j int) bool {
		return sorted[i].Path < sorted[j].Path
	})

	var buf bytes.Buffer
	for i, e := range sorted {
		if i > 0 && sorted[i-1].Path == e.Path {
			return nil, fmt.Errorf("marshal tree: duplicate path %q", e.Path)
		}
		if e.Path == "" || strings.IndexByte(e.Path, 0) >= 0 {
			return nil, fmt.Errorf("marshal tree: invalid path %q", e.Path)
		}
		raw, err := RawHash(e.BlobHash)
		if err != nil {
			return nil, fmt.Errorf("marshal tree %q: %w", e.Path, err)
		}
		buf.WriteString(modeOrDefault(e.Mode))
		buf.WriteByte(' ')
		buf.WriteString(e.Path)
		buf.WriteByte(0)
		buf.Write(raw)
	}
	return buf.Bytes(), nil
}

// UnmarshalTree parses a TreeObj from its serialized form. Entries must be
// in strictly increasing path order, as MarshalTree writes them.
func UnmarshalTree(data []byte) (*TreeObj, error) {
	tr := &TreeObj{}
	for len(data) > 0 {
		sp := bytes.IndexByte(data, ' ')
		if sp < 0 {
			return nil, fmt.Errorf("unmarshal tree: entry %d: missing mode separator", len(tr.Entries))
		}
		mode := string(data[:sp])
		if err := checkMode(mode); err != nil {
			return nil, fmt.Errorf("unmarshal tree: entry %d: %w", len(tr.Entries), err)
		}
		data = data[sp+1:]

		nul := bytes.IndexByte(data, 0)
		if nul < 0 {
			return nil, fmt.Errorf("unmarshal tree: entry %d: missing path terminator", len(tr.Entries))
		}
		path := string(data[:nul])
		data = data[nul+1:]
		if path == "" {
			return nil, fmt.Errorf("unmarshal tree: entry %d: empty path", len(tr.Entries))
		}
		if n := len(tr.Entries); n > 0 && tr.Entries[n-1].Path >= path {
			return nil, fmt.Errorf("unmarshal tree: entry %q: out of order or duplicate after %q", path, tr.Entries[n-1].Path)
		}

		if len(data) < HashSize {
			return nil, fmt.Errorf("unmarshal tree: entry %q: truncated hash", path)
		}
		tr.Entries = append(tr.Entries, TreeEntry{
			Mode:     mode,
			Path:     path,
			BlobHash: Hash(hex.EncodeToString(data[:HashSize])),
		})
		data = data[HashSize:]
	}
	return tr, nil
}

func modeOrDefault(mode string) string {
	if strings.TrimSpace(mode) == "" {
		return TreeModeFile
	}
	return mode
}

func checkMode(mode string) error {
	switch mode {
	case TreeModeFile, TreeModeExecutable:
		return nil
	default:
		return fmt.Errorf("unknown mode %q", mode)
	}
}

// ---------------------------------------------------------------------------
// CommitObj
// ---------------------------------------------------------------------------

// MarshalCommit serializes a CommitObj:
//
//	tree H
//	parent H               (zero or more)
//	author A T Z
//	signature S            (optional)
//
//	message
func MarshalCommit(c *CommitObj) []byte {
	var buf bytes.Buffer
	fmt.Fprintf(&buf, "tree %s\n", string(c.TreeHash))
	for _, p := range c.Parents {
		fmt.Fprintf(&buf, "parent %s\n", string(p))
	}
	fmt.Fprintf(&buf, "author %s %d %s\n", c.Author, c.Timestamp, timezoneOrUTC(c.Timezone))
	if strings.TrimSpace(c.Signature) != "" {
		fmt.Fprintf(&buf, "signature %s\n", c.Signature)
	}
	buf.WriteByte('\n')
	buf.WriteString(c.Message)
	return buf.Bytes()
}

// UnmarshalCommit parses a CommitObj from its serialized form.
func UnmarshalCommit(data []byte) (*CommitObj, error) {
	idx := bytes.Index(data, []byte("\n\n"))
	if idx < 0 {
		return nil, fmt.Errorf("unmarshal commit: missing header/message separator")
	}
	header := string(data[:idx])
	message := string(data[idx+2:])

	c := &CommitObj{Message: message}
	sawAuthor := false
	for _, line := range strings.Split(header, "\n") {
		key, val, ok := strings.Cut(line, " ")
		if !ok {
			return nil, fmt.Errorf("unmarshal commit: malformed header line %q", line)
		}
		switch key {
		case "tree":
			c.TreeHash = Hash(val)
		case "parent":
			c.Parents = append(c.Parents, Hash(val))
		case "author":
			who, ts, tz, err := parseAuthorLine(val)
			if err != nil {
				return nil, fmt.Errorf("unmarshal commit: %w", err)
			}
			c.Author, c.Timestamp, c.Timezone = who, ts, tz
			sawAuthor = true
		case "signature":
			c.Signature = val
		default:
			return nil, fmt.Errorf("unmarshal commit: unknown header key %q", key)
		}
	}
	if !ValidHash(c.TreeHash) {
		return nil, fmt.Errorf("unmarshal commit: invalid tree %q", c.TreeHash)
	}
	if !sawAuthor {
		return nil, fmt.Errorf("unmarshal commit: missing author")
	}
	return c, nil
}

// parseAuthorLine splits "who unix tz", where who may itself contain spaces.
func parseAuthorLine(val string) (string, int64, string, error) {
	tzIdx := strings.LastIndexByte(val, ' ')
	if tzIdx < 0 {
		return "", 0, "", fmt.Errorf("malformed author %q", val)
	}
	tz := val[tzIdx+1:]
	rest := val[:tzIdx]

	tsIdx := strings.LastIndexByte(rest, ' ')
	if tsIdx < 0 {
		return "", 0, "", fmt.Errorf("malformed author %q", val)
	}
	ts, err := strconv.ParseInt(rest[tsIdx+1:], 10, 64)
	if err != nil {
		return "", 0, "", fmt.Errorf("bad timestamp %q: %w", rest[tsIdx+1:], err)
	}
	return rest[:tsIdx], ts, tz, nil
}

func timezoneOrUTC(tz string) string {
	if strings.TrimSpace(tz) == "" {
		return "+0000"
	}
	return tz
}

// CommitSigningPayload returns the canonical bytes that are signed for a
// commit. The payload intentionally excludes the signature field itself.
func CommitSigningPayload(c *CommitObj) []byte {
	if c == nil {
		return nil
	}
	copyCommit := *c
	copyCommit.Signature = ""
	return MarshalCommit(&copyCommit)
}
