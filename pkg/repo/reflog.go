package repo

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/odvcencio/scs/pkg/object"
)

var zeroHash = strings.Repeat("0", 2*object.HashSize)

// ReflogEntry is one line of logs/<ref>: "<old> <new> <unix> <reason>".
type ReflogEntry struct {
	Ref     string
	OldHash object.Hash
	NewHash object.Hash
	When    time.Time
	Reason  string
}

// parseReflogLine skips malformed lines rather than failing the whole log.
func parseReflogLine(ref, line string) (ReflogEntry, bool) {
	oldHash, rest, ok := strings.Cut(strings.TrimSpace(line), " ")
	if !ok {
		return ReflogEntry{}, false
	}
	newHash, rest, ok := strings.Cut(rest, " ")
	if !ok {
		return ReflogEntry{}, false
	}
	unix, reason, ok := strings.Cut(rest, " ")
	if !ok {
		return ReflogEntry{}, false
	}
	ts, err := strconv.ParseInt(unix, 10, 64)
	if err != nil {
		return ReflogEntry{}, false
	}
	return ReflogEntry{
		Ref:     ref,
		OldHash: object.Hash(oldHash),
		NewHash: object.Hash(newHash),
		When:    time.Unix(ts, 0),
		Reason:  reason,
	}, true
}

func (r *Repo) appendReflog(ref string, oldHash, newHash object.Hash, reason string) error {
	ref = strings.TrimSpace(ref)
	if ref == "" {
		return nil
	}
	if strings.TrimSpace(reason) == "" {
		reason = "update"
	}

	logPath := path.Join("logs", ref)
	if err := r.Dir.MkdirAll(path.Dir(logPath), 0o755); err != nil {
		return fmt.Errorf("reflog mkdir: %w", err)
	}

	old := string(oldHash)
	if strings.TrimSpace(old) == "" {
		old = zeroHash
	}
	newVal := string(newHash)
	if strings.TrimSpace(newVal) == "" {
		newVal = zeroHash
	}
	reason = strings.ReplaceAll(reason, "\n", " ")
	line := fmt.Sprintf("%s %s %d %s\n", old, newVal, r.now().Unix(), reason)

	f, err := r.Dir.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("reflog open: %w", err)
	}
	defer f.Close()

	if _, err := f.Write([]byte(line)); err != nil {
		return fmt.Errorf("reflog write: %w", err)
	}
	return nil
}

// ReadReflog returns up to limit reflog entries for ref, newest first. A
// limit <= 0 returns every entry.
func (r *Repo) ReadReflog(ref string, limit int) ([]ReflogEntry, error) {
	refName := r.resolveReflogRefName(ref)

	f, err := r.Dir.Open(path.Join("logs", refName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read reflog: %w", err)
	}
	defer f.Close()

	var entries []ReflogEntry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if e, ok := parseReflogLine(refName, scanner.Text()); ok {
			entries = append(entries, e)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read reflog %s: %w", refName, err)
	}

	slices.Reverse(entries)
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func (r *Repo) resolveReflogRefName(ref string) string {
	ref = strings.TrimSpace(ref)
	if ref == "" || ref == headFile {
		head, err := r.Head()
		if err == nil && strings.HasPrefix(head, "refs/") {
			return head
		}
		return headFile
	}
	if strings.HasPrefix(ref, "refs/") {
		return ref
	}
	return headsPrefix + ref
}
