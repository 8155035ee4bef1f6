package diff

import (
	"fmt"
	"strings"
)

// Format renders d as a unified diff with DefaultContext lines of context.
// Identical content with an unchanged mode renders as "".
func Format(d *FileDiff) string {
	var b strings.Builder

	oldName, newName := "a/"+d.Path, "b/"+d.Path
	switch d.Type {
	case Added:
		oldName = "/dev/null"
		fmt.Fprintf(&b, "new file mode %s\n", d.NewMode)
	case Removed:
		newName = "/dev/null"
		fmt.Fprintf(&b, "deleted file mode %s\n", d.OldMode)
	default:
		if d.OldMode != d.NewMode {
			fmt.Fprintf(&b, "old mode %s\nnew mode %s\n", d.OldMode, d.NewMode)
		}
	}

	if IsBinary(d.Before) || IsBinary(d.After) {
		fmt.Fprintf(&b, "Binary files %s and %s differ\n", oldName, newName)
		return header(d) + b.String()
	}

	hunks := Hunks(Lines(d.Before, d.After), DefaultContext)
	if len(hunks) == 0 && b.Len() == 0 {
		return ""
	}
	if len(hunks) > 0 {
		fmt.Fprintf(&b, "--- %s\n+++ %s\n", oldName, newName)
	}
	for _, h := range hunks {
		fmt.Fprintf(&b, "@@ -%s +%s @@\n", span(h.OldStart, h.OldLines), span(h.NewStart, h.NewLines))
		for _, l := range h.Lines {
			switch l.Op {
			case Delete:
				b.WriteByte('-')
			case Insert:
				b.WriteByte('+')
			default:
				b.WriteByte(' ')
			}
			b.WriteString(l.Text)
			b.WriteByte('\n')
		}
	}
	return header(d) + b.String()
}

func header(d *FileDiff) string {
	return fmt.Sprintf("diff --scs a/%s b/%s\n", d.Path, d.Path)
}

func span(start, n int) string {
	if n == 1 {
		return fmt.Sprint(start)
	}
	return fmt.Sprintf("%d,%d", start, n)
}
