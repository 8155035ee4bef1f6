package diff

// Op classifies a line in an edit script.
type Op int

const (
	Equal  Op = iota // present on both sides
	Insert           // only in the new text
	Delete           // only in the old text
)

// Line is one entry of an edit script.
type Line struct {
	Op   Op
	Text string
}

// myers returns the shortest edit script turning a into b. It runs in
// O((N+M)*D) for D edits.
func myers(a, b []string) []Line {
	n, m := len(a), len(b)
	switch {
	case n == 0 && m == 0:
		return nil
	case n == 0:
		return uniform(Insert, b)
	case m == 0:
		return uniform(Delete, a)
	}

	offset := n + m
	v := make([]int, 2*offset+1)
	var trace [][]int
	for d := 0; d <= offset; d++ {
		for k := -d; k <= d; k += 2 {
			i := k + offset
			var x int
			if k == -d || (k != d && v[i-1] < v[i+1]) {
				x = v[i+1]
			} else {
				x = v[i-1] + 1
			}
			y := x - k
			for x < n && y < m && a[x] == b[y] {
				x++
				y++
			}
			v[i] = x
			if x >= n && y >= m {
				trace = append(trace, append([]int(nil), v...))
				return backtrack(trace, a, b, d)
			}
		}
		trace = append(trace, append([]int(nil), v...))
	}
	return nil
}

func uniform(op Op, lines []string) []Line {
	out := make([]Line, len(lines))
	for i, l := range lines {
		out[i] = Line{Op: op, Text: l}
	}
	return out
}

// backtrack walks trace from the final edit distance back to zero, emitting
// the script in reverse and flipping it at the end.
func backtrack(trace [][]int, a, b []string, final int) []Line {
	offset := len(a) + len(b)
	x, y := len(a), len(b)

	var out []Line
	for d := final; d > 0; d-- {
		prev := trace[d-1]
		k := x - y
		var prevK int
		if k == -d || (k != d && prev[k-1+offset] < prev[k+1+offset]) {
			prevK = k + 1
		} else {
			prevK = k - 1
		}
		prevX := prev[prevK+offset]
		prevY := prevX - prevK

		for x > prevX && y > prevY {
			x--
			y--
			out = append(out, Line{Op: Equal, Text: a[x]})
		}
		if prevK == k-1 {
			x--
			out = append(out, Line{Op: Delete, Text: a[x]})
		} else {
			y--
			out = append(out, Line{Op: Insert, Text: b[y]})
		}
	}
	for x > 0 && y > 0 {
		x--
		y--
		out = append(out, Line{Op: Equal, Text: a[x]})
	}

	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
