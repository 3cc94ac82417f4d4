package markdown

import "strings"

// fenceTracker follows fenced code blocks line by line so the line-level
// passes (blank line cleanup, list indentation, fence validation) leave
// code content alone.
type fenceTracker struct {
	char  byte
	width int
	// line is the 1-based line of the open fence, column its marker.
	line, column int
}

func (f *fenceTracker) open() bool { return f.width > 0 }

// feed consumes one line (already stripped of container prefixes) and
// reports whether it belongs to a fence, delimiters included.
func (f *fenceTracker) feed(line string, lineNo, column int) bool {
	trimmed := strings.TrimLeft(line, " \t")
	if f.open() {
		if c, n := fenceRun(trimmed); c == f.char && n >= f.width && strings.TrimSpace(trimmed[n:]) == "" {
			f.width = 0
		}
		return true
	}
	c, n := fenceRun(trimmed)
	if n < 3 {
		return false
	}
	if c == '`' && strings.ContainsRune(trimmed[n:], '`') {
		return false
	}
	f.char, f.width = c, n
	f.line, f.column = lineNo, column+len(line)-len(trimmed)
	return true
}

func fenceRun(s string) (byte, int) {
	if s == "" || (s[0] != '`' && s[0] != '~') {
		return 0, 0
	}
	n := 0
	for n < len(s) && s[n] == s[0] {
		n++
	}
	return s[0], n
}

// longestRun returns the longest run of c in s.
func longestRun(s string, c byte) int {
	best, cur := 0, 0
	for i := 0; i < len(s); i++ {
		if s[i] == c {
			cur++
			best = max(best, cur)
		} else {
			cur = 0
		}
	}
	return best
}

// collapseBlankLines squeezes runs of blank lines outside fenced code into
// a single blank line and trims the result.
func collapseBlankLines(s string) string {
	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	var fence fenceTracker
	blank := false
	for i, line := range lines {
		if fence.feed(line, i+1, 1) {
			out = append(out, line)
			blank = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			if !blank {
				out = append(out, "")
			}
			blank = true
			continue
		}
		blank = false
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
