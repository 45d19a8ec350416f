package stacky

import (
	"fmt"
	"strings"
)

// sourceLine returns the 1-based line of source without its terminator.
func sourceLine(source string, line int) (string, bool) {
	if source == "" || line <= 0 {
		return "", false
	}
	for n := 1; ; n++ {
		text, rest, more := strings.Cut(source, "\n")
		if n == line {
			return strings.TrimSuffix(text, "\r"), true
		}
		if !more {
			return "", false
		}
		source = rest
	}
}

// formatCodeFrame renders the source line at pos with a caret under the
// column. Columns past the end of the line clamp to just after it.
func formatCodeFrame(source string, pos Position) string {
	text, ok := sourceLine(source, pos.Line)
	if !ok {
		return ""
	}
	runes := []rune(text)
	column := min(max(pos.Column, 1), len(runes)+1)

	gutter := fmt.Sprint(pos.Line)
	var b strings.Builder
	fmt.Fprintf(&b, "  --> line %d, column %d\n", pos.Line, column)
	fmt.Fprintf(&b, " %s | %s\n", gutter, text)
	fmt.Fprintf(&b, " %s | ", strings.Repeat(" ", len(gutter)))
	for _, r := range runes[:column-1] {
		if r == '\t' {
			b.WriteByte('\t')
		} else {
			b.WriteByte(' ')
		}
	}
	b.WriteByte('^')
	return b.String()
}
