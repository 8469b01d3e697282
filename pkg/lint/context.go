package lint

import "strings"

// ContextLine is one numbered source line of a context window.
type ContextLine struct {
	Number int
	Text   string
}

// Context returns the source lines less than radius away from line,
// clipped to the source bounds and numbered from 1. Line 10 with radius 3
// yields lines 8 to 12.
func Context(source string, line, radius int) []ContextLine {
	if line <= 0 {
		return nil
	}
	lines := strings.Split(source, "\n")
	start := max(0, line-radius)
	end := min(len(lines), line-1+radius)

	out := make([]ContextLine, 0, max(0, end-start))
	for pos := start; pos < end; pos++ {
		out = append(out, ContextLine{Number: pos + 1, Text: lines[pos]})
	}
	return out
}
