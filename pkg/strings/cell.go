// Package strings holds small text helpers for terminal output.
package strings

import (
	"fmt"
	"strings"
)

// DefaultCellWidth is the width free-text table cells are cut to.
const DefaultCellWidth = 60

const minCellWidth = 4

// Cell flattens s onto a single line and cuts it to width runes, ending with
// "..." when something was dropped. Widths below 4 are raised to 4.
func Cell(s string, width int) string {
	if width < minCellWidth {
		width = minCellWidth
	}

	s = strings.Join(strings.Fields(s), " ")

	runes := []rune(s)
	if len(runes) > width {
		return string(runes[:width-3]) + "..."
	}
	return s
}

// List joins values with ", ". With limit > 0 at most limit values are shown
// and the remainder is summarised as "+N more". An empty list renders as "-".
func List(values []string, limit int) string {
	if len(values) == 0 {
		return "-"
	}
	if limit <= 0 || len(values) <= limit {
		return strings.Join(values, ", ")
	}
	return fmt.Sprintf("%s +%d more", strings.Join(values[:limit], ", "), len(values)-limit)
}
