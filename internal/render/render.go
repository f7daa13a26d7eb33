// Package render formats operation results for CLI output: aligned
// tables for agent/task listings, and word-wrapped paragraphs for
// longer text (status messages, block reasons, review summaries).
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"
)

// DefaultWrapWidth matches common terminal width assumptions when the
// caller cannot query the real one.
const DefaultWrapWidth = 100

// Wrap wraps text to width columns, passing through go-wordwrap so long
// status messages and review summaries don't blow out a terminal line.
func Wrap(text string, width uint) string {
	if width == 0 {
		width = DefaultWrapWidth
	}
	return wordwrap.WrapString(text, width)
}

// Table renders rows under headers as a simple fixed-width table,
// column widths sized to the widest cell in each column.
func Table(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = len(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			if i < len(widths) && len(cell) > widths[i] {
				widths[i] = len(cell)
			}
		}
	}

	var b strings.Builder
	writeRow(&b, headers, widths)
	writeSeparator(&b, widths)
	for _, row := range rows {
		writeRow(&b, row, widths)
	}
	return b.String()
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	for i, w := range widths {
		cell := ""
		if i < len(cells) {
			cell = cells[i]
		}
		fmt.Fprintf(b, "%-*s  ", w, cell)
	}
	b.WriteString("\n")
}

func writeSeparator(b *strings.Builder, widths []int) {
	for _, w := range widths {
		b.WriteString(strings.Repeat("-", w))
		b.WriteString("  ")
	}
	b.WriteString("\n")
}

// Age formats a duration since t as a short human string ("3s", "5m",
// "2h", "4d"), for agent activity and claim age columns.
func Age(t time.Time) string {
	d := time.Since(t)
	switch {
	case d < time.Minute:
		return fmt.Sprintf("%ds", int(d.Seconds()))
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	default:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	}
}
