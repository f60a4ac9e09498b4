package ui

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Table creates a formatted table for output. Widths are measured in
// terminal cells so styled and wide text line up.
type Table struct {
	headers  []string
	rows     [][]string
	maxWidth int
}

func NewTable(headers ...string) *Table {
	return &Table{headers: headers, maxWidth: 120}
}

// SetMaxWidth sets the maximum table width
func (t *Table) SetMaxWidth(width int) {
	t.maxWidth = width
}

// AddRow adds a row to the table. Missing cells render empty.
func (t *Table) AddRow(values ...string) {
	row := make([]string, len(t.headers))
	copy(row, values)
	t.rows = append(t.rows, row)
}

func (t *Table) Len() int { return len(t.rows) }

func (t *Table) widths() []int {
	widths := make([]int, len(t.headers))
	total := 0
	for i, h := range t.headers {
		widths[i] = lipgloss.Width(h)
		for _, row := range t.rows {
			if w := lipgloss.Width(row[i]); w > widths[i] {
				widths[i] = w
			}
		}
		widths[i] += 2
		total += widths[i] + 1
	}

	// Shrink the widest columns until the table fits.
	for excess := total - t.maxWidth; excess > 0; excess-- {
		maxIdx := 0
		for i := 1; i < len(widths); i++ {
			if widths[i] > widths[maxIdx] {
				maxIdx = i
			}
		}
		if widths[maxIdx] <= 10 {
			break
		}
		widths[maxIdx]--
	}
	return widths
}

// Render writes the table with box-drawing borders.
func (t *Table) Render(w io.Writer) {
	if len(t.headers) == 0 {
		return
	}
	widths := t.widths()

	line := func(left, mid, right string) {
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = strings.Repeat("─", width)
		}
		fmt.Fprintln(w, left+strings.Join(parts, mid)+right)
	}
	cells := func(values []string, style func(string) string) {
		var b strings.Builder
		b.WriteString("│")
		for i, width := range widths {
			b.WriteString(" ")
			b.WriteString(pad(style(truncate(values[i], width-2)), width-2))
			b.WriteString(" │")
		}
		fmt.Fprintln(w, b.String())
	}

	line("┌", "┬", "┐")
	cells(t.headers, func(s string) string { return headerStyle.Render(s) })
	line("├", "┼", "┤")
	for _, row := range t.rows {
		cells(row, func(s string) string { return s })
	}
	line("└", "┴", "┘")
}

// CompactTable writes a table without borders.
func CompactTable(w io.Writer, headers []string, rows [][]string) {
	t := NewTable(headers...)
	for _, r := range rows {
		t.AddRow(r...)
	}
	widths := t.widths()

	row := func(values []string) {
		parts := make([]string, len(widths))
		for i, width := range widths {
			parts[i] = pad(truncate(values[i], width), width)
		}
		fmt.Fprintln(w, strings.TrimRight(strings.Join(parts, "  "), " "))
	}

	row(t.headers)
	seps := make([]string, len(widths))
	for i, width := range widths {
		seps[i] = strings.Repeat("─", width)
	}
	fmt.Fprintln(w, strings.Join(seps, "  "))
	for _, r := range t.rows {
		row(r)
	}
}

func pad(s string, width int) string {
	if gap := width - lipgloss.Width(s); gap > 0 {
		return s + strings.Repeat(" ", gap)
	}
	return s
}

// truncate shortens plain text to width cells with an ellipsis. Styled
// text is returned untouched.
func truncate(s string, width int) string {
	if lipgloss.Width(s) <= width || strings.Contains(s, "\x1b") {
		return s
	}
	runes := []rune(s)
	if width <= 3 {
		return string(runes[:min(max(width, 0), len(runes))])
	}
	for lipgloss.Width(string(runes)) > width-3 {
		runes = runes[:len(runes)-1]
	}
	return string(runes) + "..."
}
