package tabular

import (
	"strings"

	"github.com/mattn/go-runewidth"
)

// Markdown renders t as a pipe table with left-aligned, display-width padded cells.
func Markdown(t *Table) string {
	widths := make([]int, len(t.Columns))
	for i, c := range t.Columns {
		widths[i] = max(3, runewidth.StringWidth(escapeCell(c)))
	}
	for r := range t.Rows {
		for i := range t.Columns {
			widths[i] = max(widths[i], runewidth.StringWidth(escapeCell(t.Cell(r, i))))
		}
	}

	var b strings.Builder
	writeRow(&b, t.Columns, widths)

	b.WriteString("|")
	for _, w := range widths {
		b.WriteString(":")
		b.WriteString(strings.Repeat("-", w+1))
		b.WriteString("|")
	}
	b.WriteString("\n")

	for r := range t.Rows {
		cells := make([]string, len(t.Columns))
		for i := range cells {
			cells[i] = t.Cell(r, i)
		}
		writeRow(&b, cells, widths)
	}

	return strings.TrimSuffix(b.String(), "\n")
}

func writeRow(b *strings.Builder, cells []string, widths []int) {
	b.WriteString("|")
	for i, c := range cells {
		b.WriteString(" ")
		b.WriteString(runewidth.FillRight(escapeCell(c), widths[i]))
		b.WriteString(" |")
	}
	b.WriteString("\n")
}

func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	return strings.ReplaceAll(s, "|", `\|`)
}
