package render

import (
	"strings"
	"unicode/utf8"
)

// COLUMN_SEPARATOR joins the cells of a row
const COLUMN_SEPARATOR = " | "

// AlignColumns pads every cell with spaces up to the widest cell of its column
// and joins the rows with newlines.
// Width is measured in runes, rows shorter than the widest row get empty cells
func AlignColumns(rows [][]string, separator string) string {

	widths := []int{}
	for _, row := range rows {
		for i, cell := range row {
			if i == len(widths) {
				widths = append(widths, 0)
			}
			if width := utf8.RuneCountInString(cell); width > widths[i] {
				widths[i] = width
			}
		}
	}

	lines := make([]string, len(rows))
	for r, row := range rows {
		cells := make([]string, len(widths))
		for i, width := range widths {
			cell := ""
			if i < len(row) {
				cell = row[i]
			}
			cells[i] = cell + strings.Repeat(" ", width-utf8.RuneCountInString(cell))
		}
		lines[r] = strings.Join(cells, separator)
	}
	return strings.Join(lines, "\n")
}
