package chunker

import "strings"

// FormatTable renders a cell grid as text: cells joined by " | ", rows joined
// by newline, wrapped in [TABLE]/[/TABLE] marker lines so downstream
// consumers can tell tabular content from prose by the text alone. An empty
// grid yields the empty string and the caller omits the unit.
func FormatTable(cells [][]string) string {
	if len(cells) == 0 {
		return ""
	}
	rows := make([]string, len(cells))
	for i, row := range cells {
		rows[i] = strings.Join(row, " | ")
	}
	return "[TABLE]\n" + strings.Join(rows, "\n") + "\n[/TABLE]"
}
