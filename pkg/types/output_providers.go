package types

import (
	"fmt"
	"strings"
)

// OutputProvider renders a Result to some destination.
type OutputProvider interface {
	Write(result Result) error
}

// Result is one rendered page: a table view for humans and the underlying
// records for machine formats.
type Result struct {
	Title string
	Table MarkdownTable
	Data  any
}

// MarkdownTable is a rectangular view of records.
type MarkdownTable struct {
	TableHeading string
	Headers      []string
	Rows         [][]string
}

// ToString converts the MarkdownTable to a markdown string
func (t MarkdownTable) ToString() string {
	var result strings.Builder

	if t.TableHeading != "" {
		result.WriteString("# " + t.TableHeading + "\n\n")
	}

	if len(t.Headers) == 0 {
		return result.String()
	}

	colWidths := make([]int, len(t.Headers))
	for i, header := range t.Headers {
		colWidths[i] = len(header)
	}
	for _, row := range t.Rows {
		for i, cell := range row {
			if i < len(colWidths) && len(escapeCell(cell)) > colWidths[i] {
				colWidths[i] = len(escapeCell(cell))
			}
		}
	}

	headerRow := "|"
	dividerRow := "|"
	for i, header := range t.Headers {
		headerRow += fmt.Sprintf(" %-*s |", colWidths[i], header)
		dividerRow += fmt.Sprintf(" %s |", strings.Repeat("-", colWidths[i]))
	}
	result.WriteString(headerRow + "\n")
	result.WriteString(dividerRow + "\n")

	for _, row := range t.Rows {
		rowText := "|"
		for i := range t.Headers {
			cell := ""
			if i < len(row) {
				cell = escapeCell(row[i])
			}
			rowText += fmt.Sprintf(" %-*s |", colWidths[i], cell)
		}
		result.WriteString(rowText + "\n")
	}

	return result.String()
}

// pipes and newlines would break the table layout
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}
