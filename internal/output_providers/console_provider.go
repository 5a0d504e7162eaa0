package outputproviders

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/praetorian-inc/msinfo/pkg/types"
)

const (
	purple = lipgloss.Color("99")
	teal   = lipgloss.Color("#06ffa5")
	white  = lipgloss.Color("15")
	gray   = lipgloss.Color("245")

	colGap = 2
)

// ConsoleProvider renders the table view of a result as aligned,
// color-striped columns.
type ConsoleProvider struct {
	out         io.Writer
	maxColWidth int

	title  lipgloss.Style
	header lipgloss.Style
	even   lipgloss.Style
	odd    lipgloss.Style
	dim    lipgloss.Style
}

// NewConsoleProvider styles output for w; color is dropped automatically
// when w is not a terminal.
func NewConsoleProvider(w io.Writer, maxColWidth int) *ConsoleProvider {
	r := lipgloss.NewRenderer(w)
	return &ConsoleProvider{
		out:         w,
		maxColWidth: maxColWidth,
		title:       r.NewStyle().Bold(true).Foreground(purple),
		header:      r.NewStyle().Bold(true).Foreground(purple),
		even:        r.NewStyle().Foreground(teal),
		odd:         r.NewStyle().Foreground(white),
		dim:         r.NewStyle().Foreground(gray),
	}
}

func (cp *ConsoleProvider) Write(result types.Result) error {
	table := result.Table

	var b strings.Builder
	title := result.Title
	if title == "" {
		title = table.TableHeading
	}
	if title != "" {
		fmt.Fprintf(&b, "\n  %s:\n", cp.title.Render(title))
	}

	if len(table.Rows) == 0 {
		fmt.Fprintf(&b, "  %s\n", cp.dim.Render("No results."))
		_, err := io.WriteString(cp.out, b.String())
		return err
	}

	rows := make([][]string, len(table.Rows))
	for r, row := range table.Rows {
		flat := make([]string, len(table.Headers))
		for c := range table.Headers {
			if c < len(row) {
				flat[c] = strings.Join(strings.Fields(row[c]), " ")
			}
		}
		rows[r] = flat
	}

	widths := make([]int, len(table.Headers))
	for i, h := range table.Headers {
		widths[i] = len([]rune(h))
	}
	for _, row := range rows {
		for i, cell := range row {
			if n := len([]rune(cell)); n > widths[i] {
				widths[i] = n
			}
		}
	}
	if cp.maxColWidth > 0 {
		for i := range widths {
			widths[i] = min(widths[i], cp.maxColWidth)
		}
	}

	last := len(table.Headers) - 1
	b.WriteString("  ")
	for i, h := range table.Headers {
		h = strings.ToUpper(h)
		if i < last {
			h = pad(h, widths[i]+colGap)
		}
		b.WriteString(cp.header.Render(h))
	}
	b.WriteString("\n")

	for r, row := range rows {
		style := cp.even
		if r%2 != 0 {
			style = cp.odd
		}
		b.WriteString("  ")
		for i, cell := range row {
			cell = truncate(cell, widths[i])
			if i < last {
				cell = pad(cell, widths[i]+colGap)
			}
			b.WriteString(style.Render(cell))
		}
		b.WriteString("\n")
	}

	_, err := io.WriteString(cp.out, b.String())
	return err
}

func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width || width < 1 {
		return s
	}
	return string(runes[:width-1]) + "…"
}

func pad(s string, width int) string {
	if n := len([]rune(s)); n < width {
		return s + strings.Repeat(" ", width-n)
	}
	return s
}
