package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/nvr-ai/model-compare/benchmark"
)

// summaryWidths are the minimum console column widths, in SummaryHeader order.
var summaryWidths = []int{10, 25, 20, 25}

// RenderSummary writes the summaries as a fixed-width table.
//
// Columns are left aligned and never narrower than summaryWidths; a column
// widens when a value would not fit. The header is bold on capable terminals.
//
// Arguments:
//   - w: The destination, usually os.Stdout.
//   - summaries: The summaries in registration order.
//
// Returns:
//   - error: The write error, if any.
func RenderSummary(w io.Writer, summaries []benchmark.ModelSummary) error {
	rows := make([][]string, 0, len(summaries))
	for _, s := range summaries {
		rows = append(rows, summaryRow(s))
	}

	widths := append([]int(nil), summaryWidths...)
	for _, row := range append([][]string{SummaryHeader}, rows...) {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	renderer := lipgloss.NewRenderer(w)
	cell := renderer.NewStyle()
	header := cell.Bold(true)

	line := func(style lipgloss.Style, row []string) string {
		cells := make([]string, len(row))
		for i, text := range row {
			cells[i] = style.Width(widths[i]).Render(text)
		}
		return strings.Join(cells, " ")
	}

	var b strings.Builder
	b.WriteString(line(header, SummaryHeader))
	b.WriteString("\n")
	for _, row := range rows {
		b.WriteString(line(cell, row))
		b.WriteString("\n")
	}

	_, err := fmt.Fprint(w, b.String())
	return err
}
