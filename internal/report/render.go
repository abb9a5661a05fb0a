package report

import (
	"fmt"
	"math"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"tagbench/internal/metrics"
)

const (
	defaultBarWidth = 24
	barFull         = "█"
	barEmpty        = "░"
)

// Options controls text rendering.
type Options struct {
	// BarWidth is the number of cells used for a full-scale bar.
	BarWidth int
	// ASCII swaps the block glyphs and rounded borders for plain characters.
	ASCII bool
}

func (o Options) width() int {
	if o.BarWidth <= 0 {
		return defaultBarWidth
	}
	return o.BarWidth
}

func (o Options) glyphs() (string, string) {
	if o.ASCII {
		return "#", "."
	}
	return barFull, barEmpty
}

func (o Options) style() table.Style {
	if o.ASCII {
		return table.StyleDefault
	}
	return table.StyleRounded
}

// bar draws value/scale as a fixed-width bar.
func bar(value, scale float64, opts Options) string {
	width := opts.width()
	full, empty := opts.glyphs()
	filled := 0
	if scale > 0 && value > 0 {
		filled = int(math.Round(value / scale * float64(width)))
	}
	if filled > width {
		filled = width
	}
	return strings.Repeat(full, filled) + strings.Repeat(empty, width-filled)
}

// RenderComparison draws one row per configuration with a bar per metric,
// each annotated with its value. Bars are scaled to 1.0.
func RenderComparison(rows []Row, opts Options) string {
	if len(rows) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(opts.style())
	tw.SetTitle("Metric comparison")
	tw.AppendHeader(table.Row{"Run", "Precision", "Recall", "F1"})
	for _, row := range rows {
		tw.AppendRow(table.Row{
			row.ID,
			metricCell(row.Report.Precision, opts),
			metricCell(row.Report.Recall, opts),
			metricCell(row.Report.F1, opts),
		})
	}
	return tw.Render()
}

func metricCell(value float64, opts Options) string {
	return fmt.Sprintf("%s %.3f", bar(value, 1, opts), value)
}

// RenderDistribution draws true vs predicted counts per tag on a shared scale.
func RenderDistribution(title string, dist []metrics.TagCount, opts Options) string {
	if len(dist) == 0 {
		return ""
	}
	var peak int
	for _, d := range dist {
		peak = max(peak, d.True, d.Predicted)
	}
	tw := table.NewWriter()
	tw.SetStyle(opts.style())
	if strings.TrimSpace(title) != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(table.Row{"Tag", "True", "Predicted"})
	for _, d := range dist {
		tw.AppendRow(table.Row{
			d.Label,
			fmt.Sprintf("%s %d", bar(float64(d.True), float64(peak), opts), d.True),
			fmt.Sprintf("%s %d", bar(float64(d.Predicted), float64(peak), opts), d.Predicted),
		})
	}
	return tw.Render()
}

// RenderMarkdown renders the comparison as a Markdown table.
func RenderMarkdown(rows []Row) string {
	tw := table.NewWriter()
	tw.AppendHeader(table.Row{"Run", "Strategy", "Model", "Precision", "Recall", "F1"})
	for _, row := range rows {
		tw.AppendRow(table.Row{
			row.ID,
			StrategyTitle(row.Key.Strategy),
			row.Key.ModelID,
			fmt.Sprintf("%.4f", row.Report.Precision),
			fmt.Sprintf("%.4f", row.Report.Recall),
			fmt.Sprintf("%.4f", row.Report.F1),
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
		{Number: 6, Align: text.AlignRight},
	})
	return tw.RenderMarkdown()
}

// RenderClasses renders the per-label breakdown of one run.
func RenderClasses(title string, classes []metrics.ClassScore, opts Options) string {
	if len(classes) == 0 {
		return ""
	}
	tw := table.NewWriter()
	tw.SetStyle(opts.style())
	if strings.TrimSpace(title) != "" {
		tw.SetTitle(title)
	}
	tw.AppendHeader(table.Row{"Tag", "Precision", "Recall", "F1", "Support"})
	for _, c := range classes {
		tw.AppendRow(table.Row{
			c.Label,
			fmt.Sprintf("%.3f", c.Precision),
			fmt.Sprintf("%.3f", c.Recall),
			fmt.Sprintf("%.3f", c.F1),
			c.Support,
		})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight},
		{Number: 3, Align: text.AlignRight},
		{Number: 4, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	return tw.Render()
}
