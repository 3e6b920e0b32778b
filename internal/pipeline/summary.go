package pipeline

import (
	"fmt"
	"strings"

	"hydroeval/internal/format"
	"hydroeval/internal/ingest"
	"hydroeval/internal/metrics"
)

// FormatSummary renders the run result for a terminal: the metric table,
// then the files that were skipped or failed.
func FormatSummary(res *Result, mode format.Mode) string {
	var b strings.Builder

	tb := format.NewTable(mode)
	tb.Title("Simulation evaluation")
	tb.Header(append([]string{"Catchment"}, metrics.Names...)...)
	for _, e := range res.Entries() {
		row := []any{e.Catchment}
		for _, f := range e.Metrics.Fields() {
			cell := f.Value.String()
			if cell == "" {
				cell = "n/a"
			}
			row = append(row, cell)
		}
		tb.Row(row...)
	}
	tb.AlignRight(2, 3, 4, 5, 6)
	tb.Footer(fmt.Sprintf("%d catchments", len(res.Catchments)))
	b.WriteString(tb.String())
	b.WriteString("\n")

	var problems []ingest.FileOutcome
	for _, o := range res.Outcomes {
		if o.Status != ingest.StatusOK {
			problems = append(problems, o)
		}
	}
	if len(problems) > 0 {
		b.WriteString("\n")
		pt := format.NewTable(mode)
		pt.Title("Files not evaluated")
		pt.Header("Status", "Catchment", "File", "Reason")
		for _, o := range problems {
			pt.Row(o.Status, o.Catchment, o.Path, format.Truncate(o.Reason, 80))
		}
		b.WriteString(pt.String())
		b.WriteString("\n")
	}

	if n := undefinedCount(res); n > 0 {
		fmt.Fprintf(&b, "\n%d metric value(s) undefined (zero-variance or zero-mean denominators)\n", n)
	}
	return b.String()
}

func undefinedCount(res *Result) int {
	n := 0
	for _, id := range res.Catchments {
		n += len(res.Metrics[id].Degenerate)
	}
	return n
}
