package report

import (
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// WriteHTML renders the score timeline and per-frame miss counter to w.
// Frames without a match attempt leave gaps in the score line.
func (c *Collector) WriteHTML(w io.Writer, title string, threshold float64) error {
	records := c.Records()
	sum := c.Summary()

	x := make([]string, len(records))
	scores := make([]opts.LineData, len(records))
	misses := make([]opts.BarData, len(records))
	for i, r := range records {
		x[i] = strconv.FormatUint(r.Frame, 10)
		if r.Attempted {
			scores[i] = opts.LineData{Value: r.Score}
		} else {
			scores[i] = opts.LineData{Value: "-"}
		}
		misses[i] = opts.BarData{Value: r.Misses}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{PageTitle: title, Width: "100%", Height: "480px"}),
		charts.WithTitleOpts(opts.Title{
			Title: "Template match score",
			Subtitle: fmt.Sprintf("frames=%d acquisitions=%d losses=%d tracked=%.1f%% mean=%.3f",
				sum.Frames, sum.Acquisitions, sum.Losses, 100*sum.TrackedFraction, sum.MeanMatchScore),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithXAxisOpts(opts.XAxis{Name: "frame", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "score", Min: -1, Max: 1}),
		charts.WithDataZoomOpts(opts.DataZoom{Type: "slider", Start: 0, End: 100}),
	)
	line.SetXAxis(x).AddSeries("score", scores,
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false)}),
		charts.WithMarkLineNameYAxisItemOpts(opts.MarkLineNameYAxisItem{Name: "threshold", YAxis: threshold}),
	)

	bar := charts.NewBar()
	bar.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{Width: "100%", Height: "240px"}),
		charts.WithTitleOpts(opts.Title{Title: "Consecutive misses"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	bar.SetXAxis(x).AddSeries("misses", misses)

	page := components.NewPage()
	page.PageTitle = title
	page.AddCharts(line, bar)
	return page.Render(w)
}

// WriteHTMLFile writes the report to path.
func (c *Collector) WriteHTMLFile(path, title string, threshold float64) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	if err := c.WriteHTML(f, title, threshold); err != nil {
		f.Close()
		return fmt.Errorf("failed to render report: %w", err)
	}
	return f.Close()
}
