package training

import (
	"fmt"
	"io"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// RenderChart writes an HTML page with each player's episode scores and
// their rolling average.
func RenderChart(w io.Writer, r *Result) error {
	window := r.Window
	if window <= 0 {
		window = DefaultConfig().Window
	}

	episodes := make([]string, len(r.Scores[0]))
	for i := range episodes {
		episodes[i] = fmt.Sprintf("%d", i+1)
	}

	scores := charts.NewLine()
	scores.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title:    "Episode scores",
			Subtitle: r.SessionID,
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	scores.SetXAxis(episodes)

	averages := charts.NewLine()
	averages.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{
			Title: fmt.Sprintf("Rolling average (last %d)", window),
		}),
		charts.WithInitializationOpts(opts.Initialization{
			Theme: "shine",
		}),
	)
	averages.SetXAxis(episodes)

	for i, name := range r.Players {
		scores.AddSeries(name, lineData(r.Scores[i]))
		averages.AddSeries(name, lineData(RollingMean(r.Scores[i], window)))
	}

	page := components.NewPage()
	page.AddCharts(scores, averages)
	return page.Render(w)
}

func lineData(values []float64) []opts.LineData {
	items := make([]opts.LineData, 0, len(values))
	for _, v := range values {
		items = append(items, opts.LineData{Value: v})
	}
	return items
}
