package prediction

import (
	"io"
	"math"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// Chart builds the actual vs predicted line chart
func Chart(company string, points []Point) *charts.Line {
	title := company + " - Actual vs Predicted Opening Prices"

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			BackgroundColor: "#FFFFFF",
			Width:           "100%",
		}),
		charts.WithAnimation(false),
		charts.WithTitleOpts(opts.Title{
			Title:    title,
			Subtitle: ErrorText(points, EvaluationDate),
		}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:    opts.Bool(true),
			Trigger: "axis",
		}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(true), Right: "5%"}),
		charts.WithYAxisOpts(opts.YAxis{
			Name:         "Price",
			Position:     "left",
			NameLocation: "middle",
			NameGap:      40,
			Scale:        opts.Bool(true),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Name:         "Date",
			Position:     "bottom",
			NameLocation: "center",
			NameGap:      25,
		}),
		charts.WithDataZoomOpts(opts.DataZoom{
			Type:  "slider",
			Start: 0,
			End:   100,
		}),
	)

	axis := make([]string, len(points))
	for i, p := range points {
		axis[i] = p.Date.Format("2006-01-02")
	}

	line.SetXAxis(axis).
		AddSeries("Actual Price", genLineData(points, func(p Point) float64 { return p.Actual }),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "blue"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "blue"}),
		).
		AddSeries("Predicted Price", genLineData(points, func(p Point) float64 { return p.Predicted }),
			charts.WithLineStyleOpts(opts.LineStyle{Color: "red", Type: "dashed"}),
			charts.WithItemStyleOpts(opts.ItemStyle{Color: "red"}),
		).
		SetSeriesOptions(
			charts.WithLineChartOpts(opts.LineChart{
				ShowSymbol: opts.Bool(false),
			}),
		)

	return line
}

// Render writes the chart as a standalone HTML page
func Render(w io.Writer, company string, points []Point) error {
	return Chart(company, points).Render(w)
}

// genLineData maps NaN to "-", which echarts draws as a gap
func genLineData(points []Point, value func(Point) float64) []opts.LineData {
	rs := make([]opts.LineData, 0, len(points))
	for _, p := range points {
		v := value(p)
		if math.IsNaN(v) {
			rs = append(rs, opts.LineData{Value: "-"})
			continue
		}
		rs = append(rs, opts.LineData{Value: v})
	}
	return rs
}
