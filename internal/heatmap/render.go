package heatmap

import (
	"io"
	"math"
	"strconv"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"
)

// YlOrBr color stops
var colorScale = []string{"#ffffe5", "#fee391", "#fec44f", "#fe9929", "#cc4c02", "#662506"}

// Chart builds the weightage heatmap. Empty and NaN cells emit no data point, so
// they render blank and stay out of the visual map range.
func Chart(g *Grid, title string) *charts.HeatMap {
	hm := charts.NewHeatMap()

	min, max, ok := g.WeightRange()
	if !ok {
		min, max = 0, 1
	}
	if min == max {
		max = min + 1
	}

	xs := make([]string, g.Cols)
	for c := range xs {
		xs[c] = strconv.Itoa(c + 1)
	}
	// Category axes grow upward, so list rows bottom first to keep row 0 on top
	ys := make([]string, g.Rows)
	for r := range ys {
		ys[r] = strconv.Itoa(g.Rows - r)
	}

	hm.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle:       title,
			BackgroundColor: "#FFFFFF",
			Width:           "900px",
			Height:          "535px",
		}),
		charts.WithAnimation(false),
		charts.WithTitleOpts(opts.Title{Title: title}),
		charts.WithTooltipOpts(opts.Tooltip{
			Show:      opts.Bool(true),
			Formatter: opts.FuncOpts(`function (p) { return p.value[3]; }`),
		}),
		charts.WithXAxisOpts(opts.XAxis{
			Type:      "category",
			Data:      xs,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithYAxisOpts(opts.YAxis{
			Type:      "category",
			Data:      ys,
			SplitArea: &opts.SplitArea{Show: opts.Bool(true)},
		}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Calculable: opts.Bool(true),
			Min:        float32(min),
			Max:        float32(max),
			Text:       []string{"Weightage"},
			InRange:    &opts.VisualMapInRange{Color: colorScale},
		}),
	)

	hm.SetXAxis(xs).AddSeries("Weightage", heatMapData(g),
		charts.WithLabelOpts(opts.Label{
			Show:      opts.Bool(true),
			Formatter: "{b}",
		}),
	)

	return hm
}

// Render writes the heatmap as a standalone HTML page
func Render(w io.Writer, g *Grid, title string) error {
	return Chart(g, title).Render(w)
}

func heatMapData(g *Grid) []opts.HeatMapData {
	data := make([]opts.HeatMapData, 0, g.Populated)
	for _, cell := range g.Cells() {
		if cell.Empty() || math.IsNaN(cell.Weight) {
			continue
		}
		data = append(data, opts.HeatMapData{
			Name:  cell.Name,
			Value: []interface{}{cell.Col, g.Rows - 1 - cell.Row, cell.Weight, cell.Annotation},
		})
	}
	return data
}
