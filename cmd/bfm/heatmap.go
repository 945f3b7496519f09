package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/go-echarts/snapshot-chromedp/render"
	"github.com/spf13/cobra"

	"bfm/internal/heatmap"
)

const heatmapTitle = "Company Weightage Heatmap"

func newHeatmapCmd(a *app) *cobra.Command {
	var (
		cols   int
		source string
	)

	cmd := &cobra.Command{
		Use:   "heatmap",
		Short: "Print the weightage grid of the heatmap source",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGrid(cmd.Context(), source, cols)
			if err != nil {
				return err
			}
			return printGrid(cmd.OutOrStdout(), g)
		},
	}

	cmd.Flags().IntVarP(&cols, "cols", "c", heatmap.DefaultColumns, "number of grid columns")
	cmd.Flags().StringVarP(&source, "source", "s", "", "weights CSV path or URL (defaults to BFM_HEATMAP_SOURCE)")
	return cmd
}

func newSnapshotCmd(a *app) *cobra.Command {
	var (
		cols   int
		source string
		out    string
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Render the heatmap to a PNG through headless Chrome",
		RunE: func(cmd *cobra.Command, args []string) error {
			g, err := a.loadGrid(cmd.Context(), source, cols)
			if err != nil {
				return err
			}
			chart := heatmap.Chart(g, heatmapTitle)
			if err := render.MakeChartSnapshot(chart.RenderContent(), out); err != nil {
				return fmt.Errorf("render snapshot: %w", err)
			}
			a.logger.Info("wrote heatmap snapshot", "path", out, "rows", g.Rows, "cols", g.Cols)
			return nil
		},
	}

	cmd.Flags().IntVarP(&cols, "cols", "c", heatmap.DefaultColumns, "number of grid columns")
	cmd.Flags().StringVarP(&source, "source", "s", "", "weights CSV path or URL (defaults to BFM_HEATMAP_SOURCE)")
	cmd.Flags().StringVarP(&out, "out", "o", "heatmap.png", "output PNG path")
	return cmd
}

func (a *app) loadGrid(ctx context.Context, source string, cols int) (*heatmap.Grid, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("%w: column count must be positive, got %d", heatmap.ErrInvalidInput, cols)
	}
	if source == "" {
		source = a.cfg.HeatmapSource
	}
	entities, err := heatmap.Load(ctx, source)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", source, err)
	}
	a.logger.Debug("loaded weights", "source", source, "entities", len(entities))
	return heatmap.Build(entities, cols)
}

// printGrid writes one tab-aligned line per grid row with the cell annotations
func printGrid(w io.Writer, g *heatmap.Grid) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, row := range g.Annotations {
		cells := make([]string, len(row))
		for i, a := range row {
			cells[i] = strings.ReplaceAll(a, "<br>", " ")
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}
