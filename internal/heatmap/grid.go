package heatmap

import (
	"errors"
	"fmt"
	"math"
)

// DefaultColumns is the column count of the weightage "periodic table"
const DefaultColumns = 5

// ErrInvalidInput is returned when a grid cannot be laid out from the given arguments
var ErrInvalidInput = errors.New("invalid input")

// WeightedEntity is a named item ranked by its position in the input sequence.
// A missing weight is NaN.
type WeightedEntity struct {
	Name   string  `json:"name"`
	Weight float64 `json:"weight"`
}

// Grid is a fixed-column, row-major arrangement of weighted entities.
// Weights, Names and Annotations are parallel Rows x Cols matrices.
type Grid struct {
	Rows        int
	Cols        int
	Populated   int
	Weights     [][]float64 // NaN marks an empty cell
	Names       [][]string
	Annotations [][]string
}

// Build lays entities out left to right, top to bottom in input order.
// Rows is ceil(N / cols); an empty input yields zero rows.
func Build(entities []WeightedEntity, cols int) (*Grid, error) {
	if cols <= 0 {
		return nil, fmt.Errorf("%w: column count must be positive, got %d", ErrInvalidInput, cols)
	}

	n := len(entities)
	rows := (n + cols - 1) / cols

	g := &Grid{
		Rows:        rows,
		Cols:        cols,
		Populated:   n,
		Weights:     make([][]float64, rows),
		Names:       make([][]string, rows),
		Annotations: make([][]string, rows),
	}

	for r := 0; r < rows; r++ {
		g.Weights[r] = make([]float64, cols)
		g.Names[r] = make([]string, cols)
		g.Annotations[r] = make([]string, cols)

		for c := 0; c < cols; c++ {
			i := r*cols + c
			if i >= n {
				g.Weights[r][c] = math.NaN()
				continue
			}
			e := entities[i]
			g.Weights[r][c] = e.Weight
			g.Names[r][c] = e.Name
			g.Annotations[r][c] = Annotate(e, i+1)
		}
	}

	return g, nil
}

// Annotate formats the hover label of a populated cell. A missing weight is
// written as "nan".
func Annotate(e WeightedEntity, rank int) string {
	weight := "nan"
	if !math.IsNaN(e.Weight) {
		weight = fmt.Sprintf("%.2f", e.Weight)
	}
	return fmt.Sprintf("%s<br>Weight: %s<br>Rank: %d", e.Name, weight, rank)
}

// Cell is a single grid position
type Cell struct {
	Row        int
	Col        int
	Rank       int // 0 for empty cells
	Name       string
	Weight     float64
	Annotation string
}

// Empty reports whether the cell is padding
func (c Cell) Empty() bool {
	return c.Rank == 0
}

// Cell returns the cell at (row, col). It panics on out of range indexes like a slice would.
func (g *Grid) Cell(row, col int) Cell {
	c := Cell{
		Row:        row,
		Col:        col,
		Name:       g.Names[row][col],
		Weight:     g.Weights[row][col],
		Annotation: g.Annotations[row][col],
	}
	if i := row*g.Cols + col; i < g.Populated {
		c.Rank = i + 1
	}
	return c
}

// Cells returns every cell in row-major order, padding included
func (g *Grid) Cells() []Cell {
	cells := make([]Cell, 0, g.Rows*g.Cols)
	for r := 0; r < g.Rows; r++ {
		for c := 0; c < g.Cols; c++ {
			cells = append(cells, g.Cell(r, c))
		}
	}
	return cells
}

// WeightRange returns the min and max of the populated, non-NaN weights.
// ok is false when there is no such weight.
func (g *Grid) WeightRange() (min, max float64, ok bool) {
	for _, row := range g.Weights {
		for _, w := range row {
			if math.IsNaN(w) {
				continue
			}
			if !ok {
				min, max, ok = w, w, true
				continue
			}
			if w < min {
				min = w
			}
			if w > max {
				max = w
			}
		}
	}
	return min, max, ok
}

// NullableWeights returns Weights with NaN replaced by nil, for encodings without NaN
func (g *Grid) NullableWeights() [][]*float64 {
	out := make([][]*float64, len(g.Weights))
	for r, row := range g.Weights {
		out[r] = make([]*float64, len(row))
		for c, w := range row {
			if math.IsNaN(w) {
				continue
			}
			w := w
			out[r][c] = &w
		}
	}
	return out
}
