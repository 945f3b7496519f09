package heatmap

import (
	"errors"
	"fmt"
	"math"
	"testing"
)

func entities(n int) []WeightedEntity {
	out := make([]WeightedEntity, n)
	for i := range out {
		out[i] = WeightedEntity{Name: fmt.Sprintf("C%d", i+1), Weight: float64(i + 1)}
	}
	return out
}

func TestBuildSingleRow(t *testing.T) {
	input := []WeightedEntity{
		{Name: "A", Weight: 1.0},
		{Name: "B", Weight: 2.0},
		{Name: "C", Weight: 3.0},
	}

	g, err := Build(input, DefaultColumns)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Rows != 1 || g.Cols != 5 {
		t.Fatalf("expected 1x5 grid, got %dx%d", g.Rows, g.Cols)
	}

	wantNames := []string{"A", "B", "C", "", ""}
	for c, want := range wantNames {
		if g.Names[0][c] != want {
			t.Errorf("expected name[0][%d]=%q, got %q", c, want, g.Names[0][c])
		}
	}

	wantWeights := []float64{1, 2, 3}
	for c, want := range wantWeights {
		if g.Weights[0][c] != want {
			t.Errorf("expected weight[0][%d]=%v, got %v", c, want, g.Weights[0][c])
		}
	}
	for c := 3; c < 5; c++ {
		if !math.IsNaN(g.Weights[0][c]) {
			t.Errorf("expected NaN weight in padding cell %d, got %v", c, g.Weights[0][c])
		}
		if g.Annotations[0][c] != "" {
			t.Errorf("expected empty annotation in padding cell %d, got %q", c, g.Annotations[0][c])
		}
	}

	if g.Annotations[0][0] != "A<br>Weight: 1.00<br>Rank: 1" {
		t.Errorf("unexpected annotation: %q", g.Annotations[0][0])
	}
}

func TestBuildWrapsToSecondRow(t *testing.T) {
	g, err := Build(entities(6), 5)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if g.Rows != 2 {
		t.Fatalf("expected 2 rows, got %d", g.Rows)
	}
	if g.Populated != 6 {
		t.Errorf("expected 6 populated cells, got %d", g.Populated)
	}

	cell := g.Cell(1, 0)
	if cell.Name != "C6" {
		t.Errorf("expected cell (1,0) to hold C6, got %q", cell.Name)
	}
	if cell.Rank != 6 {
		t.Errorf("expected rank 6, got %d", cell.Rank)
	}
	if cell.Annotation != "C6<br>Weight: 6.00<br>Rank: 6" {
		t.Errorf("unexpected annotation: %q", cell.Annotation)
	}

	for c := 1; c < 5; c++ {
		if !g.Cell(1, c).Empty() {
			t.Errorf("expected cell (1,%d) to be empty", c)
		}
	}
}

func TestBuildEmptyInput(t *testing.T) {
	g, err := Build(nil, 5)
	if err != nil {
		t.Fatalf("Build failed on empty input: %v", err)
	}

	if g.Rows != 0 {
		t.Errorf("expected 0 rows, got %d", g.Rows)
	}
	if g.Cols != 5 {
		t.Errorf("expected 5 cols, got %d", g.Cols)
	}
	if g.Populated != 0 {
		t.Errorf("expected 0 populated cells, got %d", g.Populated)
	}
	if len(g.Cells()) != 0 {
		t.Errorf("expected no cells, got %d", len(g.Cells()))
	}
	if _, _, ok := g.WeightRange(); ok {
		t.Error("expected no weight range for an empty grid")
	}
}

func TestBuildRejectsNonPositiveColumns(t *testing.T) {
	for _, cols := range []int{0, -1, -5} {
		_, err := Build(entities(3), cols)
		if !errors.Is(err, ErrInvalidInput) {
			t.Errorf("cols=%d: expected ErrInvalidInput, got %v", cols, err)
		}
	}
}

func TestBuildCellCountAndOrder(t *testing.T) {
	for n := 0; n <= 23; n++ {
		for cols := 1; cols <= 7; cols++ {
			g, err := Build(entities(n), cols)
			if err != nil {
				t.Fatalf("n=%d cols=%d: %v", n, cols, err)
			}

			wantRows := int(math.Ceil(float64(n) / float64(cols)))
			if g.Rows != wantRows {
				t.Fatalf("n=%d cols=%d: expected %d rows, got %d", n, cols, wantRows, g.Rows)
			}

			cells := g.Cells()
			if len(cells) != wantRows*cols {
				t.Fatalf("n=%d cols=%d: expected %d cells, got %d", n, cols, wantRows*cols, len(cells))
			}

			populated := 0
			for i, cell := range cells {
				if cell.Empty() {
					if i < n {
						t.Fatalf("n=%d cols=%d: cell %d unexpectedly empty", n, cols, i)
					}
					continue
				}
				populated++
				if cell.Rank != i+1 {
					t.Errorf("n=%d cols=%d: cell %d has rank %d", n, cols, i, cell.Rank)
				}
				if want := fmt.Sprintf("C%d", i+1); cell.Name != want {
					t.Errorf("n=%d cols=%d: cell %d holds %q, expected %q", n, cols, i, cell.Name, want)
				}
			}
			if populated != n {
				t.Errorf("n=%d cols=%d: expected %d populated cells, got %d", n, cols, n, populated)
			}
		}
	}
}

func TestBuildKeepsInputOrder(t *testing.T) {
	input := []WeightedEntity{
		{Name: "Low", Weight: 0.5},
		{Name: "High", Weight: 9.5},
		{Name: "Mid", Weight: 4.0},
	}

	g, _ := Build(input, 2)

	if g.Names[0][0] != "Low" || g.Names[0][1] != "High" || g.Names[1][0] != "Mid" {
		t.Errorf("expected input order preserved, got %v", g.Names)
	}
}

func TestBuildIsIdempotent(t *testing.T) {
	input := entities(7)

	a, _ := Build(input, 3)
	b, _ := Build(input, 3)

	for r := 0; r < a.Rows; r++ {
		for c := 0; c < a.Cols; c++ {
			if a.Names[r][c] != b.Names[r][c] || a.Annotations[r][c] != b.Annotations[r][c] {
				t.Errorf("cell (%d,%d) differs between runs", r, c)
			}
			wa, wb := a.Weights[r][c], b.Weights[r][c]
			if wa != wb && !(math.IsNaN(wa) && math.IsNaN(wb)) {
				t.Errorf("weight (%d,%d) differs between runs: %v vs %v", r, c, wa, wb)
			}
		}
	}
}

func TestMissingWeightStaysPopulated(t *testing.T) {
	input := []WeightedEntity{
		{Name: "A", Weight: 2},
		{Name: "B", Weight: math.NaN()},
		{Name: "C", Weight: 8},
	}

	g, _ := Build(input, 5)

	cell := g.Cell(0, 1)
	if cell.Empty() {
		t.Fatal("entity with missing weight should still occupy its cell")
	}
	if !math.IsNaN(cell.Weight) {
		t.Errorf("expected NaN weight, got %v", cell.Weight)
	}
	if cell.Annotation != "B<br>Weight: nan<br>Rank: 2" {
		t.Errorf("unexpected annotation %q", cell.Annotation)
	}

	min, max, ok := g.WeightRange()
	if !ok || min != 2 || max != 8 {
		t.Errorf("expected weight range [2, 8], got [%v, %v] ok=%v", min, max, ok)
	}
}

func TestNullableWeights(t *testing.T) {
	g, _ := Build(entities(2), 3)

	nw := g.NullableWeights()
	if nw[0][0] == nil || *nw[0][0] != 1 {
		t.Errorf("expected first weight 1, got %v", nw[0][0])
	}
	if nw[0][2] != nil {
		t.Errorf("expected nil for padding cell, got %v", *nw[0][2])
	}
}
