package calendar

import (
	"testing"
	"time"

	"calboard/internal/model"
)

func TestGenerateGridShape(t *testing.T) {
	for year := 1999; year <= 2031; year++ {
		for month := time.January; month <= time.December; month++ {
			ref := model.Date(year, month, 15)
			grid := GenerateGrid(ref)

			if len(grid) != GridSize {
				t.Fatalf("%d-%02d: got %d cells, want %d", year, month, len(grid), GridSize)
			}
			if grid[0].Weekday() != time.Sunday {
				t.Fatalf("%d-%02d: first cell %s is a %s", year, month, grid[0], grid[0].Weekday())
			}
			for i := 1; i < len(grid); i++ {
				if grid[i] != grid[i-1].AddDays(1) {
					t.Fatalf("%d-%02d: gap between %s and %s", year, month, grid[i-1], grid[i])
				}
			}

			// Every day of the month appears exactly once, in order.
			var inMonth []model.Day
			for _, d := range grid {
				if d.SameMonth(ref) {
					inMonth = append(inMonth, d)
				}
			}
			last := ref.LastOfMonth().Day
			if len(inMonth) != last {
				t.Fatalf("%d-%02d: %d in-month cells, want %d", year, month, len(inMonth), last)
			}
			for i, d := range inMonth {
				if d.Day != i+1 {
					t.Fatalf("%d-%02d: in-month cell %d is %s", year, month, i, d)
				}
			}
		}
	}
}

func TestGenerateGridBoundaries(t *testing.T) {
	// May 2025 starts on a Thursday: four trailing April days.
	grid := GenerateGrid(model.Date(2025, time.May, 31))

	if grid[0] != model.Date(2025, time.April, 27) {
		t.Errorf("first cell = %s, want 2025-04-27", grid[0])
	}
	if grid[4] != model.Date(2025, time.May, 1) {
		t.Errorf("cell 4 = %s, want 2025-05-01", grid[4])
	}
	if grid[GridSize-1] != model.Date(2025, time.June, 7) {
		t.Errorf("last cell = %s, want 2025-06-07", grid[GridSize-1])
	}

	// June 2025 starts on a Sunday: no trailing days.
	grid = GenerateGrid(model.Date(2025, time.June, 1))
	if grid[0] != model.Date(2025, time.June, 1) {
		t.Errorf("June grid should start on the 1st, got %s", grid[0])
	}
}

func TestGenerateGridIsPure(t *testing.T) {
	ref := model.Date(2024, time.February, 29)
	a := GenerateGrid(ref)
	b := GenerateGrid(ref)
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("grids differ at %d: %s vs %s", i, a[i], b[i])
		}
	}
}
