package edge

import (
	"math"
	"sort"
)

// TakeQuantile collapses a [level][time] stack into one edge per time column
// by taking quantile q over the non-missing (non-NaN) entries of each column.
// Columns with no entries yield NaN.
func TakeQuantile(stack [][]float64, q float64) ([]float64, error) {
	if math.IsNaN(q) || q <= 0 || q >= 1 {
		return nil, &QuantileError{Q: q}
	}
	if len(stack) == 0 {
		return nil, nil
	}

	nTime := len(stack[0])
	line := make([]float64, nTime)
	column := make([]float64, 0, len(stack))
	for col := 0; col < nTime; col++ {
		column = column[:0]
		for _, row := range stack {
			if !math.IsNaN(row[col]) {
				column = append(column, row[col])
			}
		}
		if len(column) == 0 {
			line[col] = math.NaN()
			continue
		}
		sort.Float64s(column)
		line[col] = linearQuantile(column, q)
	}
	return line, nil
}

// linearQuantile interpolates between the order statistics at (n-1)*q,
// matching numpy's default "linear" method. sorted must be ascending.
func linearQuantile(sorted []float64, q float64) float64 {
	h := float64(len(sorted)-1) * q
	lo := int(math.Floor(h))
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	return sorted[lo] + (h-float64(lo))*(sorted[lo+1]-sorted[lo])
}
