// Package edge detects the dominant reflective-layer boundary in a
// pre-processed range-time frame. The frame is rescaled to a small set of
// integer intensity levels, every level contributes a candidate edge, the
// candidates are collapsed per quantile and the most self-consistent
// quantile trace is kept.
package edge

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

const (
	maxInputIntensity = 1<<16 - 1
	maxLevel          = 1<<8 - 1
)

// RobustMax returns the largest value v such that at least n samples are
// greater than or equal to v. Rare hot pixels at the top of the histogram
// are skipped this way. With n <= 0 it is the plain maximum.
func RobustMax(values []int, n int) (int, error) {
	if len(values) == 0 {
		return 0, fmt.Errorf("robust maximum of an empty array")
	}
	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}

	hist := make([]int, hi-lo+1)
	for _, v := range values {
		hist[v-lo]++
	}

	cum := 0
	for bin := len(hist) - 1; bin >= 0; bin-- {
		cum += hist[bin]
		if cum >= n {
			return lo + bin, nil
		}
	}
	return 0, fmt.Errorf("only %d samples available, cannot exclude the top %d", len(values), n)
}

// Rescale maps a frame onto integer levels 0..iMax (approximately; the
// robust maximum lets a few outliers land above iMax). Values are shifted so
// the minimum is zero and scaled by iMax over the robust maximum computed
// with occurrenceN.
func Rescale(frame [][]float64, occurrenceN, iMax int) ([][]int, error) {
	if iMax > maxLevel || iMax < 1 {
		return nil, &ConfigError{Param: "i_max", Value: float64(iMax), Constraint: "must be in 8bit unsigned integer range [1, 255]"}
	}
	if len(frame) == 0 || len(frame[0]) == 0 {
		return nil, fmt.Errorf("cannot rescale an empty frame")
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, row := range frame {
		lo = math.Min(lo, floats.Min(row))
		hi = math.Max(hi, floats.Max(row))
	}
	if hi > maxInputIntensity {
		return nil, &ConfigError{Param: "frame max", Value: hi, Constraint: "all values must be in 16bit unsigned integer range"}
	}

	rounded := make([]int, 0, len(frame)*len(frame[0]))
	for _, row := range frame {
		for _, v := range row {
			rounded = append(rounded, int(math.RoundToEven(v-lo)))
		}
	}
	robust, err := RobustMax(rounded, occurrenceN)
	if err != nil {
		return nil, fmt.Errorf("rescale: %w", err)
	}
	if robust <= 0 {
		return nil, &ConfigError{Param: "robust max", Value: float64(robust), Constraint: "frame must have a non-zero intensity range"}
	}

	factor := float64(iMax) / float64(robust)
	scaledMax := (hi - lo) * factor
	if scaledMax > maxLevel {
		return nil, &ConfigError{Param: "rescaled max", Value: scaledMax,
			Constraint: "end rescaling max out of 8bit unsigned range, consider adjusting smoothing or occurrence_n"}
	}

	out := make([][]int, len(frame))
	for i, row := range frame {
		out[i] = make([]int, len(row))
		for j, v := range row {
			out[i][j] = int(math.RoundToEven((v - lo) * factor))
		}
	}
	return out, nil
}
