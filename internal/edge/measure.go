package edge

import (
	"fmt"
	"math"
)

// MeasureOptions holds the edge detection parameters.
type MeasureOptions struct {
	Quantiles    []float64
	LowerCutoff  float64
	OccurrenceN  int
	IMax         int
	MaxAbsDev    float64
	LowessWindow float64
	Stack        StackOptions
}

// DefaultMeasureOptions returns the detection parameters used when a config
// does not override them.
func DefaultMeasureOptions() MeasureOptions {
	return MeasureOptions{
		Quantiles:    []float64{0.4, 0.5, 0.6},
		LowerCutoff:  10,
		OccurrenceN:  60,
		IMax:         30,
		MaxAbsDev:    20,
		LowessWindow: 10,
		Stack:        DefaultStackOptions(),
	}
}

// Measurement is the outcome of edge detection on one frame. Edges are in
// range-bin index units.
type Measurement struct {
	Levels     int
	Candidates [][]float64
	Selection  *Selection
}

// MeasureThresholds rescales frame ([range][time]), builds the threshold
// stack, drops stack entries below the lower cutoff, takes one candidate
// edge per quantile and selects the canonical one.
func MeasureThresholds(frame [][]float64, opts MeasureOptions) (*Measurement, error) {
	for _, q := range opts.Quantiles {
		if math.IsNaN(q) || q <= 0 || q >= 1 {
			return nil, &QuantileError{Q: q}
		}
	}

	levels, err := Rescale(frame, opts.OccurrenceN, opts.IMax)
	if err != nil {
		return nil, err
	}
	stack, err := StackThresholds(levels, opts.Stack)
	if err != nil {
		return nil, err
	}

	fstack := make([][]float64, len(stack))
	for i, row := range stack {
		fstack[i] = make([]float64, len(row))
		for j, v := range row {
			if float64(v) < opts.LowerCutoff {
				fstack[i][j] = math.NaN()
			} else {
				fstack[i][j] = float64(v)
			}
		}
	}

	m := &Measurement{Levels: len(stack)}
	for _, q := range opts.Quantiles {
		line, err := TakeQuantile(fstack, q)
		if err != nil {
			return nil, err
		}
		m.Candidates = append(m.Candidates, line)
	}

	m.Selection, err = SelectMinDeviation(m.Candidates, LowessSmoother(opts.LowessWindow), opts.MaxAbsDev)
	if err != nil {
		return nil, fmt.Errorf("canonical edge selection failed: %w", err)
	}
	return m, nil
}
