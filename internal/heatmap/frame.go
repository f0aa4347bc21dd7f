// Package heatmap holds the range-time intensity frames the detector works on
// and the providers that supply one frame per analysis date.
package heatmap

import (
	"fmt"
	"math"
	"time"
)

// Frame is one day's range-time intensity image. Data is indexed
// [range bin][time bin]; RangesKm and Times are the matching axes.
type Frame struct {
	Data     [][]float64 `json:"data" msgpack:"data"`
	RangesKm []float64   `json:"ranges_km" msgpack:"ranges_km"`
	Times    []time.Time `json:"times" msgpack:"times"`
}

// Dims returns the number of range bins and time bins.
func (f *Frame) Dims() (nRange, nTime int) {
	nRange = len(f.Data)
	if nRange > 0 {
		nTime = len(f.Data[0])
	}
	return nRange, nTime
}

// Validate checks that the frame is rectangular, that both axes match the
// data and that the time axis moves forward.
func (f *Frame) Validate() error {
	nRange, nTime := f.Dims()
	if nRange == 0 || nTime == 0 {
		return fmt.Errorf("frame is empty (%dx%d)", nRange, nTime)
	}
	for i, row := range f.Data {
		if len(row) != nTime {
			return fmt.Errorf("frame row %d has %d samples, expected %d", i, len(row), nTime)
		}
	}
	if len(f.RangesKm) != nRange {
		return fmt.Errorf("range axis has %d entries, frame has %d range bins", len(f.RangesKm), nRange)
	}
	if len(f.Times) != nTime {
		return fmt.Errorf("time axis has %d entries, frame has %d time bins", len(f.Times), nTime)
	}
	for i := 1; i < nTime; i++ {
		if !f.Times[i].After(f.Times[i-1]) {
			return fmt.Errorf("time axis not strictly increasing at index %d", i)
		}
	}
	return nil
}

// Trim drops floor(fraction*n) samples from each end of both axes. The x
// fractions apply to time, the y fractions to range. The receiver is not
// modified.
func (f *Frame) Trim(xLeft, xRight, yLeft, yRight float64) (*Frame, error) {
	nRange, nTime := f.Dims()

	t0, t1, err := trimBounds(nTime, xLeft, xRight)
	if err != nil {
		return nil, fmt.Errorf("time axis: %w", err)
	}
	r0, r1, err := trimBounds(nRange, yLeft, yRight)
	if err != nil {
		return nil, fmt.Errorf("range axis: %w", err)
	}

	out := &Frame{
		Data:     make([][]float64, r1-r0),
		RangesKm: append([]float64(nil), f.RangesKm[r0:r1]...),
		Times:    append([]time.Time(nil), f.Times[t0:t1]...),
	}
	for i := r0; i < r1; i++ {
		out.Data[i-r0] = append([]float64(nil), f.Data[i][t0:t1]...)
	}
	return out, nil
}

func trimBounds(n int, left, right float64) (int, int, error) {
	start := int(math.Floor(left * float64(n)))
	end := n - int(math.Floor(right*float64(n)))
	if start < 0 || end > n || start >= end {
		return 0, 0, fmt.Errorf("trim (%.4f, %.4f) leaves no samples out of %d", left, right, n)
	}
	return start, end, nil
}

// Preprocess replaces missing samples with zero and applies an isotropic
// Gaussian blur of the given width (in bins) to the frame data.
func (f *Frame) Preprocess(sigma float64) [][]float64 {
	nRange, nTime := f.Dims()
	out := make([][]float64, nRange)
	for i := range f.Data {
		out[i] = make([]float64, nTime)
		for j, v := range f.Data[i] {
			if !math.IsNaN(v) {
				out[i][j] = v
			}
		}
	}
	return GaussianFilter(out, sigma)
}

// MeanPeriod returns the average spacing of the time axis.
func (f *Frame) MeanPeriod() time.Duration {
	if len(f.Times) < 2 {
		return 0
	}
	span := f.Times[len(f.Times)-1].Sub(f.Times[0])
	return span / time.Duration(len(f.Times)-1)
}
