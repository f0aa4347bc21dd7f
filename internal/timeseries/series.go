// Package timeseries provides the time-indexed series passed between the
// detector's post-processing stages.
package timeseries

import (
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Series is a sequence of values on a time axis. Values may hold NaN for
// missing samples.
type Series struct {
	Times  []time.Time `json:"times" msgpack:"times"`
	Values []float64   `json:"values" msgpack:"values"`
}

// New pairs times and values, copying both.
func New(times []time.Time, values []float64) (Series, error) {
	if len(times) != len(values) {
		return Series{}, fmt.Errorf("series has %d times but %d values", len(times), len(values))
	}
	return Series{
		Times:  append([]time.Time(nil), times...),
		Values: append([]float64(nil), values...),
	}, nil
}

// Filled returns a series on the given times with every value set to v.
func Filled(times []time.Time, v float64) Series {
	values := make([]float64, len(times))
	for i := range values {
		values[i] = v
	}
	return Series{Times: append([]time.Time(nil), times...), Values: values}
}

// Len returns the number of samples.
func (s Series) Len() int { return len(s.Values) }

// Copy returns a deep copy.
func (s Series) Copy() Series {
	return Series{
		Times:  append([]time.Time(nil), s.Times...),
		Values: append([]float64(nil), s.Values...),
	}
}

// Between returns the samples with start <= t < end.
func (s Series) Between(start, end time.Time) Series {
	var out Series
	for i, t := range s.Times {
		if !t.Before(start) && t.Before(end) {
			out.Times = append(out.Times, t)
			out.Values = append(out.Values, s.Values[i])
		}
	}
	return out
}

// ZeroOutside returns a copy with every sample outside [start, end) set to 0.
func (s Series) ZeroOutside(start, end time.Time) Series {
	out := s.Copy()
	for i, t := range out.Times {
		if t.Before(start) || !t.Before(end) {
			out.Values[i] = 0
		}
	}
	return out
}

// FillGaps linearly interpolates interior NaN runs by sample position and
// sets leading and trailing NaN runs to zero.
func (s Series) FillGaps() Series {
	out := s.Copy()
	v := out.Values
	last := -1
	for i := range v {
		if math.IsNaN(v[i]) {
			continue
		}
		if last >= 0 && i-last > 1 {
			step := (v[i] - v[last]) / float64(i-last)
			for k := last + 1; k < i; k++ {
				v[k] = v[last] + step*float64(k-last)
			}
		}
		last = i
	}
	for i := range v {
		if math.IsNaN(v[i]) {
			v[i] = 0
		}
	}
	return out
}

// Resample evaluates s at times by linear interpolation in time. Times
// before the first or after the last sample take the end values.
func (s Series) Resample(times []time.Time) (Series, error) {
	if s.Len() == 0 {
		return Series{}, fmt.Errorf("cannot resample an empty series")
	}
	xp := make([]float64, len(s.Times))
	for i, t := range s.Times {
		xp[i] = float64(t.UnixNano())
	}
	values := make([]float64, len(times))
	for i, t := range times {
		values[i] = Interp(float64(t.UnixNano()), xp, s.Values)
	}
	return Series{Times: append([]time.Time(nil), times...), Values: values}, nil
}

// Interp is one-dimensional piecewise linear interpolation of (xp, fp) at x,
// with xp increasing. Outside the data the end values are returned.
func Interp(x float64, xp, fp []float64) float64 {
	n := len(xp)
	if x <= xp[0] {
		return fp[0]
	}
	if x >= xp[n-1] {
		return fp[n-1]
	}
	lo, hi := 0, n-1
	for hi-lo > 1 {
		mid := (lo + hi) / 2
		if xp[mid] <= x {
			lo = mid
		} else {
			hi = mid
		}
	}
	frac := (x - xp[lo]) / (xp[hi] - xp[lo])
	return fp[lo] + frac*(fp[hi]-fp[lo])
}

// Grid returns start, start+step, ... up to the first time that is not
// before end.
func Grid(start, end time.Time, step time.Duration) []time.Time {
	if step <= 0 {
		return nil
	}
	times := []time.Time{start}
	for times[len(times)-1].Before(end) {
		times = append(times, times[len(times)-1].Add(step))
	}
	return times
}

// SecondsSince returns the elapsed seconds of every sample relative to t0.
func (s Series) SecondsSince(t0 time.Time) []float64 {
	out := make([]float64, len(s.Times))
	for i, t := range s.Times {
		out[i] = t.Sub(t0).Seconds()
	}
	return out
}

type jsonSeries struct {
	Times  []time.Time `json:"times"`
	Values []*float64  `json:"values"`
}

// MarshalJSON writes NaN and infinite values as null.
func (s Series) MarshalJSON() ([]byte, error) {
	js := jsonSeries{Times: s.Times, Values: make([]*float64, len(s.Values))}
	for i := range s.Values {
		if math.IsNaN(s.Values[i]) || math.IsInf(s.Values[i], 0) {
			continue
		}
		v := s.Values[i]
		js.Values[i] = &v
	}
	return json.Marshal(js)
}
