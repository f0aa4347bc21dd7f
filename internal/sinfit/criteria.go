package sinfit

import (
	"fmt"
	"sort"
)

// Interval is the half-open range [Low, High).
type Interval struct {
	Low  float64 `json:"low" msgpack:"low" yaml:"low"`
	High float64 `json:"high" msgpack:"high" yaml:"high"`
}

// Contains reports Low <= v < High.
func (iv Interval) Contains(v float64) bool {
	return v >= iv.Low && v < iv.High
}

// Criteria is a resolved set of classification intervals keyed by
// parameter name. The zero value has no criteria; build one with
// ResolveCriteria.
type Criteria struct {
	intervals map[string]Interval
}

// CriteriaKeys are the names a criterion may be given.
var CriteriaKeys = []string{KeyPeriod, KeyAmplitude, KeyR2, KeyPhase, KeyOffset, KeySlope}

func knownKey(key string) bool {
	for _, k := range CriteriaKeys {
		if k == key {
			return true
		}
	}
	return false
}

// ResolveCriteria merges overrides onto the defaults: period within
// periodLimitsHr, amplitude in [20, 2000) km and R² in [0.35, 1.1).
// overrides is not modified.
func ResolveCriteria(periodLimitsHr [2]float64, overrides map[string]Interval) (Criteria, error) {
	c := Criteria{intervals: map[string]Interval{
		KeyPeriod:    {Low: periodLimitsHr[0], High: periodLimitsHr[1]},
		KeyAmplitude: {Low: 20, High: 2000},
		KeyR2:        {Low: 0.35, High: 1.1},
	}}
	for key, iv := range overrides {
		if !knownKey(key) {
			return Criteria{}, fmt.Errorf("unknown classification criterion %q", key)
		}
		c.intervals[key] = iv
	}
	return c, nil
}

// Keys returns the criterion names in sorted order.
func (c Criteria) Keys() []string {
	keys := make([]string, 0, len(c.intervals))
	for k := range c.intervals {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Interval returns the interval for key.
func (c Criteria) Interval(key string) (Interval, bool) {
	iv, ok := c.intervals[key]
	return iv, ok
}

// Map returns a copy of the criteria.
func (c Criteria) Map() map[string]Interval {
	out := make(map[string]Interval, len(c.intervals))
	for k, v := range c.intervals {
		out[k] = v
	}
	return out
}

// Classification is the verdict for one fit.
type Classification struct {
	IsLSTID bool            `json:"is_lstid" msgpack:"is_lstid"`
	Checks  map[string]bool `json:"checks" msgpack:"checks"`
}

// Classify checks every criterion against the fitted parameters and R².
// The fit is positive only when all of them pass.
func (c Criteria) Classify(p Params, r2 float64) Classification {
	out := Classification{IsLSTID: true, Checks: make(map[string]bool, len(c.intervals))}
	for key, iv := range c.intervals {
		var v float64
		if key == KeyR2 {
			v = r2
		} else {
			// keys are validated in ResolveCriteria
			v, _ = p.Value(key)
		}
		ok := iv.Contains(v)
		out.Checks[key] = ok
		out.IsLSTID = out.IsLSTID && ok
	}
	return out
}
