package config

import (
	"fmt"
	"math"
)

// ValidationError reports a configuration value that cannot be used.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid config %s: %s", e.Field, e.Reason)
}

func invalid(field, format string, args ...interface{}) *ValidationError {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CriteriaKeys are the sinusoid parameters a classification criterion may
// name.
var CriteriaKeys = []string{"T_hr", "amplitude_km", "r2", "phase_hr", "offset_km", "slope_kmph"}

// Validate checks c and returns the first problem found as a
// *ValidationError.
func (c *ConfigData) Validate() error {
	d := c.Detection
	trims := []struct {
		name string
		trim Trim
	}{{"detection.x_trim", d.XTrim}, {"detection.y_trim", d.YTrim}}
	for _, t := range trims {
		for _, f := range []float64{t.trim.Left, t.trim.Right} {
			if math.IsNaN(f) || f < 0 || f >= 0.5 {
				return invalid(t.name, "fraction %g must be in [0, 0.5)", f)
			}
		}
	}
	if !(d.Sigma > 0) {
		return invalid("detection.sigma", "must be positive, got %g", d.Sigma)
	}
	if len(d.Quantiles) == 0 {
		return invalid("detection.quantiles", "at least one quantile is required")
	}
	for _, q := range d.Quantiles {
		if math.IsNaN(q) || q <= 0 || q >= 1 {
			return invalid("detection.quantiles", "quantile %g must be in (0, 1)", q)
		}
	}
	if d.IMax < 1 || d.IMax > 255 {
		return invalid("detection.i_max", "%d must be in [1, 255]", d.IMax)
	}
	if d.OccurrenceN < 0 {
		return invalid("detection.occurrence_n", "must not be negative, got %d", d.OccurrenceN)
	}
	if !(d.MaxAbsDev > 0) {
		return invalid("detection.max_abs_dev", "must be positive, got %g", d.MaxAbsDev)
	}
	if !(d.LowessWindow > 0) {
		return invalid("detection.lowess_window", "must be positive, got %g", d.LowessWindow)
	}

	w := c.Window
	if w.OuterStart >= w.OuterEnd {
		return invalid("window.outer_start", "%v must be before outer_end %v", w.OuterStart, w.OuterEnd)
	}
	if w.InnerStart >= w.InnerEnd {
		return invalid("window.inner_start", "%v must be before inner_end %v", w.InnerStart, w.InnerEnd)
	}
	if w.Margin < 0 {
		return invalid("window.margin", "must not be negative, got %v", w.Margin)
	}
	if w.RollingWindow < 2 {
		return invalid("window.rolling_window", "must be at least 2 samples, got %d", w.RollingWindow)
	}

	f := c.Fitting
	if len(f.PeriodLimitsHr) != 2 {
		return invalid("fitting.period_limits_hr", "must be a [low, high] pair")
	}
	if lo, hi := f.PeriodLimitsHr[0], f.PeriodLimitsHr[1]; !(lo > 0) || !(lo < hi) {
		return invalid("fitting.period_limits_hr", "[%g, %g] must satisfy 0 < low < high", lo, hi)
	}
	if len(f.PeriodGuessesHr) == 0 {
		return invalid("fitting.period_guesses_hr", "at least one guess is required")
	}
	for _, g := range f.PeriodGuessesHr {
		if !(g > 0) {
			return invalid("fitting.period_guesses_hr", "guess %g must be positive", g)
		}
	}
	if f.PolyDegree < 0 {
		return invalid("fitting.poly_degree", "must not be negative, got %d", f.PolyDegree)
	}
	if f.Bandpass && f.FilterOrder < 1 {
		return invalid("fitting.filter_order", "must be positive, got %d", f.FilterOrder)
	}
	if f.MaxIterations < 1 {
		return invalid("fitting.max_iterations", "must be positive, got %d", f.MaxIterations)
	}
	for key, iv := range f.Criteria {
		if !knownCriterion(key) {
			return invalid("fitting.criteria", "unknown criterion %q", key)
		}
		if len(iv) != 2 {
			return invalid("fitting.criteria."+key, "must be a [low, high] pair")
		}
		if !(iv[0] < iv[1]) {
			return invalid("fitting.criteria."+key, "[%g, %g] is empty", iv[0], iv[1])
		}
	}
	return nil
}

func knownCriterion(key string) bool {
	for _, k := range CriteriaKeys {
		if k == key {
			return true
		}
	}
	return false
}
