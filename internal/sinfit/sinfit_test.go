package sinfit

import (
	"math"
	"testing"
)

func TestSinusoidPureSine(t *testing.T) {
	p := Params{THr: 2.5, AmplitudeKm: 50}
	for _, sec := range []float64{0, 1000, 45000, 80000.5} {
		expected := 50 * math.Sin(2*math.Pi*sec/(2.5*3600))
		if got := Sinusoid(sec, p); math.Abs(got-expected) > 1e-9 {
			t.Errorf("t=%.1f: expected %.6f, got %.6f", sec, expected, got)
		}
		neg := p
		neg.AmplitudeKm = -50
		if got := Sinusoid(sec, neg); math.Abs(got-expected) > 1e-9 {
			t.Errorf("t=%.1f: negative amplitude should evaluate as |A|, got %.6f", sec, got)
		}
	}

	// a phase of a quarter period is a quarter cycle
	q := Params{THr: 2, AmplitudeKm: 1, PhaseHr: 0.5}
	if got := Sinusoid(0, q); math.Abs(got-1) > 1e-12 {
		t.Errorf("expected 1 at t=0 with quarter period phase, got %f", got)
	}

	drift := Params{THr: 1, AmplitudeKm: 0, OffsetKm: 10, SlopeKmph: 36}
	if got := Sinusoid(3600, drift); math.Abs(got-46) > 1e-12 {
		t.Errorf("expected 46 km after one hour of drift, got %f", got)
	}
}

func TestDefaultGuesses(t *testing.T) {
	expected := []float64{1, 1.5, 2, 2.5, 3, 3.5, 4}
	got := DefaultGuesses()
	if len(got) != len(expected) {
		t.Fatalf("expected %d guesses, got %v", len(expected), got)
	}
	for i := range expected {
		if got[i] != expected[i] {
			t.Errorf("guess %d: expected %.1f, got %.1f", i, expected[i], got[i])
		}
	}
}

func syntheticTrace(truth Params) (tSec, y []float64) {
	for sec := 13.0 * 3600; sec < 22*3600; sec += 60 {
		tSec = append(tSec, sec)
		y = append(y, Sinusoid(sec, truth))
	}
	return tSec, y
}

func TestFitAllRecoversParameters(t *testing.T) {
	truth := Params{THr: 2.5, AmplitudeKm: 50}
	tSec, y := syntheticTrace(truth)

	out := FitAll(tSec, y, DefaultGuesses(), DefaultSettings())
	if out.State != StateFitted {
		t.Fatalf("expected fitted state, got %v (%s)", out.State, out.Reason)
	}
	if len(out.Attempts) != len(DefaultGuesses()) {
		t.Fatalf("expected one attempt per guess, got %d", len(out.Attempts))
	}

	selected := 0
	for i, a := range out.Attempts {
		if a.GuessHr != DefaultGuesses()[i] {
			t.Errorf("attempt %d: expected guess %.1f, got %.1f", i, DefaultGuesses()[i], a.GuessHr)
		}
		if a.Selected {
			selected++
		}
	}
	if selected != 1 {
		t.Errorf("expected exactly one selected attempt, got %d", selected)
	}

	best, ok := out.Selected()
	if !ok {
		t.Fatal("expected a selected attempt")
	}
	if math.Abs(best.Params.THr-2.5)/2.5 > 0.05 {
		t.Errorf("expected period 2.5 ± 5%%, got %.3f", best.Params.THr)
	}
	if math.Abs(best.Params.AmplitudeKm-50)/50 > 0.05 {
		t.Errorf("expected amplitude 50 ± 5%%, got %.3f", best.Params.AmplitudeKm)
	}
	if best.R2 < 0.99 {
		t.Errorf("expected R² near 1, got %.4f", best.R2)
	}
	for _, a := range out.Successful() {
		if a.R2 > best.R2 {
			t.Errorf("attempt from guess %.1f has R² %.4f above the selected %.4f", a.GuessHr, a.R2, best.R2)
		}
	}
}

func TestFitAllNoSuccess(t *testing.T) {
	tSec, y := syntheticTrace(Params{THr: 2.5, AmplitudeKm: 50})
	settings := DefaultSettings()
	settings.MaxIterations = 0

	out := FitAll(tSec, y, DefaultGuesses(), settings)
	if out.State != StateNoSuccess {
		t.Fatalf("expected no_success, got %v", out.State)
	}
	if _, ok := out.Selected(); ok {
		t.Errorf("expected no selected attempt")
	}
	for _, a := range out.Attempts {
		if a.Converged || a.Err == "" {
			t.Errorf("guess %.1f: expected a failed attempt with a reason, got %+v", a.GuessHr, a)
		}
	}
}

func TestFitAllFailed(t *testing.T) {
	out := FitAll(nil, nil, DefaultGuesses(), DefaultSettings())
	if out.State != StateFailed || out.Reason == "" {
		t.Errorf("expected failed state with a reason, got %+v", out)
	}
	if len(out.Attempts) != 0 {
		t.Errorf("expected no attempts, got %d", len(out.Attempts))
	}
}

func TestStateText(t *testing.T) {
	for _, st := range []State{StateFitted, StateNoSuccess, StateFailed} {
		text, _ := st.MarshalText()
		var back State
		if err := back.UnmarshalText(text); err != nil || back != st {
			t.Errorf("state %v: round trip gave %v, %v", st, back, err)
		}
	}
	var s State
	if err := s.UnmarshalText([]byte("bogus")); err == nil {
		t.Errorf("expected error for unknown state")
	}
}

func TestResolveCriteria(t *testing.T) {
	overrides := map[string]Interval{KeyAmplitude: {Low: 30, High: 100}}
	c, err := ResolveCriteria([2]float64{1, 4.5}, overrides)
	if err != nil {
		t.Fatal(err)
	}
	if len(overrides) != 1 {
		t.Errorf("overrides were modified: %v", overrides)
	}

	tests := []struct {
		key      string
		expected Interval
	}{
		{KeyPeriod, Interval{1, 4.5}},
		{KeyAmplitude, Interval{30, 100}},
		{KeyR2, Interval{0.35, 1.1}},
	}
	for _, tt := range tests {
		got, ok := c.Interval(tt.key)
		if !ok || got != tt.expected {
			t.Errorf("%s: expected %+v, got %+v", tt.key, tt.expected, got)
		}
	}
	if len(c.Keys()) != 3 {
		t.Errorf("expected 3 criteria, got %v", c.Keys())
	}

	m := c.Map()
	m[KeyR2] = Interval{0, 0}
	if iv, _ := c.Interval(KeyR2); iv.Low != 0.35 {
		t.Errorf("Map() must return a copy")
	}

	if _, err := ResolveCriteria([2]float64{1, 4.5}, map[string]Interval{"period": {1, 2}}); err == nil {
		t.Errorf("expected error for unknown criterion")
	}
}

func TestClassify(t *testing.T) {
	c, _ := ResolveCriteria([2]float64{1, 4.5}, nil)

	tests := []struct {
		name     string
		params   Params
		r2       float64
		expected bool
	}{
		{name: "typical positive", params: Params{THr: 2.5, AmplitudeKm: 60}, r2: 0.8, expected: true},
		{name: "period at lower bound", params: Params{THr: 1, AmplitudeKm: 60}, r2: 0.8, expected: true},
		{name: "period at upper bound", params: Params{THr: 4.5, AmplitudeKm: 60}, r2: 0.8, expected: false},
		{name: "amplitude at lower bound", params: Params{THr: 2, AmplitudeKm: 20}, r2: 0.8, expected: true},
		{name: "amplitude too small", params: Params{THr: 2, AmplitudeKm: 19.9}, r2: 0.8, expected: false},
		{name: "poor fit", params: Params{THr: 2, AmplitudeKm: 60}, r2: 0.3, expected: false},
		{name: "NaN R²", params: Params{THr: 2, AmplitudeKm: 60}, r2: math.NaN(), expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Classify(tt.params, tt.r2)
			if got.IsLSTID != tt.expected {
				t.Errorf("expected %v, got %v (checks %v)", tt.expected, got.IsLSTID, got.Checks)
			}
			if len(got.Checks) != 3 {
				t.Errorf("expected 3 checks, got %d", len(got.Checks))
			}
		})
	}

	slope, _ := ResolveCriteria([2]float64{1, 4.5}, map[string]Interval{KeySlope: {Low: -5, High: 5}})
	if slope.Classify(Params{THr: 2, AmplitudeKm: 60, SlopeKmph: 10}, 0.9).IsLSTID {
		t.Errorf("expected slope criterion to reject")
	}
}
