package sinfit

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// State is the terminal state of a fit stage.
type State int

const (
	// StateFitted means at least one attempt converged.
	StateFitted State = iota
	// StateNoSuccess means the stage ran but no attempt converged.
	StateNoSuccess
	// StateFailed means the stage could not run at all.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateFitted:
		return "fitted"
	case StateNoSuccess:
		return "no_success"
	case StateFailed:
		return "failed"
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// MarshalText implements encoding.TextMarshaler.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *State) UnmarshalText(text []byte) error {
	for _, st := range []State{StateFitted, StateNoSuccess, StateFailed} {
		if st.String() == string(text) {
			*s = st
			return nil
		}
	}
	return fmt.Errorf("unknown fit state %q", text)
}

// Attempt records one solver run from one initial period guess.
type Attempt struct {
	GuessHr   float64 `json:"T_hr_guess" msgpack:"T_hr_guess"`
	Initial   Params  `json:"initial" msgpack:"initial"`
	Params    Params  `json:"params" msgpack:"params"`
	R2        float64 `json:"r2" msgpack:"r2"`
	Converged bool    `json:"converged" msgpack:"converged"`
	Selected  bool    `json:"selected" msgpack:"selected"`
	Err       string  `json:"error,omitempty" msgpack:"error,omitempty"`
}

// Outcome collects every attempt of a fit stage in guess order.
type Outcome struct {
	State    State     `json:"state" msgpack:"state"`
	Reason   string    `json:"reason,omitempty" msgpack:"reason,omitempty"`
	Attempts []Attempt `json:"attempts" msgpack:"attempts"`
	// Best indexes the selected attempt, or is -1.
	Best int `json:"best" msgpack:"best"`
}

// Failed returns the outcome of a stage that could not run.
func Failed(err error) *Outcome {
	return &Outcome{State: StateFailed, Reason: err.Error(), Best: -1}
}

// Selected returns the best attempt, if any.
func (o *Outcome) Selected() (Attempt, bool) {
	if o == nil || o.Best < 0 || o.Best >= len(o.Attempts) {
		return Attempt{}, false
	}
	return o.Attempts[o.Best], true
}

// Successful returns the converged attempts ordered as attempted.
func (o *Outcome) Successful() []Attempt {
	var out []Attempt
	for _, a := range o.Attempts {
		if a.Converged {
			out = append(out, a)
		}
	}
	return out
}

// DefaultGuesses returns initial periods of 1.0 to 4.0 hours in half hour
// steps.
func DefaultGuesses() []float64 {
	var g []float64
	for v := 1.0; v < 4.5; v += 0.5 {
		g = append(g, v)
	}
	return g
}

// FitAll fits the model to (t, y) once per period guess. t is in seconds.
// Attempts that do not converge are kept with Converged false. The attempt
// with the highest R² is marked Selected.
func FitAll(t, y, guessesHr []float64, settings Settings) *Outcome {
	if len(t) != len(y) {
		return Failed(fmt.Errorf("sinfit: len(t)=%d != len(y)=%d", len(t), len(y)))
	}
	if len(y) == 0 {
		return Failed(fmt.Errorf("sinfit: no samples to fit"))
	}

	amplitude := (floats.Max(y) - floats.Min(y)) / 2
	offset := stat.Mean(y, nil)

	residual := func(dst, x []float64) {
		p := paramsFrom(x)
		for i := range t {
			dst[i] = Sinusoid(t[i], p) - y[i]
		}
	}

	out := &Outcome{State: StateNoSuccess, Best: -1}
	for _, guess := range guessesHr {
		initial := Params{THr: guess, AmplitudeKm: amplitude, OffsetKm: offset}
		a := Attempt{GuessHr: guess, Initial: initial}

		v, err := LevenbergMarquardt(residual, len(y), initial.vector(), settings)
		if err != nil {
			a.Err = err.Error()
			out.Attempts = append(out.Attempts, a)
			continue
		}

		a.Params = paramsFrom(v)
		a.Params.AmplitudeKm = math.Abs(a.Params.AmplitudeKm)
		a.R2 = stat.RSquaredFrom(Eval(t, a.Params), y, nil)
		a.Converged = true
		out.Attempts = append(out.Attempts, a)

		i := len(out.Attempts) - 1
		if best := out.Best; best < 0 || a.R2 > out.Attempts[best].R2 || math.IsNaN(out.Attempts[best].R2) {
			out.Best = i
		}
	}

	if out.Best >= 0 {
		out.State = StateFitted
		out.Attempts[out.Best].Selected = true
	}
	return out
}
