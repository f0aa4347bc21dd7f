package edge

import "fmt"

// ConfigError reports a parameter or data value outside the range the
// detector supports. Processing of the date must stop.
type ConfigError struct {
	Param      string
	Value      float64
	Constraint string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s = %g violates constraint: %s", e.Param, e.Value, e.Constraint)
}

// QuantileError reports a quantile outside the open interval (0, 1).
type QuantileError struct {
	Q float64
}

func (e *QuantileError) Error() string {
	return fmt.Sprintf("quantile must be between 0 and 1, noninclusive, not %g", e.Q)
}

// ShapeError reports a threshold edge whose largest dimension does not match
// the largest dimension of the rescaled frame. It indicates the frame was
// handed over in the wrong orientation.
type ShapeError struct {
	EdgeShape  [2]int
	FrameShape [2]int
}

func (e *ShapeError) Error() string {
	return fmt.Sprintf("expected largest dim of threshold edge (shape %v) to match largest dim of frame (shape %v)",
		e.EdgeShape, e.FrameShape)
}
