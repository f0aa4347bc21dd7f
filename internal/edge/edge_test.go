package edge

import (
	"errors"
	"math"
	"testing"
)

func TestRobustMax(t *testing.T) {
	tests := []struct {
		name     string
		values   []int
		n        int
		expected int
		wantErr  bool
	}{
		{name: "n=0 is the true max", values: []int{3, 9, 1, 4, 9, 2}, n: 0, expected: 9},
		{name: "constant n=1", values: []int{7, 7, 7, 7}, n: 1, expected: 7},
		{name: "constant n=len", values: []int{7, 7, 7, 7}, n: 4, expected: 7},
		{name: "hot pixel skipped", values: []int{0, 1, 2, 3, 4, 5, 6, 7, 8, 9, 1000}, n: 2, expected: 9},
		{name: "cumulative count spans bins", values: []int{1, 1, 1, 5, 6}, n: 3, expected: 1},
		{name: "n larger than the array", values: []int{1, 2}, n: 3, wantErr: true},
		{name: "empty", values: nil, n: 0, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RobustMax(tt.values, tt.n)
			if (err != nil) != tt.wantErr {
				t.Fatalf("RobustMax() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.expected {
				t.Errorf("expected %d, got %d", tt.expected, got)
			}
		})
	}
}

func rampFrame(nRange, nTime int, scale float64) [][]float64 {
	frame := make([][]float64, nRange)
	for i := range frame {
		frame[i] = make([]float64, nTime)
		for j := range frame[i] {
			frame[i][j] = float64((i*nTime+j)%100) * scale
		}
	}
	return frame
}

func TestRescaleErrors(t *testing.T) {
	var cfgErr *ConfigError

	if _, err := Rescale(rampFrame(4, 50, 1), 1, 256); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for i_max=256, got %v", err)
	}

	big := rampFrame(4, 50, 1)
	big[2][3] = 70000
	if _, err := Rescale(big, 1, 30); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for 16bit overflow, got %v", err)
	}

	hot := rampFrame(4, 50, 1)
	hot[1][1] = 5000
	if _, err := Rescale(hot, 2, 30); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for output above 255, got %v", err)
	}

	flat := [][]float64{{5, 5, 5}, {5, 5, 5}}
	if _, err := Rescale(flat, 0, 30); !errors.As(err, &cfgErr) {
		t.Errorf("expected ConfigError for a flat frame, got %v", err)
	}
}

func TestRescaleRange(t *testing.T) {
	frame := rampFrame(5, 100, 2.5)
	for i := range frame {
		for j := range frame[i] {
			frame[i][j] += 40
		}
	}

	out, err := Rescale(frame, 1, 30)
	if err != nil {
		t.Fatalf("Rescale() error: %v", err)
	}
	lo, hi := 255, 0
	for _, row := range out {
		for _, v := range row {
			if v < lo {
				lo = v
			}
			if v > hi {
				hi = v
			}
		}
	}
	if lo != 0 {
		t.Errorf("expected minimum level 0, got %d", lo)
	}
	if hi != 30 {
		t.Errorf("expected maximum level 30, got %d", hi)
	}
}

func TestStackThresholds(t *testing.T) {
	frame := [][]int{
		{0, 0, 0, 0, 0},
		{1, 1, 0, 2, 1},
		{2, 2, 1, 2, 2},
	}

	tests := []struct {
		name     string
		opts     StackOptions
		expected [][]int
	}{
		{
			name: "min edge, not-equal test",
			opts: DefaultStackOptions(),
			expected: [][]int{
				{0, 0, 0, 0, 0},
				{1, 1, 2, 0, 1},
				{2, 2, 0, 1, 2},
			},
		},
		{
			name: "max edge, not-equal test",
			opts: StackOptions{SelectMin: false},
			expected: [][]int{
				{1, 1, 2, 1, 1},
				{0, 0, 0, 0, 0},
				{0, 0, 0, 0, 0},
			},
		},
		{
			name: "max edge, exact test",
			opts: StackOptions{SelectMin: false, Exact: true},
			expected: [][]int{
				{0, 0, 0, 0, 0},
				{0, 0, 0, 0, 0},
				{0, 0, 0, 0, 0},
			},
		},
		{
			name: "min edge, exact test",
			opts: StackOptions{SelectMin: true, Exact: true},
			expected: [][]int{
				{1, 1, 2, 1, 1},
				{2, 2, 0, 1, 2},
				{0, 0, 0, 0, 0},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stack, err := StackThresholds(frame, tt.opts)
			if err != nil {
				t.Fatalf("StackThresholds() error: %v", err)
			}
			if len(stack) != len(Levels(frame)) {
				t.Fatalf("expected %d levels, got %d", len(Levels(frame)), len(stack))
			}
			for i := range tt.expected {
				for j := range tt.expected[i] {
					if stack[i][j] != tt.expected[i][j] {
						t.Errorf("stack[%d][%d]: expected %d, got %d", i, j, tt.expected[i][j], stack[i][j])
					}
				}
			}
		})
	}
}

func TestStackThresholdsIndicesValid(t *testing.T) {
	frame := make([][]int, 12)
	for i := range frame {
		frame[i] = make([]int, 40)
		for j := range frame[i] {
			frame[i][j] = (i*7 + j*3) % 9
		}
	}
	stack, err := StackThresholds(frame, DefaultStackOptions())
	if err != nil {
		t.Fatal(err)
	}
	if len(stack) != 9 {
		t.Errorf("expected 9 distinct levels, got %d", len(stack))
	}
	for i := range stack {
		for j, idx := range stack[i] {
			if idx < 0 || idx >= len(frame) {
				t.Fatalf("stack[%d][%d] = %d is not a valid range index", i, j, idx)
			}
		}
	}
}

func TestStackThresholdsShapeMismatch(t *testing.T) {
	frame := make([][]int, 6)
	for i := range frame {
		frame[i] = []int{0, 1, 2}
	}
	var shapeErr *ShapeError
	if _, err := StackThresholds(frame, DefaultStackOptions()); !errors.As(err, &shapeErr) {
		t.Errorf("expected ShapeError for a frame with more range bins than time bins, got %v", err)
	}
}

func TestTakeQuantile(t *testing.T) {
	nan := math.NaN()
	stack := [][]float64{
		{1, 10, nan},
		{2, 20, nan},
		{3, 30, nan},
		{4, 40, nan},
		{5, nan, nan},
	}

	median, err := TakeQuantile(stack, 0.5)
	if err != nil {
		t.Fatalf("TakeQuantile() error: %v", err)
	}
	if median[0] != 3 {
		t.Errorf("expected median 3, got %f", median[0])
	}
	if median[1] != 25 {
		t.Errorf("expected median 25 ignoring NaN, got %f", median[1])
	}
	if !math.IsNaN(median[2]) {
		t.Errorf("expected NaN for an all-missing column, got %f", median[2])
	}

	lower, _ := TakeQuantile(stack, 0.25)
	if lower[0] != 2 {
		t.Errorf("expected 0.25 quantile 2, got %f", lower[0])
	}

	for _, q := range []float64{0, 1, -0.1, 1.5, nan} {
		var qErr *QuantileError
		if _, err := TakeQuantile(stack, q); !errors.As(err, &qErr) {
			t.Errorf("q=%v: expected QuantileError, got %v", q, err)
		}
	}
}

func TestLowessLine(t *testing.T) {
	n := 50
	x := make([]float64, n)
	y := make([]float64, n)
	for i := range x {
		x[i] = float64(i)
		y[i] = 3*float64(i) + 2
	}
	y[10] = math.NaN()

	z, err := Lowess(y, x, 0.2, LowessIterations)
	if err != nil {
		t.Fatalf("Lowess() error: %v", err)
	}
	for i := range z {
		if i == 10 {
			if !math.IsNaN(z[i]) {
				t.Errorf("expected NaN for dropped sample, got %f", z[i])
			}
			continue
		}
		if math.Abs(z[i]-y[i]) > 1e-8 {
			t.Errorf("point %d: expected %.4f, got %.4f", i, y[i], z[i])
		}
	}
}

func lineSmoother(trace []float64) ([]float64, error) {
	z := make([]float64, len(trace))
	for i := range z {
		z[i] = 100 + 0.5*float64(i)
	}
	return z, nil
}

func TestSmoothRemoveDeviation(t *testing.T) {
	trace := make([]float64, 200)
	for i := range trace {
		trace[i] = 100 + 0.5*float64(i) + 0.3*math.Sin(float64(i)*1.7)
	}
	trace[60] += 100
	trace[61] = math.NaN()

	z, err := SmoothRemoveDeviation(trace, lineSmoother, 20)
	if err != nil {
		t.Fatalf("SmoothRemoveDeviation() error: %v", err)
	}
	if len(z) != len(trace) {
		t.Fatalf("expected %d samples, got %d", len(trace), len(z))
	}
	for i, v := range z {
		line := 100 + 0.5*float64(i)
		if math.Abs(v-line) > 1e-6 {
			t.Errorf("point %d: expected %.2f, got %.4f", i, line, v)
		}
	}

	_, err = SmoothRemoveDeviation([]float64{math.NaN(), math.NaN()}, LowessSmoother(10), 20)
	if err == nil {
		t.Errorf("expected error for a trace with no samples")
	}
}

func TestSmoothRemoveDeviationFewKnots(t *testing.T) {
	trace := []float64{1, 500, 3, 500}
	z, err := SmoothRemoveDeviation(trace, func(tr []float64) ([]float64, error) {
		return []float64{1, 2, 3, 4}, nil
	}, 20)
	if err != nil {
		t.Fatalf("SmoothRemoveDeviation() error: %v", err)
	}
	expected := []float64{1, 2, 3, 3}
	for i := range expected {
		if math.Abs(z[i]-expected[i]) > 1e-9 {
			t.Errorf("point %d: expected %.2f, got %.4f", i, expected[i], z[i])
		}
	}
}

func TestFitSplineRejectsBadKnots(t *testing.T) {
	tests := []struct {
		name string
		xs   []float64
		ys   []float64
	}{
		{name: "cubic, repeated knot", xs: []float64{0, 1, 1, 2, 3}, ys: []float64{0, 1, 2, 3, 4}},
		{name: "linear, descending", xs: []float64{2, 1}, ys: []float64{0, 1}},
		{name: "mismatched lengths", xs: []float64{0, 1, 2}, ys: []float64{0, 1}},
		{name: "no knots", xs: nil, ys: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := fitSpline(tt.xs, tt.ys); err == nil {
				t.Errorf("expected an error")
			}
		})
	}

	p, err := fitSpline([]float64{0, 1, 2, 3, 4}, []float64{0, 2, 4, 6, 8})
	if err != nil {
		t.Fatalf("fitSpline() error: %v", err)
	}
	if got := p.Predict(2.5); math.Abs(got-5) > 1e-9 {
		t.Errorf("expected 5 on a straight line, got %f", got)
	}
}

func TestSelectMinDeviation(t *testing.T) {
	n := 300
	low := make([]float64, n)
	high := make([]float64, n)
	seed := uint32(12345)
	for i := 0; i < n; i++ {
		base := 50 + 10*math.Sin(2*math.Pi*float64(i)/100)
		seed = seed*1664525 + 1013904223
		jitter := float64(seed>>8)/float64(1<<24)*2 - 1
		low[i] = base + 0.2*math.Sin(float64(i)*2.3)
		high[i] = base + 12*jitter
	}

	sel, err := SelectMinDeviation([][]float64{high, low}, LowessSmoother(10), 20)
	if err != nil {
		t.Fatalf("SelectMinDeviation() error: %v", err)
	}
	if sel.Index != 1 {
		t.Errorf("expected the low-noise candidate (1), got %d (deviation %.3f)", sel.Index, sel.Deviation)
	}
	if sel.Deviation > 1 {
		t.Errorf("expected a small deviation for the low-noise trace, got %.3f", sel.Deviation)
	}
}

func TestMeasureThresholds(t *testing.T) {
	nRange, nTime := 40, 120
	frame := make([][]float64, nRange)
	for r := range frame {
		frame[r] = make([]float64, nTime)
		level := math.Min(math.Max(float64(r-15), 0), 20)
		for c := range frame[r] {
			frame[r][c] = level * 5
		}
	}

	m, err := MeasureThresholds(frame, DefaultMeasureOptions())
	if err != nil {
		t.Fatalf("MeasureThresholds() error: %v", err)
	}
	if m.Levels != 21 {
		t.Errorf("expected 21 intensity levels, got %d", m.Levels)
	}
	if len(m.Candidates) != 3 {
		t.Fatalf("expected one candidate per quantile, got %d", len(m.Candidates))
	}

	expected := []float64{23.6, 25.5, 27.4}
	for i, want := range expected {
		for c, v := range m.Candidates[i] {
			if math.Abs(v-want) > 1e-9 {
				t.Fatalf("candidate %d column %d: expected %.2f, got %.4f", i, c, want, v)
			}
		}
	}

	sel := m.Selection
	for c := range sel.Raw {
		if sel.Raw[c] != m.Candidates[sel.Index][c] {
			t.Fatalf("selection raw trace does not match candidate %d", sel.Index)
		}
		if math.Abs(sel.Corrected[c]-sel.Raw[c]) > 1e-6 {
			t.Fatalf("column %d: corrected %.4f differs from raw %.4f", c, sel.Corrected[c], sel.Raw[c])
		}
	}

	bad := DefaultMeasureOptions()
	bad.Quantiles = []float64{0.5, 1}
	var qErr *QuantileError
	if _, err := MeasureThresholds(frame, bad); !errors.As(err, &qErr) {
		t.Errorf("expected QuantileError, got %v", err)
	}
}

func TestScaleKm(t *testing.T) {
	ranges := []float64{100, 110, 120, 130, 140}
	got := ScaleKm([]float64{0, 2.5, 5, math.NaN()}, ranges)
	expected := []float64{100, 120, 140}
	for i := range expected {
		if math.Abs(got[i]-expected[i]) > 1e-12 {
			t.Errorf("point %d: expected %.2f, got %.2f", i, expected[i], got[i])
		}
	}
	if !math.IsNaN(got[3]) {
		t.Errorf("expected NaN to stay NaN, got %f", got[3])
	}
}
