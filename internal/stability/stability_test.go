package stability

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/hamsci/lstid-detect/internal/timeseries"
)

func TestIslands(t *testing.T) {
	tests := []struct {
		name     string
		mask     []int
		expected []Island
	}{
		{
			name: "mixed runs",
			mask: []int{0, 1, 1, 0, 1, 0, 0, 1, 1, 1},
			expected: []Island{
				{Start: 1, End: 2, Len: 2},
				{Start: 4, End: 4, Len: 1},
				{Start: 7, End: 9, Len: 3},
			},
		},
		{
			name:     "all true",
			mask:     []int{1, 1, 1},
			expected: []Island{{Start: 0, End: 2, Len: 3}},
		},
		{
			name:     "all false",
			mask:     []int{0, 0, 0},
			expected: nil,
		},
		{
			name:     "empty",
			mask:     nil,
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mask := make([]bool, len(tt.mask))
			for i, v := range tt.mask {
				mask[i] = v == 1
			}
			got := Islands(mask)
			if len(got) != len(tt.expected) {
				t.Fatalf("expected %d islands, got %d: %+v", len(tt.expected), len(got), got)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("island %d: expected %+v, got %+v", i, tt.expected[i], got[i])
				}
			}
		})
	}
}

func TestLongest(t *testing.T) {
	islands := []Island{{0, 2, 3}, {5, 7, 3}, {9, 9, 1}}
	if got := Longest(islands); got != 0 {
		t.Errorf("expected first island on ties, got %d", got)
	}
	if got := Longest(nil); got != -1 {
		t.Errorf("expected -1 for no islands, got %d", got)
	}
}

func TestRollingCV(t *testing.T) {
	values := []float64{2, 4, 6, 0, 0, 0, -3, -3, -2}
	cv := RollingCV(values, 3)

	for i := 0; i < 2; i++ {
		if !math.IsNaN(cv[i]) {
			t.Errorf("point %d: expected NaN before the window fills, got %f", i, cv[i])
		}
	}
	// window {2,4,6}: mean 4, sample std 2
	if math.Abs(cv[2]-0.5) > 1e-12 {
		t.Errorf("point 2: expected 0.5, got %f", cv[2])
	}
	// window {0,0,0}: 0/0
	if !math.IsNaN(cv[5]) {
		t.Errorf("point 5: expected NaN for zero mean and zero spread, got %f", cv[5])
	}

	mask := StableMask(cv, 0.05)
	if mask[0] || mask[5] {
		t.Errorf("NaN entries must not be stable")
	}
	// negative mean gives a negative ratio, which compares below the threshold
	if !mask[8] {
		t.Errorf("point 8: expected negative CV %f to be marked stable", cv[8])
	}

	withGap := RollingCV([]float64{1, math.NaN(), 1, 1, 1}, 3)
	if !math.IsNaN(withGap[2]) || !math.IsNaN(withGap[3]) || math.IsNaN(withGap[4]) {
		t.Errorf("windows touching NaN should be NaN, got %v", withGap)
	}
}

func minuteSeries(start time.Time, values []float64) timeseries.Series {
	times := make([]time.Time, len(values))
	for i := range times {
		times[i] = start.Add(time.Duration(i) * time.Minute)
	}
	return timeseries.Series{Times: times, Values: values}
}

func TestFindWindow(t *testing.T) {
	date := time.Date(2017, 11, 3, 0, 0, 0, 0, time.UTC)
	outerStart := date.Add(12 * time.Hour)
	innerStart := date.Add(13 * time.Hour)
	innerEnd := date.Add(23 * time.Hour)

	t.Run("stable run inside margins", func(t *testing.T) {
		values := make([]float64, 12*60+1)
		for i := range values {
			values[i] = 100 + 40*float64(i%2)
		}
		// steady from 15:00 to 18:00
		for i := 180; i <= 360; i++ {
			values[i] = 100
		}
		a, err := FindWindow(minuteSeries(outerStart, values), innerStart, innerEnd, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if a.Window.Fallback {
			t.Fatalf("expected a stable window, got fallback")
		}
		wantStart := outerStart.Add(194 * time.Minute)
		wantEnd := outerStart.Add(360 * time.Minute)
		if !a.Window.Start.Equal(wantStart) || !a.Window.End.Equal(wantEnd) {
			t.Errorf("expected [%v, %v], got [%v, %v]", wantStart, wantEnd, a.Window.Start, a.Window.End)
		}
	})

	t.Run("clamped to margins", func(t *testing.T) {
		values := make([]float64, 12*60+1)
		for i := range values {
			values[i] = 100
		}
		a, err := FindWindow(minuteSeries(outerStart, values), innerStart, innerEnd, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		wantStart := innerStart.Add(30 * time.Minute)
		wantEnd := innerEnd.Add(-30 * time.Minute)
		if !a.Window.Start.Equal(wantStart) || !a.Window.End.Equal(wantEnd) {
			t.Errorf("expected [%v, %v], got [%v, %v]", wantStart, wantEnd, a.Window.Start, a.Window.End)
		}
		if a.Window.Fallback {
			t.Errorf("did not expect fallback")
		}
	})

	t.Run("nothing stable falls back", func(t *testing.T) {
		values := make([]float64, 12*60+1)
		for i := range values {
			values[i] = 100 + 40*float64(i%2)
		}
		a, err := FindWindow(minuteSeries(outerStart, values), innerStart, innerEnd, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		if !a.Window.Fallback || a.Window.Island != nil {
			t.Errorf("expected fallback window, got %+v", a.Window)
		}
		if !a.Window.Start.Equal(innerStart.Add(30 * time.Minute)) {
			t.Errorf("unexpected fallback start %v", a.Window.Start)
		}
	})

	t.Run("empty trace", func(t *testing.T) {
		_, err := FindWindow(timeseries.Series{}, innerStart, innerEnd, DefaultOptions())
		if !errors.Is(err, ErrNoSamples) {
			t.Errorf("expected ErrNoSamples, got %v", err)
		}
	})
}
