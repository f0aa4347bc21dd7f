// Package pipeline runs LSTID detection for one date: edge detection on the
// heatmap frame, stability windowing, detrending, sinusoid fitting and
// classification.
package pipeline

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/hamsci/lstid-detect/internal/detrend"
	"github.com/hamsci/lstid-detect/internal/edge"
	"github.com/hamsci/lstid-detect/internal/heatmap"
	"github.com/hamsci/lstid-detect/internal/sinfit"
	"github.com/hamsci/lstid-detect/internal/stability"
	"github.com/hamsci/lstid-detect/internal/timeseries"
	"github.com/hamsci/lstid-detect/pkg/config"
)

// Process runs the detector on frame for date. It reads only its arguments
// and may be called concurrently. A nil cfg uses config.DefaultConfig().
//
// Edge detection and configuration problems are returned as errors. Fit
// problems are not: they are reported through Result.Fit.
func Process(date time.Time, frame *heatmap.Frame, cfg *config.ConfigData) (*Result, error) {
	if frame == nil {
		return nil, errors.New("pipeline: nil frame")
	}
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if err := frame.Validate(); err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}

	day := midnight(date)
	det, win, fit := cfg.Detection, cfg.Window, cfg.Fitting

	trimmed, err := frame.Trim(det.XTrim.Left, det.XTrim.Right, det.YTrim.Left, det.YTrim.Right)
	if err != nil {
		return nil, fmt.Errorf("pipeline: trim: %w", err)
	}
	ts := trimmed.MeanPeriod()
	if ts <= 0 {
		return nil, fmt.Errorf("pipeline: need at least two time bins after trimming, got %d", len(trimmed.Times))
	}
	processed := &heatmap.Frame{
		Data:     trimmed.Preprocess(det.Sigma),
		RangesKm: trimmed.RangesKm,
		Times:    trimmed.Times,
	}

	m, err := edge.MeasureThresholds(processed.Data, measureOptions(det))
	if err != nil {
		return nil, fmt.Errorf("pipeline: edge detection: %w", err)
	}

	res := &Result{
		Date:             date,
		Frame:            processed,
		SelectedQuantile: det.Quantiles[m.Selection.Index],
	}
	for i, line := range m.Candidates {
		res.Candidates = append(res.Candidates, Candidate{
			Quantile: det.Quantiles[i],
			Edge:     kmSeries(processed, line),
		})
	}
	res.DetectedEdge = kmSeries(processed, m.Selection.Raw).FillGaps()
	res.CorrectedEdge = kmSeries(processed, m.Selection.Corrected)

	x0, x1 := day.Add(win.OuterStart), day.Add(win.OuterEnd)
	w0, w1 := day.Add(win.InnerStart), day.Add(win.InnerEnd)

	inner := res.DetectedEdge.Between(w0, w1)
	if inner.Len() == 0 {
		return nil, fmt.Errorf("pipeline: frame has no samples in %s to %s: %w",
			w0.Format(time.RFC3339), w1.Format(time.RFC3339), stability.ErrNoSamples)
	}
	res.WindowLimits, err = inner.Resample(timeseries.Grid(x0, x1, ts))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.SGEdge = res.WindowLimits.ZeroOutside(w0, w1)

	analysis, err := stability.FindWindow(res.WindowLimits, w0, w1, stability.Options{
		RollingWindow: win.RollingWindow,
		Threshold:     win.StabilityThreshold,
		Margin:        win.Margin,
	})
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	res.Stability = analysis.CV
	res.FitWindow = analysis.Window

	data := res.SGEdge.Between(res.FitWindow.Start, res.FitWindow.End)
	tt := data.SecondsSince(day)

	res.Fit = fitStage(res, data, tt, ts, fit)

	criteria, err := sinfit.ResolveCriteria(fit.PeriodLimits(), criteriaOverrides(fit.Criteria))
	if err != nil {
		return nil, fmt.Errorf("pipeline: %w", err)
	}
	if best, ok := res.Fit.Selected(); ok {
		res.SinFit = timeseries.Series{Times: data.Times, Values: sinfit.Eval(tt, best.Params)}
		c := criteria.Classify(best.Params, best.R2)
		res.Classification = &c
	} else {
		res.SinFit = timeseries.Filled(data.Times, math.NaN())
	}

	echo := cfg.Clone()
	echo.Storage = config.StorageData{}
	res.Metadata = Metadata{
		Date:           date,
		Config:         echo,
		XLim:           [2]time.Time{x0, x1},
		WinLim:         [2]time.Time{w0, w1},
		FitWinLim:      [2]time.Time{res.FitWindow.Start, res.FitWindow.End},
		Criteria:       criteria.Map(),
		SamplingPeriod: ts,
	}
	return res, nil
}

// fitStage detrends data and fits the sinusoid, filling the detrend fields
// of res. Any failure before fitting yields a failed outcome with no
// attempts.
func fitStage(res *Result, data timeseries.Series, tt []float64, ts time.Duration, fit config.FittingData) *sinfit.Outcome {
	nan := timeseries.Filled(data.Times, math.NaN())
	res.PolyFit, res.Detrended = nan, nan.Copy()

	if data.Len() == 0 {
		return sinfit.Failed(errors.New("no samples in fit window"))
	}

	d, err := detrend.Apply(tt, data.Values, ts, detrend.Options{
		Degree:         fit.PolyDegree,
		Bandpass:       fit.Bandpass,
		FilterOrder:    fit.FilterOrder,
		PeriodLimitsHr: fit.PeriodLimits(),
	})
	if err != nil {
		return sinfit.Failed(err)
	}

	res.Poly = d.Poly
	res.PolyFit = timeseries.Series{Times: data.Times, Values: d.Baseline}
	if d.Filtered != nil {
		res.Bandpassed = &timeseries.Series{Times: data.Times, Values: d.Filtered}
	}
	res.Detrended = timeseries.Series{Times: data.Times, Values: d.Signal}

	settings := sinfit.DefaultSettings()
	settings.MaxIterations = fit.MaxIterations
	return sinfit.FitAll(tt, d.Signal, fit.PeriodGuessesHr, settings)
}

func midnight(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

func kmSeries(f *heatmap.Frame, trace []float64) timeseries.Series {
	return timeseries.Series{
		Times:  append([]time.Time(nil), f.Times...),
		Values: edge.ScaleKm(trace, f.RangesKm),
	}
}

func measureOptions(d config.DetectionData) edge.MeasureOptions {
	return edge.MeasureOptions{
		Quantiles:    append([]float64(nil), d.Quantiles...),
		LowerCutoff:  d.LowerCutoff,
		OccurrenceN:  d.OccurrenceN,
		IMax:         d.IMax,
		MaxAbsDev:    d.MaxAbsDev,
		LowessWindow: d.LowessWindow,
		Stack: edge.StackOptions{
			SelectMin: d.SelectMin,
			Exact:     d.ExactThreshold,
		},
	}
}

func criteriaOverrides(c map[string][]float64) map[string]sinfit.Interval {
	if len(c) == 0 {
		return nil
	}
	out := make(map[string]sinfit.Interval, len(c))
	for k, v := range c {
		// pairs are checked by config.Validate
		out[k] = sinfit.Interval{Low: v[0], High: v[1]}
	}
	return out
}
