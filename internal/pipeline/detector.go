package pipeline

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hamsci/lstid-detect/internal/heatmap"
	"github.com/hamsci/lstid-detect/pkg/config"
)

// Detector fetches frames from a provider and runs Process on them.
type Detector struct {
	provider heatmap.Provider
	cfg      *config.ConfigData
	logger   *zap.SugaredLogger
}

// NewDetector creates a detector. cfg is copied; a nil cfg uses the
// defaults.
func NewDetector(provider heatmap.Provider, cfg *config.ConfigData, logger *zap.SugaredLogger) *Detector {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Detector{
		provider: provider,
		cfg:      cfg.Clone(),
		logger:   logger,
	}
}

// Run processes date. A date without a frame is not an error: the report
// carries a NoData entry instead of a Result.
func (d *Detector) Run(ctx context.Context, date time.Time) (Report, error) {
	day := date.Format("2006-01-02")

	frame, ok, err := d.provider.Frame(ctx, date)
	if err != nil {
		return Report{}, fmt.Errorf("failed to fetch heatmap for %s: %w", day, err)
	}
	if !ok {
		d.logger.Warnw("no heatmap for date", "date", day)
		return Report{NoData: &NoData{
			Date:       date,
			Diagnostic: fmt.Sprintf("date %s has no input", day),
		}}, nil
	}

	start := time.Now()
	res, err := Process(date, frame, d.cfg)
	if err != nil {
		return Report{}, fmt.Errorf("detection failed for %s: %w", day, err)
	}

	fields := []interface{}{
		"date", day,
		"elapsed", time.Since(start),
		"fit_state", res.Fit.State,
		"fit_window_start", res.FitWindow.Start.Format(time.RFC3339),
		"fit_window_end", res.FitWindow.End.Format(time.RFC3339),
	}
	if best, ok := res.Fit.Selected(); ok {
		fields = append(fields,
			"period_hr", best.Params.THr,
			"amplitude_km", best.Params.AmplitudeKm,
			"r2", best.R2,
		)
	}
	if res.FitWindow.Fallback {
		d.logger.Debugw("no stable island inside the analysis window, fitting the whole window", "date", day)
	}
	d.logger.Infow("detection complete", append(fields, "is_lstid", res.IsLSTID())...)
	return Report{Result: res}, nil
}
