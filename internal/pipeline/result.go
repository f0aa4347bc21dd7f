package pipeline

import (
	"time"

	"github.com/hamsci/lstid-detect/internal/detrend"
	"github.com/hamsci/lstid-detect/internal/heatmap"
	"github.com/hamsci/lstid-detect/internal/sinfit"
	"github.com/hamsci/lstid-detect/internal/stability"
	"github.com/hamsci/lstid-detect/internal/timeseries"
	"github.com/hamsci/lstid-detect/pkg/config"
)

// Candidate is the edge taken at one quantile of the threshold stack.
type Candidate struct {
	Quantile float64           `json:"quantile" msgpack:"quantile"`
	Edge     timeseries.Series `json:"edge" msgpack:"edge"`
}

// Result bundles every artifact produced for one date. It is built once by
// Process and not modified afterwards. Edge series are in kilometres.
type Result struct {
	Date time.Time `json:"date" msgpack:"date"`

	Frame      *heatmap.Frame `json:"frame" msgpack:"frame"`
	Candidates []Candidate    `json:"candidates" msgpack:"candidates"`

	SelectedQuantile float64 `json:"selected_quantile" msgpack:"selected_quantile"`
	// DetectedEdge is the selected candidate with gaps filled.
	DetectedEdge timeseries.Series `json:"detected_edge" msgpack:"detected_edge"`
	// CorrectedEdge is the selected candidate after outlier replacement.
	CorrectedEdge timeseries.Series `json:"corrected_edge" msgpack:"corrected_edge"`
	// WindowLimits is the inner window part of DetectedEdge resampled onto
	// the outer window grid.
	WindowLimits timeseries.Series `json:"window_limits" msgpack:"window_limits"`
	// SGEdge is WindowLimits with samples outside the inner window zeroed.
	SGEdge timeseries.Series `json:"sg_edge" msgpack:"sg_edge"`

	Stability timeseries.Series `json:"stability" msgpack:"stability"`
	FitWindow stability.Window  `json:"fit_window" msgpack:"fit_window"`

	Poly       *detrend.Polynomial `json:"poly,omitempty" msgpack:"poly,omitempty"`
	PolyFit    timeseries.Series   `json:"poly_fit" msgpack:"poly_fit"`
	Bandpassed *timeseries.Series  `json:"bandpassed,omitempty" msgpack:"bandpassed,omitempty"`
	// Detrended is the series the sinusoid was fitted to: band-passed when
	// enabled, polynomial residual otherwise.
	Detrended timeseries.Series `json:"detrended" msgpack:"detrended"`

	Fit *sinfit.Outcome `json:"fit" msgpack:"fit"`
	// SinFit is the selected sinusoid on the fit window, NaN when no
	// attempt succeeded.
	SinFit         timeseries.Series      `json:"sin_fit" msgpack:"sin_fit"`
	Classification *sinfit.Classification `json:"classification,omitempty" msgpack:"classification,omitempty"`

	Metadata Metadata `json:"metadata" msgpack:"metadata"`
}

// IsLSTID reports the day's classification. A day without a successful fit
// is not an LSTID day.
func (r *Result) IsLSTID() bool {
	return r != nil && r.Classification != nil && r.Classification.IsLSTID
}

// Metadata echoes the configuration and the derived limits used for a run.
type Metadata struct {
	Date           time.Time                  `json:"date" msgpack:"date"`
	Config         *config.ConfigData         `json:"config" msgpack:"config"`
	XLim           [2]time.Time               `json:"xlim" msgpack:"xlim"`
	WinLim         [2]time.Time               `json:"winlim" msgpack:"winlim"`
	FitWinLim      [2]time.Time               `json:"fit_win_lim" msgpack:"fit_win_lim"`
	Criteria       map[string]sinfit.Interval `json:"criteria" msgpack:"criteria"`
	SamplingPeriod time.Duration              `json:"sampling_period" msgpack:"sampling_period"`
}

// NoData is returned in place of a Result when the provider has no frame for
// the date.
type NoData struct {
	Date       time.Time `json:"date" msgpack:"date"`
	Diagnostic string    `json:"diagnostic" msgpack:"diagnostic"`
}

// Report is the outcome of one Detector run. Exactly one field is set.
type Report struct {
	Result *Result `json:"result,omitempty" msgpack:"result,omitempty"`
	NoData *NoData `json:"no_data,omitempty" msgpack:"no_data,omitempty"`
}
