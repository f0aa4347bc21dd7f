package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigProvider defines the interface for configuration data sources
type ConfigProvider interface {
	// Load complete configuration, with defaults applied and validated
	LoadConfig() (*ConfigData, error)

	IsReadOnly() bool
	Close() error
}

// ConfigData represents the complete configuration structure
type ConfigData struct {
	Heatmaps  HeatmapData   `json:"heatmaps" yaml:"heatmaps"`
	Detection DetectionData `json:"detection" yaml:"detection"`
	Window    WindowData    `json:"window" yaml:"window"`
	Fitting   FittingData   `json:"fitting" yaml:"fitting"`
	Storage   StorageData   `json:"storage,omitempty" yaml:"storage,omitempty"`
}

// HeatmapData locates the per-date frame cache
type HeatmapData struct {
	CacheDir string `json:"cache_dir" yaml:"cache_dir"`
}

// DetectionData holds the frame pre-processing and edge detection knobs
type DetectionData struct {
	XTrim          Trim      `json:"x_trim" yaml:"x_trim"`
	YTrim          Trim      `json:"y_trim" yaml:"y_trim"`
	Sigma          float64   `json:"sigma" yaml:"sigma"`
	Quantiles      []float64 `json:"quantiles" yaml:"quantiles"`
	OccurrenceN    int       `json:"occurrence_n" yaml:"occurrence_n"`
	IMax           int       `json:"i_max" yaml:"i_max"`
	LowerCutoff    float64   `json:"lower_cutoff" yaml:"lower_cutoff"`
	MaxAbsDev      float64   `json:"max_abs_dev" yaml:"max_abs_dev"`
	LowessWindow   float64   `json:"lowess_window" yaml:"lowess_window"`
	SelectMin      bool      `json:"select_min" yaml:"select_min"`
	ExactThreshold bool      `json:"exact_threshold" yaml:"exact_threshold"`
}

// WindowData holds the analysis windows, as offsets from midnight, and the
// stability search parameters
type WindowData struct {
	OuterStart         time.Duration `json:"outer_start" yaml:"outer_start"`
	OuterEnd           time.Duration `json:"outer_end" yaml:"outer_end"`
	InnerStart         time.Duration `json:"inner_start" yaml:"inner_start"`
	InnerEnd           time.Duration `json:"inner_end" yaml:"inner_end"`
	Margin             time.Duration `json:"margin" yaml:"margin"`
	RollingWindow      int           `json:"rolling_window" yaml:"rolling_window"`
	StabilityThreshold float64       `json:"stability_threshold" yaml:"stability_threshold"`
}

// FittingData holds the detrend, band-pass, sinusoid fit and classification
// settings
type FittingData struct {
	PolyDegree      int                  `json:"poly_degree" yaml:"poly_degree"`
	Bandpass        bool                 `json:"bandpass" yaml:"bandpass"`
	FilterOrder     int                  `json:"filter_order" yaml:"filter_order"`
	PeriodLimitsHr  []float64            `json:"period_limits_hr" yaml:"period_limits_hr"`
	PeriodGuessesHr []float64            `json:"period_guesses_hr" yaml:"period_guesses_hr"`
	MaxIterations   int                  `json:"max_iterations" yaml:"max_iterations"`
	Criteria        map[string][]float64 `json:"criteria,omitempty" yaml:"criteria,omitempty"`
}

// StorageData holds the configuration for the result storage backends
type StorageData struct {
	SQLite      *SQLiteData      `json:"sqlite,omitempty" yaml:"sqlite,omitempty"`
	TimescaleDB *TimescaleDBData `json:"timescaledb,omitempty" yaml:"timescaledb,omitempty"`
}

type SQLiteData struct {
	Path string `json:"path" yaml:"path"`
}

type TimescaleDBData struct {
	ConnectionString string `json:"connection_string" yaml:"connection_string"`
}

// Trim is a pair of fractions removed from the start and end of an axis.
// In YAML it is either a scalar, used for both ends, or a [left, right]
// pair.
type Trim struct {
	Left  float64 `json:"left"`
	Right float64 `json:"right"`
}

// Symmetric returns a Trim removing f from both ends.
func Symmetric(f float64) Trim {
	return Trim{Left: f, Right: f}
}

// UnmarshalYAML accepts a scalar or a two element sequence.
func (t *Trim) UnmarshalYAML(value *yaml.Node) error {
	switch value.Kind {
	case yaml.ScalarNode:
		var f float64
		if err := value.Decode(&f); err != nil {
			return err
		}
		*t = Symmetric(f)
		return nil
	case yaml.SequenceNode:
		var pair []float64
		if err := value.Decode(&pair); err != nil {
			return err
		}
		if len(pair) != 2 {
			return fmt.Errorf("line %d: trim pair must have 2 entries, got %d", value.Line, len(pair))
		}
		*t = Trim{Left: pair[0], Right: pair[1]}
		return nil
	}
	return fmt.Errorf("line %d: trim must be a number or a [left, right] pair", value.Line)
}

// MarshalYAML writes a scalar when both ends match.
func (t Trim) MarshalYAML() (interface{}, error) {
	if t.Left == t.Right {
		return t.Left, nil
	}
	return []float64{t.Left, t.Right}, nil
}

// DefaultConfig returns the configuration the detector was tuned with.
func DefaultConfig() *ConfigData {
	return &ConfigData{
		Heatmaps: HeatmapData{CacheDir: "cache"},
		Detection: DetectionData{
			XTrim:          Symmetric(0.08333),
			YTrim:          Symmetric(0.08),
			Sigma:          4.2,
			Quantiles:      []float64{0.4, 0.5, 0.6},
			OccurrenceN:    60,
			IMax:           30,
			LowerCutoff:    10,
			MaxAbsDev:      20,
			LowessWindow:   10,
			SelectMin:      true,
			ExactThreshold: false,
		},
		Window: WindowData{
			OuterStart:         12 * time.Hour,
			OuterEnd:           24 * time.Hour,
			InnerStart:         13 * time.Hour,
			InnerEnd:           23 * time.Hour,
			Margin:             30 * time.Minute,
			RollingWindow:      15,
			StabilityThreshold: 0.05,
		},
		Fitting: FittingData{
			PolyDegree:      2,
			Bandpass:        true,
			FilterOrder:     4,
			PeriodLimitsHr:  []float64{1, 4.5},
			PeriodGuessesHr: []float64{1, 1.5, 2, 2.5, 3, 3.5, 4},
			MaxIterations:   200,
		},
	}
}

// Clone returns a deep copy of c.
func (c *ConfigData) Clone() *ConfigData {
	out := *c
	out.Detection.Quantiles = append([]float64(nil), c.Detection.Quantiles...)
	out.Fitting.PeriodLimitsHr = append([]float64(nil), c.Fitting.PeriodLimitsHr...)
	out.Fitting.PeriodGuessesHr = append([]float64(nil), c.Fitting.PeriodGuessesHr...)
	if c.Fitting.Criteria != nil {
		out.Fitting.Criteria = make(map[string][]float64, len(c.Fitting.Criteria))
		for k, v := range c.Fitting.Criteria {
			out.Fitting.Criteria[k] = append([]float64(nil), v...)
		}
	}
	if c.Storage.SQLite != nil {
		s := *c.Storage.SQLite
		out.Storage.SQLite = &s
	}
	if c.Storage.TimescaleDB != nil {
		s := *c.Storage.TimescaleDB
		out.Storage.TimescaleDB = &s
	}
	return &out
}

// PeriodLimits returns the period acceptance bounds as a pair.
func (f FittingData) PeriodLimits() [2]float64 {
	if len(f.PeriodLimitsHr) != 2 {
		return [2]float64{}
	}
	return [2]float64{f.PeriodLimitsHr[0], f.PeriodLimitsHr[1]}
}

// parse decodes a YAML document on top of the defaults and validates the
// result.
func parse(doc []byte) (*ConfigData, error) {
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(doc, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}
