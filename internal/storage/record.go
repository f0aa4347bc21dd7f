package storage

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/vmihailenco/msgpack/v5"

	"github.com/hamsci/lstid-detect/internal/pipeline"
	"github.com/hamsci/lstid-detect/internal/sinfit"
)

// Record summarises one detection run. Fit parameters are nil when no
// sinusoid fit succeeded or the value is not finite. Attempts holds the
// MessagePack encoded []sinfit.Attempt.
type Record struct {
	RunID            string    `gorm:"primaryKey;column:run_id;type:text"`
	Date             time.Time `gorm:"primaryKey;column:date;not null"`
	CreatedAt        time.Time `gorm:"column:created_at;not null"`
	IsLSTID          bool      `gorm:"column:is_lstid;not null"`
	FitState         string    `gorm:"column:fit_state;not null"`
	SelectedQuantile float64   `gorm:"column:selected_quantile"`
	FitWindowStart   time.Time `gorm:"column:fit_window_start"`
	FitWindowEnd     time.Time `gorm:"column:fit_window_end"`
	Fallback         bool      `gorm:"column:fallback"`
	PeriodHr         *float64  `gorm:"column:period_hr"`
	AmplitudeKm      *float64  `gorm:"column:amplitude_km"`
	PhaseHr          *float64  `gorm:"column:phase_hr"`
	OffsetKm         *float64  `gorm:"column:offset_km"`
	SlopeKmph        *float64  `gorm:"column:slope_kmph"`
	R2               *float64  `gorm:"column:r2"`
	PolyR2           *float64  `gorm:"column:poly_r2"`
	Attempts         []byte    `gorm:"column:attempts"`
}

// TableName sets the table used by gorm.
func (Record) TableName() string {
	return "lstid_results"
}

// NewRecord builds the summary of res with a fresh run id.
func NewRecord(res *pipeline.Result) (*Record, error) {
	if res == nil {
		return nil, fmt.Errorf("cannot summarise a nil result")
	}

	rec := &Record{
		RunID:            uuid.NewString(),
		Date:             res.Date,
		CreatedAt:        time.Now().UTC(),
		IsLSTID:          res.IsLSTID(),
		SelectedQuantile: res.SelectedQuantile,
		FitWindowStart:   res.FitWindow.Start,
		FitWindowEnd:     res.FitWindow.End,
		Fallback:         res.FitWindow.Fallback,
	}
	if res.Poly != nil {
		rec.PolyR2 = finite(res.Poly.R2)
	}

	var attempts []sinfit.Attempt
	if res.Fit != nil {
		rec.FitState = res.Fit.State.String()
		attempts = res.Fit.Attempts
		if best, ok := res.Fit.Selected(); ok {
			rec.PeriodHr = finite(best.Params.THr)
			rec.AmplitudeKm = finite(best.Params.AmplitudeKm)
			rec.PhaseHr = finite(best.Params.PhaseHr)
			rec.OffsetKm = finite(best.Params.OffsetKm)
			rec.SlopeKmph = finite(best.Params.SlopeKmph)
			rec.R2 = finite(best.R2)
		}
	}

	var err error
	rec.Attempts, err = msgpack.Marshal(attempts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode fit attempts: %w", err)
	}
	return rec, nil
}

// DecodeAttempts unpacks the stored fit attempts.
func (r *Record) DecodeAttempts() ([]sinfit.Attempt, error) {
	var attempts []sinfit.Attempt
	if len(r.Attempts) == 0 {
		return nil, nil
	}
	if err := msgpack.Unmarshal(r.Attempts, &attempts); err != nil {
		return nil, fmt.Errorf("failed to decode fit attempts: %w", err)
	}
	return attempts, nil
}

func finite(v float64) *float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}
