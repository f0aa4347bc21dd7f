package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/hamsci/lstid-detect/internal/sinfit"
	"github.com/hamsci/lstid-detect/internal/storage"
)

func testRecord(t *testing.T, date time.Time, created time.Time) *storage.Record {
	t.Helper()
	period, amp, r2 := 2.5, 55.0, 0.81
	rec := &storage.Record{
		RunID:            "run-" + created.Format(time.RFC3339),
		Date:             date,
		CreatedAt:        created,
		IsLSTID:          true,
		FitState:         sinfit.StateFitted.String(),
		SelectedQuantile: 0.5,
		FitWindowStart:   date.Add(13*time.Hour + 30*time.Minute),
		FitWindowEnd:     date.Add(22*time.Hour + 30*time.Minute),
		PeriodHr:         &period,
		AmplitudeKm:      &amp,
		R2:               &r2,
	}
	return rec
}

func TestStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "results.db")

	s, err := New(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	defer s.Close()

	date := time.Date(2017, 11, 3, 0, 0, 0, 0, time.UTC)
	if _, err := s.Get(ctx, date); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected ErrNotFound on empty store, got %v", err)
	}

	older := testRecord(t, date, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC))
	newer := testRecord(t, date, time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC))
	newer.IsLSTID = false
	newer.R2 = nil
	for _, rec := range []*storage.Record{older, newer} {
		if err := s.Save(ctx, rec); err != nil {
			t.Fatalf("Save failed: %v", err)
		}
	}
	if err := s.Save(ctx, older); err == nil {
		t.Errorf("expected duplicate run id to be rejected")
	}

	got, err := s.Get(ctx, date)
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.RunID != newer.RunID || got.IsLSTID {
		t.Errorf("expected the newest record, got %+v", got)
	}
	if !got.Date.Equal(date) || !got.CreatedAt.Equal(newer.CreatedAt) || !got.FitWindowEnd.Equal(newer.FitWindowEnd) {
		t.Errorf("times did not round trip: %+v", got)
	}
	if got.PeriodHr == nil || *got.PeriodHr != 2.5 || got.AmplitudeKm == nil || *got.AmplitudeKm != 55 {
		t.Errorf("fit parameters did not round trip: %v %v", got.PeriodHr, got.AmplitudeKm)
	}
	if got.R2 != nil || got.PhaseHr != nil {
		t.Errorf("expected null R² and phase, got %v %v", got.R2, got.PhaseHr)
	}
	if got.FitState != "fitted" || got.SelectedQuantile != 0.5 {
		t.Errorf("unexpected summary fields %+v", got)
	}

	if _, err := s.Get(ctx, date.AddDate(0, 0, 1)); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("expected ErrNotFound for another date, got %v", err)
	}

	// reopening must not re-apply migrations or lose rows
	s.Close()
	s2, err := New(path, zap.NewNop().Sugar())
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(ctx, date); err != nil {
		t.Errorf("expected record after reopen, got %v", err)
	}
}
