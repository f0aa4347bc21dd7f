// Package sqlite stores detection summaries in a local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/hamsci/lstid-detect/internal/storage"
	"github.com/hamsci/lstid-detect/pkg/migrate"
)

//go:embed migrations/*.sql
var migrations embed.FS

const dateLayout = "2006-01-02"

// MigrationProvider returns the embedded schema migrations of the result
// database.
func MigrationProvider() migrate.MigrationProvider {
	return migrate.NewFSProvider(migrations, "migrations", "result_migrations")
}

// Store holds the connection for a SQLite storage backend
type Store struct {
	db     *sql.DB
	logger *zap.SugaredLogger
}

// New opens (creating if needed) the database at path and migrates its
// schema.
func New(path string, logger *zap.SugaredLogger) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, MigrationProvider())
	applied, err := migrator.MigrateUp()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate result schema: %w", err)
	}
	if applied > 0 {
		logger.Infow("applied result store migrations", "path", path, "count", applied)
	}

	return &Store{db: db, logger: logger}, nil
}

// Save inserts rec.
func (s *Store) Save(ctx context.Context, rec *storage.Record) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO lstid_results (
			run_id, date, created_at, is_lstid, fit_state, selected_quantile,
			fit_window_start, fit_window_end, fallback,
			period_hr, amplitude_km, phase_hr, offset_km, slope_kmph, r2, poly_r2,
			attempts
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Date.Format(dateLayout), rec.CreatedAt.UTC().Format(time.RFC3339Nano),
		rec.IsLSTID, rec.FitState, rec.SelectedQuantile,
		rec.FitWindowStart.UTC().Format(time.RFC3339Nano), rec.FitWindowEnd.UTC().Format(time.RFC3339Nano),
		rec.Fallback,
		rec.PeriodHr, rec.AmplitudeKm, rec.PhaseHr, rec.OffsetKm, rec.SlopeKmph, rec.R2, rec.PolyR2,
		rec.Attempts,
	)
	if err != nil {
		return fmt.Errorf("failed to store result for %s: %w", rec.Date.Format(dateLayout), err)
	}
	s.logger.Debugw("stored result", "run_id", rec.RunID, "date", rec.Date.Format(dateLayout))
	return nil
}

// Get returns the most recent record for date, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, date time.Time) (*storage.Record, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT run_id, date, created_at, is_lstid, fit_state, selected_quantile,
			fit_window_start, fit_window_end, fallback,
			period_hr, amplitude_km, phase_hr, offset_km, slope_kmph, r2, poly_r2,
			attempts
		FROM lstid_results
		WHERE date = ?
		ORDER BY created_at DESC
		LIMIT 1`, date.Format(dateLayout))

	var (
		rec                            storage.Record
		day, created, winStart, winEnd string
		nullable                       [7]sql.NullFloat64
	)
	err := row.Scan(
		&rec.RunID, &day, &created, &rec.IsLSTID, &rec.FitState, &rec.SelectedQuantile,
		&winStart, &winEnd, &rec.Fallback,
		&nullable[0], &nullable[1], &nullable[2], &nullable[3], &nullable[4], &nullable[5], &nullable[6],
		&rec.Attempts,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read result for %s: %w", date.Format(dateLayout), err)
	}

	if rec.Date, err = time.Parse(dateLayout, day); err != nil {
		return nil, fmt.Errorf("bad stored date %q: %w", day, err)
	}
	for _, ts := range []struct {
		dst *time.Time
		src string
	}{{&rec.CreatedAt, created}, {&rec.FitWindowStart, winStart}, {&rec.FitWindowEnd, winEnd}} {
		if *ts.dst, err = time.Parse(time.RFC3339Nano, ts.src); err != nil {
			return nil, fmt.Errorf("bad stored timestamp %q: %w", ts.src, err)
		}
	}

	fields := []**float64{&rec.PeriodHr, &rec.AmplitudeKm, &rec.PhaseHr, &rec.OffsetKm, &rec.SlopeKmph, &rec.R2, &rec.PolyR2}
	for i, n := range nullable {
		if n.Valid {
			v := n.Float64
			*fields[i] = &v
		}
	}
	return &rec, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}
