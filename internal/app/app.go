// Package app wires configuration, the heatmap cache, the detector and the
// result stores into one run for a single date.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/hamsci/lstid-detect/internal/heatmap"
	"github.com/hamsci/lstid-detect/internal/log"
	"github.com/hamsci/lstid-detect/internal/pipeline"
	"github.com/hamsci/lstid-detect/internal/storage"
	"github.com/hamsci/lstid-detect/internal/storage/sqlite"
	"github.com/hamsci/lstid-detect/internal/storage/timescaledb"
	"github.com/hamsci/lstid-detect/pkg/config"
	"github.com/hamsci/lstid-detect/pkg/resultformat"
)

// App represents the main application
type App struct {
	cfg      *config.ConfigData
	provider heatmap.Provider
	logger   *zap.SugaredLogger
	stdout   io.Writer
}

// New creates a new application instance. Frames are read from the
// configured cache directory.
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		cfg:      cfg,
		provider: heatmap.NewFileProvider(cfg.Heatmaps.CacheDir),
		logger:   logger,
		stdout:   os.Stdout,
	}
}

// Options selects what one run does.
type Options struct {
	Date time.Time
	// Output is the result file. "-" writes JSON to stdout and an empty
	// string writes nothing.
	Output string
	Indent bool
}

// Run processes one date, stores the summary in every configured backend
// and writes the report. SIGINT and SIGTERM cancel the run.
func (a *App) Run(ctx context.Context, opts Options) (pipeline.Report, error) {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	logger := log.ForDate(a.logger, opts.Date)

	stores, err := openStores(ctx, a.cfg.Storage, logger)
	if err != nil {
		return pipeline.Report{}, err
	}
	defer func() {
		for _, s := range stores {
			if err := s.Close(); err != nil {
				logger.Warnw("failed to close result store", "error", err)
			}
		}
	}()

	detector := pipeline.NewDetector(a.provider, a.cfg, a.logger)
	report, err := detector.Run(ctx, opts.Date)
	if err != nil {
		return pipeline.Report{}, err
	}

	var errs []error
	if report.Result != nil && len(stores) > 0 {
		rec, err := storage.NewRecord(report.Result)
		if err != nil {
			return report, err
		}
		for _, s := range stores {
			if err := s.Save(ctx, rec); err != nil {
				errs = append(errs, err)
			}
		}
		if len(errs) == 0 {
			logger.Infow("result stored", "run_id", rec.RunID, "stores", len(stores))
		}
	}

	if err := a.writeReport(report, opts, logger); err != nil {
		errs = append(errs, err)
	}
	return report, errors.Join(errs...)
}

func (a *App) writeReport(report pipeline.Report, opts Options, logger *zap.SugaredLogger) error {
	if opts.Output == "" {
		return nil
	}
	f := resultformat.NewFormatter(opts.Indent)
	if opts.Output == "-" {
		return f.Write(a.stdout, resultformat.JSON, report)
	}

	out, err := os.Create(opts.Output)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	if err := f.Write(out, resultformat.FormatForPath(opts.Output), report); err != nil {
		out.Close()
		return fmt.Errorf("failed to write %s: %w", opts.Output, err)
	}
	if err := out.Close(); err != nil {
		return err
	}
	logger.Infow("report written", "path", opts.Output)
	return nil
}

// OpenResultReader opens the first configured result store for reading.
// SQLite is preferred over TimescaleDB.
func OpenResultReader(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) (storage.ReadStore, error) {
	switch {
	case c.SQLite != nil:
		c.TimescaleDB = nil
	case c.TimescaleDB == nil:
		return nil, fmt.Errorf("no result store is configured")
	}
	stores, err := openStores(ctx, c, logger)
	if err != nil {
		return nil, err
	}
	return stores[0], nil
}

func openStores(ctx context.Context, c config.StorageData, logger *zap.SugaredLogger) ([]storage.ReadStore, error) {
	var stores []storage.ReadStore
	closeAll := func() {
		for _, s := range stores {
			s.Close()
		}
	}

	if c.SQLite != nil {
		s, err := sqlite.New(c.SQLite.Path, logger)
		if err != nil {
			return nil, fmt.Errorf("sqlite result store: %w", err)
		}
		stores = append(stores, s)
	}
	if c.TimescaleDB != nil {
		s, err := timescaledb.New(ctx, c.TimescaleDB.ConnectionString, logger)
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("timescaledb result store: %w", err)
		}
		stores = append(stores, s)
	}
	return stores, nil
}
