// Package timescaledb stores detection summaries in a TimescaleDB hypertable
// partitioned by date.
package timescaledb

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/hamsci/lstid-detect/internal/storage"
)

// Store holds the connection for a TimescaleDB storage backend
type Store struct {
	db     *gorm.DB
	logger *zap.SugaredLogger
}

// New connects to TimescaleDB and prepares the results hypertable.
func New(ctx context.Context, connectionString string, logger *zap.SugaredLogger) (*Store, error) {
	logger.Info("connecting to TimescaleDB...")
	db, err := createConnection(connectionString, logger)
	if err != nil {
		return nil, fmt.Errorf("unable to create a TimescaleDB connection: %w", err)
	}
	s := &Store{db: db, logger: logger}

	logger.Info("creating TimescaleDB extension...")
	if err := db.WithContext(ctx).Exec(createExtensionSQL).Error; err != nil {
		s.Close()
		return nil, fmt.Errorf("could not create TimescaleDB extension: %w", err)
	}

	logger.Info("migrating results table...")
	if err := db.WithContext(ctx).AutoMigrate(&storage.Record{}); err != nil {
		s.Close()
		return nil, fmt.Errorf("could not migrate results table: %w", err)
	}

	logger.Info("creating hypertable...")
	if err := db.WithContext(ctx).Exec(createHypertableSQL).Error; err != nil {
		s.Close()
		return nil, fmt.Errorf("could not create hypertable: %w", err)
	}
	if err := db.WithContext(ctx).Exec(createDateIndexSQL).Error; err != nil {
		s.Close()
		return nil, fmt.Errorf("could not create date index: %w", err)
	}

	return s, nil
}

// createConnection opens the database with gorm's logger routed through zap.
func createConnection(connectionString string, l *zap.SugaredLogger) (*gorm.DB, error) {
	dbLogger := logger.New(
		zap.NewStdLog(l.Desugar()),
		logger.Config{
			SlowThreshold:             time.Second, // Slow SQL threshold
			LogLevel:                  logger.Warn, // Log level
			IgnoreRecordNotFoundError: true,
			Colorful:                  false,
		},
	)
	return gorm.Open(postgres.Open(connectionString), &gorm.Config{Logger: dbLogger})
}

// Save stores rec.
func (s *Store) Save(ctx context.Context, rec *storage.Record) error {
	if err := s.db.WithContext(ctx).Create(rec).Error; err != nil {
		s.logger.Errorw("could not store result", "run_id", rec.RunID, "error", err)
		return err
	}
	return nil
}

// Get returns the most recent record for date, or storage.ErrNotFound.
func (s *Store) Get(ctx context.Context, date time.Time) (*storage.Record, error) {
	var recs []storage.Record
	err := s.db.WithContext(ctx).
		Where("date = ?", date).
		Order("created_at DESC").
		Limit(1).
		Find(&recs).Error
	if err != nil {
		return nil, fmt.Errorf("error querying results for %s: %w", date.Format("2006-01-02"), err)
	}
	if len(recs) == 0 {
		return nil, storage.ErrNotFound
	}
	return &recs[0], nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
