package config

import (
	"database/sql"
	"embed"
	"errors"
	"fmt"

	"github.com/hamsci/lstid-detect/pkg/migrate"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrations embed.FS

// DefaultConfigName is the row LoadConfig reads
const DefaultConfigName = "default"

// MigrationProvider returns the embedded schema migrations of the config
// database.
func MigrationProvider() migrate.MigrationProvider {
	return migrate.NewFSProvider(migrations, "migrations", "config_migrations")
}

// SQLiteProvider implements ConfigProvider for SQLite database configuration.
// Each named configuration is stored as one YAML document.
type SQLiteProvider struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteProvider opens (creating if needed) the database at dbPath and
// brings its schema up to date
func NewSQLiteProvider(dbPath string) (*SQLiteProvider, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping SQLite database: %w", err)
	}

	migrator := migrate.NewMigrator(db, MigrationProvider())
	if _, err := migrator.MigrateUp(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate SQLite config schema: %w", err)
	}

	return &SQLiteProvider{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// LoadConfig loads the default configuration
func (s *SQLiteProvider) LoadConfig() (*ConfigData, error) {
	return s.LoadNamed(DefaultConfigName)
}

// LoadNamed loads the configuration stored under name
func (s *SQLiteProvider) LoadNamed(name string) (*ConfigData, error) {
	var document string
	err := s.db.QueryRow(`SELECT document FROM configs WHERE name = ?`, name).Scan(&document)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("no configuration named %q in %s", name, s.dbPath)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query config %q: %w", name, err)
	}

	cfg, err := parse([]byte(document))
	if err != nil {
		return nil, fmt.Errorf("config %q: %w", name, err)
	}
	return cfg, nil
}

// SaveConfig validates cfg and stores it as the default configuration
func (s *SQLiteProvider) SaveConfig(cfg *ConfigData) error {
	return s.SaveNamed(DefaultConfigName, cfg)
}

// SaveNamed validates cfg and stores it under name, replacing any
// existing entry
func (s *SQLiteProvider) SaveNamed(name string, cfg *ConfigData) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	doc, err := Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	_, err = s.db.Exec(`
		INSERT INTO configs (name, document, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(name) DO UPDATE SET document = excluded.document, updated_at = CURRENT_TIMESTAMP
	`, name, string(doc))
	if err != nil {
		return fmt.Errorf("failed to save config %q: %w", name, err)
	}
	return nil
}

// IsReadOnly returns false, SQLite configs can be written with SaveConfig
func (s *SQLiteProvider) IsReadOnly() bool {
	return false
}

// Close closes the database connection
func (s *SQLiteProvider) Close() error {
	return s.db.Close()
}
