package timescaledb

const createExtensionSQL = `CREATE EXTENSION IF NOT EXISTS timescaledb;`

const createHypertableSQL = `SELECT create_hypertable('lstid_results', 'date', chunk_time_interval => INTERVAL '1 year', if_not_exists => TRUE, migrate_data => TRUE);`

const createDateIndexSQL = `CREATE INDEX IF NOT EXISTS idx_lstid_results_date ON lstid_results (date, created_at DESC);`
