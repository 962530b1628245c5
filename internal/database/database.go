package database

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"video-publisher/internal/logging"
	"video-publisher/internal/metrics"
)

// DB wraps the SQLite connection used for job history and API keys.
type DB struct {
	conn *sql.DB
	path string
}

// New opens (or creates) the database at path and initializes the schema.
func New(path string) (*DB, error) {
	// WAL keeps readers from blocking the pipeline's job-status writes;
	// the busy timeout covers the brief write lock during checkpoints.
	dsn := path + "?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=10000&_temp_store=MEMORY&_busy_timeout=5000"

	conn, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite serializes writers; a single connection avoids lock churn.
	conn.SetMaxOpenConns(1)
	conn.SetMaxIdleConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, path: path}
	if err := db.initializeSchema(); err != nil {
		conn.Close()
		return nil, err
	}

	metrics.DBConnectionsOpen.Set(1)
	logging.Info("database ready at %s", path)
	return db, nil
}

// Close closes the underlying connection.
func (db *DB) Close() error {
	metrics.DBConnectionsOpen.Set(0)
	return db.conn.Close()
}

// Ping verifies the connection is alive. Used by the readiness probe.
func (db *DB) Ping() error {
	return db.conn.Ping()
}

func (db *DB) initializeSchema() error {
	start := time.Now()

	schema := `
	CREATE TABLE IF NOT EXISTS publish_jobs (
		id TEXT PRIMARY KEY,
		shop_id TEXT NOT NULL,
		repair_order_id TEXT NOT NULL,
		task_id TEXT NOT NULL,
		explainer_id TEXT NOT NULL DEFAULT '',
		finding TEXT NOT NULL DEFAULT '',
		severity TEXT NOT NULL DEFAULT '',
		merged INTEGER NOT NULL DEFAULT 0,
		uploaded INTEGER NOT NULL DEFAULT 0,
		object_key TEXT NOT NULL DEFAULT '',
		error_kind TEXT NOT NULL DEFAULT '',
		error_detail TEXT NOT NULL DEFAULT '',
		started_at DATETIME NOT NULL,
		finished_at DATETIME
	);
	CREATE INDEX IF NOT EXISTS idx_publish_jobs_started ON publish_jobs(started_at);
	CREATE INDEX IF NOT EXISTS idx_publish_jobs_task ON publish_jobs(task_id);

	CREATE TABLE IF NOT EXISTS api_keys (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL UNIQUE,
		key_hash TEXT NOT NULL,
		created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
	);
	`

	_, err := db.conn.Exec(schema)
	recordQuery("initialize_schema", start, err)
	if err != nil {
		return fmt.Errorf("failed to initialize schema: %w", err)
	}
	return nil
}

// recordQuery updates the per-operation query metrics.
func recordQuery(operation string, start time.Time, err error) {
	status := "success"
	if err != nil {
		status = "error"
	}
	metrics.DBQueryTotal.WithLabelValues(operation, status).Inc()
	metrics.DBQueryDuration.WithLabelValues(operation).Observe(time.Since(start).Seconds())
}
