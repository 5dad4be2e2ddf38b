package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

var sqliteDialect = sqlDialect{
	selectRecord: `SELECT count, reset_ms FROM rate_limits WHERE client_id = ?`,
	lockRecord:   `SELECT count, reset_ms FROM rate_limits WHERE client_id = ?`,
	upsert:       `INSERT OR REPLACE INTO rate_limits (client_id, count, reset_ms) VALUES (?, ?, ?)`,
	deleteRecord: `DELETE FROM rate_limits WHERE client_id = ?`,
	deleteBefore: `DELETE FROM rate_limits WHERE reset_ms < ?`,
}

// SQLiteStore is a SQLite implementation of ratelimit.Store
type SQLiteStore struct {
	sqlStore
	logger *zap.Logger
}

// NewSQLiteStore opens (or creates) the database at dbPath; ":memory:" is accepted
func NewSQLiteStore(dbPath string, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", sqliteDSN(dbPath))
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}
	// a single writer keeps BEGIN IMMEDIATE from contending with itself
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS rate_limits (
			client_id TEXT PRIMARY KEY,
			count INTEGER NOT NULL,
			reset_ms INTEGER NOT NULL
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	_, err = db.Exec(`CREATE INDEX IF NOT EXISTS idx_rate_limits_reset ON rate_limits(reset_ms)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	logger.Info("SQLite rate limit store opened", zap.String("path", dbPath))
	return &SQLiteStore{sqlStore: sqlStore{db: db, dialect: sqliteDialect}, logger: logger}, nil
}

func sqliteDSN(path string) string {
	if path == ":memory:" {
		return "file::memory:?_txlock=immediate"
	}
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return "file:" + path + sep + "_txlock=immediate&_busy_timeout=5000"
}

// Get retrieves the record for id
func (s *SQLiteStore) Get(ctx context.Context, id string) (*ratelimit.Record, error) {
	return s.get(ctx, id)
}

// Set stores a record
func (s *SQLiteStore) Set(ctx context.Context, id string, rec ratelimit.Record) error {
	return s.set(ctx, id, rec)
}

// Increment applies one window step inside an immediate transaction
func (s *SQLiteStore) Increment(ctx context.Context, id string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	return s.increment(ctx, id, limit, window, now)
}

// Delete removes a record
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// Cleanup removes records whose window has ended
func (s *SQLiteStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	n, err := s.cleanup(ctx, now)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Cleaned up expired rate limit entries", zap.Int("expired_count", n))
	return n, nil
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
