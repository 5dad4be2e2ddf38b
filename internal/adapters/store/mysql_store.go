package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

var mysqlDialect = sqlDialect{
	selectRecord: `SELECT count, reset_ms FROM rate_limits WHERE client_id = ?`,
	lockRecord:   `SELECT count, reset_ms FROM rate_limits WHERE client_id = ? FOR UPDATE`,
	upsert: `INSERT INTO rate_limits (client_id, count, reset_ms) VALUES (?, ?, ?)
		ON DUPLICATE KEY UPDATE count = VALUES(count), reset_ms = VALUES(reset_ms)`,
	deleteRecord: `DELETE FROM rate_limits WHERE client_id = ?`,
	deleteBefore: `DELETE FROM rate_limits WHERE reset_ms < ?`,
}

const mysqlSchema = `
	CREATE TABLE IF NOT EXISTS rate_limits (
		client_id VARCHAR(255) PRIMARY KEY,
		count INT NOT NULL,
		reset_ms BIGINT NOT NULL,
		INDEX idx_rate_limits_reset (reset_ms)
	)
`

// MySQLStore is a MySQL implementation of ratelimit.Store
type MySQLStore struct {
	sqlStore
	logger *zap.Logger
}

// NewMySQLStore connects to dsn and prepares the schema
func NewMySQLStore(ctx context.Context, dsn string, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	s, err := NewMySQLStoreWithDB(ctx, db, logger)
	if err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// NewMySQLStoreWithDB uses an already opened database handle
func NewMySQLStoreWithDB(ctx context.Context, db *sql.DB, logger *zap.Logger) (*MySQLStore, error) {
	if _, err := db.ExecContext(ctx, mysqlSchema); err != nil {
		return nil, fmt.Errorf("failed to create table: %w", err)
	}
	return &MySQLStore{sqlStore: sqlStore{db: db, dialect: mysqlDialect}, logger: logger}, nil
}

// Get retrieves the record for id
func (s *MySQLStore) Get(ctx context.Context, id string) (*ratelimit.Record, error) {
	return s.get(ctx, id)
}

// Set stores a record
func (s *MySQLStore) Set(ctx context.Context, id string, rec ratelimit.Record) error {
	return s.set(ctx, id, rec)
}

// Increment applies one window step with the row locked
func (s *MySQLStore) Increment(ctx context.Context, id string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	return s.increment(ctx, id, limit, window, now)
}

// Delete removes a record
func (s *MySQLStore) Delete(ctx context.Context, id string) error {
	return s.delete(ctx, id)
}

// Cleanup removes records whose window has ended
func (s *MySQLStore) Cleanup(ctx context.Context, now time.Time) (int, error) {
	n, err := s.cleanup(ctx, now)
	if err != nil {
		return 0, err
	}
	s.logger.Debug("Cleaned up expired rate limit entries", zap.Int("expired_count", n))
	return n, nil
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}
