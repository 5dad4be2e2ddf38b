package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/mikey/intake-guard/internal/ratelimit"
)

// sqlDialect holds the statements that differ between SQL backends
type sqlDialect struct {
	selectRecord string
	lockRecord   string
	upsert       string
	deleteRecord string
	deleteBefore string
}

// sqlStore is the database/sql plumbing shared by the SQLite and MySQL stores.
// Times are stored as unix milliseconds.
type sqlStore struct {
	db      *sql.DB
	dialect sqlDialect
}

func (s *sqlStore) get(ctx context.Context, id string) (*ratelimit.Record, error) {
	var count int
	var resetMs int64
	err := s.db.QueryRowContext(ctx, s.dialect.selectRecord, id).Scan(&count, &resetMs)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ratelimit.ErrNotFound
		}
		return nil, fmt.Errorf("failed to query rate limit record: %w", err)
	}
	return &ratelimit.Record{Count: count, ResetTime: time.UnixMilli(resetMs)}, nil
}

func (s *sqlStore) set(ctx context.Context, id string, rec ratelimit.Record) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.upsert, id, rec.Count, rec.ResetTime.UnixMilli()); err != nil {
		return fmt.Errorf("failed to store rate limit record: %w", err)
	}
	return nil
}

func (s *sqlStore) increment(ctx context.Context, id string, limit int, window time.Duration, now time.Time) (ratelimit.Record, bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return ratelimit.Record{}, false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var rec ratelimit.Record
	var resetMs int64
	found := true
	err = tx.QueryRowContext(ctx, s.dialect.lockRecord, id).Scan(&rec.Count, &resetMs)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		found = false
	case err != nil:
		return ratelimit.Record{}, false, fmt.Errorf("failed to query rate limit record: %w", err)
	default:
		rec.ResetTime = time.UnixMilli(resetMs)
	}

	next, allowed, changed := ratelimit.Apply(rec, found, limit, window, now)
	if changed {
		if _, err := tx.ExecContext(ctx, s.dialect.upsert, id, next.Count, next.ResetTime.UnixMilli()); err != nil {
			return ratelimit.Record{}, false, fmt.Errorf("failed to store rate limit record: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return ratelimit.Record{}, false, fmt.Errorf("failed to commit rate limit update: %w", err)
	}
	return next, allowed, nil
}

func (s *sqlStore) delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.dialect.deleteRecord, id); err != nil {
		return fmt.Errorf("failed to delete rate limit record: %w", err)
	}
	return nil
}

func (s *sqlStore) cleanup(ctx context.Context, now time.Time) (int, error) {
	result, err := s.db.ExecContext(ctx, s.dialect.deleteBefore, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("failed to clean up expired records: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired records: %w", err)
	}
	return int(n), nil
}
