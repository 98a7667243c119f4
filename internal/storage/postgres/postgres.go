// Package postgres provides a PostgreSQL-backed implementation of the storage.Store interface.
//
// Ledger transactions take a transaction-scoped advisory lock per member pair, in sorted
// order, before reading the pair's edge with SELECT ... FOR UPDATE. Transactions on
// disjoint pairs proceed in parallel; transactions sharing a pair are serialized.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/mmynk/splitwiser/internal/models"
	"github.com/mmynk/splitwiser/internal/storage"
)

var _ storage.Store = (*PostgresStore)(nil)

// PoolConfig tunes the database/sql connection pool.
type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
}

// PostgresStore implements storage.Store using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// New opens a pool against databaseURL, pings it and runs migrations.
func New(ctx context.Context, databaseURL string, pool PoolConfig) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("postgres.New: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: ping: %w", err)
	}

	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("postgres.New: migrate: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// Close closes the pool.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

// InTx locks every pair in sorted order and runs fn in one READ COMMITTED transaction.
func (s *PostgresStore) InTx(ctx context.Context, groupID string, pairs []storage.Pair, fn func(tx storage.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("InTx: begin: %w", classify(err))
	}
	defer tx.Rollback()

	var exists int
	err = tx.QueryRowContext(ctx, "SELECT 1 FROM groups WHERE id = $1", groupID).Scan(&exists)
	if err == sql.ErrNoRows {
		return fmt.Errorf("group %s: %w", groupID, models.ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("InTx: check group: %w", classify(err))
	}

	for _, p := range storage.SortPairs(pairs) {
		if _, err := tx.ExecContext(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", p.Key(groupID)); err != nil {
			return fmt.Errorf("InTx: lock %s: %w", p.Key(groupID), classify(err))
		}
	}

	if err := fn(&pgTx{tx: tx, groupID: groupID}); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("InTx: commit: %w", classify(err))
	}
	return nil
}

// conflictCodes are the SQLSTATEs a retry can resolve.
var conflictCodes = map[pq.ErrorCode]bool{
	"40001": true, // serialization_failure
	"40P01": true, // deadlock_detected
	"55P03": true, // lock_not_available
	"23505": true, // unique_violation on a concurrently inserted edge
}

// classify maps retryable PostgreSQL errors to models.ErrConcurrencyConflict.
func classify(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && conflictCodes[pqErr.Code] {
		return fmt.Errorf("%w: %v", models.ErrConcurrencyConflict, err)
	}
	return err
}

type pgTx struct {
	tx      *sql.Tx
	groupID string
}
