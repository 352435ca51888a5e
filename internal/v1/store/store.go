// Package store is the persistence boundary described in spec.md §4.1: CRUD over
// Room/Player/Round/Pair/Action/Message/Indicator, cascade delete rooted at Room, and
// the row-level locking primitives RoundManager and RoomManager build their
// concurrency guarantees on top of.
//
// Domain packages never talk to pgx directly; they depend on the DB and Tx
// interfaces in interfaces.go. The concrete implementation in this file and
// pgtx.go is the only place that imports pgx, mirroring how the teacher's room package depends on
// types.BusService/types.SFUProvider instead of redis/grpc directly.
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sony/gobreaker"

	"github.com/classroom-games/chicken-backend/internal/v1/apierr"
	"github.com/classroom-games/chicken-backend/internal/v1/logging"
)

// PgStore is the Postgres-backed implementation of DB.
type PgStore struct {
	pool    *pgxpool.Pool
	breaker *gobreaker.CircuitBreaker
}

// NewPgStore opens a pool against dsn and wraps it with a circuit breaker so a
// Postgres outage surfaces as a handful of fast Transient errors instead of every
// request hanging on a dead connection — adapted from the teacher's SFU circuit
// breaker (pkg/sfu/client.go) onto the database call path.
func NewPgStore(ctx context.Context, dsn string) (*PgStore, error) {
	poolCfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse database url: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("open database pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	cbSettings := gobreaker.Settings{
		Name:        "postgres",
		MaxRequests: 5,
		Interval:    30 * time.Second,
		Timeout:     15 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 5
		},
	}

	return &PgStore{
		pool:    pool,
		breaker: gobreaker.NewCircuitBreaker(cbSettings),
	}, nil
}

// Close releases the underlying connection pool.
func (s *PgStore) Close() {
	s.pool.Close()
}

// Ping reports whether the database is reachable, used by the readiness probe.
func (s *PgStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

// Migrate applies the schema in schema.go. Safe to call repeatedly.
func (s *PgStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, schemaSQL)
	return err
}

// WithTx runs fn inside a single database transaction, committing on success and
// rolling back on any error or panic. Every mutating operation in RoundManager and
// RoomManager goes through this, which is exactly where spec.md §5's "suspends on
// exactly one point — acquiring a row-level lock ... inside a database transaction"
// is realized: LockRoom/LockRound issue SELECT ... FOR UPDATE within this tx.
func (s *PgStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
		if err != nil {
			return nil, fmt.Errorf("begin transaction: %w", err)
		}

		committed := false
		defer func() {
			if !committed {
				if rbErr := pgxTx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
					logging.Error(ctx, "failed to roll back transaction")
				}
			}
		}()

		if err := fn(ctx, &pgTx{tx: pgxTx}); err != nil {
			return nil, err
		}

		if err := pgxTx.Commit(ctx); err != nil {
			return nil, fmt.Errorf("commit transaction: %w", err)
		}
		committed = true
		return nil, nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apierr.Transient("database temporarily unavailable", err)
	}
	// Domain errors (apierr.Error) returned by fn must pass through unchanged; only
	// genuine connectivity failures are recast as Transient.
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierr.Transient("database operation failed", err)
}

// ReadOnly runs fn inside a read-only transaction, used by the snapshot builder so
// reads observe a single consistent point without blocking writers any longer than
// necessary (spec.md §5's shared-resource policy).
func (s *PgStore) ReadOnly(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	_, err := s.breaker.Execute(func() (any, error) {
		pgxTx, err := s.pool.BeginTx(ctx, pgx.TxOptions{AccessMode: pgx.ReadOnly})
		if err != nil {
			return nil, fmt.Errorf("begin read-only transaction: %w", err)
		}
		defer func() { _ = pgxTx.Rollback(ctx) }()

		if err := fn(ctx, &pgTx{tx: pgxTx}); err != nil {
			return nil, err
		}
		return nil, nil
	})

	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apierr.Transient("database temporarily unavailable", err)
	}
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return apierr.Transient("database read failed", err)
}
