package pgsql

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/docuflow/docuflow/internal/apperrors"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BaseRepository provides common functionality for all repositories
type BaseRepository struct {
	Pool *pgxpool.Pool
}

// Begin starts a new database transaction
func (r *BaseRepository) Begin(ctx context.Context) (pgx.Tx, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return nil, persistenceError("failed to begin transaction", err)
	}
	return tx, nil
}

// Commit commits a transaction
func (r *BaseRepository) Commit(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Commit(ctx); err != nil {
		return persistenceError("failed to commit transaction", err)
	}
	return nil
}

// Rollback rolls back a transaction
func (r *BaseRepository) Rollback(ctx context.Context, tx pgx.Tx) error {
	if err := tx.Rollback(ctx); err != nil && !errors.Is(err, sql.ErrTxDone) && !errors.Is(err, pgx.ErrTxClosed) {
		return persistenceError("failed to rollback transaction", err)
	}
	return nil
}

// persistenceError wraps a storage failure so callers can recognize the
// retryable class without ever seeing a raw driver message.
func persistenceError(message string, err error) error {
	return apperrors.NewAppError(500, message, fmt.Errorf("%w: %v", apperrors.ErrPersistence, err))
}
