package db

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hms/billing/internal/platform/apperr"
)

type contextKey string

const (
	// DBTxKey carries an open pgx.Tx through a request context so that
	// repositories participate in the surrounding transaction.
	DBTxKey contextKey = "db_tx"
	// DBConnKey carries a dedicated pooled connection when one has been
	// pinned for the request.
	DBConnKey contextKey = "db_conn"
)

// TxFromContext retrieves the transaction from context, if any.
func TxFromContext(ctx context.Context) pgx.Tx {
	tx, _ := ctx.Value(DBTxKey).(pgx.Tx)
	return tx
}

// ConnFromContext retrieves a pinned database connection from context, if any.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// TxRunner executes a unit of work transactionally. Domain services depend on
// this interface so tests can substitute an in-memory runner.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type pgxTxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner returns a TxRunner backed by the connection pool.
func NewTxRunner(pool *pgxpool.Pool) TxRunner {
	return &pgxTxRunner{pool: pool}
}

// InTx begins a transaction, stashes it in the context for repositories to
// pick up, and commits when fn returns nil. Lock contention and serialization
// failures are surfaced as conflicts so callers can retry the whole unit.
func (r *pgxTxRunner) InTx(ctx context.Context, fn func(ctx context.Context) error) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	txCtx := context.WithValue(ctx, DBTxKey, tx)
	if err := fn(txCtx); err != nil {
		return translateConflict(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateConflict(err)
	}
	return nil
}

// Postgres error codes that indicate the transaction lost a race and should
// be retried: serialization_failure, deadlock_detected, lock_not_available.
var retryableSQLStates = map[string]bool{
	"40001": true,
	"40P01": true,
	"55P03": true,
}

func translateConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && retryableSQLStates[pgErr.Code] {
		return apperr.Wrap(apperr.KindConflict, err, "transaction conflict")
	}
	return err
}
