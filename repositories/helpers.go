package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/lib/pq"
)

// ErrStoreContention is returned once the bounded retry budget for a
// transient lock/serialization failure is exhausted.
var ErrStoreContention = errors.New("persistent store contention")

// Querier is the subset of database/sql shared by *sql.DB and *sql.Tx.
// Repository methods take a Querier so the same code runs inside and outside
// transactions; tests substitute in-memory fakes at the repository interface
// level instead.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TxRunner executes a function inside a transaction. The postgres
// implementation retries on contention; test fakes run the function directly.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(q Querier) error) error
}

const (
	txMaxAttempts   = 4
	txBackoffBase   = 50 * time.Millisecond
	txBackoffJitter = 25 * time.Millisecond
)

type sqlTxRunner struct {
	db *sql.DB
}

// NewTxRunner wraps a *sql.DB in a TxRunner with bounded retry-on-contention.
func NewTxRunner(db *sql.DB) TxRunner {
	return &sqlTxRunner{db: db}
}

func (r *sqlTxRunner) WithinTx(ctx context.Context, fn func(q Querier) error) error {
	var lastErr error

	for attempt := 0; attempt < txMaxAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(backoffDelay(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		err := r.runOnce(ctx, fn)
		if err == nil {
			return nil
		}
		if !IsContention(err) {
			return err
		}
		lastErr = err
	}

	return fmt.Errorf("%w: gave up after %d attempts: %v", ErrStoreContention, txMaxAttempts, lastErr)
}

func (r *sqlTxRunner) runOnce(ctx context.Context, fn func(q Querier) error) (err error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err = fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// IsContention reports whether err is a transient postgres condition worth
// retrying: serialization failure, deadlock, or lock-not-available. Every
// other error propagates immediately.
func IsContention(err error) bool {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return false
	}
	switch pqErr.Code {
	case "40001", // serialization_failure
		"40P01", // deadlock_detected
		"55P03": // lock_not_available
		return true
	}
	return false
}

func backoffDelay(attempt int) time.Duration {
	delay := txBackoffBase << uint(attempt-1)
	return delay + time.Duration(rand.Int63n(int64(txBackoffJitter)))
}

func checkRowsAffected(result sql.Result) (int64, error) {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to check affected rows: %w", err)
	}
	return rowsAffected, nil
}
