package pg

import (
	"context"
	"database/sql"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgerrcode"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/code-payments/code-launchpad/pkg/retry"
)

type txStructContextKey struct{}
type txIsolationContextKey struct{}

var (
	ErrAlreadyInTx = errors.New("already executing in existing db tx")
	ErrNotInTx     = errors.New("not executing in existing db tx")
)

const maxSerializationRetries = 10

// ExecuteRetryable retries fn while Postgres reports a serialization failure.
func ExecuteRetryable(fn func() error) error {
	_, err := retry.Retry(
		fn,
		retry.Limit(maxSerializationRetries),
		func(_ uint, err error) bool {
			return IsSerializationFailure(err)
		},
	)
	return err
}

// ExecuteTxWithinCtx executes a DB transaction that's scoped to a call to fn.
// The transaction travels with the context, and is committed or rolled back
// depending on the result of fn.
func ExecuteTxWithinCtx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(context.Context) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	if ctx.Value(txStructContextKey{}) != nil {
		return ErrAlreadyInTx
	}

	tx, err := db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
	if err != nil {
		return err
	}

	ctx = context.WithValue(ctx, txStructContextKey{}, tx)
	ctx = context.WithValue(ctx, txIsolationContextKey{}, isolation)

	if err := fn(ctx); err != nil {
		// Rollback always runs so sql.DB releases the connection
		if rollbackErr := tx.Rollback(); rollbackErr != nil {
			return errors.Wrap(rollbackErr, "failed to rollback transaction")
		}
		return err
	}
	return tx.Commit()
}

// ExecuteInTx runs fn within the transaction carried by ctx, or within a new
// one when there is none. Whoever starts the transaction owns commit/rollback.
func ExecuteInTx(ctx context.Context, db *sqlx.DB, isolation sql.IsolationLevel, fn func(tx *sqlx.Tx) error) error {
	if isolation == sql.LevelDefault {
		isolation = sql.LevelReadCommitted
	}

	tx, err := getTxFromCtx(ctx, isolation)
	if err != nil && err != ErrNotInTx {
		return err
	}

	startedNewTx := err == ErrNotInTx
	if startedNewTx {
		tx, err = db.BeginTxx(ctx, &sql.TxOptions{Isolation: isolation})
		if err != nil {
			return err
		}
	}

	if err := fn(tx); err != nil {
		if startedNewTx {
			if rollbackErr := tx.Rollback(); rollbackErr != nil {
				return errors.Wrap(rollbackErr, "failed to rollback transaction")
			}
		}
		return err
	}

	if startedNewTx {
		return tx.Commit()
	}
	return nil
}

func getTxFromCtx(ctx context.Context, desiredIsolation sql.IsolationLevel) (*sqlx.Tx, error) {
	txFromCtx := ctx.Value(txStructContextKey{})
	if txFromCtx == nil {
		return nil, ErrNotInTx
	}

	tx, ok := txFromCtx.(*sqlx.Tx)
	if !ok {
		return nil, errors.New("invalid type for tx")
	}

	currentIsolation, ok := ctx.Value(txIsolationContextKey{}).(sql.IsolationLevel)
	if !ok {
		return nil, errors.New("unexpectedly don't have isolation level set")
	}

	if currentIsolation < desiredIsolation {
		return nil, errors.New("current tx doesn't meet isolation level requirements")
	}

	return tx, nil
}

// IsSerializationFailure reports whether err is a retriable serialization failure.
func IsSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.SerializationFailure
}
