package repository

import (
	"context"
	"database/sql"
)

// Tx is the transaction handle the handlers drive and the ...Tx
// repository methods run their statements against.  *sql.Tx satisfies
// it; tests substitute an in-memory fake so the capacity flows can be
// exercised without a database.
type Tx interface {
	Commit() error
	Rollback() error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}
