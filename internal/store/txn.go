package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// ErrReadOnly is returned by write operations on a read-only Txn.
var ErrReadOnly = errors.New("write in read-only transaction")

// Txn is a store transaction. It is not safe for concurrent use, and must
// not be used after Commit or Rollback (operations then fail with
// sql.ErrTxDone).
type Txn struct {
	tx       *sql.Tx
	readOnly bool
}

// ReadOnly reports whether the transaction rejects writes.
func (t *Txn) ReadOnly() bool {
	return t.readOnly
}

// Commit commits the transaction.
func (t *Txn) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction. Safe to call after Commit.
func (t *Txn) Rollback() error {
	err := t.tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}
	return err
}

// ExecContext executes a write statement. Fails with ErrReadOnly on a
// read-only transaction.
func (t *Txn) ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error) {
	if t.readOnly {
		return nil, ErrReadOnly
	}
	return t.tx.ExecContext(ctx, query, args...)
}

// QueryContext executes a query. Callers close the returned rows.
func (t *Txn) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return t.tx.QueryContext(ctx, query, args...)
}

// QueryRowContext executes a query expected to return at most one row.
func (t *Txn) QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row {
	return t.tx.QueryRowContext(ctx, query, args...)
}

// tableExists reports whether the database has a table named name. Stores
// written before a table was introduced lack it.
func (t *Txn) tableExists(ctx context.Context, name string) (bool, error) {
	var n int
	err := t.tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?`, name,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup table %q: %w", name, err)
	}
	return n > 0, nil
}
