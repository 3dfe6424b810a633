package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// MetaKey is the fixed key of the singleton metadata record.
const MetaKey = 1

// Meta is the metadata record describing the on-disk format.
type Meta struct {
	DBVersion  uint64
	Endianness uint64
}

// LookupMeta returns the metadata record stored under key, or found=false
// if none exists. A store without a meta table has no record.
func LookupMeta(ctx context.Context, txn *Txn, key int64) (meta Meta, found bool, err error) {
	ok, err := txn.tableExists(ctx, "meta")
	if err != nil || !ok {
		return Meta{}, false, err
	}

	err = txn.QueryRowContext(ctx,
		`SELECT db_version, endianness FROM meta WHERE id = ?`, key,
	).Scan(&meta.DBVersion, &meta.Endianness)
	if errors.Is(err, sql.ErrNoRows) {
		return Meta{}, false, nil
	}
	if err != nil {
		return Meta{}, false, fmt.Errorf("lookup meta: %w", err)
	}
	return meta, true, nil
}

// InsertMeta writes the metadata record under key. It fails if a record
// already exists under that key.
func InsertMeta(ctx context.Context, txn *Txn, meta Meta, key int64) error {
	_, err := txn.ExecContext(ctx,
		`INSERT INTO meta (id, db_version, endianness) VALUES (?, ?, ?)`,
		key, meta.DBVersion, meta.Endianness,
	)
	if err != nil {
		return fmt.Errorf("insert meta: %w", err)
	}
	return nil
}
