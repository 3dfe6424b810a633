package store

import (
	"context"
	"database/sql"
	_ "embed"
	"fmt"
	"os"

	_ "github.com/mattn/go-sqlite3"
)

//go:embed schema.sql
var schemaSQL string

// Store provides durable storage for eventdb.
// Uses SQLite with WAL mode for concurrent read access.
type Store struct {
	db       *sql.DB
	readOnly bool
}

// Open creates or opens a SQLite database at the given path and applies
// connection pragmas. It does not change the file's schema or journal
// mode: the schema is laid down by Bootstrap and WAL is switched on by
// EnableWAL once the store is known to be compatible.
func Open(path string) (*Store, error) {
	return open(path, false)
}

// OpenReadOnly opens an existing database without write access. It fails
// with an error matching fs.ErrNotExist if path does not exist, and never
// creates it.
func OpenReadOnly(path string) (*Store, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	return open(path, true)
}

func open(path string, readOnly bool) (*Store, error) {
	dsn := path
	if readOnly {
		dsn = "file:" + path + "?mode=ro"
	}

	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite only supports one writer at a time.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := applyPragmas(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	return &Store{db: db, readOnly: readOnly}, nil
}

// ReadOnly reports whether the store was opened with OpenReadOnly.
func (s *Store) ReadOnly() bool {
	return s.readOnly
}

// EnableWAL switches the database to write-ahead logging. The mode is
// persistent, so this writes the file header; call it only after the
// startup checks have passed. It must not run inside a transaction.
func (s *Store) EnableWAL() error {
	if s.readOnly {
		return ErrReadOnly
	}
	if _, err := s.db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		return fmt.Errorf("failed to enable WAL: %w", err)
	}
	return nil
}

// ApplySchema creates any missing tables and seeds the events tree head.
// Every statement is idempotent.
func ApplySchema(ctx context.Context, txn *Txn) error {
	if _, err := txn.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	return nil
}

// Bootstrap prepares a new store: it applies the schema and writes meta
// under MetaKey, inside txn.
func Bootstrap(ctx context.Context, txn *Txn, meta Meta) error {
	if err := ApplySchema(ctx, txn); err != nil {
		return err
	}
	return InsertMeta(ctx, txn, meta, MetaKey)
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin starts a transaction. A read-only transaction rejects writes made
// through its Txn. Every transaction on a read-only store is read-only.
func (s *Store) Begin(ctx context.Context, readOnly bool) (*Txn, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Txn{tx: tx, readOnly: readOnly || s.readOnly}, nil
}

// View runs fn inside a read-only transaction that is always rolled back.
func (s *Store) View(ctx context.Context, fn func(*Txn) error) error {
	txn, err := s.Begin(ctx, true)
	if err != nil {
		return err
	}
	defer txn.Rollback()
	return fn(txn)
}

// Update runs fn inside a read-write transaction, committing if fn returns
// nil and rolling back otherwise.
func (s *Store) Update(ctx context.Context, fn func(*Txn) error) error {
	txn, err := s.Begin(ctx, false)
	if err != nil {
		return err
	}
	defer txn.Rollback() // No-op if committed

	if err := fn(txn); err != nil {
		return err
	}
	return txn.Commit()
}

// applyPragmas sets per-connection SQLite configuration. None of these
// write to the database file.
func applyPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA synchronous = NORMAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
