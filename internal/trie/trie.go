package trie

import (
	"bytes"
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/eventdb/internal/store"
)

// EventsHead is the tree holding one leaf per stored event.
const EventsHead = "events"

// RootSize is the length of a tree root.
const RootSize = sha256.Size

var (
	// ErrHeadNotFound is returned by Checkout for an unknown tree name.
	ErrHeadNotFound = errors.New("trie head not found")

	// ErrCorruptHead is returned by Checkout when a stored root is malformed.
	ErrCorruptHead = errors.New("trie head is corrupt")

	// ErrNoHead is returned by operations on a handle with nothing checked out.
	ErrNoHead = errors.New("no trie head checked out")
)

// Root is a tree digest.
type Root [RootSize]byte

// EmptyRoot is the root of a tree without leaves.
var EmptyRoot Root

// Handle is a view of one named tree within a transaction.
type Handle struct {
	txn   *store.Txn
	owned bool // txn was opened by OpenReadOnly and ends with Close
	head  string
	dirty bool
}

// Init returns a handle bound to txn with no tree checked out.
func Init(txn *store.Txn) *Handle {
	return &Handle{txn: txn}
}

// Checkout makes name the active tree. It fails with ErrHeadNotFound if no
// such tree exists and ErrCorruptHead if its stored root is malformed.
func (h *Handle) Checkout(ctx context.Context, name string) error {
	var root []byte
	err := h.txn.QueryRowContext(ctx,
		`SELECT root FROM trie_heads WHERE name = ?`, name,
	).Scan(&root)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("checkout %q: %w", name, ErrHeadNotFound)
	}
	if err != nil {
		return fmt.Errorf("checkout %q: %w", name, err)
	}
	if len(root) != RootSize {
		return fmt.Errorf("checkout %q: root is %d bytes: %w", name, len(root), ErrCorruptHead)
	}

	h.head = name
	h.dirty = false
	return nil
}

// Head returns the checked-out tree name, or "" if none.
func (h *Handle) Head() string {
	return h.head
}

// Txn returns the transaction the handle is bound to.
func (h *Handle) Txn() *store.Txn {
	return h.txn
}

// Root returns the stored root of the checked-out tree. Leaves written
// since the last Commit are not reflected.
func (h *Handle) Root(ctx context.Context) (Root, error) {
	if h.head == "" {
		return Root{}, ErrNoHead
	}
	var raw []byte
	if err := h.txn.QueryRowContext(ctx,
		`SELECT root FROM trie_heads WHERE name = ?`, h.head,
	).Scan(&raw); err != nil {
		return Root{}, fmt.Errorf("read root of %q: %w", h.head, err)
	}
	if len(raw) != RootSize {
		return Root{}, fmt.Errorf("read root of %q: %w", h.head, ErrCorruptHead)
	}
	var root Root
	copy(root[:], raw)
	return root, nil
}

// Put sets the value stored under key, replacing any existing value.
func (h *Handle) Put(ctx context.Context, key, value []byte) error {
	if h.head == "" {
		return ErrNoHead
	}
	_, err := h.txn.ExecContext(ctx, `
		INSERT INTO trie_leaves (head, key, value) VALUES (?, ?, ?)
		ON CONFLICT(head, key) DO UPDATE SET value = excluded.value
	`, h.head, key, value)
	if err != nil {
		return fmt.Errorf("put leaf in %q: %w", h.head, err)
	}
	h.dirty = true
	return nil
}

// Get returns the value stored under key.
func (h *Handle) Get(ctx context.Context, key []byte) (value []byte, found bool, err error) {
	if h.head == "" {
		return nil, false, ErrNoHead
	}
	err = h.txn.QueryRowContext(ctx,
		`SELECT value FROM trie_leaves WHERE head = ? AND key = ?`, h.head, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get leaf in %q: %w", h.head, err)
	}
	return value, true, nil
}

// Len returns the number of leaves in the checked-out tree.
func (h *Handle) Len(ctx context.Context) (int64, error) {
	if h.head == "" {
		return 0, ErrNoHead
	}
	var n int64
	if err := h.txn.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM trie_leaves WHERE head = ?`, h.head,
	).Scan(&n); err != nil {
		return 0, fmt.Errorf("count leaves in %q: %w", h.head, err)
	}
	return n, nil
}

// Commit recomputes the root over all leaves and stores it. It is a no-op
// if nothing was written since checkout or the last Commit.
func (h *Handle) Commit(ctx context.Context) (Root, error) {
	if h.head == "" {
		return Root{}, ErrNoHead
	}
	if !h.dirty {
		return h.Root(ctx)
	}

	root, err := h.computeRoot(ctx)
	if err != nil {
		return Root{}, err
	}
	if _, err := h.txn.ExecContext(ctx,
		`UPDATE trie_heads SET root = ? WHERE name = ?`, root[:], h.head,
	); err != nil {
		return Root{}, fmt.Errorf("store root of %q: %w", h.head, err)
	}
	h.dirty = false
	return root, nil
}

// Close ends the transaction opened by OpenReadOnly. For handles bound to a
// caller's transaction it does nothing.
func (h *Handle) Close() error {
	if !h.owned {
		return nil
	}
	h.owned = false
	return h.txn.Rollback()
}

func (h *Handle) computeRoot(ctx context.Context) (Root, error) {
	rows, err := h.txn.QueryContext(ctx,
		`SELECT key, value FROM trie_leaves WHERE head = ? ORDER BY key ASC`, h.head,
	)
	if err != nil {
		return Root{}, fmt.Errorf("read leaves of %q: %w", h.head, err)
	}
	defer rows.Close()

	var level []Root
	for rows.Next() {
		var key, value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return Root{}, fmt.Errorf("scan leaf of %q: %w", h.head, err)
		}
		level = append(level, leafHash(key, value))
	}
	if err := rows.Err(); err != nil {
		return Root{}, fmt.Errorf("iterate leaves of %q: %w", h.head, err)
	}

	return merkleRoot(level), nil
}

// CreateHead creates an empty tree named name. Creating an existing tree is
// a no-op.
func CreateHead(ctx context.Context, txn *store.Txn, name string) error {
	_, err := txn.ExecContext(ctx,
		`INSERT INTO trie_heads (name, root) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		name, EmptyRoot[:],
	)
	if err != nil {
		return fmt.Errorf("create head %q: %w", name, err)
	}
	return nil
}

func leafHash(key, value []byte) Root {
	var buf bytes.Buffer
	buf.WriteByte(0x00)
	buf.Write(key)
	buf.Write(value)
	return sha256.Sum256(buf.Bytes())
}

func nodeHash(left, right Root) Root {
	var buf [1 + 2*RootSize]byte
	buf[0] = 0x01
	copy(buf[1:], left[:])
	copy(buf[1+RootSize:], right[:])
	return sha256.Sum256(buf[:])
}

func merkleRoot(level []Root) Root {
	if len(level) == 0 {
		return EmptyRoot
	}
	for len(level) > 1 {
		next := make([]Root, 0, (len(level)+1)/2)
		for i := 0; i < len(level); i += 2 {
			if i+1 == len(level) {
				next = append(next, level[i])
				continue
			}
			next = append(next, nodeHash(level[i], level[i+1]))
		}
		level = next
	}
	return level[0]
}
