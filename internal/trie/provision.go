package trie

import (
	"context"

	"github.com/roach88/eventdb/internal/store"
)

// Open returns a handle bound to txn with the events tree checked out.
// Checkout failures are returned unchanged.
func Open(ctx context.Context, txn *store.Txn) (*Handle, error) {
	h := Init(txn)
	if err := h.Checkout(ctx, EventsHead); err != nil {
		return nil, err
	}
	return h, nil
}

// OpenReadOnly begins a read-only transaction and returns a handle bound to
// it with the events tree checked out. The caller must Close the handle to
// end the transaction.
func OpenReadOnly(ctx context.Context, st *store.Store) (*Handle, error) {
	txn, err := st.Begin(ctx, true)
	if err != nil {
		return nil, err
	}
	h, err := Open(ctx, txn)
	if err != nil {
		txn.Rollback()
		return nil, err
	}
	h.owned = true
	return h, nil
}
