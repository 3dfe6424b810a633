// Package store provides SQLite-backed durable storage for eventdb.
//
// The store holds three kinds of record:
//   - Meta: the singleton metadata record (format revision, byte-order tag)
//   - Events: event records in insertion (seq) order
//   - Trie heads and leaves: backing tables for internal/trie
//
// Opening a store never changes it. Open and OpenReadOnly only connect;
// a new store gets its tables from Bootstrap, and reads on a store that
// lacks a table see no records. Stores in an older layout therefore stay
// byte-for-byte as they were until something decides to write.
//
// All record access goes through a Txn. A Txn is either read-only or
// read-write; writes on a read-only Txn fail with ErrReadOnly. Callers own
// commit and rollback.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes (EnableWAL, after startup checks)
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// The pool holds a single connection, so at most one Txn is open at a time.
package store
