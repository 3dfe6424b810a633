package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/roach88/eventdb/internal/event"
)

// createTestStore creates a store with the schema applied but no metadata
// record, in a temp directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	s := createBareStore(t, filepath.Join(t.TempDir(), "test.db"))
	err := s.Update(context.Background(), func(txn *Txn) error {
		return ApplySchema(context.Background(), txn)
	})
	if err != nil {
		t.Fatalf("ApplySchema() failed: %v", err)
	}
	return s
}

// createBareStore opens a store at path without applying the schema.
func createBareStore(t *testing.T, path string) *Store {
	t.Helper()
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// tableNames lists the non-internal tables in s, sorted.
func tableNames(t *testing.T, s *Store) []string {
	t.Helper()
	rows, err := s.db.Query("SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name")
	if err != nil {
		t.Fatalf("query sqlite_master failed: %v", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		names = append(names, name)
	}
	if err := rows.Err(); err != nil {
		t.Fatalf("iterate sqlite_master failed: %v", err)
	}
	return names
}

// createTestEvent creates an event with minimal required fields.
func createTestEvent(id string, createdAt int64) event.Event {
	return event.Event{
		ID:        id,
		Pubkey:    "pk-" + id,
		CreatedAt: createdAt,
		Kind:      1,
		Tags:      [][]string{{"t", "test"}},
		Content:   "content " + id,
		Sig:       "sig-" + id,
	}
}

// insertTestEvents inserts n events with ids ev-0..ev-(n-1).
func insertTestEvents(t *testing.T, s *Store, n int) {
	t.Helper()
	err := s.Update(context.Background(), func(txn *Txn) error {
		for i := 0; i < n; i++ {
			id := fmt.Sprintf("ev-%d", i)
			if _, err := InsertEvent(context.Background(), txn, createTestEvent(id, int64(1000+i)), `{"id":"`+id+`"}`); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		t.Fatalf("insert events failed: %v", err)
	}
}
