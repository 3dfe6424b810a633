package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/roach88/eventdb/internal/event"
)

// Record is an event as stored, with its insertion sequence and the raw
// JSON it was imported from.
type Record struct {
	Seq   int64
	Event event.Event
	Raw   string
}

// Range filters events by created_at. Zero bounds are unbounded; both
// bounds are inclusive.
type Range struct {
	Since int64
	Until int64
}

// InsertEvent stores an event. Uses ON CONFLICT(id) DO NOTHING; inserted is
// false when an event with the same id already exists.
func InsertEvent(ctx context.Context, txn *Txn, ev event.Event, raw string) (inserted bool, err error) {
	tagsJSON, err := json.Marshal(ev.Tags)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	res, err := txn.ExecContext(ctx, `
		INSERT INTO events (id, pubkey, created_at, kind, tags, content, sig, raw)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		ev.ID,
		ev.Pubkey,
		ev.CreatedAt,
		ev.Kind,
		string(tagsJSON),
		ev.Content,
		ev.Sig,
		raw,
	)
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert event: %w", err)
	}
	return n > 0, nil
}

// ForEachEvent calls fn for every event in r, in seq order, until fn
// returns false. A store without an events table has no events.
func ForEachEvent(ctx context.Context, txn *Txn, r Range, fn func(Record) bool) error {
	ok, err := txn.tableExists(ctx, "events")
	if err != nil || !ok {
		return err
	}

	var (
		where []string
		args  []any
	)
	if r.Since != 0 {
		where = append(where, "created_at >= ?")
		args = append(args, r.Since)
	}
	if r.Until != 0 {
		where = append(where, "created_at <= ?")
		args = append(args, r.Until)
	}

	query := `SELECT seq, id, pubkey, created_at, kind, tags, content, sig, raw FROM events`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY seq ASC"

	rows, err := txn.QueryContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			rec      Record
			tagsJSON string
		)
		if err := rows.Scan(
			&rec.Seq,
			&rec.Event.ID,
			&rec.Event.Pubkey,
			&rec.Event.CreatedAt,
			&rec.Event.Kind,
			&tagsJSON,
			&rec.Event.Content,
			&rec.Event.Sig,
			&rec.Raw,
		); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
		if err := json.Unmarshal([]byte(tagsJSON), &rec.Event.Tags); err != nil {
			return fmt.Errorf("unmarshal tags for event %s: %w", rec.Event.ID, err)
		}
		if !fn(rec) {
			return nil
		}
	}

	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate events: %w", err)
	}
	return nil
}

// HasEvents reports whether at least one event is stored. It stops at the
// first row and reads no columns, so it works on any layout of the events
// table.
func HasEvents(ctx context.Context, txn *Txn) (bool, error) {
	ok, err := txn.tableExists(ctx, "events")
	if err != nil || !ok {
		return false, err
	}

	var found bool
	if err := txn.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events LIMIT 1)`,
	).Scan(&found); err != nil {
		return false, fmt.Errorf("probe events: %w", err)
	}
	return found, nil
}

// CountEvents returns the number of stored events.
func CountEvents(ctx context.Context, txn *Txn) (int64, error) {
	ok, err := txn.tableExists(ctx, "events")
	if err != nil || !ok {
		return 0, err
	}

	var n int64
	if err := txn.QueryRowContext(ctx, `SELECT COUNT(*) FROM events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return n, nil
}
