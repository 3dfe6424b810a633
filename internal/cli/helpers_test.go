package cli

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/roach88/eventdb/internal/rlimit"
	"github.com/roach88/eventdb/internal/store"
)

const testEvents = `{"id":"e1","pubkey":"p1","created_at":100,"kind":1,"tags":[],"content":"first","sig":"s1"}
{"id":"e2","pubkey":"p1","created_at":200,"kind":1,"tags":[["e","e1"]],"content":"second","sig":"s2"}
{"id":"e3","pubkey":"p2","created_at":300,"kind":7,"tags":[["e","e2"],["p","p1"]],"content":"+","sig":"s3"}
`

// fakeSys fabricates rlimit syscalls.
type fakeSys struct {
	limit rlimit.Limit
}

func (f *fakeSys) Get() (rlimit.Limit, error) { return f.limit, nil }

func (f *fakeSys) Set(l rlimit.Limit) error {
	f.limit = l
	return nil
}

// cliResult captures one CLI invocation.
type cliResult struct {
	stdout string
	stderr string
	err    error
}

// runCLI executes the root command with args and stdin.
func runCLI(t *testing.T, sys rlimit.Syscaller, stdin string, args ...string) cliResult {
	t.Helper()
	var stdout, stderr bytes.Buffer
	if sys == nil {
		sys = &fakeSys{limit: rlimit.Limit{Soft: 1024, Hard: 4096}}
	}
	cmd := newRootCommand(&RootOptions{Sys: sys})
	cmd.SetArgs(args)
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	err := cmd.Execute()
	return cliResult{stdout: stdout.String(), stderr: stderr.String(), err: err}
}

func testDBPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "test.db")
}

// seedMeta lays down the schema and writes a metadata record directly,
// bypassing the startup gate.
func seedMeta(t *testing.T, path string, meta store.Meta) {
	t.Helper()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Update(context.Background(), func(txn *store.Txn) error {
		if err := store.ApplySchema(context.Background(), txn); err != nil {
			return err
		}
		return store.InsertMeta(context.Background(), txn, meta, store.MetaKey)
	}))
}

// createLegacyStore writes a store in the layout used before metadata and
// the events tree existed, holding the given JSON lines.
func createLegacyStore(t *testing.T, path, lines string) {
	t.Helper()
	ctx := context.Background()
	st, err := store.Open(path)
	require.NoError(t, err)
	defer st.Close()
	require.NoError(t, st.Update(ctx, func(txn *store.Txn) error {
		if _, err := txn.ExecContext(ctx, `CREATE TABLE events (
			seq INTEGER PRIMARY KEY, id TEXT NOT NULL UNIQUE, pubkey TEXT NOT NULL,
			created_at INTEGER NOT NULL, kind INTEGER NOT NULL, tags TEXT NOT NULL,
			content TEXT NOT NULL, sig TEXT NOT NULL, raw TEXT NOT NULL)`); err != nil {
			return err
		}
		for i, line := range strings.Split(strings.TrimSpace(lines), "\n") {
			if _, err := txn.ExecContext(ctx,
				`INSERT INTO events (id, pubkey, created_at, kind, tags, content, sig, raw) VALUES (?, '', 0, 0, '[]', '', '', ?)`,
				fmt.Sprintf("legacy-%d", i), line,
			); err != nil {
				return err
			}
		}
		return nil
	}))
}

// dbLayout is what a command must not change on a store it rejects or
// only reads.
type dbLayout struct {
	Objects     []string
	JournalMode string
}

// readLayout inspects the store at path through a read-only connection.
func readLayout(t *testing.T, path string) dbLayout {
	t.Helper()
	ctx := context.Background()
	st, err := store.OpenReadOnly(path)
	require.NoError(t, err)
	defer st.Close()

	layout := dbLayout{Objects: []string{}}
	require.NoError(t, st.View(ctx, func(txn *store.Txn) error {
		rows, err := txn.QueryContext(ctx,
			`SELECT type || ' ' || name || ' ' || IFNULL(sql, '') FROM sqlite_master ORDER BY type, name`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var obj string
			if err := rows.Scan(&obj); err != nil {
				return err
			}
			layout.Objects = append(layout.Objects, obj)
		}
		if err := rows.Err(); err != nil {
			return err
		}
		return txn.QueryRowContext(ctx, `PRAGMA journal_mode`).Scan(&layout.JournalMode)
	}))
	return layout
}
