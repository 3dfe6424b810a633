// Package boot sequences the startup checks that must pass before any
// command touches the store: the format gate, the descriptor limit, and a
// trial checkout of the events tree.
package boot

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/roach88/eventdb/internal/gate"
	"github.com/roach88/eventdb/internal/rlimit"
	"github.com/roach88/eventdb/internal/store"
	"github.com/roach88/eventdb/internal/trie"
)

// Options configures a boot run.
type Options struct {
	Gate    *gate.Gate
	Limiter *rlimit.Limiter

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// Result describes a successful boot.
type Result struct {
	// ID identifies this boot in logs.
	ID string

	Outcome gate.Outcome
}

// Run performs the startup checks for command within txn, in order:
// version gate, descriptor limit, events tree checkout. Any error is fatal
// to the process. Run never commits or rolls back txn.
//
// A store admitted as read-only legacy is in an older layout that may have
// no events tree, so the checkout is skipped for it.
func Run(ctx context.Context, txn *store.Txn, command string, opts Options) (Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	res := Result{ID: uuid.Must(uuid.NewV7()).String()}
	logger = logger.With("boot_id", res.ID, "command", command)

	outcome, err := opts.Gate.Check(ctx, txn, command)
	if err != nil {
		return res, fmt.Errorf("db check: %w", err)
	}
	res.Outcome = outcome
	logger.Debug("db check passed", "outcome", outcome.String(), "db_version", opts.Gate.Version)
	if outcome == gate.OutcomeBootstrap {
		logger.Info("initialized new database", "db_version", opts.Gate.Version)
	}

	if err := opts.Limiter.Configure(); err != nil {
		return res, fmt.Errorf("set rlimits: %w", err)
	}
	if opts.Limiter.Target != 0 {
		logger.Debug("file descriptor limit set", "nofiles", opts.Limiter.Target)
	}

	if outcome == gate.OutcomeReadOnlyLegacy {
		logger.Debug("legacy store, skipping trie checkout")
		return res, nil
	}

	// The handle only proves the tree can be checked out; callers open
	// their own.
	if _, err := trie.Open(ctx, txn); err != nil {
		return res, fmt.Errorf("open trie: %w", err)
	}
	logger.Debug("trie checkout ok", "head", trie.EventsHead)

	return res, nil
}
