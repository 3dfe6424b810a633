package cli

import (
	"context"

	"github.com/roach88/eventdb/internal/boot"
	"github.com/roach88/eventdb/internal/gate"
	"github.com/roach88/eventdb/internal/rlimit"
	"github.com/roach88/eventdb/internal/store"
)

// openStore opens the configured database and runs the startup checks for
// command. On success the caller owns the returned store.
//
// Commands exempt from strict version checking only read, so they get a
// read-only connection and never create, migrate or otherwise touch the
// file. Other commands run the checks in their own committed transaction;
// WAL is enabled only after the checks pass.
func openStore(ctx context.Context, opts *RootOptions, command string) (*store.Store, error) {
	g := gate.New(opts.Config.Gate.ExemptCommands)
	readOnly := g.ExemptCommands[command]

	opts.Logger.Debug("opening database", "path", opts.Config.Database, "read_only", readOnly)
	open := store.Open
	if readOnly {
		open = store.OpenReadOnly
	}
	st, err := open(opts.Config.Database)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	sys := opts.Sys
	if sys == nil {
		sys = rlimit.System()
	}
	bootOpts := boot.Options{
		Gate:    g,
		Limiter: &rlimit.Limiter{Target: opts.Config.Relay.NoFiles, Sys: sys},
		Logger:  opts.Logger,
	}

	run := st.Update
	if readOnly {
		run = st.View
	}
	err = run(ctx, func(txn *store.Txn) error {
		_, err := boot.Run(ctx, txn, command, bootOpts)
		return err
	})
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "startup check failed", err)
	}

	if !readOnly {
		if err := st.EnableWAL(); err != nil {
			st.Close()
			return nil, WrapExitError(ExitCommandError, "failed to open database", err)
		}
	}
	return st, nil
}

// closeStore closes st, logging any failure.
func closeStore(opts *RootOptions, st *store.Store) {
	if err := st.Close(); err != nil {
		opts.Logger.Error("error closing database", "error", err)
	}
}
