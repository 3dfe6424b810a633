package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdb/internal/gate"
	"github.com/roach88/eventdb/internal/store"
	"github.com/roach88/eventdb/internal/trie"
)

// InfoResult describes a database.
type InfoResult struct {
	Path           string `json:"path"`
	DBVersion      uint64 `json:"db_version"`
	BuildDBVersion uint64 `json:"build_db_version"`
	Endianness     uint64 `json:"endianness"`
	Events         int64  `json:"events"`
	TrieLeaves     int64  `json:"trie_leaves"`
	EventsRoot     string `json:"events_root"`
}

// NewInfoCommand creates the info command.
func NewInfoCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "info",
		Short: "Show database format and contents",
		Long: `Run the startup checks and print the database's format revision,
byte-order tag, event count and events tree root.

Example:
  eventdb info --db ./eventdb.sqlite
  eventdb info --db ./eventdb.sqlite --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runInfo(cmd.Context(), rootOpts, cmd)
		},
	}
	return cmd
}

func runInfo(ctx context.Context, opts *RootOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, opts, "info")
	if err != nil {
		return err
	}
	defer closeStore(opts, st)

	res := InfoResult{Path: opts.Config.Database, BuildDBVersion: gate.CurrentDBVersion}

	err = st.View(ctx, func(txn *store.Txn) error {
		meta, _, err := store.LookupMeta(ctx, txn, store.MetaKey)
		if err != nil {
			return err
		}
		res.DBVersion = meta.DBVersion
		res.Endianness = meta.Endianness

		res.Events, err = store.CountEvents(ctx, txn)
		return err
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read database", err)
	}

	h, err := trie.OpenReadOnly(ctx, st)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to open events tree", err)
	}
	defer h.Close()

	root, err := h.Root(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read events root", err)
	}
	res.EventsRoot = fmt.Sprintf("%x", root[:])
	if res.TrieLeaves, err = h.Len(ctx); err != nil {
		return WrapExitError(ExitFailure, "failed to count tree leaves", err)
	}

	var text strings.Builder
	fmt.Fprintf(&text, "database:    %s\n", res.Path)
	fmt.Fprintf(&text, "db version:  %d (build %d)\n", res.DBVersion, res.BuildDBVersion)
	fmt.Fprintf(&text, "endianness:  %d\n", res.Endianness)
	fmt.Fprintf(&text, "events:      %d\n", res.Events)
	fmt.Fprintf(&text, "tree leaves: %d\n", res.TrieLeaves)
	fmt.Fprintf(&text, "events root: %s\n", res.EventsRoot)

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(res, text.String())
}
