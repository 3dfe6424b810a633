package cli

import (
	"bufio"
	"context"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdb/internal/store"
)

// ExportOptions holds flags for the export command.
type ExportOptions struct {
	*RootOptions
	Since int64
	Until int64
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ExportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export events to stdout",
		Long: `Export stored events as newline-delimited JSON, in insertion order.

Export never writes to the database and may read databases in an older
format, so it is the way to carry events across a format upgrade:
export with the old binary, move the database aside, and import with the
new one.

Example:
  eventdb export --db ./eventdb.sqlite > events.jsonl
  eventdb export --db ./eventdb.sqlite --since 1700000000`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().Int64Var(&opts.Since, "since", 0, "only events with created_at >= since")
	cmd.Flags().Int64Var(&opts.Until, "until", 0, "only events with created_at <= until")

	return cmd
}

func runExport(ctx context.Context, opts *ExportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}

	st, err := openStore(ctx, opts.RootOptions, "export")
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	w := bufio.NewWriter(cmd.OutOrStdout())
	var (
		count    int
		writeErr error
	)
	err = st.View(ctx, func(txn *store.Txn) error {
		return store.ForEachEvent(ctx, txn, store.Range{Since: opts.Since, Until: opts.Until}, func(rec store.Record) bool {
			if _, writeErr = w.WriteString(rec.Raw); writeErr != nil {
				return false
			}
			if writeErr = w.WriteByte('\n'); writeErr != nil {
				return false
			}
			count++
			return true
		})
	})
	if err != nil {
		return WrapExitError(ExitFailure, "failed to read events", err)
	}
	if writeErr == nil {
		writeErr = w.Flush()
	}
	if writeErr != nil {
		return WrapExitError(ExitFailure, "failed to write events", writeErr)
	}

	opts.Logger.Info("export complete", "events", count)
	return nil
}
