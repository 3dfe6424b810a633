package cli

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/eventdb/internal/event"
	"github.com/roach88/eventdb/internal/store"
	"github.com/roach88/eventdb/internal/trie"
)

// maxLineSize bounds a single imported event line.
const maxLineSize = 16 << 20

// ImportOptions holds flags for the import command.
type ImportOptions struct {
	*RootOptions
	BatchSize int
	Strict    bool
}

// ImportResult summarizes an import.
type ImportResult struct {
	Processed  int    `json:"processed"`
	Inserted   int    `json:"inserted"`
	Duplicates int    `json:"duplicates"`
	Invalid    int    `json:"invalid"`
	EventsRoot string `json:"events_root"`
}

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ImportOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import events from stdin",
		Long: `Import newline-delimited JSON events from stdin.

Events already present (same id) are skipped. Each imported event is added
to the events tree, whose root is recomputed after every batch. Invalid
lines are logged and skipped unless --strict is given.

Example:
  eventdb import --db ./eventdb.sqlite < events.jsonl
  eventdb export --db old.sqlite | eventdb import --db new.sqlite`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd.Context(), opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", 10000, "events per transaction")
	cmd.Flags().BoolVar(&opts.Strict, "strict", false, "fail on the first invalid line")

	return cmd
}

func runImport(ctx context.Context, opts *ImportOptions, cmd *cobra.Command) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if opts.BatchSize <= 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("invalid batch size %d", opts.BatchSize))
	}

	st, err := openStore(ctx, opts.RootOptions, "import")
	if err != nil {
		return err
	}
	defer closeStore(opts.RootOptions, st)

	var (
		res     ImportResult
		batch   []string
		lineNum int
	)
	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64<<10), maxLineSize)

	for scanner.Scan() {
		lineNum++
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		batch = append(batch, string(line))
		if len(batch) >= opts.BatchSize {
			if err := importBatch(ctx, opts, st, batch, lineNum-len(batch)+1, &res); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if err := scanner.Err(); err != nil {
		return WrapExitError(ExitFailure, "failed to read input", err)
	}
	if err := importBatch(ctx, opts, st, batch, lineNum-len(batch)+1, &res); err != nil {
		return err
	}

	opts.Logger.Info("import complete",
		"processed", res.Processed,
		"inserted", res.Inserted,
		"duplicates", res.Duplicates,
		"invalid", res.Invalid,
	)

	f := &OutputFormatter{Format: opts.Format, Writer: cmd.OutOrStdout()}
	return f.Success(res, fmt.Sprintf(
		"Imported %d events (%d new, %d duplicate, %d invalid)\nevents root: %s\n",
		res.Processed, res.Inserted, res.Duplicates, res.Invalid, res.EventsRoot,
	))
}

// importBatch writes one batch in a single transaction. firstLine is the
// input line number of batch[0], for diagnostics only.
func importBatch(ctx context.Context, opts *ImportOptions, st *store.Store, batch []string, firstLine int, res *ImportResult) error {
	if len(batch) == 0 && res.EventsRoot != "" {
		return nil
	}

	var stats ImportResult
	err := st.Update(ctx, func(txn *store.Txn) error {
		h, err := trie.Open(ctx, txn)
		if err != nil {
			return err
		}

		for i, line := range batch {
			stats.Processed++
			ev, err := event.Parse([]byte(line))
			if err != nil {
				if opts.Strict {
					return NewExitError(ExitFailure, fmt.Sprintf("line %d: %v", firstLine+i, err))
				}
				opts.Logger.Warn("skipping invalid event", "line", firstLine+i, "error", err)
				stats.Invalid++
				continue
			}

			inserted, err := store.InsertEvent(ctx, txn, ev, line)
			if err != nil {
				return err
			}
			if !inserted {
				stats.Duplicates++
				continue
			}
			stats.Inserted++

			hash, err := ev.Hash()
			if err != nil {
				return fmt.Errorf("hash event %s: %w", ev.ID, err)
			}
			if err := h.Put(ctx, []byte(ev.ID), hash[:]); err != nil {
				return err
			}
		}

		root, err := h.Commit(ctx)
		if err != nil {
			return err
		}
		stats.EventsRoot = fmt.Sprintf("%x", root[:])
		return nil
	})
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			return exitErr
		}
		return WrapExitError(ExitFailure, "import failed", err)
	}

	res.Processed += stats.Processed
	res.Inserted += stats.Inserted
	res.Duplicates += stats.Duplicates
	res.Invalid += stats.Invalid
	res.EventsRoot = stats.EventsRoot
	opts.Logger.Debug("batch committed", "events", len(batch), "inserted", stats.Inserted)
	return nil
}
