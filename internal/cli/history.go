package cli

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/journal"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	Document string
}

// DocumentHistory is one document's journaled events.
type DocumentHistory struct {
	DocumentID string            `json:"document_id"`
	Events     []ir.HistoryEvent `json:"events"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Print journaled history events",
		Long: `Print the history events recorded in a SQLite journal, in sequence
order. Without --document every document in the journal is printed.

Examples:
  floorplan history --db ./history.db
  floorplan history --db ./history.db --document plan --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.config()
			if err := v.BindPFlag(cfgKeyJournal, cmd.Flags().Lookup("db")); err != nil {
				return err
			}
			opts.Database = v.GetString(cfgKeyJournal)
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite journal (defaults to the configured journal)")
	cmd.Flags().StringVar(&opts.Document, "document", "", "only print this document")
	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	ctx := commandContext(cmd)

	if opts.Database == "" {
		_ = formatter.Error(ErrCodeJournal, "no journal given (use --db or set journal in the config)", nil)
		return NewExitError(ExitCommandError, "no journal given")
	}
	// journal.Open would create a missing file.
	if _, err := os.Stat(opts.Database); err != nil {
		_ = formatter.Error(ErrCodeNotFound, fmt.Sprintf("journal not found: %s", opts.Database), nil)
		return WrapExitError(ExitCommandError, "journal not found", err)
	}

	j, err := journal.Open(opts.Database)
	if err != nil {
		_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to open journal", err)
	}
	defer j.Close()

	docs := []string{opts.Document}
	if opts.Document == "" {
		if docs, err = j.Documents(ctx); err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to list documents", err)
		}
	}

	histories := make([]DocumentHistory, 0, len(docs))
	for _, doc := range docs {
		events, err := j.Events(ctx, doc)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read events", err)
		}
		histories = append(histories, DocumentHistory{DocumentID: doc, Events: events})
	}

	if formatter.Format == "json" {
		return formatter.Success(histories)
	}

	w := formatter.Writer
	if len(histories) == 0 {
		fmt.Fprintln(w, "No history recorded.")
		return nil
	}
	for i, h := range histories {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintf(w, "Document: %s (%d events)\n", h.DocumentID, len(h.Events))
		writeEvents(w, h.Events)
	}
	return nil
}

// writeEvents prints events as a table. State hashes are shortened to their
// first twelve characters.
func writeEvents(w io.Writer, events []ir.HistoryEvent) {
	if len(events) == 0 {
		fmt.Fprintln(w, "  (no events)")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "  SEQ\tOP\tREQUEST\tDESCRIPTION\tSTATES\tSTATE")
	for _, ev := range events {
		hash := ev.StateHash
		if len(hash) > 12 {
			hash = hash[:12]
		}
		fmt.Fprintf(tw, "  %d\t%s\t%s\t%s\t%d\t%s\n", ev.Seq, ev.Op, ev.RequestID, ev.Description, ev.States, hash)
	}
	_ = tw.Flush()
}
