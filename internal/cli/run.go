package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/floorplan/internal/engine"
	"github.com/roach88/floorplan/internal/harness"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/journal"
)

// RunOptions holds flags for the run command.
type RunOptions struct {
	*RootOptions
	Journal string
}

// RunResult is the JSON payload of the run command.
type RunResult struct {
	Scenario   string            `json:"scenario"`
	DocumentID string            `json:"document_id"`
	Pass       bool              `json:"pass"`
	Trace      []ir.HistoryEvent `json:"trace"`
	Rebuilt    []string          `json:"rebuilt,omitempty"`
	Errors     []string          `json:"errors,omitempty"`
}

// NewRunCommand creates the run command.
func NewRunCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RunOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "run <scenario.yaml>",
		Short: "Run one scenario and print its history trace",
		Long: `Run one editing scenario against a fresh document and print every
history event (commit, undo, redo, evict, invalidate) it produced.

With --journal the events are also appended to a SQLite journal. Sequence
numbers continue from the last event journaled for the same document.

Examples:
  floorplan run ./scenarios/walls.yaml
  floorplan run ./scenarios/walls.yaml --journal ./history.db --verbose`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			v := opts.config()
			if err := v.BindPFlag(cfgKeyJournal, cmd.Flags().Lookup("journal")); err != nil {
				return err
			}
			opts.Journal = v.GetString(cfgKeyJournal)
			return runScenarioCommand(opts, args[0], cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Journal, "journal", "", "append history events to this SQLite journal")
	return cmd
}

func runScenarioCommand(opts *RunOptions, path string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)
	logger := opts.logger(cmd.ErrOrStderr())

	scenario, err := harness.LoadScenario(path)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to load scenario", err)
	}
	applyHistoryLimit(opts.RootOptions, scenario)
	docID := documentID(scenario)

	runOpts := []harness.Option{harness.WithLogger(logger)}
	if opts.Journal != "" {
		j, err := journal.Open(opts.Journal)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to open journal", err)
		}
		defer func() {
			if cerr := j.Close(); cerr != nil {
				logger.Error("error closing journal", "error", cerr)
			}
		}()
		last, err := j.LastSeq(commandContext(cmd), docID)
		if err != nil {
			_ = formatter.Error(ErrCodeJournal, err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read journal", err)
		}
		logger.Debug("journal opened", "path", opts.Journal, "document", docID, "last_seq", last)
		runOpts = append(runOpts,
			harness.WithJournal(j),
			harness.WithEngineOptions(engine.WithClock(engine.NewClockAt(last))),
		)
	}

	result, err := harness.Run(scenario, runOpts...)
	if err != nil {
		_ = formatter.Error(ErrCodeScenario, err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to run scenario", err)
	}

	out := RunResult{
		Scenario:   scenario.Name,
		DocumentID: docID,
		Pass:       result.Pass,
		Trace:      result.Trace,
		Rebuilt:    result.Rebuilt,
		Errors:     result.Errors,
	}
	if formatter.Format == "json" {
		if err := formatter.Success(out); err != nil {
			return err
		}
	} else {
		writeRunText(formatter.Writer, out)
	}

	if !result.Pass {
		return NewExitError(ExitFailure, fmt.Sprintf("scenario %s failed with %d error(s)", scenario.Name, len(result.Errors)))
	}
	return nil
}

func writeRunText(w io.Writer, r RunResult) {
	fmt.Fprintf(w, "Scenario: %s (document %s)\n", r.Scenario, r.DocumentID)
	writeEvents(w, r.Trace)
	if len(r.Rebuilt) > 0 {
		fmt.Fprintf(w, "Rebuilt: %v\n", r.Rebuilt)
	}
	if r.Pass {
		fmt.Fprintln(w, "✓ passed")
		return
	}
	fmt.Fprintln(w, "✗ failed")
	for _, e := range r.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
}

// applyHistoryLimit fills in the configured undo depth for scenarios that
// do not set their own.
func applyHistoryLimit(opts *RootOptions, s *harness.Scenario) {
	if s.HistoryLimit == 0 {
		s.HistoryLimit = opts.config().GetInt(cfgKeyHistoryLimit)
	}
}

func documentID(s *harness.Scenario) string {
	if s.DocumentID != "" {
		return s.DocumentID
	}
	return s.Name
}
