package cli

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/roach88/floorplan/internal/catalog"
)

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid         bool                      `json:"valid"`
	Classes       int                       `json:"classes"`
	Relationships int                       `json:"relationships"`
	Errors        []catalog.ValidationError `json:"errors,omitempty"`
	Warnings      []catalog.CycleWarning    `json:"warnings,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <catalog-dir>",
		Short: "Validate a CUE entity catalog",
		Long: `Compile a CUE catalog directory and check it.

Reports compile errors with their source position, rule violations (unknown
kinds, undeclared tracked fields, duplicate names and so on) and warns about
loops among depends_on declarations.`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runValidate(rootOpts, args[0], cmd)
		},
	}
	return cmd
}

func runValidate(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadCatalog(dir)
	if err != nil {
		var loadErr *LoadError
		if !errors.As(err, &loadErr) {
			return outputValidateError(formatter, ErrCodeGeneric, err.Error())
		}
		if loadErr.Code == ErrCodeCompile {
			line := ""
			if loadErr.Pos.IsValid() {
				line = fmt.Sprintf("%s:%d: ", loadErr.Pos.Filename(), loadErr.Pos.Line())
			}
			return outputValidationErrors(formatter, ValidationResult{
				Errors: []catalog.ValidationError{{Field: "catalog", Message: line + loadErr.Message, Code: loadErr.Code}},
			})
		}
		return outputValidateError(formatter, loadErr.Code, loadErr.Message)
	}
	formatter.Debugf("Found %d CUE file(s) in %s", loaded.FileCount, dir)

	cat := loaded.Catalog
	result := ValidationResult{
		Classes:       len(cat.Classes),
		Relationships: len(cat.Relationships),
		Errors:        catalog.Validate(cat),
		Warnings:      catalog.AnalyzeCycles(cat),
	}
	if len(result.Errors) > 0 {
		return outputValidationErrors(formatter, result)
	}
	result.Valid = true
	return outputValidateSuccess(formatter, result)
}

func outputValidateSuccess(formatter *OutputFormatter, result ValidationResult) error {
	if formatter.Format == "json" {
		return formatter.Success(result)
	}

	fmt.Fprintf(formatter.Writer, "✓ Catalog valid (%d classes, %d relationships)\n", result.Classes, result.Relationships)
	for _, w := range result.Warnings {
		fmt.Fprintf(formatter.Writer, "  warning: %s\n", w)
	}
	return nil
}

// outputValidateError reports a problem reading the catalog at all.
func outputValidateError(formatter *OutputFormatter, code, message string) error {
	_ = formatter.Error(code, message, nil)
	return NewExitError(ExitCommandError, fmt.Sprintf("%s: %s", code, message))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	errs := result.Errors
	if formatter.Format == "json" {
		response := CLIResponse{
			Status: "error",
			Data:   result,
			Error: &CLIError{
				Code:    errs[0].Code,
				Message: errs[0].Message,
			},
		}
		encoder := json.NewEncoder(formatter.Writer)
		encoder.SetIndent("", "  ")
		if err := encoder.Encode(response); err != nil {
			return err
		}
		return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
	}

	fmt.Fprintln(formatter.Writer, "✗ Validation failed")
	fmt.Fprintln(formatter.Writer)
	for _, err := range errs {
		fmt.Fprintf(formatter.Writer, "  %s: %s: %s\n", err.Code, err.Field, err.Message)
	}
	return NewExitError(ExitFailure, fmt.Sprintf("validation failed with %d error(s)", len(errs)))
}
