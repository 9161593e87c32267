package cli

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/roach88/floorplan/internal/ir"
)

// ClassesResult lists a catalog's types.
type ClassesResult struct {
	Source        string                `json:"source"`
	Classes       []ir.ClassSpec        `json:"classes"`
	Relationships []ir.RelationshipSpec `json:"relationships"`
}

// NewClassesCommand creates the classes command.
func NewClassesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classes [catalog-dir]",
		Short: "List the classes of a catalog",
		Long: `List the entity classes and relationship types of a CUE catalog.
Without a directory the built-in catalog is listed.

Examples:
  floorplan classes
  floorplan classes ./catalog --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runClasses(rootOpts, dir, cmd)
		},
	}
	return cmd
}

func runClasses(opts *RootOptions, dir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	loaded, err := LoadCatalog(dir)
	if err != nil {
		var loadErr *LoadError
		if errors.As(err, &loadErr) {
			_ = formatter.Error(loadErr.Code, loadErr.Message, nil)
		}
		return WrapExitError(ExitCommandError, "failed to load catalog", err)
	}

	cat := loaded.Catalog
	if formatter.Format == "json" {
		return formatter.Success(ClassesResult{
			Source:        loaded.Source,
			Classes:       cat.Classes,
			Relationships: cat.Relationships,
		})
	}

	w := tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CLASS\tKIND\tDEPENDS ON\tCONSTRAINTS\tSELECTABLE")
	fmt.Fprintln(w, "-----\t----\t----------\t-----------\t----------")
	for _, c := range cat.Classes {
		names := make([]string, len(c.Constraints))
		for i, con := range c.Constraints {
			names[i] = con.Name
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%t\n", c.Name, c.Kind, dash(c.DependsOn), dash(names), c.Selectable)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if len(cat.Relationships) == 0 {
		return nil
	}
	fmt.Fprintln(formatter.Writer)
	w = tabwriter.NewWriter(formatter.Writer, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RELATIONSHIP\tMODEL\tDEFAULTS")
	fmt.Fprintln(w, "------------\t-----\t--------")
	for _, r := range cat.Relationships {
		defaults := "-"
		if len(r.Defaults) > 0 {
			b, err := ir.MarshalCanonical(r.Defaults)
			if err != nil {
				return err
			}
			defaults = string(b)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", r.Name, r.Model, defaults)
	}
	return w.Flush()
}

func dash(s []string) string {
	if len(s) == 0 {
		return "-"
	}
	return strings.Join(s, ",")
}
