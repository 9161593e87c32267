package catalog

import (
	"fmt"
	"slices"

	"github.com/roach88/floorplan/internal/graph"
	"github.com/roach88/floorplan/internal/ir"
	"github.com/roach88/floorplan/internal/relation"
)

// Validation error codes (E100-E199)
const (
	// Class errors (E101-E109)
	ErrUnknownKind         = "E101" // kind is not a graph kind
	ErrUnknownDependency   = "E102" // depends_on names an unknown kind
	ErrUndeclaredTracked   = "E103" // tracked field missing from fields
	ErrDuplicateConstraint = "E104" // two constraints share a name
	ErrInvalidRule         = "E105" // constraint rule not understood
	ErrConstraintField     = "E106" // field rule without a declared field

	// Relationship errors (E110-E119)
	ErrUnknownModel = "E110" // model has no constructor

	// Catalog errors (E120-E129)
	ErrDuplicateName = "E120" // class and relationship names share one namespace
)

// ValidationError is one rule violation found in a compiled catalog.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// Validate checks a compiled catalog. It reports every problem found rather
// than stopping at the first.
func Validate(cat *ir.Catalog) []ValidationError {
	var errs []ValidationError
	seen := make(map[string]bool)

	for _, c := range cat.Classes {
		if seen[c.Name] {
			errs = append(errs, ValidationError{
				Field:   "class." + c.Name,
				Message: fmt.Sprintf("name %q is declared twice", c.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[c.Name] = true
		errs = append(errs, validateClass(c)...)
	}

	for _, r := range cat.Relationships {
		field := "relationship." + r.Name
		if seen[r.Name] {
			errs = append(errs, ValidationError{
				Field:   field,
				Message: fmt.Sprintf("name %q is declared twice", r.Name),
				Code:    ErrDuplicateName,
			})
		}
		seen[r.Name] = true
		if _, ok := relation.Rule(r.Model); !ok {
			errs = append(errs, ValidationError{
				Field:   field + ".model",
				Message: fmt.Sprintf("unknown relationship model %q", r.Model),
				Code:    ErrUnknownModel,
			})
		}
	}
	return errs
}

func validateClass(c ir.ClassSpec) []ValidationError {
	var errs []ValidationError
	field := "class." + c.Name

	if _, err := graph.ParseKind(c.Kind); err != nil {
		errs = append(errs, ValidationError{
			Field:   field + ".kind",
			Message: err.Error(),
			Code:    ErrUnknownKind,
		})
	}

	for i, dep := range c.DependsOn {
		if _, err := graph.ParseKind(dep); err != nil {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.depends_on[%d]", field, i),
				Message: err.Error(),
				Code:    ErrUnknownDependency,
			})
		}
	}

	for i, name := range c.Tracked {
		if _, ok := c.Fields[name]; !ok {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.tracked[%d]", field, i),
				Message: fmt.Sprintf("tracked field %q is not declared in fields", name),
				Code:    ErrUndeclaredTracked,
			})
		}
	}

	names := make(map[string]bool, len(c.Constraints))
	for i, con := range c.Constraints {
		cf := fmt.Sprintf("%s.constraints[%d]", field, i)
		if names[con.Name] {
			errs = append(errs, ValidationError{
				Field:   cf + ".name",
				Message: fmt.Sprintf("duplicate constraint name %q", con.Name),
				Code:    ErrDuplicateConstraint,
			})
		}
		names[con.Name] = true

		if !ir.ValidRules[con.Rule] {
			errs = append(errs, ValidationError{
				Field:   cf + ".rule",
				Message: fmt.Sprintf("unknown rule %q", con.Rule),
				Code:    ErrInvalidRule,
			})
			continue
		}
		if slices.Contains([]string{ir.RuleMin, ir.RuleMax, ir.RulePositive}, con.Rule) {
			if _, ok := c.Fields[con.Field]; !ok {
				errs = append(errs, ValidationError{
					Field:   cf + ".field",
					Message: fmt.Sprintf("rule %s reads undeclared field %q", con.Rule, con.Field),
					Code:    ErrConstraintField,
				})
			}
		}
	}
	return errs
}
