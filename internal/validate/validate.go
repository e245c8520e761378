// Package validate checks shaped records against the table schema declared
// by the validate struct tags on the model rows.
package validate

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/tags"
)

// ValidationError names the first offending field of a record and every
// rule it broke.
type ValidationError struct {
	Kind   model.Kind
	ID     int64
	Field  string
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validate: %s %d field %q: %s", e.Kind, e.ID, e.Field, strings.Join(e.Errors, "; "))
}

// Validator checks records. It is safe for concurrent use.
type Validator struct {
	validate *validator.Validate
}

// New returns a Validator with the custom rules registered. Keys are checked
// against problemChars, the same set the classifier drops tags on; an empty
// set means tags.DefaultProblemChars.
func New(problemChars string) (*Validator, error) {
	if problemChars == "" {
		problemChars = tags.DefaultProblemChars
	}
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := RegisterCustomValidators(v, problemChars); err != nil {
		return nil, err
	}
	return &Validator{validate: v}, nil
}

// Validate returns nil when rec matches its schema and a *ValidationError
// otherwise.
func (v *Validator) Validate(rec model.Record) error {
	err := v.validate.Struct(rec)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return eris.Wrapf(err, "validate: %s %d", rec.Kind(), rec.EntityID())
	}

	byField := make(map[string][]string)
	var order []string
	for _, fe := range fieldErrs {
		ns := trimRoot(fe.Namespace())
		if _, seen := byField[ns]; !seen {
			order = append(order, ns)
		}
		byField[ns] = append(byField[ns], describe(fe))
	}
	first := order[0]
	msgs := byField[first]
	sort.Strings(msgs)
	return &ValidationError{Kind: rec.Kind(), ID: rec.EntityID(), Field: first, Errors: msgs}
}

// trimRoot drops the struct type name validator prefixes to each namespace,
// leaving e.g. "node_tags[2].key".
func trimRoot(ns string) string {
	if _, rest, ok := strings.Cut(ns, "."); ok {
		return rest
	}
	return ns
}

func describe(fe validator.FieldError) string {
	if fe.Param() == "" {
		return fmt.Sprintf("failed %q (value %v)", fe.Tag(), fe.Value())
	}
	return fmt.Sprintf("failed %q=%s (value %v)", fe.Tag(), fe.Param(), fe.Value())
}
