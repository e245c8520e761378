package shape

import (
	"errors"
	"fmt"
)

// ErrUnsupportedElementKind matches any *UnsupportedElementError.
var ErrUnsupportedElementKind = errors.New("shape: unsupported element kind")

// UnsupportedElementError reports a top-level element that is neither a node
// nor a way.
type UnsupportedElementError struct {
	Tag string
}

func (e *UnsupportedElementError) Error() string {
	return fmt.Sprintf("shape: unsupported element kind %q", e.Tag)
}

// Is lets errors.Is match ErrUnsupportedElementKind.
func (e *UnsupportedElementError) Is(target error) bool {
	return target == ErrUnsupportedElementKind
}

// MissingAttributeError reports a required attribute that is absent or empty.
type MissingAttributeError struct {
	Kind string // element tag name
	ID   string // element id when known
	Attr string
}

func (e *MissingAttributeError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("shape: %s is missing attribute %q", e.Kind, e.Attr)
	}
	return fmt.Sprintf("shape: %s %s is missing attribute %q", e.Kind, e.ID, e.Attr)
}

// InvalidAttributeError reports an attribute that does not parse into its
// typed column.
type InvalidAttributeError struct {
	Kind  string
	ID    string
	Attr  string
	Value string
	Err   error
}

func (e *InvalidAttributeError) Error() string {
	return fmt.Sprintf("shape: %s %s has invalid %s %q: %v", e.Kind, e.ID, e.Attr, e.Value, e.Err)
}

func (e *InvalidAttributeError) Unwrap() error {
	return e.Err
}
