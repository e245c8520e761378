package audit

import "time"

// Field identifies a tag by its classified namespace and key.
type Field struct {
	Type string
	Key  string
}

// Fields whose values are corrected by default.
var (
	DefaultStreetField  = Field{Type: "addr", Key: "street"}
	DefaultFixDateField = Field{Type: "fixme", Key: "date"}
)

// Corrector applies the street-suffix and fix-date corrections to the tags
// they belong to. It holds no mutable state and is safe to share.
type Corrector struct {
	corrections  []Correction
	streetField  Field
	fixDateField Field
	now          func() time.Time
}

// Option configures a Corrector.
type Option func(*Corrector)

// WithStreetField overrides the field treated as a street name.
func WithStreetField(f Field) Option {
	return func(c *Corrector) { c.streetField = f }
}

// WithFixDateField overrides the field treated as a fix-request date.
func WithFixDateField(f Field) Option {
	return func(c *Corrector) { c.fixDateField = f }
}

// WithClock sets the source of "today" for fix-date correction.
func WithClock(now func() time.Time) Option {
	return func(c *Corrector) { c.now = now }
}

// NewCorrector returns a Corrector using corrections in the given order.
func NewCorrector(corrections []Correction, opts ...Option) *Corrector {
	c := &Corrector{
		corrections:  append([]Correction(nil), corrections...),
		streetField:  DefaultStreetField,
		fixDateField: DefaultFixDateField,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Correct returns the corrected value for a tag classified as (typ, key).
// Tags other than the street and fix-date fields pass through unchanged.
// A malformed fix date yields a *FormatError.
func (c *Corrector) Correct(typ, key, value string) (string, error) {
	f := Field{Type: typ, Key: key}
	switch f {
	case c.streetField:
		return CorrectStreet(value, c.corrections), nil
	case c.fixDateField:
		return CorrectFixDate(value, c.now())
	default:
		return value, nil
	}
}

// Corrections returns a copy of the correction table.
func (c *Corrector) Corrections() []Correction {
	return append([]Correction(nil), c.corrections...)
}
