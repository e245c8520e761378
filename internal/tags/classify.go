// Package tags splits raw OSM tag keys into a namespace and key, and screens
// out keys that cannot be stored.
package tags

import (
	"regexp"
	"strings"

	"github.com/sells-group/osm-wrangle/internal/model"
)

// Separator divides a namespace from the rest of a key.
const Separator = ":"

// DefaultProblemChars is the set of characters that disqualify a tag key.
const DefaultProblemChars = "=+/&<>;'\"?%#$@,. \t\r\n"

// Classifier decomposes raw tag keys. The zero value is not usable; build one
// with NewClassifier.
type Classifier struct {
	problemChars string
	defaultType  string
}

// NewClassifier returns a Classifier that rejects keys containing any rune of
// problemChars and assigns defaultType to keys without a namespace. Empty
// arguments fall back to DefaultProblemChars and model.DefaultTagType.
func NewClassifier(problemChars, defaultType string) *Classifier {
	if problemChars == "" {
		problemChars = DefaultProblemChars
	}
	if defaultType == "" {
		defaultType = model.DefaultTagType
	}
	return &Classifier{problemChars: problemChars, defaultType: defaultType}
}

// Classify splits raw on its first separator. Everything after the first
// separator, further separators included, becomes the key.
//
//	Classify("addr:street:name") == ("addr", "street:name")
//	Classify("building")         == ("regular", "building")
func (c *Classifier) Classify(raw string) (typ, key string) {
	before, after, found := strings.Cut(raw, Separator)
	if !found {
		return c.defaultType, raw
	}
	return before, after
}

// Allowed reports whether raw is free of problem characters.
func (c *Classifier) Allowed(raw string) bool {
	return !strings.ContainsAny(raw, c.problemChars)
}

// ProblemChars returns the configured disallowed character set.
func (c *Classifier) ProblemChars() string {
	return c.problemChars
}

// KeyClass groups tag keys by shape for auditing.
type KeyClass string

// Key classes, checked in this order.
const (
	KeyLower        KeyClass = "lower"
	KeyLowerColon   KeyClass = "lower_colon"
	KeyProblemChars KeyClass = "problemchars"
	KeyOther        KeyClass = "other"
)

var (
	lowerRe      = regexp.MustCompile(`^([a-z]|_)*$`)
	lowerColonRe = regexp.MustCompile(`^([a-z]|_)*:([a-z]|_)*$`)
)

// ClassOf returns the KeyClass of raw.
func (c *Classifier) ClassOf(raw string) KeyClass {
	switch {
	case lowerRe.MatchString(raw):
		return KeyLower
	case lowerColonRe.MatchString(raw):
		return KeyLowerColon
	case !c.Allowed(raw):
		return KeyProblemChars
	default:
		return KeyOther
	}
}
