// Package audit corrects known defects in tag values and surveys street
// names for suffixes that need a correction.
package audit

import (
	"regexp"
	"sort"
	"strings"
)

// Correction maps one malformed street suffix token to its canonical form.
type Correction struct {
	From string `yaml:"from" mapstructure:"from"`
	To   string `yaml:"to" mapstructure:"to"`
}

// DefaultCorrections is the stock correction table. Order matters: see
// CorrectStreet.
var DefaultCorrections = []Correction{
	{From: "St", To: "Street"},
	{From: "St.", To: "Street"},
	{From: "Ave", To: "Avenue"},
	{From: "Ave.", To: "Avenue"},
	{From: "Rd", To: "Road"},
	{From: "Rd.", To: "Road"},
}

// ExpectedStreetTypes are street types that need no correction.
var ExpectedStreetTypes = []string{
	"Street", "Avenue", "Boulevard", "Drive", "Court", "Place",
	"Square", "Lane", "Road", "Trail", "Parkway", "Commons",
}

// CorrectStreet rewrites malformed suffix tokens in name, walking corrections
// in order. When name ends with a period only tokens that also end with a
// period apply, and the first one that matches ends the walk. Otherwise every
// matching token is replaced.
//
// Replacement is by substring, not by suffix: "Stanley St" becomes
// "Streetanley Street" under the default table.
func CorrectStreet(name string, corrections []Correction) string {
	for _, c := range corrections {
		if c.From == "" || !strings.Contains(name, c.From) {
			continue
		}
		if strings.HasSuffix(name, ".") {
			if !strings.HasSuffix(c.From, ".") {
				continue
			}
			return strings.ReplaceAll(name, c.From, c.To)
		}
		name = strings.ReplaceAll(name, c.From, c.To)
	}
	return name
}

var streetTypeRe = regexp.MustCompile(`\b\S+\.?$`)

// StreetType returns the trailing token of a street name, or "" if none.
func StreetType(name string) string {
	return streetTypeRe.FindString(name)
}

// StreetAudit collects street names whose type is not an expected one.
type StreetAudit struct {
	expected map[string]bool
	types    map[string]map[string]struct{}
}

// NewStreetAudit returns an empty audit against the given expected types.
func NewStreetAudit(expected []string) *StreetAudit {
	set := make(map[string]bool, len(expected))
	for _, e := range expected {
		set[e] = true
	}
	return &StreetAudit{expected: set, types: make(map[string]map[string]struct{})}
}

// Add records name if its street type is unexpected.
func (a *StreetAudit) Add(name string) {
	st := StreetType(name)
	if st == "" || a.expected[st] {
		return
	}
	names, ok := a.types[st]
	if !ok {
		names = make(map[string]struct{})
		a.types[st] = names
	}
	names[name] = struct{}{}
}

// StreetTypeNames is one unexpected street type and the names that use it.
type StreetTypeNames struct {
	Type  string
	Names []string
}

// Report returns the unexpected types and their names, both sorted.
func (a *StreetAudit) Report() []StreetTypeNames {
	out := make([]StreetTypeNames, 0, len(a.types))
	for st, names := range a.types {
		list := make([]string, 0, len(names))
		for n := range names {
			list = append(list, n)
		}
		sort.Strings(list)
		out = append(out, StreetTypeNames{Type: st, Names: list})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Type < out[j].Type })
	return out
}
