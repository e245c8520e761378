package stats

import (
	"context"
	"errors"
	"io"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/osm-wrangle/internal/audit"
	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/model"
)

// AuditOptions selects the tags the audit looks at.
type AuditOptions struct {
	StreetKey   string // raw tag key, default "addr:street"
	FixDateKey  string // raw tag key, default "fixme:date"
	Corrections []audit.Correction
	Today       time.Time
}

// StreetFix is a street name and the name the corrector would write.
type StreetFix struct {
	Name      string
	Corrected string
}

// StreetTypeReport is one unexpected street type with its names.
type StreetTypeReport struct {
	Type  string
	Fixes []StreetFix
}

// FixDate is one distinct fix-date value and the corrector's verdict.
type FixDate struct {
	Value     string
	Corrected string // empty when Err is set
	Err       error
}

// AuditReport is the result of Audit.
type AuditReport struct {
	Streets  []StreetTypeReport
	FixDates []FixDate
}

// Audit reads the node and way tags of the document and reports street names
// with unexpected types, and every distinct fix-date value, each with the
// correction the shaper would apply.
func Audit(ctx context.Context, r io.Reader, opts AuditOptions) (*AuditReport, error) {
	if opts.StreetKey == "" {
		opts.StreetKey = "addr:street"
	}
	if opts.FixDateKey == "" {
		opts.FixDateKey = "fixme:date"
	}
	if opts.Today.IsZero() {
		opts.Today = time.Now()
	}

	streets := audit.NewStreetAudit(audit.ExpectedStreetTypes)
	dates := make(map[string]struct{})

	er := fetcher.NewElementReader(r, model.TagNode, model.TagWay)
	for {
		el, err := er.Next(ctx)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, eris.Wrap(err, "stats: audit")
		}
		for i := range el.Children {
			child := &el.Children[i]
			if child.Name() != model.TagTag {
				continue
			}
			k, _ := child.Attr("k")
			v, _ := child.Attr("v")
			switch k {
			case opts.StreetKey:
				streets.Add(v)
			case opts.FixDateKey:
				dates[v] = struct{}{}
			}
		}
		er.Release(el)
	}

	report := &AuditReport{}
	for _, st := range streets.Report() {
		tr := StreetTypeReport{Type: st.Type, Fixes: make([]StreetFix, len(st.Names))}
		for i, name := range st.Names {
			tr.Fixes[i] = StreetFix{Name: name, Corrected: audit.CorrectStreet(name, opts.Corrections)}
		}
		report.Streets = append(report.Streets, tr)
	}

	values := make([]string, 0, len(dates))
	for v := range dates {
		values = append(values, v)
	}
	sort.Strings(values)
	for _, v := range values {
		corrected, err := audit.CorrectFixDate(v, opts.Today)
		fd := FixDate{Value: v, Err: err}
		if err == nil {
			fd.Corrected = corrected
		}
		report.FixDates = append(report.FixDates, fd)
	}
	return report, nil
}
