// Package shape turns top-level OSM elements into normalized rows: one
// attribute row, one row per tag and, for ways, one row per node reference.
package shape

import (
	"strconv"

	"github.com/sells-group/osm-wrangle/internal/audit"
	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/tags"
)

// SkippedTag is a tag that was left out of a record.
type SkippedTag struct {
	Key   string
	Value string
	Err   error // nil when the key was dropped for problem characters
}

// Result is the outcome of shaping one element.
type Result struct {
	Record model.Record

	// Dropped holds tags whose keys contain problem characters.
	Dropped []SkippedTag
	// Malformed holds tags whose value could not be corrected, or that lack a key.
	Malformed []SkippedTag
}

// Shaper converts elements to records. It keeps no state between calls.
type Shaper struct {
	classifier *tags.Classifier
	corrector  *audit.Corrector
}

// New returns a Shaper that classifies keys with classifier and corrects
// values with corrector.
func New(classifier *tags.Classifier, corrector *audit.Corrector) *Shaper {
	return &Shaper{classifier: classifier, corrector: corrector}
}

// Shape converts el into a *model.PointRecord (node) or *model.PathRecord
// (way). Other element kinds yield an *UnsupportedElementError. Tags that are
// dropped or malformed are reported on the Result and do not fail the element.
func (s *Shaper) Shape(el *model.Element) (*Result, error) {
	switch el.Name() {
	case model.TagNode:
		return s.shapePoint(el)
	case model.TagWay:
		return s.shapePath(el)
	default:
		return nil, &UnsupportedElementError{Tag: el.Name()}
	}
}

func (s *Shaper) shapePoint(el *model.Element) (*Result, error) {
	a := attrReader{el: el}
	p := model.Point{
		ID:        a.id(),
		Lat:       a.decimal("lat"),
		Lon:       a.decimal("lon"),
		User:      a.user(),
		UID:       a.uid(),
		Version:   a.str("version"),
		Changeset: a.integer("changeset"),
		Timestamp: a.str("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	res := &Result{}
	rec := &model.PointRecord{Point: p, Tags: []model.Annotation{}}
	for i := range el.Children {
		child := &el.Children[i]
		if child.Name() != model.TagTag {
			continue
		}
		if tag, ok := s.annotation(p.ID, child, res); ok {
			rec.Tags = append(rec.Tags, tag)
		}
	}
	res.Record = rec
	return res, nil
}

func (s *Shaper) shapePath(el *model.Element) (*Result, error) {
	a := attrReader{el: el}
	p := model.Path{
		ID:        a.id(),
		User:      a.user(),
		UID:       a.uid(),
		Version:   a.str("version"),
		Changeset: a.integer("changeset"),
		Timestamp: a.str("timestamp"),
	}
	if a.err != nil {
		return nil, a.err
	}

	res := &Result{}
	rec := &model.PathRecord{Path: p, Nodes: []model.ChildReference{}, Tags: []model.Annotation{}}
	position := 0
	for i := range el.Children {
		child := &el.Children[i]
		switch child.Name() {
		case model.TagTag:
			if tag, ok := s.annotation(p.ID, child, res); ok {
				rec.Tags = append(rec.Tags, tag)
			}
		case model.TagNd:
			ref, err := childRef(el, p.ID, child)
			if err != nil {
				return nil, err
			}
			rec.Nodes = append(rec.Nodes, model.ChildReference{ID: p.ID, NodeID: ref, Position: position})
			position++
		}
	}
	res.Record = rec
	return res, nil
}

// annotation builds the row for one tag child. It reports false, and records
// why on res, when the tag must be left out.
func (s *Shaper) annotation(id int64, child *model.Child, res *Result) (model.Annotation, bool) {
	value, _ := child.Attr("v")
	raw, ok := child.Attr("k")
	if !ok {
		res.Malformed = append(res.Malformed, SkippedTag{
			Value: value,
			Err:   &MissingAttributeError{Kind: model.TagTag, ID: strconv.FormatInt(id, 10), Attr: "k"},
		})
		return model.Annotation{}, false
	}
	if !s.classifier.Allowed(raw) {
		res.Dropped = append(res.Dropped, SkippedTag{Key: raw, Value: value})
		return model.Annotation{}, false
	}

	typ, key := s.classifier.Classify(raw)
	corrected, err := s.corrector.Correct(typ, key, value)
	if err != nil {
		res.Malformed = append(res.Malformed, SkippedTag{Key: raw, Value: value, Err: err})
		return model.Annotation{}, false
	}
	return model.Annotation{ID: id, Key: key, Value: corrected, Type: typ}, true
}

func childRef(el *model.Element, id int64, child *model.Child) (int64, error) {
	idStr := strconv.FormatInt(id, 10)
	ref, ok := child.Attr("ref")
	if !ok || ref == "" {
		return 0, &MissingAttributeError{Kind: el.Name(), ID: idStr, Attr: "nd.ref"}
	}
	n, err := strconv.ParseInt(ref, 10, 64)
	if err != nil {
		return 0, &InvalidAttributeError{Kind: el.Name(), ID: idStr, Attr: "nd.ref", Value: ref, Err: err}
	}
	return n, nil
}

// attrReader reads typed attributes and keeps the first error it meets.
type attrReader struct {
	el  *model.Element
	err error
}

func (a *attrReader) idString() string {
	v, _ := a.el.Attr("id")
	return v
}

func (a *attrReader) str(name string) string {
	if a.err != nil {
		return ""
	}
	v, ok := a.el.Attr(name)
	if !ok || v == "" {
		a.err = &MissingAttributeError{Kind: a.el.Name(), ID: a.idString(), Attr: name}
		return ""
	}
	return v
}

func (a *attrReader) integer(name string) int64 {
	v := a.str(name)
	if a.err != nil {
		return 0
	}
	return a.parseInt(name, v)
}

func (a *attrReader) decimal(name string) float64 {
	v := a.str(name)
	if a.err != nil {
		return 0
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		a.err = &InvalidAttributeError{Kind: a.el.Name(), ID: a.idString(), Attr: name, Value: v, Err: err}
		return 0
	}
	return f
}

func (a *attrReader) id() int64 {
	return a.integer("id")
}

// user falls back to model.DefaultUser when the attribute is absent.
func (a *attrReader) user() string {
	if v, ok := a.el.Attr("user"); ok {
		return v
	}
	return model.DefaultUser
}

// uid falls back to model.DefaultUID when the attribute is absent.
func (a *attrReader) uid() int64 {
	if a.err != nil {
		return 0
	}
	v, ok := a.el.Attr("uid")
	if !ok {
		return model.DefaultUID
	}
	return a.parseInt("uid", v)
}

func (a *attrReader) parseInt(name, v string) int64 {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		a.err = &InvalidAttributeError{Kind: a.el.Name(), ID: a.idString(), Attr: name, Value: v, Err: err}
		return 0
	}
	return n
}
