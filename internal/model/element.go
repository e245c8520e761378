// Package model defines the raw OSM elements read from a map file and the
// normalized rows produced from them.
package model

import "encoding/xml"

// Source tag names for the top-level elements and their children.
const (
	TagNode     = "node"
	TagWay      = "way"
	TagRelation = "relation"
	TagTag      = "tag"
	TagNd       = "nd"
)

// Element is one top-level element of an OSM XML document. Attributes and
// children are kept in document order so the element can be re-encoded as-is.
type Element struct {
	XMLName  xml.Name
	Attrs    []xml.Attr `xml:",any,attr"`
	Children []Child    `xml:",any"`
}

// Child is a nested element of a top-level element: a tag (k, v), a node
// reference (ref), or anything else the shaper ignores.
type Child struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
}

// Name returns the local tag name of the element.
func (e *Element) Name() string {
	return e.XMLName.Local
}

// Attr returns the value of the named attribute and whether it was present.
func (e *Element) Attr(name string) (string, bool) {
	return lookupAttr(e.Attrs, name)
}

// Reset clears the element so its backing slices can be reused.
func (e *Element) Reset() {
	e.XMLName = xml.Name{}
	clear(e.Attrs)
	e.Attrs = e.Attrs[:0]
	clear(e.Children)
	e.Children = e.Children[:0]
}

// Name returns the local tag name of the child.
func (c *Child) Name() string {
	return c.XMLName.Local
}

// Attr returns the value of the named attribute and whether it was present.
func (c *Child) Attr(name string) (string, bool) {
	return lookupAttr(c.Attrs, name)
}

func lookupAttr(attrs []xml.Attr, name string) (string, bool) {
	for _, a := range attrs {
		if a.Name.Local == name {
			return a.Value, true
		}
	}
	return "", false
}
