package model

import "strconv"

// Kind identifies which entity variant a record carries.
type Kind string

// Entity kinds.
const (
	KindPoint Kind = "point"
	KindPath  Kind = "path"
)

// Defaults applied when an element carries no author metadata.
const (
	DefaultUser = "NO_USER"
	DefaultUID  = int64(0)
)

// DefaultTagType is the annotation type used when a key has no namespace.
const DefaultTagType = "regular"

// Point is the attribute row of a node.
type Point struct {
	ID        int64   `json:"id" validate:"required"`
	Lat       float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lon       float64 `json:"lon" validate:"gte=-180,lte=180"`
	User      string  `json:"user" validate:"required"`
	UID       int64   `json:"uid" validate:"gte=0"`
	Version   string  `json:"version" validate:"required,numeric"`
	Changeset int64   `json:"changeset" validate:"gte=0"`
	Timestamp string  `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// Path is the attribute row of a way.
type Path struct {
	ID        int64  `json:"id" validate:"required"`
	User      string `json:"user" validate:"required"`
	UID       int64  `json:"uid" validate:"gte=0"`
	Version   string `json:"version" validate:"required,numeric"`
	Changeset int64  `json:"changeset" validate:"gte=0"`
	Timestamp string `json:"timestamp" validate:"required,datetime=2006-01-02T15:04:05Z07:00"`
}

// Annotation is one tag of a node or way, split into namespace and key.
type Annotation struct {
	ID    int64  `json:"id" validate:"required"`
	Key   string `json:"key" validate:"osm_key"`
	Value string `json:"value"`
	Type  string `json:"type" validate:"required,osm_key"`
}

// ChildReference is one ordered node reference of a way.
type ChildReference struct {
	ID       int64 `json:"id" validate:"required"`
	NodeID   int64 `json:"node_id" validate:"required"`
	Position int   `json:"position" validate:"gte=0"`
}

// Record is the shaped form of one element: either *PointRecord or *PathRecord.
type Record interface {
	Kind() Kind
	EntityID() int64
	record()
}

// PointRecord holds a node's attribute row and its annotation rows.
type PointRecord struct {
	Point Point        `json:"node"`
	Tags  []Annotation `json:"node_tags" validate:"dive"`
}

// PathRecord holds a way's attribute row, its ordered node references and
// its annotation rows.
type PathRecord struct {
	Path  Path             `json:"way"`
	Nodes []ChildReference `json:"way_nodes" validate:"dive"`
	Tags  []Annotation     `json:"way_tags" validate:"dive"`
}

func (*PointRecord) Kind() Kind        { return KindPoint }
func (r *PointRecord) EntityID() int64 { return r.Point.ID }
func (*PointRecord) record()           {}

func (*PathRecord) Kind() Kind        { return KindPath }
func (r *PathRecord) EntityID() int64 { return r.Path.ID }
func (*PathRecord) record()           {}

// Values returns the row in NodeColumns order.
func (p Point) Values() []string {
	return []string{
		formatInt(p.ID),
		formatFloat(p.Lat),
		formatFloat(p.Lon),
		p.User,
		formatInt(p.UID),
		p.Version,
		formatInt(p.Changeset),
		p.Timestamp,
	}
}

// Values returns the row in WayColumns order.
func (p Path) Values() []string {
	return []string{
		formatInt(p.ID),
		p.User,
		formatInt(p.UID),
		p.Version,
		formatInt(p.Changeset),
		p.Timestamp,
	}
}

// Values returns the row in TagColumns order.
func (a Annotation) Values() []string {
	return []string{formatInt(a.ID), a.Key, a.Value, a.Type}
}

// Values returns the row in WayNodeColumns order.
func (c ChildReference) Values() []string {
	return []string{formatInt(c.ID), formatInt(c.NodeID), strconv.Itoa(c.Position)}
}

func formatInt(n int64) string {
	return strconv.FormatInt(n, 10)
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// Args returns the row as typed values in NodeColumns order.
func (p Point) Args() []any {
	return []any{p.ID, p.Lat, p.Lon, p.User, p.UID, p.Version, p.Changeset, p.Timestamp}
}

// Args returns the row as typed values in WayColumns order.
func (p Path) Args() []any {
	return []any{p.ID, p.User, p.UID, p.Version, p.Changeset, p.Timestamp}
}

// Args returns the row as typed values in TagColumns order.
func (a Annotation) Args() []any {
	return []any{a.ID, a.Key, a.Value, a.Type}
}

// Args returns the row as typed values in WayNodeColumns order.
func (c ChildReference) Args() []any {
	return []any{c.ID, c.NodeID, c.Position}
}
