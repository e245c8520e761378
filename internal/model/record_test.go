package model

import (
	"encoding/xml"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPointValues_ColumnOrder(t *testing.T) {
	p := Point{
		ID:        757860928,
		Lat:       41.9747374,
		Lon:       -87.6920102,
		User:      "uboot",
		UID:       26299,
		Version:   "2",
		Changeset: 5288876,
		Timestamp: "2010-07-22T16:16:51Z",
	}

	vals := p.Values()
	require.Len(t, vals, len(NodeColumns))
	assert.Equal(t, []string{
		"757860928", "41.9747374", "-87.6920102", "uboot", "26299", "2", "5288876", "2010-07-22T16:16:51Z",
	}, vals)
}

func TestPathValues_ColumnOrder(t *testing.T) {
	p := Path{ID: 209809850, User: "chicago-buildings", UID: 674454, Version: "1", Changeset: 15353317, Timestamp: "2013-03-13T15:58:04Z"}

	vals := p.Values()
	require.Len(t, vals, len(WayColumns))
	assert.Equal(t, "209809850", vals[0])
	assert.Equal(t, "chicago-buildings", vals[1])
	assert.Equal(t, "2013-03-13T15:58:04Z", vals[5])
}

func TestAnnotationAndChildReferenceValues(t *testing.T) {
	a := Annotation{ID: 1, Key: "street:name", Value: "Königstraße", Type: "addr"}
	assert.Equal(t, []string{"1", "street:name", "Königstraße", "addr"}, a.Values())

	c := ChildReference{ID: 1, NodeID: 2199822281, Position: 6}
	assert.Equal(t, []string{"1", "2199822281", "6"}, c.Values())
}

func TestRecordKinds(t *testing.T) {
	var r Record = &PointRecord{Point: Point{ID: 5}}
	assert.Equal(t, KindPoint, r.Kind())
	assert.Equal(t, int64(5), r.EntityID())

	r = &PathRecord{Path: Path{ID: 9}}
	assert.Equal(t, KindPath, r.Kind())
	assert.Equal(t, int64(9), r.EntityID())
}

func TestElement_AttrAndReset(t *testing.T) {
	input := `<way id="7" user="x"><nd ref="1"/><tag k="highway" v="residential"/></way>`

	var el Element
	require.NoError(t, xml.Unmarshal([]byte(input), &el))

	assert.Equal(t, TagWay, el.Name())
	id, ok := el.Attr("id")
	assert.True(t, ok)
	assert.Equal(t, "7", id)
	_, ok = el.Attr("uid")
	assert.False(t, ok)

	require.Len(t, el.Children, 2)
	assert.Equal(t, TagNd, el.Children[0].Name())
	ref, _ := el.Children[0].Attr("ref")
	assert.Equal(t, "1", ref)
	k, _ := el.Children[1].Attr("k")
	assert.Equal(t, "highway", k)

	el.Reset()
	assert.Empty(t, el.Name())
	assert.Empty(t, el.Attrs)
	assert.Empty(t, el.Children)
}

func TestTableByName(t *testing.T) {
	tbl, ok := TableByName("ways_nodes")
	require.True(t, ok)
	assert.Equal(t, "ways_nodes.csv", tbl.File)
	assert.Equal(t, WayNodeColumns, tbl.Columns)

	_, ok = TableByName("relations")
	assert.False(t, ok)
}

func TestTableParse_RoundTrip(t *testing.T) {
	tests := []struct {
		tbl  Table
		want Row
	}{
		{NodesTable, Point{ID: 1, Lat: 41.97, Lon: -87.69, User: "Ünïcødé", UID: 2, Version: "3", Changeset: 4, Timestamp: "2010-07-22T16:16:51Z"}},
		{WaysTable, Path{ID: 5, User: "u", UID: 6, Version: "1", Changeset: 7, Timestamp: "2013-03-13T15:58:04Z"}},
		{NodeTagsTable, Annotation{ID: 1, Key: "street", Value: "Straße", Type: "addr"}},
		{WayTagsTable, Annotation{ID: 5, Key: "highway", Value: "residential", Type: "regular"}},
		{WayNodesTable, ChildReference{ID: 5, NodeID: 1, Position: 3}},
	}
	for _, tt := range tests {
		tbl, want := tt.tbl, tt.want
		t.Run(tbl.Name, func(t *testing.T) {
			got, err := tbl.Parse(want.Values())
			require.NoError(t, err)
			assert.Equal(t, want, got)
			assert.Len(t, got.Args(), len(tbl.Columns))
		})
	}
}

func TestTableParse_Errors(t *testing.T) {
	_, err := WayNodesTable.Parse([]string{"1", "2"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "has 2 fields, want 3")

	_, err = WayNodesTable.Parse([]string{"1", "x", "0"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ways_nodes column 1")

	_, err = NodesTable.Parse([]string{"1", "north", "0", "u", "1", "1", "1", "t"})
	require.Error(t, err)

	_, err = Table{Name: "relations", Columns: []string{"id"}}.Parse([]string{"1"})
	require.Error(t, err)
}

func TestArgs_Types(t *testing.T) {
	args := ChildReference{ID: 5, NodeID: 1, Position: 3}.Args()
	assert.Equal(t, []any{int64(5), int64(1), 3}, args)

	args = Point{ID: 1, Lat: 1.5, Lon: 2.5}.Args()
	assert.Equal(t, float64(1.5), args[1])
}
