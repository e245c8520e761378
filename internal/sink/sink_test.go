package sink

import (
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangle/internal/geo"
	"github.com/sells-group/osm-wrangle/internal/model"
)

func samplePoint() *model.PointRecord {
	return &model.PointRecord{
		Point: model.Point{
			ID: 757860928, Lat: 41.9747374, Lon: -87.6920102, User: "uboot", UID: 26299,
			Version: "2", Changeset: 5288876, Timestamp: "2010-07-22T16:16:51Z",
		},
		Tags: []model.Annotation{
			{ID: 757860928, Key: "amenity", Value: "fast_food", Type: "regular"},
			{ID: 757860928, Key: "name", Value: "Café Zürich, \"Süd\"", Type: "regular"},
		},
	}
}

func samplePath() *model.PathRecord {
	return &model.PathRecord{
		Path: model.Path{
			ID: 209809850, User: "chicago-buildings", UID: 674454,
			Version: "1", Changeset: 15353317, Timestamp: "2013-03-13T15:58:04Z",
		},
		Nodes: []model.ChildReference{
			{ID: 209809850, NodeID: 2199822281, Position: 0},
			{ID: 209809850, NodeID: 2199822390, Position: 1},
		},
		Tags: []model.Annotation{{ID: 209809850, Key: "street", Value: "West Lexington Street", Type: "addr"}},
	}
}

func readCSV(t *testing.T, path string) [][]string {
	t.Helper()
	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close() //nolint:errcheck
	rows, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	return rows
}

func TestCSVSink_WritesFiveTables(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	s, err := NewCSVSink(dir)
	require.NoError(t, err)

	require.NoError(t, s.Write(samplePoint()))
	require.NoError(t, s.Write(samplePath()))
	assert.Equal(t, map[string]int64{
		"nodes": 1, "nodes_tags": 2, "ways": 1, "ways_nodes": 2, "ways_tags": 1,
	}, s.Rows())
	require.NoError(t, s.Close())

	nodes := readCSV(t, filepath.Join(dir, "nodes.csv"))
	require.Len(t, nodes, 2)
	assert.Equal(t, model.NodeColumns, nodes[0])
	assert.Equal(t, []string{"757860928", "41.9747374", "-87.6920102", "uboot", "26299", "2", "5288876", "2010-07-22T16:16:51Z"}, nodes[1])

	wayNodes := readCSV(t, filepath.Join(dir, "ways_nodes.csv"))
	require.Len(t, wayNodes, 3)
	assert.Equal(t, []string{"209809850", "2199822281", "0"}, wayNodes[1])
	assert.Equal(t, []string{"209809850", "2199822390", "1"}, wayNodes[2])

	wayTags := readCSV(t, filepath.Join(dir, "ways_tags.csv"))
	assert.Equal(t, []string{"209809850", "street", "West Lexington Street", "addr"}, wayTags[1])
}

func TestCSVSink_UnicodeRoundTrip(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVSink(dir)
	require.NoError(t, err)
	require.NoError(t, s.Write(samplePoint()))
	require.NoError(t, s.Close())

	raw, err := os.ReadFile(filepath.Join(dir, "nodes_tags.csv"))
	require.NoError(t, err)
	assert.Contains(t, string(raw), "Café Zürich")

	rows := readCSV(t, filepath.Join(dir, "nodes_tags.csv"))
	require.Len(t, rows, 3)
	assert.Equal(t, []byte("Café Zürich, \"Süd\""), []byte(rows[2][2]))
}

func TestCSVSink_EmptyRunWritesHeaders(t *testing.T) {
	dir := t.TempDir()
	s, err := NewCSVSink(dir)
	require.NoError(t, err)
	require.NoError(t, s.Close())

	for _, tbl := range model.Tables {
		rows := readCSV(t, filepath.Join(dir, tbl.File))
		require.Len(t, rows, 1, tbl.File)
		assert.Equal(t, tbl.Columns, rows[0])
	}
}

func TestCSVSink_BadDir(t *testing.T) {
	file := filepath.Join(t.TempDir(), "file")
	require.NoError(t, os.WriteFile(file, nil, 0o644))

	_, err := NewCSVSink(filepath.Join(file, "sub"))
	require.Error(t, err)
}

func TestShapefileSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nodes.shp")
	s, err := NewShapefileSink(path)
	require.NoError(t, err)

	require.NoError(t, s.Write(samplePoint()))
	require.NoError(t, s.Write(samplePath()))
	assert.Equal(t, 1, s.Points())
	require.NoError(t, s.Close())

	points, err := geo.ReadPoints(path)
	require.NoError(t, err)
	require.Len(t, points, 1)
	assert.InDelta(t, 41.9747374, points[0].Lat, 1e-9)
	assert.InDelta(t, -87.6920102, points[0].Lon, 1e-9)
	assert.Equal(t, "757860928", points[0].Attributes["osm_id"])
	assert.Equal(t, "uboot", points[0].Attributes["user"])
}

func TestShapefileSink_CloseWithoutPoints(t *testing.T) {
	base := filepath.Join(t.TempDir(), "empty")
	s, err := NewShapefileSink(base)
	require.NoError(t, err)
	require.NoError(t, s.Write(samplePath()))
	require.NoError(t, s.Close())

	for _, ext := range []string{".shp", ".shx", ".dbf"} {
		assert.FileExists(t, base+ext)
	}
	points, err := geo.ReadPoints(base + ".shp")
	require.NoError(t, err)
	assert.Empty(t, points)
}

type recordingSink struct {
	written  []model.Record
	writeErr error
	closeErr error
	closed   bool
}

func (r *recordingSink) Write(rec model.Record) error {
	if r.writeErr != nil {
		return r.writeErr
	}
	r.written = append(r.written, rec)
	return nil
}

func (r *recordingSink) Close() error {
	r.closed = true
	return r.closeErr
}

func TestMulti(t *testing.T) {
	a, b := &recordingSink{}, &recordingSink{}
	m := Multi{a, b}

	require.NoError(t, m.Write(samplePoint()))
	require.NoError(t, m.Close())
	assert.Len(t, a.written, 1)
	assert.Len(t, b.written, 1)
	assert.True(t, a.closed)
	assert.True(t, b.closed)
}

func TestMulti_Errors(t *testing.T) {
	boom := errors.New("boom")
	a := &recordingSink{writeErr: boom, closeErr: boom}
	b := &recordingSink{}
	m := Multi{a, b}

	assert.ErrorIs(t, m.Write(samplePoint()), boom)
	assert.Empty(t, b.written)

	assert.ErrorIs(t, m.Close(), boom)
	assert.True(t, b.closed)
}
