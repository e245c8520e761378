package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangle/internal/model"
	"github.com/sells-group/osm-wrangle/internal/sink"
)

func newTestSQLite(t *testing.T) *SQLiteLoader {
	t.Helper()
	l, err := OpenSQLite(filepath.Join(t.TempDir(), "osm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = l.Close() })
	return l
}

func writeFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	s, err := sink.NewCSVSink(dir)
	require.NoError(t, err)

	point := &model.PointRecord{
		Point: model.Point{ID: 1, Lat: 51.5, Lon: -0.12, User: "Ünïcødé", UID: 3, Version: "2", Changeset: 4, Timestamp: "2010-07-22T16:16:51Z"},
		Tags:  []model.Annotation{{ID: 1, Key: "name", Value: "Café", Type: "regular"}},
	}
	path := &model.PathRecord{
		Path: model.Path{ID: 7, User: "u", UID: 5, Version: "1", Changeset: 6, Timestamp: "2013-03-13T15:58:04Z"},
		Nodes: []model.ChildReference{
			{ID: 7, NodeID: 1, Position: 0},
			{ID: 7, NodeID: 2, Position: 1},
		},
		Tags: []model.Annotation{{ID: 7, Key: "street", Value: "Baker Street", Type: "addr"}},
	}
	require.NoError(t, s.Write(point))
	require.NoError(t, s.Write(path))
	require.NoError(t, s.Write(point))
	require.NoError(t, s.Close())
	return dir
}

func TestSQLite_CreateAndFill(t *testing.T) {
	l := newTestSQLite(t)
	ctx := context.Background()

	report, err := l.CreateTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, 10, report.Executed)
	assert.Empty(t, report.Failed)

	counts, err := l.Fill(ctx, writeFixture(t))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"nodes": 1, "nodes_tags": 1, "ways": 1, "ways_nodes": 2, "ways_tags": 1,
	}, counts, "duplicate rows load once")

	var user string
	var lat float64
	require.NoError(t, l.DB().QueryRowContext(ctx, `SELECT "user", lat FROM nodes WHERE id = 1`).Scan(&user, &lat))
	assert.Equal(t, "Ünïcødé", user)
	assert.InDelta(t, 51.5, lat, 1e-9)

	var position int
	require.NoError(t, l.DB().QueryRowContext(ctx, `SELECT position FROM ways_nodes WHERE node_id = 2`).Scan(&position))
	assert.Equal(t, 1, position)
}

func TestSQLite_CreateTablesTwice(t *testing.T) {
	l := newTestSQLite(t)
	ctx := context.Background()

	_, err := l.CreateTables(ctx)
	require.NoError(t, err)
	_, err = l.Fill(ctx, writeFixture(t))
	require.NoError(t, err)

	report, err := l.CreateTables(ctx)
	require.NoError(t, err)
	assert.Empty(t, report.Failed)

	var n int
	require.NoError(t, l.DB().QueryRowContext(ctx, `SELECT count(*) FROM nodes`).Scan(&n))
	assert.Zero(t, n)
}

func TestSQLite_ExecScriptSkipsFailures(t *testing.T) {
	l := newTestSQLite(t)
	report := l.ExecScript(context.Background(), "CREATE TABLE a (id INTEGER); INSERT INTO missing VALUES (1); INSERT INTO a VALUES (1)")
	assert.Equal(t, 2, report.Executed)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, "INSERT INTO missing VALUES (1)", report.Failed[0].Statement)
	assert.Error(t, report.Failed[0].Err)
}

func TestSQLite_FillMissingDir(t *testing.T) {
	l := newTestSQLite(t)
	ctx := context.Background()
	_, err := l.CreateTables(ctx)
	require.NoError(t, err)

	_, err = l.Fill(ctx, filepath.Join(t.TempDir(), "absent"))
	require.Error(t, err)
}

func TestSQLite_Explore(t *testing.T) {
	l := newTestSQLite(t)
	ctx := context.Background()
	_, err := l.CreateTables(ctx)
	require.NoError(t, err)
	_, err = l.Fill(ctx, writeFixture(t))
	require.NoError(t, err)

	results, err := l.Explore(ctx, `
SELECT key, value FROM nodes_tags ORDER BY key;
SELECT nope FROM nowhere;
SELECT count(DISTINCT uid) AS users FROM (SELECT uid FROM nodes UNION ALL SELECT uid FROM ways)`)
	require.NoError(t, err)
	require.Len(t, results, 3)

	assert.Equal(t, []string{"key", "value"}, results[0].Columns)
	assert.Equal(t, [][]string{{"name", "Café"}}, results[0].Rows)
	assert.Error(t, results[1].Err)
	assert.Equal(t, [][]string{{"2"}}, results[2].Rows)
}

func TestTextValues(t *testing.T) {
	assert.Equal(t, []string{"NULL", "abc", "42", "1.5"}, textValues([]any{nil, []byte("abc"), int64(42), 1.5}))
}
