package store

import (
	"context"
	"errors"
	"regexp"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/osm-wrangle/internal/model"
)

func newMockLoader(t *testing.T, opts Options) (*PostgresLoader, pgxmock.PgxPoolIface) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return NewPostgresLoader(mock, opts), mock
}

func TestPostgres_CreateTables(t *testing.T) {
	l, mock := newMockLoader(t, Options{})

	for i, stmt := range SplitScript(Schema) {
		e := mock.ExpectExec(regexp.QuoteMeta(stmt))
		if i == 0 {
			e.WillReturnError(errors.New("permission denied"))
			continue
		}
		e.WillReturnResult(pgxmock.NewResult("OK", 0))
	}

	report, err := l.CreateTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 9, report.Executed)
	require.Len(t, report.Failed, 1)
	assert.Contains(t, report.Failed[0].Statement, "DROP TABLE IF EXISTS nodes_tags")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTablesPostGIS(t *testing.T) {
	l, mock := newMockLoader(t, Options{PostGIS: true})

	for _, stmt := range SplitScript(Schema) {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(pgxmock.NewResult("OK", 0))
	}
	mock.ExpectExec("CREATE EXTENSION IF NOT EXISTS postgis").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectExec(regexp.QuoteMeta("ADD COLUMN IF NOT EXISTS geom geometry(Point, 4326)")).
		WillReturnResult(pgxmock.NewResult("ALTER", 0))

	report, err := l.CreateTables(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 12, report.Executed)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_CreateTablesPostGISMissing(t *testing.T) {
	l, mock := newMockLoader(t, Options{PostGIS: true})

	for _, stmt := range SplitScript(Schema) {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(pgxmock.NewResult("OK", 0))
	}
	mock.ExpectExec("CREATE EXTENSION").WillReturnError(errors.New("extension \"postgis\" is not available"))

	_, err := l.CreateTables(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgis")
}

// writeParentAndChild writes two nodes, one way node reference and empty
// files for the other tables, so each load phase touches one table.
func writeParentAndChild(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeTable(t, dir, model.NodesTable,
		"1,51.5,-0.12,alice,3,2,4,2010-07-22T16:16:51Z",
		"2,51.6,-0.13,bob,4,1,4,2010-07-22T16:16:51Z",
		"2,51.6,-0.13,bob,4,1,4,2010-07-22T16:16:51Z",
	)
	writeTable(t, dir, model.WaysTable)
	writeTable(t, dir, model.NodeTagsTable)
	writeTable(t, dir, model.WayNodesTable, "7,1,0", "7,2,1", "7,3,2")
	writeTable(t, dir, model.WayTagsTable)
	return dir
}

func TestPostgres_Fill(t *testing.T) {
	l, mock := newMockLoader(t, Options{BatchSize: 2})

	expectUpsert(mock, "nodes", model.NodeColumns, 2)
	expectUpsert(mock, "nodes", model.NodeColumns, 1)
	mock.ExpectCopyFrom(pgx.Identifier{"ways_nodes"}, model.WayNodeColumns).WillReturnResult(2)
	mock.ExpectCopyFrom(pgx.Identifier{"ways_nodes"}, model.WayNodeColumns).WillReturnResult(1)

	counts, err := l.Fill(context.Background(), writeParentAndChild(t))
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{
		"nodes": 3, "ways": 0, "nodes_tags": 0, "ways_nodes": 3, "ways_tags": 0,
	}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func expectUpsert(mock pgxmock.PgxPoolIface, table string, cols []string, n int64) {
	mock.ExpectBegin()
	mock.ExpectExec(`CREATE TEMP TABLE "_stage_` + table + `"`).WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_" + table}, cols).WillReturnResult(n)
	mock.ExpectExec(`INSERT INTO "` + table + `"`).WillReturnResult(pgxmock.NewResult("INSERT", n))
	mock.ExpectCommit()
}

func TestPostgres_FillBatchesParents(t *testing.T) {
	l, mock := newMockLoader(t, Options{BatchSize: 2})
	dir := t.TempDir()
	writeTable(t, dir, model.NodesTable,
		"1,51.5,-0.12,alice,3,2,4,2010-07-22T16:16:51Z",
		"2,51.6,-0.13,bob,4,1,4,2010-07-22T16:16:51Z",
		"3,51.7,-0.14,carol,5,1,4,2010-07-22T16:16:51Z",
	)
	writeTable(t, dir, model.WaysTable,
		"7,alice,3,1,4,2010-07-22T16:16:51Z",
		"7,alice,3,2,5,2010-07-23T16:16:51Z",
	)
	for _, tbl := range []model.Table{model.NodeTagsTable, model.WayNodesTable, model.WayTagsTable} {
		writeTable(t, dir, tbl)
	}

	mock.MatchExpectationsInOrder(false)
	expectUpsert(mock, "nodes", model.NodeColumns, 2)
	expectUpsert(mock, "nodes", model.NodeColumns, 1)
	expectUpsert(mock, "ways", model.WayColumns, 1)

	counts, err := l.Fill(context.Background(), dir)
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["nodes"])
	assert.Equal(t, int64(1), counts["ways"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FillWithGeometry(t *testing.T) {
	l, mock := newMockLoader(t, Options{PostGIS: true, BatchSize: 10})

	cols := append(append([]string{}, model.NodeColumns...), "geom")
	mock.ExpectBegin()
	mock.ExpectExec("CREATE TEMP TABLE").WillReturnResult(pgxmock.NewResult("CREATE", 0))
	mock.ExpectCopyFrom(pgx.Identifier{"_stage_nodes"}, cols).WillReturnResult(2)
	mock.ExpectExec("INSERT INTO").WillReturnResult(pgxmock.NewResult("INSERT", 2))
	mock.ExpectCommit()
	mock.ExpectCopyFrom(pgx.Identifier{"ways_nodes"}, model.WayNodeColumns).WillReturnResult(3)

	counts, err := l.Fill(context.Background(), writeParentAndChild(t))
	require.NoError(t, err)
	assert.Equal(t, int64(3), counts["ways_nodes"])
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FillParentFailureStopsChildren(t *testing.T) {
	l, mock := newMockLoader(t, Options{})

	mock.ExpectBegin().WillReturnError(errors.New("connection reset"))

	_, err := l.Fill(context.Background(), writeParentAndChild(t))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgres_FillBadRow(t *testing.T) {
	l, _ := newMockLoader(t, Options{})
	dir := writeParentAndChild(t)
	writeTable(t, dir, model.NodesTable, "1,north,-0.12,alice,3,2,4,2010-07-22T16:16:51Z")

	_, err := l.Fill(context.Background(), dir)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nodes")
}

func TestPostgres_Explore(t *testing.T) {
	l, mock := newMockLoader(t, Options{})

	mock.ExpectQuery("SELECT key, count").WillReturnRows(
		mock.NewRows([]string{"key", "n"}).AddRow("amenity", int64(12)).AddRow("shop", int64(3)),
	)
	mock.ExpectQuery("SELECT broken").WillReturnError(errors.New("syntax error"))

	results, err := l.Explore(context.Background(), "SELECT key, count(*) AS n FROM nodes_tags GROUP BY key; SELECT broken")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []string{"key", "n"}, results[0].Columns)
	assert.Equal(t, [][]string{{"amenity", "12"}, {"shop", "3"}}, results[0].Rows)
	assert.Error(t, results[1].Err)
	assert.NoError(t, mock.ExpectationsWereMet())
}
