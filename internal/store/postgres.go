package store

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/osm-wrangle/internal/db"
	"github.com/sells-group/osm-wrangle/internal/geo"
	"github.com/sells-group/osm-wrangle/internal/model"
)

// DefaultBatchSize is the COPY batch size when none is configured.
const DefaultBatchSize = 5000

// PostGISStatements enable PostGIS and give nodes a point geometry column.
var PostGISStatements = []string{
	"CREATE EXTENSION IF NOT EXISTS postgis",
	fmt.Sprintf("ALTER TABLE nodes ADD COLUMN IF NOT EXISTS geom geometry(Point, %d)", geo.SRID),
}

// PostgresLoader loads the tables into Postgres: entity tables with an
// upsert on id, child tables with batched COPY.
type PostgresLoader struct {
	pool      db.Pool
	postgis   bool
	batchSize int
}

// NewPostgresLoader wraps an existing pool.
func NewPostgresLoader(pool db.Pool, opts Options) *PostgresLoader {
	if opts.BatchSize <= 0 {
		opts.BatchSize = DefaultBatchSize
	}
	return &PostgresLoader{pool: pool, postgis: opts.PostGIS, batchSize: opts.BatchSize}
}

// OpenPostgres connects to opts.DSN.
func OpenPostgres(ctx context.Context, opts Options) (*PostgresLoader, error) {
	cfg, err := pgxpool.ParseConfig(opts.DSN)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}
	cfg.MaxConns = 8
	cfg.MaxConnLifetime = 30 * time.Minute
	cfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return NewPostgresLoader(pool, opts), nil
}

// CreateTables runs Schema and, with PostGIS enabled, PostGISStatements.
func (l *PostgresLoader) CreateTables(ctx context.Context) (*ScriptReport, error) {
	report := l.ExecScript(ctx, Schema)
	if !l.postgis {
		return report, nil
	}
	for _, stmt := range PostGISStatements {
		if _, err := l.pool.Exec(ctx, stmt); err != nil {
			return report, eris.Wrapf(err, "postgres: %s", stmt)
		}
		report.Executed++
	}
	return report, nil
}

// ExecScript runs each statement of script, skipping the ones that fail.
func (l *PostgresLoader) ExecScript(ctx context.Context, script string) *ScriptReport {
	return execScript(ctx, script, func(ctx context.Context, stmt string) error {
		_, err := l.pool.Exec(ctx, stmt)
		return err
	})
}

// Fill loads nodes and ways concurrently, then the three child tables
// concurrently once both parents are in.
func (l *PostgresLoader) Fill(ctx context.Context, dir string) (map[string]int64, error) {
	log := zap.L().With(zap.String("component", "store.postgres"))
	counts := make(map[string]int64, len(model.Tables))
	var mu sync.Mutex
	record := func(table string, n int64) {
		mu.Lock()
		counts[table] = n
		mu.Unlock()
		log.Info("postgres: table loaded", zap.String("table", table), zap.Int64("rows", n))
	}

	parents := []model.Table{model.NodesTable, model.WaysTable}
	children := []model.Table{model.NodeTagsTable, model.WayNodesTable, model.WayTagsTable}

	g, gctx := errgroup.WithContext(ctx)
	for _, t := range parents {
		g.Go(func() error {
			n, err := l.upsertParent(gctx, dir, t)
			if err != nil {
				return err
			}
			record(t.Name, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}

	g, gctx = errgroup.WithContext(ctx)
	for _, t := range children {
		g.Go(func() error {
			n, err := l.copyChild(gctx, dir, t)
			if err != nil {
				return err
			}
			record(t.Name, n)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return counts, err
	}
	return counts, nil
}

// upsertParent stages t in batches of l.batchSize. Within a batch a repeated
// id replaces the earlier row, which matches the upsert across batches.
func (l *PostgresLoader) upsertParent(ctx context.Context, dir string, t model.Table) (int64, error) {
	cols := t.Columns
	withGeom := l.postgis && t.Name == model.NodesTable.Name
	if withGeom {
		cols = append(append([]string{}, cols...), "geom")
	}
	cfg := db.UpsertConfig{Table: t.Name, Columns: cols, ConflictKeys: []string{"id"}}

	batch := make([][]any, 0, l.batchSize)
	index := make(map[string]int, l.batchSize)
	var total, line int64

	flush := func() error {
		n, err := db.BulkUpsert(ctx, l.pool, cfg, batch)
		if err != nil {
			return eris.Wrapf(err, "postgres: %s batch at row %d", t.Name, line)
		}
		total += n
		batch = batch[:0]
		clear(index)
		return nil
	}

	err := eachRow(ctx, dir, t, func(values []string) error {
		line++
		row, err := t.Parse(values)
		if err != nil {
			return eris.Wrapf(err, "postgres: %s row %d", t.Name, line)
		}
		args := row.Args()
		if withGeom {
			p := row.(model.Point)
			wkb, err := geo.PointEWKB(p.Lat, p.Lon)
			if err != nil {
				return eris.Wrapf(err, "postgres: node %s", strconv.FormatInt(p.ID, 10))
			}
			args = append(args, wkb)
		}
		if i, ok := index[values[0]]; ok {
			batch[i] = args
			return nil
		}
		index[values[0]] = len(batch)
		batch = append(batch, args)
		if len(batch) >= l.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

func (l *PostgresLoader) copyChild(ctx context.Context, dir string, t model.Table) (int64, error) {
	seen := make(dedup)
	batch := make([][]any, 0, l.batchSize)
	var total int64

	flush := func() error {
		n, err := db.CopyFrom(ctx, l.pool, t.Name, t.Columns, batch)
		if err != nil {
			return eris.Wrapf(err, "postgres: batch at row %d", total)
		}
		total += n
		batch = batch[:0]
		return nil
	}

	err := eachRow(ctx, dir, t, func(values []string) error {
		if !seen.add(values) {
			return nil
		}
		row, err := t.Parse(values)
		if err != nil {
			return eris.Wrapf(err, "postgres: %s row", t.Name)
		}
		batch = append(batch, row.Args())
		if len(batch) >= l.batchSize {
			return flush()
		}
		return nil
	})
	if err != nil {
		return total, err
	}
	if len(batch) > 0 {
		if err := flush(); err != nil {
			return total, err
		}
	}
	return total, nil
}

// Explore runs each statement of script and collects its rows as text.
func (l *PostgresLoader) Explore(ctx context.Context, script string) ([]QueryResult, error) {
	var results []QueryResult
	for _, stmt := range SplitScript(script) {
		res := QueryResult{Statement: stmt}
		res.Columns, res.Rows, res.Err = l.query(ctx, stmt)
		if res.Err != nil {
			zap.L().Warn("postgres: query skipped", zap.String("statement", firstLine(stmt)), zap.Error(res.Err))
		}
		results = append(results, res)
	}
	return results, nil
}

func (l *PostgresLoader) query(ctx context.Context, stmt string) ([]string, [][]string, error) {
	rows, err := l.pool.Query(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close()

	fields := rows.FieldDescriptions()
	cols := make([]string, len(fields))
	for i, f := range fields {
		cols[i] = f.Name
	}

	var out [][]string
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return nil, nil, err
		}
		out = append(out, textValues(vals))
	}
	return cols, out, rows.Err()
}

// Close releases the pool.
func (l *PostgresLoader) Close() error {
	l.pool.Close()
	return nil
}
