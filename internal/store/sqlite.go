package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/Masterminds/squirrel"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/sells-group/osm-wrangle/internal/model"
)

// SQLiteLoader loads the tables into a SQLite file using modernc.org/sqlite.
type SQLiteLoader struct {
	db *sql.DB
}

// OpenSQLite opens or creates the database file at path.
func OpenSQLite(path string) (*SQLiteLoader, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteLoader{db: db}, nil
}

// DB exposes the underlying handle.
func (l *SQLiteLoader) DB() *sql.DB { return l.db }

// CreateTables runs Schema statement by statement.
func (l *SQLiteLoader) CreateTables(ctx context.Context) (*ScriptReport, error) {
	return l.ExecScript(ctx, Schema), nil
}

// ExecScript runs each statement of script, skipping the ones that fail.
func (l *SQLiteLoader) ExecScript(ctx context.Context, script string) *ScriptReport {
	return execScript(ctx, script, func(ctx context.Context, stmt string) error {
		_, err := l.db.ExecContext(ctx, stmt)
		return err
	})
}

// Fill loads the tables parents first, each in its own transaction.
func (l *SQLiteLoader) Fill(ctx context.Context, dir string) (map[string]int64, error) {
	counts := make(map[string]int64, len(model.Tables))
	for _, t := range model.Tables {
		n, err := l.fillTable(ctx, dir, t)
		if err != nil {
			return counts, err
		}
		counts[t.Name] = n
		zap.L().Info("sqlite: table loaded",
			zap.String("component", "store.sqlite"),
			zap.String("table", t.Name),
			zap.Int64("rows", n),
		)
	}
	return counts, nil
}

func (l *SQLiteLoader) fillTable(ctx context.Context, dir string, t model.Table) (int64, error) {
	query, _, err := squirrel.Insert(t.Name).
		Columns(quoteColumns(t.Columns)...).
		Values(make([]any, len(t.Columns))...).
		ToSql()
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: build insert for %s", t.Name)
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return 0, eris.Wrapf(err, "sqlite: prepare insert for %s", t.Name)
	}
	defer stmt.Close() //nolint:errcheck

	seen := make(dedup)
	var n int64
	err = eachRow(ctx, dir, t, func(values []string) error {
		if !seen.add(values) {
			return nil
		}
		row, err := t.Parse(values)
		if err != nil {
			return eris.Wrapf(err, "sqlite: %s row %d", t.Name, n+1)
		}
		if _, err := stmt.ExecContext(ctx, row.Args()...); err != nil {
			return eris.Wrapf(err, "sqlite: insert into %s", t.Name)
		}
		n++
		return nil
	})
	if err != nil {
		return 0, err
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrapf(err, "sqlite: commit %s", t.Name)
	}
	return n, nil
}

// Explore runs each statement of script and collects its rows as text.
// A failed statement is recorded on its result and the rest still run.
func (l *SQLiteLoader) Explore(ctx context.Context, script string) ([]QueryResult, error) {
	var results []QueryResult
	for _, stmt := range SplitScript(script) {
		res := QueryResult{Statement: stmt}
		res.Columns, res.Rows, res.Err = l.query(ctx, stmt)
		if res.Err != nil {
			zap.L().Warn("sqlite: query skipped", zap.String("statement", firstLine(stmt)), zap.Error(res.Err))
		}
		results = append(results, res)
	}
	return results, nil
}

func (l *SQLiteLoader) query(ctx context.Context, stmt string) ([]string, [][]string, error) {
	rows, err := l.db.QueryContext(ctx, stmt)
	if err != nil {
		return nil, nil, err
	}
	defer rows.Close() //nolint:errcheck

	cols, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	var out [][]string
	for rows.Next() {
		vals := make([]any, len(cols))
		ptrs := make([]any, len(cols))
		for i := range vals {
			ptrs[i] = &vals[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		out = append(out, textValues(vals))
	}
	return cols, out, rows.Err()
}

// Close closes the database.
func (l *SQLiteLoader) Close() error {
	return l.db.Close()
}

func textValues(vals []any) []string {
	out := make([]string, len(vals))
	for i, v := range vals {
		switch v := v.(type) {
		case nil:
			out[i] = "NULL"
		case []byte:
			out[i] = string(v)
		default:
			out[i] = fmt.Sprint(v)
		}
	}
	return out
}
