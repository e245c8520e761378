// Package store loads the five output tables into a relational database:
// it runs the canned schema script, bulk-inserts the CSV files and runs
// exploration queries.
package store

import (
	"context"
	_ "embed"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/fetcher"
	"github.com/sells-group/osm-wrangle/internal/model"
)

// Schema drops and recreates the five tables.
//
//go:embed schema.sql
var Schema string

// Supported drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Loader fills a database from a directory of table CSV files.
type Loader interface {
	// CreateTables runs the schema script. Statements that fail are
	// reported, not fatal.
	CreateTables(ctx context.Context) (*ScriptReport, error)
	// Fill loads every table file in dir and returns the rows inserted per table.
	Fill(ctx context.Context, dir string) (map[string]int64, error)
	// Explore runs each statement of script and collects the rows it returns.
	Explore(ctx context.Context, script string) ([]QueryResult, error)
	Close() error
}

// Options selects and tunes a Loader.
type Options struct {
	Driver    string // sqlite or postgres
	DSN       string // file path for sqlite, connection string for postgres
	PostGIS   bool   // add a geometry column to nodes (postgres only)
	BatchSize int    // rows per COPY batch (postgres only)
}

// Open returns the Loader for opts.Driver.
func Open(ctx context.Context, opts Options) (Loader, error) {
	switch opts.Driver {
	case DriverSQLite, "":
		return OpenSQLite(opts.DSN)
	case DriverPostgres:
		return OpenPostgres(ctx, opts)
	default:
		return nil, eris.Errorf("store: unknown driver %q", opts.Driver)
	}
}

// StatementError is one script statement that failed.
type StatementError struct {
	Statement string
	Err       error
}

// ScriptReport lists what a script run executed and what it skipped.
type ScriptReport struct {
	Executed int
	Failed   []StatementError
}

// QueryResult is the outcome of one exploration statement.
type QueryResult struct {
	Statement string
	Columns   []string
	Rows      [][]string
	Err       error
}

// SplitScript splits a SQL script on semicolons and drops statements that
// hold nothing but whitespace and comments.
func SplitScript(script string) []string {
	var out []string
	for _, part := range strings.Split(script, ";") {
		stmt := strings.TrimSpace(part)
		if stmt == "" || onlyComments(stmt) {
			continue
		}
		out = append(out, stmt)
	}
	return out
}

func onlyComments(stmt string) bool {
	for _, line := range strings.Split(stmt, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && !strings.HasPrefix(line, "--") {
			return false
		}
	}
	return true
}

// execScript runs each statement with exec, recording failures and carrying on.
func execScript(ctx context.Context, script string, exec func(context.Context, string) error) *ScriptReport {
	log := zap.L().With(zap.String("component", "store.script"))
	report := &ScriptReport{}
	for _, stmt := range SplitScript(script) {
		if err := exec(ctx, stmt); err != nil {
			log.Warn("store: statement skipped", zap.String("statement", firstLine(stmt)), zap.Error(err))
			report.Failed = append(report.Failed, StatementError{Statement: stmt, Err: err})
			continue
		}
		report.Executed++
	}
	return report
}

func firstLine(stmt string) string {
	line, _, _ := strings.Cut(stmt, "\n")
	return line
}

// quoteColumns double-quotes each column so reserved words such as "user"
// are safe in both dialects.
func quoteColumns(cols []string) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		out[i] = `"` + c + `"`
	}
	return out
}

// eachRow streams the data rows of t's CSV file in dir to fn, after checking
// the header matches the table's columns.
func eachRow(ctx context.Context, dir string, t model.Table, fn func([]string) error) error {
	path := filepath.Join(dir, t.File)
	f, err := os.Open(path)
	if err != nil {
		return eris.Wrapf(err, "store: open %s", path)
	}
	defer f.Close() //nolint:errcheck

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	headerCh := make(chan []string, 1)
	rowCh, errCh := fetcher.StreamCSV(ctx, f, fetcher.CSVOptions{HasHeader: true, HeaderCh: headerCh})

	checked := false
	checkHeader := func(header []string) error {
		checked = true
		if !slices.Equal(header, t.Columns) {
			return eris.Errorf("store: %s header %v does not match columns %v", t.File, header, t.Columns)
		}
		return nil
	}
	drain := func() {
		cancel()
		for range rowCh {
		}
	}

	for row := range rowCh {
		if !checked {
			if err := checkHeader(<-headerCh); err != nil {
				drain()
				return err
			}
		}
		if err := fn(row); err != nil {
			drain()
			return err
		}
	}
	if err := <-errCh; err != nil {
		return eris.Wrapf(err, "store: read %s", t.File)
	}
	if !checked {
		select {
		case header := <-headerCh:
			return checkHeader(header)
		default:
			return eris.Errorf("store: %s has no header row", t.File)
		}
	}
	return nil
}

// dedup reports whether a row is new. Identical rows load once.
type dedup map[string]struct{}

func (d dedup) add(row []string) bool {
	key := strings.Join(row, "\x1f")
	if _, ok := d[key]; ok {
		return false
	}
	d[key] = struct{}{}
	return true
}
