package sink

import (
	"encoding/csv"
	"os"
	"path/filepath"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/osm-wrangle/internal/model"
)

type tableFile struct {
	f    *os.File
	w    *csv.Writer
	rows int64
}

// CSVSink writes the five output tables as UTF-8 CSV files, each with a
// header row, into one directory.
type CSVSink struct {
	dir    string
	tables map[string]*tableFile
}

// NewCSVSink creates dir if needed and truncates the five table files in it.
func NewCSVSink(dir string) (*CSVSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, eris.Wrapf(err, "sink: create output dir %s", dir)
	}

	s := &CSVSink{dir: dir, tables: make(map[string]*tableFile, len(model.Tables))}
	for _, t := range model.Tables {
		f, err := os.Create(filepath.Join(dir, t.File))
		if err != nil {
			_ = s.Close()
			return nil, eris.Wrapf(err, "sink: create %s", t.File)
		}
		tf := &tableFile{f: f, w: csv.NewWriter(f)}
		s.tables[t.Name] = tf
		if err := tf.w.Write(t.Columns); err != nil {
			_ = s.Close()
			return nil, eris.Wrapf(err, "sink: write %s header", t.File)
		}
	}
	return s, nil
}

// Write appends the record's rows: the entity row, then child references in
// position order, then annotations.
func (s *CSVSink) Write(rec model.Record) error {
	switch r := rec.(type) {
	case *model.PointRecord:
		if err := s.row(model.NodesTable, r.Point); err != nil {
			return err
		}
		for _, a := range r.Tags {
			if err := s.row(model.NodeTagsTable, a); err != nil {
				return err
			}
		}
	case *model.PathRecord:
		if err := s.row(model.WaysTable, r.Path); err != nil {
			return err
		}
		for _, c := range r.Nodes {
			if err := s.row(model.WayNodesTable, c); err != nil {
				return err
			}
		}
		for _, a := range r.Tags {
			if err := s.row(model.WayTagsTable, a); err != nil {
				return err
			}
		}
	default:
		return eris.Errorf("sink: unsupported record %T", rec)
	}
	return nil
}

func (s *CSVSink) row(t model.Table, r model.Row) error {
	tf := s.tables[t.Name]
	if err := tf.w.Write(r.Values()); err != nil {
		return eris.Wrapf(err, "sink: write %s row", t.Name)
	}
	tf.rows++
	return nil
}

// Rows returns the number of data rows written per table name.
func (s *CSVSink) Rows() map[string]int64 {
	out := make(map[string]int64, len(s.tables))
	for name, tf := range s.tables {
		out[name] = tf.rows
	}
	return out
}

// Dir returns the output directory.
func (s *CSVSink) Dir() string { return s.dir }

// Close flushes and closes every table file.
func (s *CSVSink) Close() error {
	var first error
	for name, tf := range s.tables {
		tf.w.Flush()
		if err := tf.w.Error(); err != nil && first == nil {
			first = eris.Wrapf(err, "sink: flush %s", name)
		}
		if err := tf.f.Close(); err != nil && first == nil {
			first = eris.Wrapf(err, "sink: close %s", name)
		}
	}
	s.tables = nil
	if first == nil {
		zap.L().Debug("sink: csv tables closed", zap.String("dir", s.dir))
	}
	return first
}
