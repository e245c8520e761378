package model

import (
	"fmt"
	"strconv"
)

// Column orders. These match the column order of the relational schema, so
// CSV files can be bulk-loaded without remapping.
var (
	NodeColumns    = []string{"id", "lat", "lon", "user", "uid", "version", "changeset", "timestamp"}
	NodeTagColumns = []string{"id", "key", "value", "type"}
	WayColumns     = []string{"id", "user", "uid", "version", "changeset", "timestamp"}
	WayNodeColumns = []string{"id", "node_id", "position"}
	WayTagColumns  = []string{"id", "key", "value", "type"}
)

// Table describes one output table.
type Table struct {
	Name    string   // relational table name, e.g. "nodes_tags"
	File    string   // CSV file name, e.g. "nodes_tags.csv"
	Columns []string // fixed column order
	Parent  bool     // true for entity tables other tables reference
}

// Output tables.
var (
	NodesTable    = Table{Name: "nodes", File: "nodes.csv", Columns: NodeColumns, Parent: true}
	NodeTagsTable = Table{Name: "nodes_tags", File: "nodes_tags.csv", Columns: NodeTagColumns}
	WaysTable     = Table{Name: "ways", File: "ways.csv", Columns: WayColumns, Parent: true}
	WayNodesTable = Table{Name: "ways_nodes", File: "ways_nodes.csv", Columns: WayNodeColumns}
	WayTagsTable  = Table{Name: "ways_tags", File: "ways_tags.csv", Columns: WayTagColumns}
)

// Tables lists every output table, parents first.
var Tables = []Table{NodesTable, NodeTagsTable, WaysTable, WayNodesTable, WayTagsTable}

// TableByName returns the table with the given name.
func TableByName(name string) (Table, bool) {
	for _, t := range Tables {
		if t.Name == name {
			return t, true
		}
	}
	return Table{}, false
}

// Row is one table row in either text or typed form.
type Row interface {
	Values() []string
	Args() []any
}

// Parse converts a CSV row of t back into its typed row.
func (t Table) Parse(values []string) (Row, error) {
	if len(values) != len(t.Columns) {
		return nil, fmt.Errorf("model: %s row has %d fields, want %d", t.Name, len(values), len(t.Columns))
	}
	p := rowParser{table: t.Name, values: values}
	var row Row
	switch t.Name {
	case NodesTable.Name:
		row = Point{
			ID: p.int(0), Lat: p.float(1), Lon: p.float(2), User: values[3],
			UID: p.int(4), Version: values[5], Changeset: p.int(6), Timestamp: values[7],
		}
	case WaysTable.Name:
		row = Path{
			ID: p.int(0), User: values[1], UID: p.int(2), Version: values[3],
			Changeset: p.int(4), Timestamp: values[5],
		}
	case NodeTagsTable.Name, WayTagsTable.Name:
		row = Annotation{ID: p.int(0), Key: values[1], Value: values[2], Type: values[3]}
	case WayNodesTable.Name:
		row = ChildReference{ID: p.int(0), NodeID: p.int(1), Position: int(p.int(2))}
	default:
		return nil, fmt.Errorf("model: unknown table %q", t.Name)
	}
	if p.err != nil {
		return nil, p.err
	}
	return row, nil
}

type rowParser struct {
	table  string
	values []string
	err    error
}

func (p *rowParser) int(i int) int64 {
	n, err := strconv.ParseInt(p.values[i], 10, 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("model: %s column %d: %w", p.table, i, err)
	}
	return n
}

func (p *rowParser) float(i int) float64 {
	f, err := strconv.ParseFloat(p.values[i], 64)
	if err != nil && p.err == nil {
		p.err = fmt.Errorf("model: %s column %d: %w", p.table, i, err)
	}
	return f
}
