// Package indexdef describes the caller-supplied, pre-validation shape of
// an index: its name, whether it is the table's primary key, and the
// ordered (column, direction) pairs that make up its key. The full index
// builder surface (partial indexes, expression indexes, foreign keys) is
// out of this module's scope; this package carries only what the Table
// Creator needs to validate and assign.
package indexdef

import (
	"fmt"
	"strings"

	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
)

// ColumnRef is one (columnName, direction) pair within an index's key.
type ColumnRef struct {
	ColumnName string
	Ascending  bool
}

// Descriptor is a proposed index, as supplied by the caller before the
// Table Creator assigns it a number and page.
type Descriptor struct {
	Name       string
	PrimaryKey bool
	Columns    []ColumnRef
}

// Validate checks this descriptor against the format's limits and the
// table's column set. It does not check cross-index constraints
// (duplicate index names, multiple primary keys); that is the Table
// Creator's job since it requires seeing every index at once.
//
// columns maps each candidate column's upper-cased name to its resolved
// Column, so a reference to a column that exists but cannot participate
// in an index (see Column.Indexable) is rejected here rather than
// surfacing later as an encoding failure when rows are added.
func (d *Descriptor) Validate(fd *format.Descriptor, columns map[string]*column.Column) error {
	if strings.TrimSpace(d.Name) == "" {
		return dberr.InvalidTableDefinition("index name must not be empty")
	}
	if len(d.Name) > fd.MaxColumnNameLength {
		return dberr.InvalidTableDefinition("index name %q exceeds max length %d", d.Name, fd.MaxColumnNameLength)
	}
	if len(d.Columns) == 0 {
		return dberr.InvalidTableDefinition("index %q references no columns", d.Name)
	}
	if len(d.Columns) > fd.MaxColumnsPerIndex {
		return dberr.InvalidTableDefinition("index %q references %d columns, max is %d", d.Name, len(d.Columns), fd.MaxColumnsPerIndex)
	}

	seen := make(map[string]bool, len(d.Columns))
	for _, ref := range d.Columns {
		key := strings.ToUpper(ref.ColumnName)
		if seen[key] {
			return dberr.InvalidTableDefinition("index %q references column %q more than once", d.Name, ref.ColumnName)
		}
		seen[key] = true
		col, ok := columns[key]
		if !ok {
			return dberr.InvalidTableDefinition("index %q references unknown column %q", d.Name, ref.ColumnName)
		}
		if !col.Indexable() {
			return dberr.UnsupportedIndexColumnType("index %q references column %q of type %s, which cannot be indexed", d.Name, ref.ColumnName, col.Type)
		}
	}
	return nil
}

// String renders the index key in "(colA asc, colB desc)" form, mainly for
// error messages and logging.
func (d *Descriptor) String() string {
	parts := make([]string, len(d.Columns))
	for i, c := range d.Columns {
		dir := "asc"
		if !c.Ascending {
			dir = "desc"
		}
		parts[i] = fmt.Sprintf("%s %s", c.ColumnName, dir)
	}
	return fmt.Sprintf("%s(%s)", d.Name, strings.Join(parts, ", "))
}
