// Package table implements the table-creation orchestrator: it validates
// a proposed table's columns and indexes against format limits, assigns
// column and index numbers, lays out long-value column bookkeeping,
// allocates the table-definition and usage-map pages, and drives a single
// write epoch that emits the table-definition page (with embedded index
// metadata) and registers the table with the catalog.
//
// EDUCATIONAL NOTES:
// ------------------
// Everything here runs once per CreateTable call; nothing persists beyond
// it except the pages it writes. The write epoch (StartWrite/FinishWrite)
// is the scoped-acquisition idiom this codebase uses elsewhere for a
// resource that must be released on every exit path, success or failure.
package table

import (
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arlowe/jetindex/internal/catalog"
	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/indexdef"
	"github.com/arlowe/jetindex/internal/secidx"
	"github.com/arlowe/jetindex/internal/storage"
	"github.com/arlowe/jetindex/internal/tdef"
)

// ColumnSpec is a caller-proposed column, before the Creator assigns it a
// number.
type ColumnSpec struct {
	Name         string
	Type         column.DataType
	IsAutoNumber bool

	// IsVariableLength declares a variable-width instance of a type that
	// is not inherently variable length (e.g. a variable BINARY column).
	// TEXT and MEMO are always variable length regardless of this flag.
	// Per column.Column.Indexable, setting this on any type other than
	// TEXT/MEMO makes the column ineligible to back an index.
	IsVariableLength bool
}

// ColumnState is the Table Creator's per-long-value-column bookkeeping.
// It is created lazily, only for columns whose type lives in auxiliary
// long-value pages. FirstPageNumber is reserved during CreateTable's
// write epoch (alongside the table-definition and usage-map pages) so
// there is a concrete page for the long-value data to eventually land
// on; the layout and contents of that page are outside this module's
// scope (see DESIGN.md), so nothing is ever written there.
type ColumnState struct {
	Column          *column.Column
	FirstPageNumber int32
}

// IndexState is the Table Creator's per-index bookkeeping.
// IndexNumber and IndexDataNumber are always equal in this engine: foreign
// key indexes, which would make them diverge, are not supported.
type IndexState struct {
	Descriptor      *indexdef.Descriptor
	IndexNumber     int
	IndexDataNumber int
	UMapRowNumber   byte
	UMapPageNumber  int32
	RootPageNumber  int32

	index *secidx.Index
}

// Creator validates and creates one table. It is ephemeral: construct one
// per CreateTable call.
type Creator struct {
	ps      storage.PagedStorage
	fd      *format.Descriptor
	catalog *catalog.Catalog
	log     *logrus.Logger

	name        string
	columnSpecs []ColumnSpec
	indexSpecs  []*indexdef.Descriptor

	columns     []*column.Column
	longValues  []*ColumnState
	indexStates []*IndexState
}

// Option configures a Creator.
type Option func(*Creator)

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Creator) { c.log = log }
}

// NewCreator builds a Creator for a proposed table. Nothing is validated
// or persisted until Validate/CreateTable run.
func NewCreator(ps storage.PagedStorage, fd *format.Descriptor, cat *catalog.Catalog, name string, columnSpecs []ColumnSpec, indexSpecs []*indexdef.Descriptor, opts ...Option) *Creator {
	c := &Creator{
		ps:          ps,
		fd:          fd,
		catalog:     cat,
		log:         logrus.StandardLogger(),
		name:        name,
		columnSpecs: columnSpecs,
		indexSpecs:  indexSpecs,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Validate checks the proposed table against format limits, before any
// page is touched. CreateTable calls this itself;
// callers may also call it ahead of time to surface errors early.
func (c *Creator) Validate() error {
	name := strings.TrimSpace(c.name)
	if name == "" {
		return dberr.InvalidTableDefinition("table name must not be empty")
	}
	if len(c.name) > c.fd.MaxTableNameLength {
		return dberr.InvalidTableDefinition("table name %q exceeds max length %d", c.name, c.fd.MaxTableNameLength)
	}

	if len(c.columnSpecs) == 0 {
		return dberr.InvalidTableDefinition("table %q must declare at least one column", c.name)
	}
	if len(c.columnSpecs) > c.fd.MaxColumnsPerTable {
		return dberr.InvalidTableDefinition("table %q has %d columns, exceeding the %d-column limit", c.name, len(c.columnSpecs), c.fd.MaxColumnsPerTable)
	}

	columnNames := make(map[string]bool, len(c.columnSpecs))
	columnsByName := make(map[string]*column.Column, len(c.columnSpecs))
	autoNumberByType := make(map[column.DataType]int)
	for _, spec := range c.columnSpecs {
		if strings.TrimSpace(spec.Name) == "" {
			return dberr.InvalidTableDefinition("table %q has a column with an empty name", c.name)
		}
		if len(spec.Name) > c.fd.MaxColumnNameLength {
			return dberr.InvalidTableDefinition("column %q exceeds max name length %d", spec.Name, c.fd.MaxColumnNameLength)
		}
		key := strings.ToUpper(spec.Name)
		if columnNames[key] {
			return dberr.InvalidTableDefinition("table %q has duplicate column name %q", c.name, spec.Name)
		}
		columnNames[key] = true
		col := column.New(0, spec.Name, spec.Type)
		if spec.IsVariableLength {
			col.IsVariableLength = true
		}
		columnsByName[key] = col

		if spec.IsAutoNumber {
			autoNumberByType[spec.Type]++
			if autoNumberByType[spec.Type] > 1 {
				return dberr.InvalidTableDefinition("table %q has more than one auto-number column of type %s", c.name, spec.Type)
			}
		}
	}

	if len(c.indexSpecs) > c.fd.MaxIndexesPerTable {
		return dberr.InvalidTableDefinition("table %q has %d indexes, exceeding the %d-index limit", c.name, len(c.indexSpecs), c.fd.MaxIndexesPerTable)
	}

	indexNames := make(map[string]bool, len(c.indexSpecs))
	sawPrimaryKey := false
	for _, idx := range c.indexSpecs {
		if err := idx.Validate(c.fd, columnsByName); err != nil {
			return err
		}
		key := strings.ToUpper(idx.Name)
		if indexNames[key] {
			return dberr.InvalidTableDefinition("duplicate index name %q", idx.Name)
		}
		indexNames[key] = true

		if idx.PrimaryKey {
			if sawPrimaryKey {
				return dberr.InvalidTableDefinition("table %q declares more than one primary-key index", c.name)
			}
			sawPrimaryKey = true
		}
	}

	return nil
}

// CreateTable validates the proposed table, then assigns numbers,
// allocates pages, and emits the table-definition page and any index
// pages under a single write epoch. It
// returns the reserved table-definition page number.
func (c *Creator) CreateTable() (int32, error) {
	if err := c.Validate(); err != nil {
		return format.InvalidPageNumber, err
	}

	c.assignColumns()
	c.assignIndexStates()

	if err := c.ps.StartWrite(); err != nil {
		return format.InvalidPageNumber, dberr.StorageFailure("opening write epoch", err)
	}
	defer func() {
		if ferr := c.ps.FinishWrite(); ferr != nil {
			c.log.WithError(ferr).Error("finish write epoch failed")
		}
	}()

	tdefPageNumber, err := c.ps.ReservePageNumber()
	if err != nil {
		return format.InvalidPageNumber, dberr.StorageFailure("reserving table-definition page", err)
	}

	umapPageNumber, err := c.ps.ReservePageNumber()
	if err != nil {
		return format.InvalidPageNumber, dberr.StorageFailure("reserving usage-map page", err)
	}

	for _, cs := range c.longValues {
		pn, err := c.ps.ReservePageNumber()
		if err != nil {
			return format.InvalidPageNumber, dberr.StorageFailure("reserving long-value page", err)
		}
		cs.FirstPageNumber = pn
	}

	indexSlots := make([]tdef.IndexSlots, 0, len(c.indexStates))
	for _, is := range c.indexStates {
		is.index.SetParentPageNumber(tdefPageNumber)
		if err := is.index.Write(); err != nil {
			return format.InvalidPageNumber, err
		}
		is.RootPageNumber = is.index.PageNumber()

		slots, err := is.index.WriteSlots()
		if err != nil {
			return format.InvalidPageNumber, err
		}
		indexSlots = append(indexSlots, slots)
	}

	def := &tdef.Definition{
		Name:               c.name,
		Columns:            c.columns,
		IndexSlots:         indexSlots,
		UsageMapPageNumber: umapPageNumber,
	}
	if err := tdef.Write(c.ps, c.fd, tdefPageNumber, def); err != nil {
		return format.InvalidPageNumber, err
	}

	if err := c.catalog.AddNewTable(c.name, tdefPageNumber, catalog.TypeTable); err != nil {
		return format.InvalidPageNumber, err
	}

	c.log.WithFields(logrus.Fields{"table": c.name, "tdefPage": tdefPageNumber, "columns": len(c.columns), "indexes": len(c.indexStates)}).Info("created table")
	return tdefPageNumber, nil
}

// assignColumns numbers columns 0..N-1 in declaration order and builds the
// long-value column-state list.
func (c *Creator) assignColumns() {
	c.columns = make([]*column.Column, len(c.columnSpecs))
	for i, spec := range c.columnSpecs {
		col := column.New(i, spec.Name, spec.Type)
		col.IsAutoNumber = spec.IsAutoNumber
		if spec.IsVariableLength {
			col.IsVariableLength = true
		}
		col.IsLongValue = spec.Type == column.MEMO || spec.Type == column.OLE || spec.Type == column.BINARY
		c.columns[i] = col

		if col.IsLongValue {
			c.longValues = append(c.longValues, &ColumnState{Column: col, FirstPageNumber: format.InvalidPageNumber})
		}
	}
}

// assignIndexStates allocates an IndexState (indexNumber ==
// indexDataNumber, since foreign-key indexes are unsupported) per
// declared index and builds its runtime secidx.Index over the resolved
// key columns.
func (c *Creator) assignIndexStates() {
	columnsByName := make(map[string]*column.Column, len(c.columns))
	for _, col := range c.columns {
		columnsByName[strings.ToUpper(col.Name)] = col
	}

	c.indexStates = make([]*IndexState, len(c.indexSpecs))
	for i, spec := range c.indexSpecs {
		keyColumns := make([]*column.Column, len(spec.Columns))
		orders := make([]byte, len(spec.Columns))
		for j, ref := range spec.Columns {
			keyColumns[j] = columnsByName[strings.ToUpper(ref.ColumnName)]
			if !ref.Ascending {
				orders[j] = 1
			}
		}

		is := &IndexState{
			Descriptor:      spec,
			IndexNumber:     i,
			IndexDataNumber: i,
			RootPageNumber:  format.InvalidPageNumber,
			UMapPageNumber:  format.InvalidPageNumber,
			index:           secidx.NewIndex(c.fd, c.ps, keyColumns, orders, secidx.WithLogger(c.log)),
		}
		c.indexStates[i] = is
	}
}

// IndexStates returns the per-index bookkeeping built during CreateTable,
// for callers that want to add rows to the freshly created indexes.
func (c *Creator) IndexStates() []*IndexState {
	return c.indexStates
}

// LongValueStates returns the per-long-value-column bookkeeping built
// during CreateTable, including each column's reserved first long-value
// page number.
func (c *Creator) LongValueStates() []*ColumnState {
	return c.longValues
}

// Index returns the runtime index for the given IndexState, so callers can
// call AddRow/Update on it after CreateTable returns.
func (is *IndexState) Index() *secidx.Index {
	return is.index
}
