// Package catalog manages the database's table registry.
//
// EDUCATIONAL NOTES:
// ------------------
// Every database needs a place to look up "what tables exist and where is
// their definition stored." Production databases keep this in system
// tables (pg_class, sqlite_master); this engine keeps it on one
// fixed page, the same way the rest of this codebase's catalog always
// has. The core treats this package as an external collaborator: it is
// consumed only through AddNewTable, never through direct page access.
package catalog

import (
	"bytes"
	"encoding/binary"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/storage"
)

// PageNumber is the fixed page the catalog occupies.
const PageNumber int32 = 0

// catalogMagic identifies a valid catalog page, distinguishing it from an
// empty or foreign page on load.
const catalogMagic uint16 = 0xCDB1

// TableType distinguishes catalog entry kinds. Only TypeTable is produced
// by this engine today; the enum leaves room for system tables the way
// the format itself does.
type TableType byte

const (
	TypeTable TableType = 1
)

// entry is one registered table's catalog record.
type entry struct {
	name           string
	tdefPageNumber int32
	tableType      TableType
}

// Option configures a Catalog.
type Option func(*Catalog)

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(c *Catalog) { c.log = log }
}

// Catalog is the database's registry of tables, persisted on PageNumber.
type Catalog struct {
	ps  storage.PagedStorage
	fd  *format.Descriptor
	log *logrus.Logger

	tables map[string]*entry
}

// Open loads the catalog page, initializing a fresh one if the storage has
// none yet.
func Open(ps storage.PagedStorage, fd *format.Descriptor, opts ...Option) (*Catalog, error) {
	c := &Catalog{
		ps:     ps,
		fd:     fd,
		log:    logrus.StandardLogger(),
		tables: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}

	buf := ps.CreatePageBuffer()
	if err := ps.ReadPage(buf, PageNumber); err != nil {
		return c, c.initialize()
	}

	if err := c.load(buf); err != nil {
		return nil, err
	}
	return c, nil
}

// initialize reserves PageNumber for a brand-new catalog and persists an
// empty table registry there.
func (c *Catalog) initialize() error {
	pn, err := c.ps.ReservePageNumber()
	if err != nil {
		return dberr.StorageFailure("reserving catalog page", err)
	}
	if pn != PageNumber {
		return dberr.FormatViolation("catalog must occupy page %d, got %d", PageNumber, pn)
	}
	return c.save()
}

// load parses an existing catalog page.
func (c *Catalog) load(buf []byte) error {
	r := bytes.NewReader(buf)

	var magic uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return dberr.FormatViolation("reading catalog magic: %s", err)
	}
	if magic != catalogMagic {
		// Page 0 already exists, so there is nothing to reserve: just
		// persist an empty registry over it.
		return c.save()
	}

	var count uint16
	if err := binary.Read(r, binary.LittleEndian, &count); err != nil {
		return dberr.FormatViolation("reading catalog table count: %s", err)
	}

	for i := uint16(0); i < count; i++ {
		e, err := readEntry(r)
		if err != nil {
			return dberr.FormatViolation("reading catalog entry %d: %s", i, err)
		}
		c.tables[strings.ToUpper(e.name)] = e
	}
	return nil
}

func readEntry(r *bytes.Reader) (*entry, error) {
	var nameLen uint16
	if err := binary.Read(r, binary.LittleEndian, &nameLen); err != nil {
		return nil, err
	}
	nameBytes := make([]byte, nameLen)
	if _, err := r.Read(nameBytes); err != nil {
		return nil, err
	}

	var tdefPageNumber uint32
	if err := binary.Read(r, binary.LittleEndian, &tdefPageNumber); err != nil {
		return nil, err
	}

	tableType, err := r.ReadByte()
	if err != nil {
		return nil, err
	}

	return &entry{
		name:           string(nameBytes),
		tdefPageNumber: int32(tdefPageNumber),
		tableType:      TableType(tableType),
	}, nil
}

func writeEntry(w *bytes.Buffer, e *entry) {
	binary.Write(w, binary.LittleEndian, uint16(len(e.name)))
	w.WriteString(e.name)
	binary.Write(w, binary.LittleEndian, uint32(e.tdefPageNumber))
	w.WriteByte(byte(e.tableType))
}

// save serializes the full table registry and writes it to PageNumber.
func (c *Catalog) save() error {
	var body bytes.Buffer
	binary.Write(&body, binary.LittleEndian, catalogMagic)
	binary.Write(&body, binary.LittleEndian, uint16(len(c.tables)))
	for _, e := range c.tables {
		writeEntry(&body, e)
	}

	if body.Len() > c.fd.PageSize {
		return dberr.FormatViolation("catalog contents occupy %d bytes, exceeding page size %d", body.Len(), c.fd.PageSize)
	}

	buf := c.ps.CreatePageBuffer()
	copy(buf, body.Bytes())
	if err := c.ps.WritePage(buf, PageNumber); err != nil {
		return dberr.StorageFailure("writing catalog page", err)
	}
	return nil
}

// AddNewTable registers a new table's name, table-definition page, and
// type, mirroring the catalog registration step the table creator calls.
// Callers invoke this from within an already-open write epoch; persisting
// the catalog page itself goes through the same storage.PagedStorage the
// epoch is bracketing.
func (c *Catalog) AddNewTable(name string, tdefPageNumber int32, tableType TableType) error {
	key := strings.ToUpper(name)
	if _, exists := c.tables[key]; exists {
		return dberr.InvalidTableDefinition("table %q already exists", name)
	}

	c.tables[key] = &entry{name: name, tdefPageNumber: tdefPageNumber, tableType: tableType}
	if err := c.save(); err != nil {
		delete(c.tables, key)
		return err
	}

	c.log.WithFields(logrus.Fields{"table": name, "tdefPage": tdefPageNumber}).Info("registered table")
	return nil
}

// TableDefinitionPage returns the table-definition page number registered
// for name, and whether it was found.
func (c *Catalog) TableDefinitionPage(name string) (int32, bool) {
	e, ok := c.tables[strings.ToUpper(name)]
	if !ok {
		return format.InvalidPageNumber, false
	}
	return e.tdefPageNumber, true
}
