// Package tdef writes the table-definition page: the on-disk record of a
// table's columns and embedded index metadata that the catalog points at.
package tdef

import (
	"bytes"
	"encoding/binary"

	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/storage"
)

// tdefMagic identifies a valid table-definition page.
const tdefMagic uint16 = 0xCDB2

const (
	flagVariableLength byte = 1 << 0
	flagAutoNumber     byte = 1 << 1
	flagLongValue      byte = 1 << 2
)

// IndexSlots is the 48-byte ten-slot column/order/page-number area one
// index contributes to a table definition (produced by
// secidx.Index.WriteSlots).
type IndexSlots []byte

// Definition carries everything the Table Creator has already decided
// about a table's shape, ready to be serialized to a reserved page.
type Definition struct {
	Name               string
	Columns            []*column.Column
	IndexSlots         []IndexSlots
	UsageMapPageNumber int32
}

// Write serializes def onto pageNumber, which the caller must already
// have reserved (the Table Creator reserves the table-definition page
// before it so index pages can reference it as their parent).
func Write(ps storage.PagedStorage, fd *format.Descriptor, pageNumber int32, def *Definition) error {
	var body bytes.Buffer

	binary.Write(&body, binary.LittleEndian, tdefMagic)

	binary.Write(&body, binary.LittleEndian, uint16(len(def.Name)))
	body.WriteString(def.Name)

	binary.Write(&body, binary.LittleEndian, uint16(len(def.Columns)))
	for _, col := range def.Columns {
		binary.Write(&body, binary.LittleEndian, uint16(col.Number))
		binary.Write(&body, binary.LittleEndian, uint16(len(col.Name)))
		body.WriteString(col.Name)
		body.WriteByte(byte(col.Type))
		binary.Write(&body, binary.LittleEndian, uint16(col.FixedSizeBytes))

		var flags byte
		if col.IsVariableLength {
			flags |= flagVariableLength
		}
		if col.IsAutoNumber {
			flags |= flagAutoNumber
		}
		if col.IsLongValue {
			flags |= flagLongValue
		}
		body.WriteByte(flags)
	}

	if len(def.IndexSlots) > fd.MaxIndexesPerTable {
		return dberr.InvalidTableDefinition("table %q has %d indexes, exceeding the %d-index limit", def.Name, len(def.IndexSlots), fd.MaxIndexesPerTable)
	}
	body.WriteByte(byte(len(def.IndexSlots)))
	for _, slots := range def.IndexSlots {
		body.Write(slots)
	}

	binary.Write(&body, binary.LittleEndian, uint32(def.UsageMapPageNumber))

	if body.Len() > fd.PageSize {
		return dberr.FormatViolation("table definition for %q occupies %d bytes, exceeding page size %d", def.Name, body.Len(), fd.PageSize)
	}

	buf := ps.CreatePageBuffer()
	copy(buf, body.Bytes())
	if err := ps.WritePage(buf, pageNumber); err != nil {
		return dberr.StorageFailure("writing table-definition page", err)
	}

	return nil
}

// Read parses a table-definition page back into its columns and raw index
// slot areas. Columns are reconstructed directly from the page.
func Read(ps storage.PagedStorage, fd *format.Descriptor, pageNumber int32) (*Definition, error) {
	buf := ps.CreatePageBuffer()
	if err := ps.ReadPage(buf, pageNumber); err != nil {
		return nil, dberr.StorageFailure("reading table-definition page", err)
	}

	r := bytes.NewReader(buf)

	var magic uint16
	if err := binary.Read(r, binary.LittleEndian, &magic); err != nil {
		return nil, dberr.FormatViolation("reading table-definition magic: %s", err)
	}
	if magic != tdefMagic {
		return nil, dberr.FormatViolation("page %d is not a table-definition page", pageNumber)
	}

	var nameLen uint16
	binary.Read(r, binary.LittleEndian, &nameLen)
	nameBytes := make([]byte, nameLen)
	r.Read(nameBytes)

	var numCols uint16
	binary.Read(r, binary.LittleEndian, &numCols)

	cols := make([]*column.Column, numCols)
	for i := uint16(0); i < numCols; i++ {
		var colNum uint16
		binary.Read(r, binary.LittleEndian, &colNum)
		var colNameLen uint16
		binary.Read(r, binary.LittleEndian, &colNameLen)
		colNameBytes := make([]byte, colNameLen)
		r.Read(colNameBytes)
		typeByte, err := r.ReadByte()
		if err != nil {
			return nil, dberr.FormatViolation("reading column %d type: %s", i, err)
		}
		var fixedSize uint16
		binary.Read(r, binary.LittleEndian, &fixedSize)
		flags, err := r.ReadByte()
		if err != nil {
			return nil, dberr.FormatViolation("reading column %d flags: %s", i, err)
		}

		col := column.New(int(colNum), string(colNameBytes), column.DataType(typeByte))
		col.IsVariableLength = flags&flagVariableLength != 0
		col.IsAutoNumber = flags&flagAutoNumber != 0
		col.IsLongValue = flags&flagLongValue != 0
		if !col.IsVariableLength {
			col.FixedSizeBytes = int(fixedSize)
		}
		cols[i] = col
	}

	numIndexes, err := r.ReadByte()
	if err != nil {
		return nil, dberr.FormatViolation("reading index count: %s", err)
	}

	slots := make([]IndexSlots, numIndexes)
	for i := byte(0); i < numIndexes; i++ {
		slotBuf := make([]byte, indexSlotAreaSize)
		if _, err := r.Read(slotBuf); err != nil {
			return nil, dberr.FormatViolation("reading index %d slot area: %s", i, err)
		}
		slots[i] = slotBuf
	}

	var usageMapPageNumber uint32
	binary.Read(r, binary.LittleEndian, &usageMapPageNumber)

	return &Definition{
		Name:               string(nameBytes),
		Columns:            cols,
		IndexSlots:         slots,
		UsageMapPageNumber: int32(usageMapPageNumber),
	}, nil
}

// indexSlotAreaSize mirrors secidx's ten-slot descriptor area size: ten
// (2-byte column number + 1-byte order) slots, 4 reserved bytes, a 4-byte
// page number, and 10 trailing reserved bytes.
const indexSlotAreaSize = 10*(2+1) + 4 + 4 + 10
