package secidx

import (
	"bytes"
	"encoding/binary"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/arlowe/jetindex/internal/codec"
	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/storage"
)

const (
	indexPageType byte = 0x04

	headerSize           = 1 + 1 + 2 + 4 + 4*4 + 3
	offsetPageType       = 0
	offsetUnknownByte    = 1
	offsetFreeSpace      = 2
	offsetParentPage     = 4
	offsetHeaderReserved = 8 // 16 bytes of zeroed reserved u32s
	offsetUnknownTail    = 24

	slotCount            = 10
	slotColumnNumberSize = 2
	slotOrderSize        = 1
	slotSize             = slotColumnNumberSize + slotOrderSize
	slotsSize            = slotCount * slotSize
	slotAreaReservedA    = 4  // between slots and the page-number field
	slotAreaPageNumber   = 4  // the actual index page's page number
	slotAreaReservedB    = 10 // trailing unknown bytes
	slotAreaSize         = slotsSize + slotAreaReservedA + slotAreaPageNumber + slotAreaReservedB

	unusedSlotColumnNumber uint16 = 0xFFFF
)

// Index is one secondary index's key-column list and its entries,
// materialized from a single storage page. Unlike a
// general-purpose B-tree index, a value of this type never spans more
// than one page: the entries slice is fully sorted in memory and
// rewritten wholesale on every write.
type Index struct {
	fd  *format.Descriptor
	ps  storage.PagedStorage
	tbl *codec.CharCodeTable
	log *logrus.Logger

	pageNumber       int32
	parentPageNumber int32

	// keyColumns and orders are parallel slices: keyColumns[i]'s sort
	// direction is orders[i]. A non-zero order byte means descending,
	// matching the table-definition slot's raw on-disk byte.
	keyColumns []*column.Column
	orders     []byte

	entries []*Entry
}

// Option configures an Index, whether built by NewIndex or ReadIndex.
type Option func(*Index)

// WithLogger overrides the default logger.
func WithLogger(log *logrus.Logger) Option {
	return func(idx *Index) { idx.log = log }
}

// NewIndex builds an empty Index over the given key columns, ready to
// accept rows via AddRow and later be assigned a page via Write.
func NewIndex(fd *format.Descriptor, ps storage.PagedStorage, keyColumns []*column.Column, orders []byte, opts ...Option) *Index {
	idx := &Index{
		fd:               fd,
		ps:               ps,
		tbl:              codec.Default(),
		log:              logrus.StandardLogger(),
		pageNumber:       format.InvalidPageNumber,
		parentPageNumber: format.InvalidPageNumber,
		keyColumns:       keyColumns,
		orders:           orders,
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// ReadIndex parses an index-descriptor slot buffer from a table-definition
// page (ten fixed column/order slots, then the referenced index page's
// number), then reads and parses that index page's entries.
// §6). availableColumns maps column number to the owning table's columns,
// used to resolve each slot's column reference.
func ReadIndex(ps storage.PagedStorage, fd *format.Descriptor, slotBuf []byte, availableColumns map[int]*column.Column, opts ...Option) (*Index, error) {
	if len(slotBuf) < slotAreaSize {
		return nil, dberr.FormatViolation("index descriptor slot area too short: got %d bytes, need %d", len(slotBuf), slotAreaSize)
	}

	var keyColumns []*column.Column
	var orders []byte
	for i := 0; i < slotCount; i++ {
		off := i * slotSize
		colNum := binary.LittleEndian.Uint16(slotBuf[off : off+2])
		order := slotBuf[off+2]
		if colNum == unusedSlotColumnNumber {
			continue
		}
		col, ok := availableColumns[int(colNum)]
		if !ok {
			return nil, dberr.InvalidTableDefinition("index descriptor references unknown column number %d", colNum)
		}
		keyColumns = append(keyColumns, col)
		orders = append(orders, order)
	}

	pageNumber := int32(binary.LittleEndian.Uint32(slotBuf[slotsSize+slotAreaReservedA : slotsSize+slotAreaReservedA+4]))

	idx := NewIndex(fd, ps, keyColumns, orders, opts...)
	idx.pageNumber = pageNumber

	if err := idx.readPage(); err != nil {
		return nil, err
	}
	return idx, nil
}

// WriteSlots serializes this index's column/order slots and page-number
// reference into the ten-slot table-definition descriptor area.
// Slots beyond the key columns are left at the unused sentinel.
func (idx *Index) WriteSlots() ([]byte, error) {
	if len(idx.keyColumns) > slotCount {
		return nil, dberr.InvalidTableDefinition("index has %d columns, exceeding the %d-slot limit", len(idx.keyColumns), slotCount)
	}

	buf := make([]byte, slotAreaSize)
	for i := 0; i < slotCount; i++ {
		off := i * slotSize
		if i < len(idx.keyColumns) {
			binary.LittleEndian.PutUint16(buf[off:off+2], uint16(idx.keyColumns[i].Number))
			buf[off+2] = idx.orders[i]
		} else {
			binary.LittleEndian.PutUint16(buf[off:off+2], unusedSlotColumnNumber)
		}
	}
	binary.LittleEndian.PutUint32(buf[slotsSize+slotAreaReservedA:slotsSize+slotAreaReservedA+4], uint32(idx.pageNumber))
	return buf, nil
}

// readPage loads idx.pageNumber's contents and parses the header, mask,
// and entries.
func (idx *Index) readPage() error {
	buf := idx.ps.CreatePageBuffer()
	if err := idx.ps.ReadPage(buf, idx.pageNumber); err != nil {
		return dberr.StorageFailure("reading index page", err)
	}

	if buf[offsetPageType] != indexPageType {
		return dberr.FormatViolation("page %d has type byte 0x%02x, expected index page type 0x%02x", idx.pageNumber, buf[offsetPageType], indexPageType)
	}
	idx.parentPageNumber = int32(binary.LittleEndian.Uint32(buf[offsetParentPage : offsetParentPage+4]))

	maskOffset := idx.fd.OffsetIndexEntryMask
	maskSize := idx.fd.SizeIndexEntryMask
	mask := buf[maskOffset : maskOffset+maskSize]
	boundaries := maskBoundaries(mask)

	entriesStart := maskOffset + maskSize
	entriesBuf := buf[entriesStart:]

	entries := make([]*Entry, 0, len(boundaries))
	prev := 0
	for i, end := range boundaries {
		if end > len(entriesBuf) {
			return dberr.FormatViolation("index page %d: entry mask boundary %d exceeds available entry bytes", idx.pageNumber, end)
		}
		r := bytes.NewReader(entriesBuf[prev:end])
		e, err := ReadEntry(r, idx.keyColumns, idx.tbl, i)
		if err != nil {
			return dberr.FormatViolation("index page %d, entry %d: %s", idx.pageNumber, i, err)
		}
		entries = append(entries, e)
		prev = end
	}

	idx.entries = entries
	idx.log.WithFields(logrus.Fields{"page": idx.pageNumber, "entries": len(entries)}).Debug("read index page")
	return nil
}

// Write serializes the header, mask, and entries to idx's page, reserving
// a page number first if this index has none yet. Callers must bracket
// this with the storage's write epoch.
func (idx *Index) Write() error {
	if idx.pageNumber == format.InvalidPageNumber {
		pn, err := idx.ps.ReservePageNumber()
		if err != nil {
			return dberr.StorageFailure("reserving index page", err)
		}
		idx.pageNumber = pn
	}

	buf := idx.ps.CreatePageBuffer()
	buf[offsetPageType] = indexPageType
	binary.LittleEndian.PutUint32(buf[offsetParentPage:offsetParentPage+4], uint32(idx.parentPageNumber))

	maskOffset := idx.fd.OffsetIndexEntryMask
	maskSize := idx.fd.SizeIndexEntryMask
	mask := buf[maskOffset : maskOffset+maskSize]

	entriesStart := maskOffset + maskSize
	var body bytes.Buffer
	totalSize := 0
	for _, e := range idx.entries {
		if err := e.WriteTo(&body); err != nil {
			return err
		}
		totalSize = body.Len()
		if err := setMaskBoundary(mask, totalSize); err != nil {
			return err
		}
	}
	if entriesStart+body.Len() > len(buf) {
		return dberr.FormatViolation("index page %d entries occupy %d bytes, exceeding page capacity", idx.pageNumber, body.Len())
	}
	copy(buf[entriesStart:], body.Bytes())

	freeSpace := len(buf) - entriesStart - body.Len()
	binary.LittleEndian.PutUint16(buf[offsetFreeSpace:offsetFreeSpace+2], uint16(freeSpace))

	if err := idx.ps.WritePage(buf, idx.pageNumber); err != nil {
		return dberr.StorageFailure("writing index page", err)
	}
	return nil
}

// PageNumber returns the storage page this index occupies, or
// format.InvalidPageNumber if it has not been written yet.
func (idx *Index) PageNumber() int32 { return idx.pageNumber }

// SetParentPageNumber records the table-definition page that owns this
// index, written into the page header on the next Write.
func (idx *Index) SetParentPageNumber(pn int32) { idx.parentPageNumber = pn }

// EntryCount returns the number of entries currently held.
func (idx *Index) EntryCount() int { return len(idx.entries) }

// AddRow inserts one row's entry in sorted position.
// §12/SUPPLEMENTED FEATURES: rejects the insert with ErrFormatViolation
// instead of silently overflowing the page when capacity is exceeded).
func (idx *Index) AddRow(values map[int]any, pageNumber int32, rowNumber byte) error {
	e, err := NewEntryFromValues(idx.keyColumns, values, pageNumber, rowNumber)
	if err != nil {
		return err
	}

	maskSize := idx.fd.SizeIndexEntryMask
	entriesAreaCap := idx.fd.PageSize - idx.fd.OffsetIndexEntryMask - maskSize
	maskBitCap := maskSize*8 - 1
	if entriesAreaCap > maskBitCap {
		entriesAreaCap = maskBitCap
	}

	projectedSize := 0
	for _, existing := range idx.entries {
		projectedSize += existing.Size()
	}
	projectedSize += e.Size()
	if projectedSize > entriesAreaCap {
		return dberr.FormatViolation("index page %d is full: adding this entry would use %d bytes, exceeding the %d-byte page capacity", idx.pageNumber, projectedSize, entriesAreaCap)
	}

	pos, err := idx.insertionPoint(e)
	if err != nil {
		return err
	}

	idx.entries = append(idx.entries, nil)
	copy(idx.entries[pos+1:], idx.entries[pos:])
	idx.entries[pos] = e
	return nil
}

// Update replaces the entry for (oldPageNumber, oldRowNumber) with a fresh
// entry built from values, re-sorting it into position.
func (idx *Index) Update(oldPageNumber int32, oldRowNumber byte, values map[int]any, newPageNumber int32, newRowNumber byte) error {
	for i, e := range idx.entries {
		if e.Page == oldPageNumber && e.Row == oldRowNumber {
			idx.entries = append(idx.entries[:i], idx.entries[i+1:]...)
			break
		}
	}
	return idx.AddRow(values, newPageNumber, newRowNumber)
}

// insertionPoint finds where e belongs among the already-sorted entries.
func (idx *Index) insertionPoint(e *Entry) (int, error) {
	var cmpErr error
	pos := sort.Search(len(idx.entries), func(i int) bool {
		cmp, err := e.CompareTo(idx.entries[i])
		if err != nil {
			cmpErr = err
			return true
		}
		return cmp <= 0
	})
	if cmpErr != nil {
		return 0, cmpErr
	}
	return pos, nil
}

// maskBoundaries returns the cumulative byte offsets marked by mask's set
// bits, in ascending order: bit k (little-endian within each byte, i.e.
// byte k/8, bit k%8) being set means an entry ends at offset k relative to
// the start of the entries area.
func maskBoundaries(mask []byte) []int {
	var boundaries []int
	for byteIdx, b := range mask {
		for bit := 0; bit < 8; bit++ {
			if b&(1<<uint(bit)) != 0 {
				boundaries = append(boundaries, byteIdx*8+bit)
			}
		}
	}
	return boundaries
}

// setMaskBoundary sets the bit marking cumulative offset totalSize within
// mask, mirroring the write algorithm exactly: "set bit totalSize
// % 8 in mask byte totalSize / 8".
func setMaskBoundary(mask []byte, totalSize int) error {
	byteIdx := totalSize / 8
	if byteIdx >= len(mask) {
		return dberr.FormatViolation("entry mask cannot represent boundary at byte offset %d", totalSize)
	}
	mask[byteIdx] |= 1 << uint(totalSize%8)
	return nil
}
