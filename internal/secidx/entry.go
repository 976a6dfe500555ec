// Package secidx implements the on-disk index engine: entries, entry
// columns, and the index page that owns them.
//
// EDUCATIONAL NOTES:
// ------------------
// An index page's entries are kept in one fully-materialized, sorted
// slice rather than a tree of pages: this format scopes a single Index
// value to one storage page's worth of entries, so there is no page-splitting
// logic here, unlike a general-purpose B-tree index. Ordering and byte
// compatibility are what make this format tricky, not the data structure.
package secidx

import (
	"bytes"
	"io"

	"github.com/arlowe/jetindex/internal/codec"
	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
)

// entryReservedByte is a trailing zero byte appended after every entry's
// page/row pair. The 3-byte page plus 1-byte row alone account for one
// fewer byte than an entry's total on-disk size; this module treats that
// extra byte the way the rest of
// the format treats its "unknown, always zero" bytes (see DESIGN.md).
const entryReservedByte = 0

// EntryColumn is one coded key-column value within an Entry. It is
// implemented by *FixedEntryColumn and *TextEntryColumn, one per
// fixed-length or text/memo key column respectively.
type EntryColumn interface {
	// Size returns the number of bytes this column occupies on the wire,
	// including its presence flag. Zero iff the value is absent.
	Size() int

	// WriteTo serializes this column, including its presence flag, to w.
	WriteTo(w io.Writer) error

	// CompareTo orders this column against another of the same concrete
	// type. Behavior for comparing across concrete types is undefined;
	// within one Index all entries share the same column list and thus
	// the same per-position concrete type.
	CompareTo(other EntryColumn) int
}

// FixedEntryColumn holds a fixed-length column's coded value.
type FixedEntryColumn struct {
	col     *column.Column
	present bool
	// disk holds the on-disk big-endian bytes, bias already applied for
	// integer-family columns. nil when absent.
	disk []byte
}

// NewFixedEntryColumnFromValue builds a FixedEntryColumn from a native Go
// value. Pass nil for an absent (null) value.
func NewFixedEntryColumnFromValue(col *column.Column, v any) (*FixedEntryColumn, error) {
	if v == nil {
		return &FixedEntryColumn{col: col}, nil
	}
	disk, err := codec.EncodeFixedValue(col, v)
	if err != nil {
		return nil, err
	}
	return &FixedEntryColumn{col: col, present: true, disk: disk}, nil
}

// ReadFixedEntryColumn reads one FixedEntryColumn from r.
func ReadFixedEntryColumn(r io.Reader, col *column.Column) (*FixedEntryColumn, error) {
	var presence [1]byte
	if _, err := io.ReadFull(r, presence[:]); err != nil {
		return nil, dberr.FormatViolation("reading fixed entry column presence byte: %s", err)
	}
	if presence[0] == 0 {
		return &FixedEntryColumn{col: col}, nil
	}

	disk := make([]byte, col.FixedSizeBytes)
	if _, err := io.ReadFull(r, disk); err != nil {
		return nil, dberr.FormatViolation("reading fixed entry column value: %s", err)
	}
	return &FixedEntryColumn{col: col, present: true, disk: disk}, nil
}

// Value decodes the stored bytes back to a native Go value, or nil if
// absent.
func (f *FixedEntryColumn) Value() (any, error) {
	if !f.present {
		return nil, nil
	}
	return codec.DecodeFixedValue(f.col, f.disk)
}

// Size implements EntryColumn.
func (f *FixedEntryColumn) Size() int {
	if !f.present {
		return 0
	}
	return 1 + len(f.disk)
}

// NonNullSize is the column's fixed size, excluding the presence flag.
func (f *FixedEntryColumn) NonNullSize() int {
	return f.col.FixedSizeBytes
}

// WriteTo implements EntryColumn.
func (f *FixedEntryColumn) WriteTo(w io.Writer) error {
	if !f.present {
		return nil
	}
	if _, err := w.Write([]byte{0x7F}); err != nil {
		return err
	}
	_, err := w.Write(f.disk)
	return err
}

// CompareTo implements EntryColumn. Absent sorts before any present value.
func (f *FixedEntryColumn) CompareTo(other EntryColumn) int {
	o := other.(*FixedEntryColumn)
	switch {
	case !f.present && !o.present:
		return 0
	case !f.present:
		return -1
	case !o.present:
		return 1
	default:
		return bytes.Compare(f.disk, o.disk)
	}
}

// TextEntryColumn holds a TEXT/MEMO column's coded value.
type TextEntryColumn struct {
	present bool

	// actualValue is the uppercased original string. CompareTo does not
	// use it; newly inserted entries are ordered by indexValue. The original design models this
	// as a value recomputed from indexValue on demand; Go has no lazy
	// soft references, so this module just keeps it as a plain field.
	actualValue string

	// indexValue is actualValue with '.' removed: what gets serialized
	// and what entries without an origIndex are compared by.
	indexValue string

	// extraBytes are trailing bytes of unknown meaning, preserved
	// verbatim from a read entry.
	extraBytes []byte

	// hasOrigIndex and origIndex preserve on-disk physical order for
	// entries read from a page, which the comparator falls back to when
	// ordering entries freshly read from the same page.
	hasOrigIndex bool
	origIndex    int
}

// NewTextEntryColumnFromValue builds a TextEntryColumn from a native Go
// string. Pass nil for an absent (null) value.
func NewTextEntryColumnFromValue(v any) *TextEntryColumn {
	if v == nil {
		return &TextEntryColumn{}
	}
	s := v.(string)
	actual := codec.ActualForm(s)
	return &TextEntryColumn{
		present:     true,
		actualValue: actual,
		indexValue:  codec.IndexForm(actual),
	}
}

// ReadTextEntryColumn reads one TextEntryColumn from r, recording
// origIndex as this column's position within the page's read order.
func ReadTextEntryColumn(r *bytes.Reader, tbl *codec.CharCodeTable, origIndex int) (*TextEntryColumn, error) {
	var presence [1]byte
	if _, err := io.ReadFull(r, presence[:]); err != nil {
		return nil, dberr.FormatViolation("reading text entry column presence byte: %s", err)
	}
	if presence[0] == 0 {
		return &TextEntryColumn{hasOrigIndex: true, origIndex: origIndex}, nil
	}

	coded, err := readUntilTerminator(r)
	if err != nil {
		return nil, err
	}
	indexValue, err := codec.DecodeString(tbl, coded)
	if err != nil {
		return nil, err
	}

	var trailing [1]byte
	if _, err := io.ReadFull(r, trailing[:]); err != nil {
		return nil, dberr.FormatViolation("reading text entry column trailing byte: %s", err)
	}

	var extra []byte
	if trailing[0] != 0 {
		// trailing[0] is itself the first extra byte (the extra region
		// runs from the byte right after the terminator up to, but not
		// including, the next 0x00); readUntilZero only reads the rest.
		extra = append(extra, trailing[0])
		rest, err := readUntilZero(r)
		if err != nil {
			return nil, err
		}
		extra = append(extra, rest...)
	}

	return &TextEntryColumn{
		present:      true,
		actualValue:  indexValue,
		indexValue:   indexValue,
		extraBytes:   extra,
		hasOrigIndex: true,
		origIndex:    origIndex,
	}, nil
}

func readUntilTerminator(r *bytes.Reader) ([]byte, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, dberr.FormatViolation("text entry column missing terminator: %s", err)
		}
		if b == 0x01 {
			return buf, nil
		}
		buf = append(buf, b)
	}
}

func readUntilZero(r *bytes.Reader) ([]byte, error) {
	var buf []byte
	for {
		b, err := r.ReadByte()
		if err != nil {
			return nil, dberr.FormatViolation("text entry column extra bytes missing terminating zero: %s", err)
		}
		if b == 0x00 {
			return buf, nil
		}
		buf = append(buf, b)
	}
}

// encode builds the exact on-wire byte sequence for this column, including
// the presence flag, coded characters (with the "_"-string anomaly),
// terminator, optional extra bytes, and trailing zero. Size and WriteTo
// both derive from this so the serialized length can never drift from
// what actually gets written, including the anomaly case (see DESIGN.md).
func (t *TextEntryColumn) encode(tbl *codec.CharCodeTable) ([]byte, error) {
	if !t.present {
		return nil, nil
	}

	coded, err := codec.EncodeString(tbl, t.indexValue)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, 3+len(coded)+len(t.extraBytes))
	buf = append(buf, 0x7F)
	buf = append(buf, coded...)
	buf = append(buf, 0x01)
	if len(t.extraBytes) > 0 {
		buf = append(buf, t.extraBytes...)
	}
	buf = append(buf, 0x00)
	return buf, nil
}

// Size implements EntryColumn.
func (t *TextEntryColumn) Size() int {
	encoded, err := t.encode(codec.Default())
	if err != nil {
		// An unmapped character surfaces via WriteTo, not here;
		// treat as zero-width so callers that only inspect size don't
		// panic before the real error is raised on write.
		return 0
	}
	return len(encoded)
}

// NonNullSize mirrors the documented size formula: 3 (presence +
// terminator + trailing zero) plus one byte per character, plus one extra
// byte per prefixed character, plus any extra bytes. Size() is what the
// index page's capacity check uses; see encode's doc comment for why it
// derives from the encoder instead of this formula.
func (t *TextEntryColumn) NonNullSize() int {
	if !t.present {
		return 0
	}
	tbl := codec.Default()
	prefixed := 0
	for _, ch := range t.indexValue {
		if code, ok := tbl.Code(ch); ok && tbl.IsPrefixed(code) {
			prefixed++
		}
	}
	return 3 + len([]rune(t.indexValue)) + prefixed + len(t.extraBytes)
}

// WriteTo implements EntryColumn.
func (t *TextEntryColumn) WriteTo(w io.Writer) error {
	encoded, err := t.encode(codec.Default())
	if err != nil {
		return err
	}
	if encoded == nil {
		return nil
	}
	_, err = w.Write(encoded)
	return err
}

// CompareTo implements EntryColumn.
func (t *TextEntryColumn) CompareTo(other EntryColumn) int {
	o := other.(*TextEntryColumn)
	switch {
	case !t.present && !o.present:
		return 0
	case !t.present:
		return -1
	case !o.present:
		return 1
	}

	if t.hasOrigIndex && o.hasOrigIndex {
		switch {
		case t.origIndex < o.origIndex:
			return -1
		case t.origIndex > o.origIndex:
			return 1
		default:
			return 0
		}
	}

	// At least one column is freshly inserted: order by the index form
	// (the serialized form, '.' already stripped) rather than the
	// actual form, so two values whose index forms match (e.g. "U.S.A"
	// and "USA") compare equal here and fall through to the (page, row)
	// tiebreaker instead of ordering on the '.' character that never
	// reaches disk.
	switch {
	case t.indexValue < o.indexValue:
		return -1
	case t.indexValue > o.indexValue:
		return 1
	default:
		return 0
	}
}

// Entry is one row-pointer plus its per-column coded values.
type Entry struct {
	Page    int32 // stored as 3 bytes big-endian; must fit in 24 bits.
	Row     byte
	Columns []EntryColumn
}

// NewEntryFromValues builds an Entry for a new row, given the row's values
// indexed by column number and the ordered key-column list the owning
// Index was constructed with.
func NewEntryFromValues(keyColumns []*column.Column, row map[int]any, pageNumber int32, rowNumber byte) (*Entry, error) {
	cols := make([]EntryColumn, len(keyColumns))
	for i, col := range keyColumns {
		v := row[col.Number]
		if col.Type == column.TEXT || col.Type == column.MEMO {
			cols[i] = NewTextEntryColumnFromValue(v)
			continue
		}
		fc, err := NewFixedEntryColumnFromValue(col, v)
		if err != nil {
			return nil, err
		}
		cols[i] = fc
	}
	return &Entry{Page: pageNumber, Row: rowNumber, Columns: cols}, nil
}

// ReadEntry reads one Entry from r: one EntryColumn per key column,
// then a 3-byte big-endian page, then a 1-byte row. nextEntryIndex
// becomes origIndex for any TEXT columns within the entry,
// preserving on-disk physical order.
func ReadEntry(r *bytes.Reader, keyColumns []*column.Column, tbl *codec.CharCodeTable, nextEntryIndex int) (*Entry, error) {
	cols := make([]EntryColumn, len(keyColumns))
	for i, col := range keyColumns {
		if col.Type == column.TEXT || col.Type == column.MEMO {
			tc, err := ReadTextEntryColumn(r, tbl, nextEntryIndex)
			if err != nil {
				return nil, err
			}
			cols[i] = tc
			continue
		}
		fc, err := ReadFixedEntryColumn(r, col)
		if err != nil {
			return nil, err
		}
		cols[i] = fc
	}

	var pageBuf [3]byte
	if _, err := io.ReadFull(r, pageBuf[:]); err != nil {
		return nil, dberr.FormatViolation("reading entry page number: %s", err)
	}
	page := int32(pageBuf[0])<<16 | int32(pageBuf[1])<<8 | int32(pageBuf[2])

	row, err := r.ReadByte()
	if err != nil {
		return nil, dberr.FormatViolation("reading entry row number: %s", err)
	}

	// Reserved trailing byte, see entryReservedByte.
	if _, err := r.ReadByte(); err != nil {
		return nil, dberr.FormatViolation("reading entry reserved byte: %s", err)
	}

	return &Entry{Page: page, Row: row, Columns: cols}, nil
}

// Size is the entry's total on-wire byte length: 5 plus the sum of
// each column's Size().
func (e *Entry) Size() int {
	total := 5
	for _, c := range e.Columns {
		total += c.Size()
	}
	return total
}

// WriteTo serializes the entry (columns, then 3-byte big-endian page,
// then 1-byte row, then the reserved byte).
func (e *Entry) WriteTo(w io.Writer) error {
	for _, c := range e.Columns {
		if err := c.WriteTo(w); err != nil {
			return err
		}
	}

	var pageBuf [3]byte
	pageBuf[0] = byte(e.Page >> 16)
	pageBuf[1] = byte(e.Page >> 8)
	pageBuf[2] = byte(e.Page)
	if _, err := w.Write(pageBuf[:]); err != nil {
		return err
	}
	if _, err := w.Write([]byte{e.Row}); err != nil {
		return err
	}
	_, err := w.Write([]byte{entryReservedByte})
	return err
}

// CompareTo orders two entries by lexicographic comparison of entry
// columns, then (page, row) as a tiebreaker.
func (e *Entry) CompareTo(other *Entry) (int, error) {
	if len(e.Columns) != len(other.Columns) {
		return 0, dberr.IncompatibleEntryShape("comparing entries with %d and %d columns", len(e.Columns), len(other.Columns))
	}

	for i, c := range e.Columns {
		if cmp := c.CompareTo(other.Columns[i]); cmp != 0 {
			return cmp, nil
		}
	}

	switch {
	case e.Page != other.Page:
		if e.Page < other.Page {
			return -1, nil
		}
		return 1, nil
	case e.Row != other.Row:
		if e.Row < other.Row {
			return -1, nil
		}
		return 1, nil
	default:
		return 0, nil
	}
}
