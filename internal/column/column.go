// Package column describes the closed enumeration of column data types and
// the per-table column descriptor. The full column builder surface lives
// outside this module's scope; this package carries only the
// capabilities the index engine and table creator need: a stable column
// number, a data type, a fixed size, and the variable-length/auto-number/
// long-value flags.
package column

// DataType is the closed enumeration of column data types a Jet-family
// table may declare.
type DataType uint8

const (
	TEXT DataType = iota
	MEMO
	INT
	SHORT
	LONG
	BYTE
	FLOAT
	DOUBLE
	DATETIME
	MONEY
	BOOLEAN
	GUID
	NUMERIC
	OLE
	BINARY
)

// String renders the data type's canonical name, mainly for error messages.
func (t DataType) String() string {
	switch t {
	case TEXT:
		return "TEXT"
	case MEMO:
		return "MEMO"
	case INT:
		return "INT"
	case SHORT:
		return "SHORT"
	case LONG:
		return "LONG"
	case BYTE:
		return "BYTE"
	case FLOAT:
		return "FLOAT"
	case DOUBLE:
		return "DOUBLE"
	case DATETIME:
		return "DATETIME"
	case MONEY:
		return "MONEY"
	case BOOLEAN:
		return "BOOLEAN"
	case GUID:
		return "GUID"
	case NUMERIC:
		return "NUMERIC"
	case OLE:
		return "OLE"
	case BINARY:
		return "BINARY"
	default:
		return "UNKNOWN"
	}
}

// FixedSize returns the on-disk size, in bytes, of a fixed-length instance
// of this type, or 0 for TEXT/MEMO and for types with no intrinsic width
// (NUMERIC, OLE, BINARY).
func (t DataType) FixedSize() int {
	switch t {
	case BYTE, BOOLEAN:
		return 1
	case SHORT:
		return 2
	case INT, LONG, FLOAT:
		return 4
	case DOUBLE, DATETIME, MONEY:
		return 8
	case GUID:
		return 16
	default:
		return 0
	}
}

// IsIntegerFamily reports whether values of this type are encoded with the
// integer index bias.
func (t DataType) IsIntegerFamily() bool {
	return t == INT || t == SHORT
}

// IsVariableLengthType reports whether this type is inherently variable
// length regardless of any per-column flag (TEXT and MEMO size varies per
// value; everything else the enumeration carries is fixed size).
func (t DataType) IsVariableLengthType() bool {
	return t == TEXT || t == MEMO
}

// Column is a single column of a table, as assigned by the Table Creator.
type Column struct {
	// Number is the zero-based column number assigned by the creator in
	// declaration order.
	Number int

	// Name is the column's identifier.
	Name string

	// Type is the column's data type.
	Type DataType

	// FixedSizeBytes is the on-disk size for non-variable types. It is
	// Type.FixedSize() unless the caller overrides it (e.g. fixed-length
	// TEXT/BINARY columns declared with an explicit width).
	FixedSizeBytes int

	// IsVariableLength marks TEXT, MEMO, and any other column the table
	// definition declares as variable width.
	IsVariableLength bool

	// IsAutoNumber marks an auto-incrementing column.
	IsAutoNumber bool

	// IsLongValue marks a column whose data lives in auxiliary long-value
	// pages rather than inline in the row. The Table Creator sets it for
	// every MEMO, OLE, and BINARY column.
	IsLongValue bool
}

// New builds a Column with FixedSizeBytes defaulted from the type when the
// type is not inherently variable length.
func New(number int, name string, typ DataType) *Column {
	c := &Column{
		Number:           number,
		Name:             name,
		Type:             typ,
		IsVariableLength: typ.IsVariableLengthType(),
	}
	if !c.IsVariableLength {
		c.FixedSizeBytes = typ.FixedSize()
	}
	return c
}

// Indexable reports whether this column can participate in an index: it
// must be fixed-length, or TEXT/MEMO.
func (c *Column) Indexable() bool {
	if c.Type == TEXT || c.Type == MEMO {
		return true
	}
	return !c.IsVariableLength
}
