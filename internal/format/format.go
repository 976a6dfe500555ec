// Package format holds the read-only, version-dependent numeric limits and
// offsets that the rest of the engine treats as a lookup table rather than
// hard-coded constants. Real Jet files ship in several incompatible
// generations (Jet3, Jet4, ...); each generation fixes its own page size,
// entry-mask geometry, and name/column/index ceilings.
package format

// InvalidPageNumber is the sentinel used throughout the engine for "no page
// assigned yet". It is never a legitimate page number.
const InvalidPageNumber int32 = -1

// Descriptor is an immutable, per-database-version record of format limits.
// It is constructed once (see Jet3/Jet4 below) and only ever read.
type Descriptor struct {
	// Name identifies the format version, e.g. "JET3", "JET4".
	Name string

	// PageSize is the fixed size, in bytes, of every page in the file.
	PageSize int

	// SizeIndexEntryMask is the number of bytes in an index page's
	// entry-length bitmask.
	SizeIndexEntryMask int

	// OffsetIndexEntryMask is the byte offset, within an index page,
	// where the entry-length bitmask begins.
	OffsetIndexEntryMask int

	// MaxTableNameLength is the maximum number of characters in a table
	// name.
	MaxTableNameLength int

	// MaxColumnNameLength is the maximum number of characters in a
	// column or index name.
	MaxColumnNameLength int

	// MaxColumnsPerTable is the maximum number of columns a table may
	// declare.
	MaxColumnsPerTable int

	// MaxIndexesPerTable is the maximum number of indexes a table may
	// declare.
	MaxIndexesPerTable int

	// MaxColumnsPerIndex is the maximum number of key columns a single
	// index may reference.
	MaxColumnsPerIndex int
}

// indexPageHeaderSize is the fixed portion of an index page preceding the
// entry-length mask: page type, unknown byte, free-space u16, parent page
// u32, four zeroed u32s, and three unknown bytes.
const indexPageHeaderSize = 1 + 1 + 2 + 4 + 4*4 + 3

// Jet3 describes the legacy (Access 97) format generation.
var Jet3 = Descriptor{
	Name:                 "JET3",
	PageSize:             2048,
	SizeIndexEntryMask:   27,
	OffsetIndexEntryMask: indexPageHeaderSize,
	MaxTableNameLength:   64,
	MaxColumnNameLength:  64,
	MaxColumnsPerTable:   255,
	MaxIndexesPerTable:   32,
	MaxColumnsPerIndex:   10,
}

// Jet4 describes the Access 2000+ format generation this engine targets by
// default.
var Jet4 = Descriptor{
	Name:                 "JET4",
	PageSize:             4096,
	SizeIndexEntryMask:   51,
	OffsetIndexEntryMask: indexPageHeaderSize,
	MaxTableNameLength:   64,
	MaxColumnNameLength:  64,
	MaxColumnsPerTable:   255,
	MaxIndexesPerTable:   32,
	MaxColumnsPerIndex:   10,
}

// Default is the format version used when no other version is requested.
var Default = Jet4
