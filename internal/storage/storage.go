// Package storage defines the abstract paged-storage interface the index
// engine and table creator are built against, plus a file-backed
// implementation of it.
//
// EDUCATIONAL NOTES:
// ------------------
// Everything above this package works in terms of fixed-size page buffers
// and page numbers; it never touches an *os.File directly. That keeps the
// format-specific code (index pages, table-definition pages) decoupled
// from how pages actually reach disk, which is what lets callers substitute
// an in-memory implementation in tests.
package storage

import "github.com/arlowe/jetindex/internal/format"

// InvalidPageNumber re-exports the format package's sentinel for callers
// that only import storage.
const InvalidPageNumber = format.InvalidPageNumber

// PagedStorage is the abstract paged-storage interface. It
// exposes fixed-size page read/write, page reservation, and write-epoch
// bracketing. Implementations are not required to be safe for concurrent
// mutation: the core assumes single-writer discipline per
// database.
type PagedStorage interface {
	// PageSize returns the fixed size, in bytes, of every page.
	PageSize() int

	// CreatePageBuffer returns a fresh, zeroed buffer of exactly
	// PageSize() bytes.
	CreatePageBuffer() []byte

	// ReadPage fills buf, which must be exactly PageSize() bytes, from
	// the given page number.
	ReadPage(buf []byte, pageNumber int32) error

	// WritePage writes exactly PageSize() bytes from buf to the given
	// page number.
	WritePage(buf []byte, pageNumber int32) error

	// ReservePageNumber returns the next previously-unused page number
	// and marks it reserved.
	ReservePageNumber() (int32, error)

	// StartWrite opens a write epoch. Writes between StartWrite and the
	// matching FinishWrite must become durable as a group on success;
	// implementations may buffer them until then.
	StartWrite() error

	// FinishWrite closes the write epoch opened by the matching
	// StartWrite. The core guarantees this is called on every exit path
	// of a bracketed operation, including failure.
	FinishWrite() error
}
