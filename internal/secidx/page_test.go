package secidx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/format"
)

// memStorage is a minimal in-memory storage.PagedStorage used only to
// exercise Index without touching the filesystem.
type memStorage struct {
	pages    map[int32][]byte
	pageSize int
	next     int32
}

func newMemStorage(pageSize int) *memStorage {
	return &memStorage{pages: make(map[int32][]byte), pageSize: pageSize}
}

func (m *memStorage) PageSize() int             { return m.pageSize }
func (m *memStorage) CreatePageBuffer() []byte   { return make([]byte, m.pageSize) }
func (m *memStorage) StartWrite() error          { return nil }
func (m *memStorage) FinishWrite() error         { return nil }
func (m *memStorage) ReservePageNumber() (int32, error) {
	pn := m.next
	m.next++
	return pn, nil
}

func (m *memStorage) ReadPage(buf []byte, pageNumber int32) error {
	data, ok := m.pages[pageNumber]
	if !ok {
		data = make([]byte, m.pageSize)
	}
	copy(buf, data)
	return nil
}

func (m *memStorage) WritePage(buf []byte, pageNumber int32) error {
	data := make([]byte, m.pageSize)
	copy(data, buf)
	m.pages[pageNumber] = data
	if pageNumber >= m.next {
		m.next = pageNumber + 1
	}
	return nil
}

func setupTestIndex(t *testing.T) (*Index, *memStorage, []*column.Column) {
	t.Helper()
	ps := newMemStorage(format.Jet4.PageSize)
	idCol := column.New(0, "ID", column.INT)
	nameCol := column.New(1, "NAME", column.TEXT)
	cols := []*column.Column{idCol, nameCol}
	idx := NewIndex(&format.Jet4, ps, cols, []byte{0, 0})
	return idx, ps, cols
}

func TestIndexAddRowKeepsSortedOrder(t *testing.T) {
	idx, _, _ := setupTestIndex(t)

	require.NoError(t, idx.AddRow(map[int]any{0: int64(3), 1: "C"}, 1, 0))
	require.NoError(t, idx.AddRow(map[int]any{0: int64(1), 1: "A"}, 1, 1))
	require.NoError(t, idx.AddRow(map[int]any{0: int64(2), 1: "B"}, 1, 2))

	require.Equal(t, 3, idx.EntryCount())
	for i, want := range []byte{1, 2, 0} {
		assert.Equal(t, want, idx.entries[i].Row)
	}
}

func TestIndexWriteReadRoundTrip(t *testing.T) {
	idx, ps, cols := setupTestIndex(t)

	require.NoError(t, idx.AddRow(map[int]any{0: int64(10), 1: "Widget"}, 5, 0))
	require.NoError(t, idx.AddRow(map[int]any{0: int64(20), 1: "Gadget"}, 5, 1))
	require.NoError(t, idx.Write())

	slots, err := idx.WriteSlots()
	require.NoError(t, err)

	available := map[int]*column.Column{0: cols[0], 1: cols[1]}
	reread, err := ReadIndex(ps, &format.Jet4, slots, available)
	require.NoError(t, err)

	require.Equal(t, 2, reread.EntryCount())
	v0, err := reread.entries[0].Columns[0].(*FixedEntryColumn).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(10), v0)
}

func TestIndexAddRowRejectsWhenPageFull(t *testing.T) {
	idx, _, _ := setupTestIndex(t)

	// The entry mask can only represent boundaries up to SizeIndexEntryMask*8
	// bits; push past that capacity and expect a rejection rather than a
	// silent overflow.
	var addErr error
	for i := 0; i < idx.fd.SizeIndexEntryMask*8*2; i++ {
		addErr = idx.AddRow(map[int]any{0: int64(i), 1: "X"}, 1, byte(i%256))
		if addErr != nil {
			break
		}
	}
	require.Error(t, addErr)
}

func TestIndexUpdateResortsEntry(t *testing.T) {
	idx, _, _ := setupTestIndex(t)

	require.NoError(t, idx.AddRow(map[int]any{0: int64(1), 1: "A"}, 1, 0))
	require.NoError(t, idx.AddRow(map[int]any{0: int64(2), 1: "B"}, 1, 1))
	require.Equal(t, 2, idx.EntryCount())

	// Moving row (1,0)'s key from 1 to 5 should re-sort it after row (1,1).
	require.NoError(t, idx.Update(1, 0, map[int]any{0: int64(5), 1: "A"}, 1, 0))
	require.Equal(t, 2, idx.EntryCount())

	v0, err := idx.entries[0].Columns[0].(*FixedEntryColumn).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(2), v0)

	v1, err := idx.entries[1].Columns[0].(*FixedEntryColumn).Value()
	require.NoError(t, err)
	assert.Equal(t, int64(5), v1)
}

func TestMaskBoundariesRoundTrip(t *testing.T) {
	mask := make([]byte, 4)
	require.NoError(t, setMaskBoundary(mask, 3))
	require.NoError(t, setMaskBoundary(mask, 10))
	require.NoError(t, setMaskBoundary(mask, 11))

	assert.Equal(t, []int{3, 10, 11}, maskBoundaries(mask))
}
