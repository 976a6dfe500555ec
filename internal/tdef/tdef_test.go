package tdef

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/storage"
)

func setupTestStorage(t *testing.T) *storage.FileStorage {
	t.Helper()
	fs, err := storage.Open(t.TempDir()+"/tdef.db", format.Jet4.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { fs.Close() })
	return fs
}

func TestWriteReadRoundTrip(t *testing.T) {
	ps := setupTestStorage(t)

	idCol := column.New(0, "ID", column.INT)
	nameCol := column.New(1, "NAME", column.TEXT)

	def := &Definition{
		Name:               "Widgets",
		Columns:            []*column.Column{idCol, nameCol},
		UsageMapPageNumber: 3,
	}

	pn, err := ps.ReservePageNumber()
	require.NoError(t, err)
	require.NoError(t, Write(ps, &format.Jet4, pn, def))

	got, err := Read(ps, &format.Jet4, pn)
	require.NoError(t, err)

	assert.Equal(t, "Widgets", got.Name)
	require.Len(t, got.Columns, 2)
	assert.Equal(t, "ID", got.Columns[0].Name)
	assert.Equal(t, column.INT, got.Columns[0].Type)
	assert.Equal(t, "NAME", got.Columns[1].Name)
	assert.Equal(t, column.TEXT, got.Columns[1].Type)
	assert.Equal(t, int32(3), got.UsageMapPageNumber)
}

func TestWriteRejectsTooManyIndexes(t *testing.T) {
	ps := setupTestStorage(t)

	def := &Definition{
		Name:    "Widgets",
		Columns: []*column.Column{column.New(0, "ID", column.INT)},
	}
	for i := 0; i <= format.Jet4.MaxIndexesPerTable; i++ {
		def.IndexSlots = append(def.IndexSlots, make(IndexSlots, indexSlotAreaSize))
	}

	pn, err := ps.ReservePageNumber()
	require.NoError(t, err)
	err = Write(ps, &format.Jet4, pn, def)
	require.Error(t, err)
}
