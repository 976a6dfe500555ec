package table

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowe/jetindex/internal/catalog"
	"github.com/arlowe/jetindex/internal/column"
	"github.com/arlowe/jetindex/internal/dberr"
	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/indexdef"
	"github.com/arlowe/jetindex/internal/storage"
	"github.com/arlowe/jetindex/internal/tdef"
)

func setupTestCreator(t *testing.T, name string, columns []ColumnSpec, indexes []*indexdef.Descriptor) (*Creator, storage.PagedStorage) {
	t.Helper()
	ps, err := storage.Open(t.TempDir()+"/table.db", format.Jet4.PageSize)
	require.NoError(t, err)
	t.Cleanup(func() { ps.Close() })

	cat, err := catalog.Open(ps, &format.Jet4)
	require.NoError(t, err)

	return NewCreator(ps, &format.Jet4, cat, name, columns, indexes), ps
}

func TestCreateTableBasic(t *testing.T) {
	columns := []ColumnSpec{
		{Name: "ID", Type: column.INT, IsAutoNumber: true},
		{Name: "NAME", Type: column.TEXT},
	}
	indexes := []*indexdef.Descriptor{
		{Name: "PK_Widgets", PrimaryKey: true, Columns: []indexdef.ColumnRef{{ColumnName: "ID", Ascending: true}}},
	}

	creator, ps := setupTestCreator(t, "Widgets", columns, indexes)

	tdefPage, err := creator.CreateTable()
	require.NoError(t, err)
	assert.NotEqual(t, format.InvalidPageNumber, tdefPage)

	require.Len(t, creator.IndexStates(), 1)
	assert.Equal(t, 0, creator.IndexStates()[0].IndexNumber)
	assert.Equal(t, creator.IndexStates()[0].IndexNumber, creator.IndexStates()[0].IndexDataNumber)

	got, err := tdef.Read(ps, &format.Jet4, tdefPage)
	require.NoError(t, err)
	assert.Equal(t, "Widgets", got.Name)
	require.Len(t, got.Columns, 2)
}

func TestCreateTableRegistersWithCatalog(t *testing.T) {
	columns := []ColumnSpec{{Name: "ID", Type: column.INT}}
	creator, ps := setupTestCreator(t, "Widgets", columns, nil)

	tdefPage, err := creator.CreateTable()
	require.NoError(t, err)

	cat, err := catalog.Open(ps, &format.Jet4)
	require.NoError(t, err)
	pn, found := cat.TableDefinitionPage("Widgets")
	require.True(t, found)
	assert.Equal(t, tdefPage, pn)
}

func TestCreateTableRejectsEmptyColumnList(t *testing.T) {
	creator, _ := setupTestCreator(t, "Widgets", nil, nil)
	_, err := creator.CreateTable()
	require.Error(t, err)
}

func TestCreateTableRejectsDuplicateColumnName(t *testing.T) {
	columns := []ColumnSpec{
		{Name: "ID", Type: column.INT},
		{Name: "id", Type: column.TEXT},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, nil)
	_, err := creator.CreateTable()
	require.Error(t, err)
}

func TestCreateTableRejectsDuplicateIndexName(t *testing.T) {
	columns := []ColumnSpec{{Name: "ID", Type: column.INT}, {Name: "NAME", Type: column.TEXT}}
	indexes := []*indexdef.Descriptor{
		{Name: "idx", Columns: []indexdef.ColumnRef{{ColumnName: "ID", Ascending: true}}},
		{Name: "IDX", Columns: []indexdef.ColumnRef{{ColumnName: "NAME", Ascending: true}}},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, indexes)
	_, err := creator.CreateTable()
	require.Error(t, err)
}

func TestCreateTableRejectsSecondPrimaryKey(t *testing.T) {
	columns := []ColumnSpec{{Name: "ID", Type: column.INT}, {Name: "CODE", Type: column.INT}}
	indexes := []*indexdef.Descriptor{
		{Name: "pk1", PrimaryKey: true, Columns: []indexdef.ColumnRef{{ColumnName: "ID", Ascending: true}}},
		{Name: "pk2", PrimaryKey: true, Columns: []indexdef.ColumnRef{{ColumnName: "CODE", Ascending: true}}},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, indexes)
	_, err := creator.CreateTable()
	require.Error(t, err)
}

func TestCreateTableValidationDoesNotReservePages(t *testing.T) {
	creator, ps := setupTestCreator(t, "Widgets", nil, nil)

	before := ps.(*storage.FileStorage).PageCount()
	err := creator.Validate()
	require.Error(t, err)
	after := ps.(*storage.FileStorage).PageCount()
	assert.Equal(t, before, after)
}

func TestCreateTableRejectsIndexOnUnindexableColumn(t *testing.T) {
	columns := []ColumnSpec{
		{Name: "ID", Type: column.INT},
		{Name: "BLOB", Type: column.OLE, IsVariableLength: true},
	}
	indexes := []*indexdef.Descriptor{
		{Name: "idx_blob", Columns: []indexdef.ColumnRef{{ColumnName: "BLOB", Ascending: true}}},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, indexes)

	err := creator.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, dberr.ErrUnsupportedIndexColumnType)
}

func TestCreateTableReservesLongValuePages(t *testing.T) {
	columns := []ColumnSpec{
		{Name: "ID", Type: column.INT},
		{Name: "NOTES", Type: column.MEMO},
		{Name: "PHOTO", Type: column.OLE},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, nil)

	_, err := creator.CreateTable()
	require.NoError(t, err)

	states := creator.LongValueStates()
	require.Len(t, states, 2)
	for _, cs := range states {
		assert.NotEqual(t, format.InvalidPageNumber, cs.FirstPageNumber)
	}
	assert.NotEqual(t, states[0].FirstPageNumber, states[1].FirstPageNumber)
}

func TestAddRowAfterCreateTable(t *testing.T) {
	columns := []ColumnSpec{{Name: "ID", Type: column.INT}, {Name: "NAME", Type: column.TEXT}}
	indexes := []*indexdef.Descriptor{
		{Name: "PK_Widgets", PrimaryKey: true, Columns: []indexdef.ColumnRef{{ColumnName: "ID", Ascending: true}}},
	}
	creator, _ := setupTestCreator(t, "Widgets", columns, indexes)

	_, err := creator.CreateTable()
	require.NoError(t, err)

	idx := creator.IndexStates()[0].Index()
	require.NoError(t, idx.AddRow(map[int]any{0: int64(1), 1: "Widget"}, 10, 0))
	assert.Equal(t, 1, idx.EntryCount())
}
