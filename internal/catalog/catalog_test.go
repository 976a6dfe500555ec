package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/arlowe/jetindex/internal/format"
	"github.com/arlowe/jetindex/internal/storage"
)

func setupTestCatalog(t *testing.T) (*Catalog, func()) {
	t.Helper()
	dir := t.TempDir()
	fs, err := storage.Open(dir+"/catalog.db", format.Jet4.PageSize)
	require.NoError(t, err)

	c, err := Open(fs, &format.Jet4)
	require.NoError(t, err)

	return c, func() { fs.Close() }
}

func TestOpenInitializesFreshCatalogOnPageZero(t *testing.T) {
	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	_, found := c.TableDefinitionPage("Widgets")
	assert.False(t, found)
}

func TestAddNewTableRegistersAndPersists(t *testing.T) {
	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	require.NoError(t, c.AddNewTable("Widgets", 5, TypeTable))

	pn, found := c.TableDefinitionPage("widgets")
	require.True(t, found)
	assert.Equal(t, int32(5), pn)
}

func TestAddNewTableRejectsDuplicateName(t *testing.T) {
	c, cleanup := setupTestCatalog(t)
	defer cleanup()

	require.NoError(t, c.AddNewTable("Widgets", 5, TypeTable))
	err := c.AddNewTable("WIDGETS", 9, TypeTable)
	require.Error(t, err)
}

func TestCatalogSurvivesReopen(t *testing.T) {
	dir := t.TempDir()
	path := dir + "/catalog.db"

	fs, err := storage.Open(path, format.Jet4.PageSize)
	require.NoError(t, err)
	c, err := Open(fs, &format.Jet4)
	require.NoError(t, err)
	require.NoError(t, c.AddNewTable("Widgets", 5, TypeTable))
	require.NoError(t, fs.Close())

	fs2, err := storage.Open(path, format.Jet4.PageSize)
	require.NoError(t, err)
	defer fs2.Close()

	c2, err := Open(fs2, &format.Jet4)
	require.NoError(t, err)
	pn, found := c2.TableDefinitionPage("Widgets")
	require.True(t, found)
	assert.Equal(t, int32(5), pn)
}
