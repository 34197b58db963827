package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	database, err := Open(filepath.Join(t.TempDir(), "nested", "strack.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })
	return database
}

func TestGetSetting_Missing(t *testing.T) {
	database := openTestDB(t)

	value, err := database.GetSetting("nope")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestSetSetting_Upsert(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.SetSetting("k", "one"))
	require.NoError(t, database.SetSetting("k", "two"))

	value, err := database.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "two", value)
}

func TestDeleteSetting(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, database.SetSetting("k", "v"))
	require.NoError(t, database.DeleteSetting("k"))
	require.NoError(t, database.DeleteSetting("k"))

	value, err := database.GetSetting("k")
	require.NoError(t, err)
	assert.Equal(t, "", value)
}

func TestOpen_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "strack.db")

	first, err := Open(path)
	require.NoError(t, err)
	require.NoError(t, first.SetSetting("slot", `[{"id":"a"}]`))
	require.NoError(t, first.Close())

	second, err := Open(path)
	require.NoError(t, err)
	defer second.Close()

	value, err := second.GetSetting("slot")
	require.NoError(t, err)
	assert.Equal(t, `[{"id":"a"}]`, value)
}

func TestDefaultPath_XDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/tmp/xdg")

	path, err := DefaultPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/tmp/xdg", "strack", "strack.db"), path)
}
