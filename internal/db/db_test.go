package db

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen_MemoryDefaults(t *testing.T) {
	conn, err := Open()
	require.NoError(t, err)
	defer conn.Close()

	_, err = conn.Exec("CREATE TABLE t (id INTEGER PRIMARY KEY, v TEXT)")
	require.NoError(t, err)
}

func TestOpen_FileCreatesParent(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "nested", "registry.db")

	conn, err := Open(WithPath(dbPath))
	require.NoError(t, err)
	defer conn.Close()

	assert.DirExists(t, filepath.Dir(dbPath))
	assert.FileExists(t, dbPath)
}

func TestOpen_CustomPragmas(t *testing.T) {
	conn, err := Open(WithPragmas("PRAGMA busy_timeout=1000;"), WithMaxOpenConns(2))
	require.NoError(t, err)
	defer conn.Close()

	var timeout int
	require.NoError(t, conn.Get(&timeout, "PRAGMA busy_timeout"))
	assert.Equal(t, 1000, timeout)
}
