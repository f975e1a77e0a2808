package registry

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_MissingFileStartsEmpty(t *testing.T) {
	reg, err := New(NewFileStore(filepath.Join(t.TempDir(), DefaultFileName)))
	require.NoError(t, err)

	assert.Equal(t, 0, reg.Len())
	assert.False(t, reg.IsProcessed("1", "t1"))
}

func TestRegistry_MarkPersistsBeforeReturning(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state", DefaultFileName)

	reg, err := New(NewFileStore(path))
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessed("42", "2026-01-01 10:00:00"))
	assert.True(t, reg.IsProcessed("42", "2026-01-01 10:00:00"))
	assert.False(t, reg.IsProcessed("42", "2026-01-02 10:00:00"))

	// a fresh load sees the mark, as after a crash right after the call
	reloaded, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.True(t, reloaded.IsProcessed("42", "2026-01-01 10:00:00"))
	assert.Equal(t, 1, reloaded.Len())
}

func TestRegistry_MarkIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	reg, err := New(NewFileStore(path))
	require.NoError(t, err)

	require.NoError(t, reg.MarkProcessed("1", "t"))
	require.NoError(t, reg.MarkProcessed("1", "t"))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "1\tt\n", string(data))
}

func TestRegistry_NoCollisionOnUnderscores(t *testing.T) {
	reg, err := New(NewFileStore(filepath.Join(t.TempDir(), DefaultFileName)))
	require.NoError(t, err)

	require.NoError(t, reg.MarkProcessed("a_b", "c"))
	assert.False(t, reg.IsProcessed("a", "b_c"))
}

func TestRegistry_SkipsUnreadableLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	require.NoError(t, os.WriteFile(path, []byte("legacy_entry\n7\t2026\n\n"), 0o644))

	reg, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, 1, reg.Len())
	assert.True(t, reg.IsProcessed("7", "2026"))
}

type failingStore struct {
	err error
}

func (s *failingStore) Load() ([]Key, error) { return nil, nil }
func (s *failingStore) Save(Key, []Key) error { return s.err }
func (s *failingStore) Close() error { return nil }

func TestRegistry_PersistFailureRollsBack(t *testing.T) {
	diskFull := errors.New("no space left on device")
	reg, err := New(&failingStore{err: diskFull})
	require.NoError(t, err)

	err = reg.MarkProcessed("9", "t9")
	var perr *PersistError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, NewKey("9", "t9"), perr.Key)
	assert.ErrorIs(t, err, diskFull)
	assert.False(t, reg.IsProcessed("9", "t9"))
}

func TestRegistry_ConcurrentMarks(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultFileName)
	reg, err := New(NewFileStore(path))
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.NoError(t, reg.MarkProcessed(string(rune('a'+i)), "t"))
		}()
	}
	wg.Wait()

	reloaded, err := New(NewFileStore(path))
	require.NoError(t, err)
	assert.Equal(t, 20, reloaded.Len())
}

func TestSQLiteStore_Roundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), DefaultSQLiteFileName)

	reg, err := Open(BackendSQLite, path, "")
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessed("a_b", "c"))
	require.NoError(t, reg.MarkProcessed("a_b", "c"))
	require.NoError(t, reg.Close())

	reloaded, err := Open(BackendSQLite, path, "")
	require.NoError(t, err)
	defer reloaded.Close()

	assert.Equal(t, []Key{NewKey("a_b", "c")}, reloaded.Keys())
	assert.False(t, reloaded.IsProcessed("a", "b_c"))
}

func TestOpen_DefaultsAndUnknownBackend(t *testing.T) {
	dir := t.TempDir()

	reg, err := Open("", "", dir)
	require.NoError(t, err)
	require.NoError(t, reg.MarkProcessed("1", "t"))
	assert.FileExists(t, filepath.Join(dir, DefaultFileName))

	_, err = Open("redis", "", dir)
	assert.ErrorContains(t, err, "unknown backend")
}
