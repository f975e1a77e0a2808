package transfer

import (
	"context"
	"math"
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDownload_DiskCheckRejectsOversizedFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "movies", "huge.mkv")
	d := New(newFakeSource(16), WithFs(afero.NewOsFs()), WithDiskCheck(math.MaxUint64/2))

	err := d.Download(context.Background(), "f1", 16, dest)
	require.ErrorIs(t, err, ErrInsufficientSpace)

	assert.Empty(t, partFiles(t, afero.NewOsFs(), dest))
}

func TestDownload_DiskCheckAllowsSmallFile(t *testing.T) {
	dir := t.TempDir()
	dest := filepath.Join(dir, "small.bin")
	d := New(newFakeSource(64), WithFs(afero.NewOsFs()), WithWindow(16), WithDiskCheck(0))

	require.NoError(t, d.Download(context.Background(), "f1", 64, dest))

	info, err := afero.NewOsFs().Stat(dest)
	require.NoError(t, err)
	assert.EqualValues(t, 64, info.Size())
}
