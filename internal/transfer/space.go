package transfer

import (
	"errors"
	"fmt"

	"github.com/dustin/go-humanize"
	"github.com/shirou/gopsutil/v4/disk"
)

var ErrInsufficientSpace = errors.New("transfer: insufficient disk space")

// WithDiskCheck refuses a download when the volume holding dest would be left
// with less than reserve free bytes. It inspects the real filesystem, so it
// only makes sense together with an OS-backed afero.Fs.
func WithDiskCheck(reserve uint64) Option {
	return func(d *Downloader) {
		d.checkSpace = true
		d.reserve = reserve
	}
}

func checkFreeSpace(dir string, size int64, reserve uint64) error {
	usage, err := disk.Usage(dir)
	if err != nil {
		return fmt.Errorf("transfer: disk usage %s: %w", dir, err)
	}
	need := uint64(size) + reserve
	if usage.Free < need {
		return fmt.Errorf("%w: %s needs %s, %s free", ErrInsufficientSpace,
			dir, humanize.IBytes(need), humanize.IBytes(usage.Free))
	}
	return nil
}
