// Package transfer copies remote files to local storage in bounded ranged
// reads, so peak memory does not depend on file size.
package transfer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/dustin/go-humanize"
	"github.com/spf13/afero"
)

const (
	DefaultWindow = 50 << 20 // 50 MiB
	MinWindow     = 1 << 20

	partSuffix = ".part"
)

var (
	ErrInvalidWindow = errors.New("transfer: window size must be positive")
	ErrWindowSize    = errors.New("transfer: window returned unexpected byte count")
)

// RangeSource serves inclusive byte ranges of a remote file. Implementations
// must fail when the remote answers a range request with anything other than
// partial content.
type RangeSource interface {
	DownloadRange(ctx context.Context, fileID string, start, end int64) (io.ReadCloser, error)
}

// ProgressFunc is called after every completed window.
type ProgressFunc func(fileID string, done, total int64)

// Window is one inclusive byte range.
type Window struct {
	Start int64
	End   int64
}

func (w Window) Len() int64 {
	return w.End - w.Start + 1
}

func (w Window) String() string {
	return fmt.Sprintf("bytes=%d-%d", w.Start, w.End)
}

// Windows splits size bytes into contiguous windows of at most window bytes.
func Windows(size, window int64) []Window {
	if size <= 0 || window <= 0 {
		return nil
	}
	out := make([]Window, 0, (size+window-1)/window)
	for start := int64(0); start < size; start += window {
		out = append(out, Window{Start: start, End: min(start+window-1, size-1)})
	}
	return out
}

type Downloader struct {
	src      RangeSource
	window   int64
	fs       afero.Fs
	progress ProgressFunc

	checkSpace bool
	reserve    uint64
}

type Option func(*Downloader)

func WithWindow(n int64) Option {
	return func(d *Downloader) {
		d.window = n
	}
}

func WithFs(fs afero.Fs) Option {
	return func(d *Downloader) {
		d.fs = fs
	}
}

func WithProgress(fn ProgressFunc) Option {
	return func(d *Downloader) {
		d.progress = fn
	}
}

func New(src RangeSource, opts ...Option) *Downloader {
	d := &Downloader{
		src:    src,
		window: DefaultWindow,
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Downloader) Window() int64 {
	return d.window
}

// Download writes size bytes of fileID to dest. Data is staged in a sibling
// "<dest>.<random>.part" file that replaces dest only after every window arrived intact, so
// dest is either the complete file or whatever was there before. An existing
// dest is overwritten.
func (d *Downloader) Download(ctx context.Context, fileID string, size int64, dest string) (err error) {
	if d.window <= 0 {
		return ErrInvalidWindow
	}
	if size < 0 {
		return fmt.Errorf("transfer: %s: negative size %d", fileID, size)
	}

	if err := d.fs.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return fmt.Errorf("transfer: %s: create parent: %w", fileID, err)
	}
	if d.checkSpace {
		if err := checkFreeSpace(filepath.Dir(dest), size, d.reserve); err != nil {
			return err
		}
	}

	// unique per call, so two files landing on one dest never share a part
	part, err := afero.TempFile(d.fs, filepath.Dir(dest), filepath.Base(dest)+".*"+partSuffix)
	if err != nil {
		return fmt.Errorf("transfer: %s: create part file: %w", fileID, err)
	}
	partPath := part.Name()
	defer func() {
		if err != nil {
			part.Close()
			if rmErr := d.fs.Remove(partPath); rmErr != nil && !errors.Is(rmErr, os.ErrNotExist) {
				slog.Warn("transfer cleanup", "path", partPath, "error", rmErr)
			}
		}
	}()

	windows := Windows(size, d.window)
	slog.Debug("transfer start", "file", fileID, "size", humanize.IBytes(uint64(size)), "windows", len(windows), "dest", dest)

	var done int64
	for _, w := range windows {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := d.copyWindow(ctx, part, fileID, w); err != nil {
			return err
		}
		done += w.Len()
		if d.progress != nil {
			d.progress(fileID, done, size)
		}
	}

	if err := part.Sync(); err != nil {
		return fmt.Errorf("transfer: %s: sync: %w", fileID, err)
	}
	if err := part.Close(); err != nil {
		return fmt.Errorf("transfer: %s: close: %w", fileID, err)
	}
	if err := d.fs.Chmod(partPath, 0o644); err != nil {
		return fmt.Errorf("transfer: %s: chmod: %w", fileID, err)
	}
	if err := d.fs.Rename(partPath, dest); err != nil {
		return fmt.Errorf("transfer: %s: rename: %w", fileID, err)
	}

	return nil
}

func (d *Downloader) copyWindow(ctx context.Context, dst io.Writer, fileID string, w Window) error {
	body, err := d.src.DownloadRange(ctx, fileID, w.Start, w.End)
	if err != nil {
		return fmt.Errorf("transfer: %s %s: %w", fileID, w, err)
	}
	defer body.Close()

	n, err := io.CopyN(dst, body, w.Len())
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("transfer: %s %s: got %d of %d bytes: %w", fileID, w, n, w.Len(), ErrWindowSize)
		}
		return fmt.Errorf("transfer: %s %s: %w", fileID, w, err)
	}

	// the remote must not send more than it was asked for
	var extra [1]byte
	if m, _ := body.Read(extra[:]); m > 0 {
		return fmt.Errorf("transfer: %s %s: trailing data: %w", fileID, w, ErrWindowSize)
	}

	return nil
}
