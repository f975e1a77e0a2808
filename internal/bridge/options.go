package bridge

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

type Option func(*Synchronizer)

// WithWorkers processes up to n siblings of one folder at a time. A parent is
// still marked and deleted only after all of its children finished.
func WithWorkers(n int) Option {
	return func(s *Synchronizer) {
		if n > 0 {
			s.workers = n
		}
	}
}

// WithExclude skips files whose remote path or name matches any of the
// doublestar patterns. Use ValidatePatterns first; invalid patterns never
// match.
func WithExclude(patterns ...string) Option {
	return func(s *Synchronizer) {
		s.exclude = append(s.exclude, patterns...)
	}
}

// WithFs sets the filesystem on which destination directories are created.
func WithFs(fs afero.Fs) Option {
	return func(s *Synchronizer) {
		s.fs = fs
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Synchronizer) {
		s.logger = logger
	}
}

func WithNow(now func() time.Time) Option {
	return func(s *Synchronizer) {
		s.now = now
	}
}

func ValidatePatterns(patterns []string) error {
	for _, p := range patterns {
		if !doublestar.ValidatePattern(p) {
			return fmt.Errorf("bridge: invalid exclude pattern %q", p)
		}
	}
	return nil
}
