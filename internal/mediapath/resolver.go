// Package mediapath maps a remote file's position in the seedbox tree to its
// destination under a local media library.
//
// The remote store reports folder names with their full ancestry already
// joined ("Movies/Action/Heist"), so the nearest listed folder's name is the
// whole remote context for the files inside it. The resolver keeps the full
// subpath below the staging root: with base /media/movies and scan prefix
// "Movies", the file heist.mkv in "Movies/Action/Heist" lands at
// /media/movies/Action/Heist/heist.mkv.
package mediapath

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mediabridge/mediabridge/internal/utils"
	"github.com/spf13/afero"
)

var ErrIllegalPath = errors.New("illegal path")

// quotes are dropped from every segment
var quoteStripper = strings.NewReplacer(
	`"`, "",
	`'`, "",
	"`", "",
	"“", "",
	"”", "",
	"‘", "",
	"’", "",
)

type Resolver struct {
	base   string
	prefix string
	fs     afero.Fs
}

type Option func(*Resolver)

// WithFs replaces the filesystem used by Ensure.
func WithFs(fs afero.Fs) Option {
	return func(r *Resolver) {
		r.fs = fs
	}
}

// New returns a resolver rooted at basePath. scanPrefix names the staging
// root folder; a leading context segment starting with it is not mirrored.
func New(basePath, scanPrefix string, opts ...Option) *Resolver {
	r := &Resolver{
		base:   filepath.Clean(basePath),
		prefix: strings.ToLower(strings.TrimSpace(scanPrefix)),
		fs:     afero.NewOsFs(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Base() string {
	return r.base
}

// Resolve returns the local path for fileName found in the remote folder
// whose reported name is contextName. The result is deterministic and always
// below the base path.
func (r *Resolver) Resolve(contextName, fileName string) (string, error) {
	dirs, err := segments(contextName)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", contextName, err)
	}
	if len(dirs) > 0 && r.prefix != "" && strings.HasPrefix(strings.ToLower(dirs[0]), r.prefix) {
		dirs = dirs[1:]
	}

	names, err := segments(fileName)
	if err != nil {
		return "", fmt.Errorf("resolve %q: %w", fileName, err)
	}
	if len(names) == 0 {
		return "", fmt.Errorf("resolve %q: empty file name: %w", fileName, ErrIllegalPath)
	}

	parts := make([]string, 0, 1+len(dirs)+len(names))
	parts = append(parts, r.base)
	parts = append(parts, dirs...)
	parts = append(parts, names...)
	dest := filepath.Join(parts...)

	if !utils.IsWithin(r.base, dest) || dest == r.base {
		return "", fmt.Errorf("resolve %q/%q: escapes %s: %w", contextName, fileName, r.base, ErrIllegalPath)
	}
	return dest, nil
}

// Ensure creates every missing directory above dest.
func (r *Resolver) Ensure(dest string) error {
	return r.fs.MkdirAll(filepath.Dir(dest), 0o755)
}

// segments splits a remote name on either separator and cleans each piece.
func segments(name string) ([]string, error) {
	raw := strings.FieldsFunc(name, func(c rune) bool {
		return c == '/' || c == '\\'
	})

	out := make([]string, 0, len(raw))
	for _, seg := range raw {
		seg = strings.TrimSpace(quoteStripper.Replace(seg))
		seg = strings.Map(func(c rune) rune {
			if c < 0x20 || c == 0x7f {
				return -1
			}
			return c
		}, seg)
		switch seg {
		case "", ".":
			continue
		case "..":
			return nil, ErrIllegalPath
		}
		out = append(out, seg)
	}
	return out, nil
}
