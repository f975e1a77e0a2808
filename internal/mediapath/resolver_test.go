package mediapath

import (
	"path/filepath"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_FullSubpathPolicy(t *testing.T) {
	r := New("/media/movies", "Movies")

	got, err := r.Resolve("Movies/Action/Heist", "heist.mkv")
	require.NoError(t, err)
	assert.Equal(t, filepath.FromSlash("/media/movies/Action/Heist/heist.mkv"), got)

	// same inputs, same output
	again, err := r.Resolve("Movies/Action/Heist", "heist.mkv")
	require.NoError(t, err)
	assert.Equal(t, got, again)
}

func TestResolve(t *testing.T) {
	tests := []struct {
		name     string
		base     string
		prefix   string
		context  string
		file     string
		expected string
	}{
		{
			name:     "file directly in staging root",
			base:     "/media/movies",
			prefix:   "Movies",
			context:  "Movies",
			file:     "a.mkv",
			expected: "/media/movies/a.mkv",
		},
		{
			name:     "prefix match is case-insensitive and covers the whole segment",
			base:     "/media/movies",
			prefix:   "Movies",
			context:  "movies-batch2/Heat (1995)",
			file:     "heat.mkv",
			expected: "/media/movies/Heat (1995)/heat.mkv",
		},
		{
			name:     "quotes stripped",
			base:     "/media/series",
			prefix:   "Series",
			context:  `Series/"The Office"/Season 1`,
			file:     "it's.mkv",
			expected: "/media/series/The Office/Season 1/its.mkv",
		},
		{
			name:     "backslash separators normalized",
			base:     "/media/series",
			prefix:   "Series",
			context:  `Series\Show\S01`,
			file:     "e01.mkv",
			expected: "/media/series/Show/S01/e01.mkv",
		},
		{
			name:     "non-prefixed first segment kept",
			base:     "/media/movies",
			prefix:   "Movies",
			context:  "Other/Film",
			file:     "f.mkv",
			expected: "/media/movies/Other/Film/f.mkv",
		},
		{
			name:     "no prefix configured",
			base:     "/media/movies",
			prefix:   "",
			context:  "Film",
			file:     "f.mkv",
			expected: "/media/movies/Film/f.mkv",
		},
		{
			name:     "empty and dot segments collapse",
			base:     "/media/movies",
			prefix:   "Movies",
			context:  "Movies//./Film/",
			file:     " f.mkv ",
			expected: "/media/movies/Film/f.mkv",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := New(tt.base, tt.prefix).Resolve(tt.context, tt.file)
			require.NoError(t, err)
			assert.Equal(t, filepath.FromSlash(tt.expected), got)
		})
	}
}

func TestResolve_IllegalPaths(t *testing.T) {
	r := New("/media/movies", "Movies")

	for _, c := range []struct{ context, file string }{
		{"Movies/../../etc", "passwd"},
		{"Movies/Film", ".."},
		{"Movies/Film", `""`},
		{"Movies/Film", ""},
	} {
		_, err := r.Resolve(c.context, c.file)
		assert.ErrorIs(t, err, ErrIllegalPath, "%q %q", c.context, c.file)
	}
}

func TestEnsure_CreatesIntermediateDirs(t *testing.T) {
	fs := afero.NewMemMapFs()
	r := New("/media/movies", "Movies", WithFs(fs))

	dest, err := r.Resolve("Movies/Action/Heist", "heist.mkv")
	require.NoError(t, err)
	require.NoError(t, r.Ensure(dest))

	ok, err := afero.DirExists(fs, filepath.Dir(dest))
	require.NoError(t, err)
	assert.True(t, ok)
}
