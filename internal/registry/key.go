package registry

import (
	"errors"
	"net/url"
	"strings"
)

const fieldSep = "\t"

var ErrMalformedKey = errors.New("registry: malformed key")

// Key identifies one version of a remote node.
type Key struct {
	ID           string
	LastModified string
}

func NewKey(id, lastModified string) Key {
	return Key{ID: id, LastModified: lastModified}
}

// Encode returns the single-line form of the key. Both fields are
// query-escaped so neither can contain the tab separator or a newline.
func (k Key) Encode() string {
	return url.QueryEscape(k.ID) + fieldSep + url.QueryEscape(k.LastModified)
}

func (k Key) String() string {
	return k.ID + "@" + k.LastModified
}

// DecodeKey parses a line produced by Encode.
func DecodeKey(line string) (Key, error) {
	idPart, tsPart, ok := strings.Cut(line, fieldSep)
	if !ok || strings.Contains(tsPart, fieldSep) {
		return Key{}, ErrMalformedKey
	}

	id, err := url.QueryUnescape(idPart)
	if err != nil {
		return Key{}, ErrMalformedKey
	}
	ts, err := url.QueryUnescape(tsPart)
	if err != nil {
		return Key{}, ErrMalformedKey
	}

	return Key{ID: id, LastModified: ts}, nil
}
