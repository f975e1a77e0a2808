package seedr

import (
	"context"
	"strconv"

	"github.com/mediabridge/mediabridge/internal/bridge"
)

var _ bridge.RemoteStore = (*Store)(nil)

// Store exposes a Client as the synchronizer's RemoteStore.
type Store struct {
	*Client
}

func NewStore(c *Client) *Store {
	return &Store{Client: c}
}

func (s *Store) ListRoot(ctx context.Context) (*bridge.Listing, error) {
	contents, err := s.Client.ListRoot(ctx)
	if err != nil {
		return nil, err
	}
	return toListing(contents), nil
}

func (s *Store) ListFolder(ctx context.Context, id string) (*bridge.Listing, error) {
	contents, err := s.Client.ListFolder(ctx, id)
	if err != nil {
		return nil, err
	}
	return toListing(contents), nil
}

func toListing(c *FolderContents) *bridge.Listing {
	l := &bridge.Listing{
		ID:      c.ContentsID(),
		Name:    c.Path(),
		Folders: make([]bridge.Folder, 0, len(c.Folders)),
		Files:   make([]bridge.File, 0, len(c.Files)),
	}
	for _, f := range c.Folders {
		l.Folders = append(l.Folders, bridge.Folder{
			ID:           strconv.FormatInt(f.ID, 10),
			Name:         f.Path(),
			LastModified: f.LastUpdate,
		})
	}
	for _, f := range c.Files {
		l.Files = append(l.Files, bridge.File{
			ID:           f.FileID(),
			Name:         f.Name,
			Size:         f.Size,
			LastModified: f.LastUpdate,
		})
	}
	return l
}
