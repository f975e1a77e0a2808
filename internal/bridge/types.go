package bridge

import (
	"context"
	"time"

	"github.com/mediabridge/mediabridge/internal/transfer"
)

// Folder is a remote folder as reported by a listing. Name carries the
// folder's full ancestry as joined by the remote store.
type Folder struct {
	ID           string
	Name         string
	LastModified string
}

type File struct {
	ID           string
	Name         string
	Size         int64
	LastModified string
}

// Listing is the typed content of one remote folder.
type Listing struct {
	ID      string
	Name    string
	Folders []Folder
	Files   []File
}

// RemoteStore is the seedbox as seen by the synchronizer. DeleteFolder must
// treat an id that no longer exists as success.
type RemoteStore interface {
	transfer.RangeSource
	ListRoot(ctx context.Context) (*Listing, error)
	ListFolder(ctx context.Context, id string) (*Listing, error)
	DeleteFolder(ctx context.Context, id string) error
}

// Registry is the processing registry used for idempotence.
type Registry interface {
	IsProcessed(id, lastModified string) bool
	MarkProcessed(id, lastModified string) error
}

// Downloader moves one remote file to a local path, overwriting it.
type Downloader interface {
	Download(ctx context.Context, fileID string, size int64, dest string) error
}

// Notifier tells the media server that new content may exist.
type Notifier interface {
	Refresh(ctx context.Context) error
}

// Root is one configured sync scope. Exactly one of FolderID, FolderName or
// Prefix selects the remote side.
type Root struct {
	Name string
	// FolderID syncs one fixed remote folder.
	FolderID string
	// FolderName looks the fixed folder up by exact top-level name each pass.
	FolderName string
	// Prefix syncs every top-level folder whose name starts with it,
	// case-insensitively.
	Prefix   string
	BasePath string
	// DeleteRoot also deletes a fixed root folder once drained. Prefix
	// matched folders are always deleted. A FolderName root that is absent
	// is then not an error.
	DeleteRoot bool
}

// Report summarizes one Sync call.
type Report struct {
	Root            string    `json:"root"`
	StartedAt       time.Time `json:"started_at"`
	Duration        string    `json:"duration"`
	FoldersMatched  int       `json:"folders_matched"`
	FoldersDeleted  int       `json:"folders_deleted"`
	FoldersSkipped  int       `json:"folders_skipped"`
	FilesSkipped    int       `json:"files_skipped"`
	FilesDownloaded int       `json:"files_downloaded"`
	FilesExcluded   int       `json:"files_excluded"`
	BytesDownloaded int64     `json:"bytes_downloaded"`
	Error           string    `json:"error,omitempty"`
	NotifyError     string    `json:"notify_error,omitempty"`
}
