package seedr

import "strconv"

// Folder is a sub-folder entry in a folder listing. FullName, when the
// endpoint fills it, is the path below the account root, e.g.
// "Movies/Action/Heist"; Name may hold the same path or only the leaf.
type Folder struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	FullName   string `json:"fullname"`
	Size       int64  `json:"size"`
	LastUpdate string `json:"last_update"`
}

// Path returns the most complete name the listing carried.
func (f *Folder) Path() string {
	if f.FullName != "" {
		return f.FullName
	}
	return f.Name
}

// File is a file entry in a folder listing. FolderFileID is the id accepted
// by the file endpoints.
type File struct {
	ID           int64  `json:"id"`
	FolderFileID int64  `json:"folder_file_id"`
	FolderID     int64  `json:"folder_id"`
	Name         string `json:"name"`
	Size         int64  `json:"size"`
	Hash         string `json:"hash"`
	LastUpdate   string `json:"last_update"`
}

// FileID returns the id to use for downloads.
func (f *File) FileID() string {
	if f.FolderFileID != 0 {
		return strconv.FormatInt(f.FolderFileID, 10)
	}
	return strconv.FormatInt(f.ID, 10)
}

// FolderContents is the body of GET /rest/folder[/{id}].
type FolderContents struct {
	ID        int64    `json:"id"`
	FolderID  int64    `json:"folder_id"`
	Name      string   `json:"name"`
	FullName  string   `json:"fullname"`
	Parent    int64    `json:"parent"`
	SpaceMax  int64    `json:"space_max"`
	SpaceUsed int64    `json:"space_used"`
	Folders   []Folder `json:"folders"`
	Files     []File   `json:"files"`
}

func (c *FolderContents) Path() string {
	if c.FullName != "" {
		return c.FullName
	}
	return c.Name
}

// ContentsID returns whichever id field the endpoint populated.
func (c *FolderContents) ContentsID() string {
	if c.ID != 0 {
		return strconv.FormatInt(c.ID, 10)
	}
	return strconv.FormatInt(c.FolderID, 10)
}
