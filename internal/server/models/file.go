package models

import "time"

// File describes server-side metadata for a stored object. The content
// itself lives in object storage under StoragePath.
type File struct {
	ID     string
	UserID string
	// Filename is the name as uploaded; uniqueness per user is case-insensitive.
	Filename    string
	FileSize    int64
	ContentType string
	// StoragePath is {user_id}/{file_id}/{filename}.
	StoragePath string
	// ThumbnailPath is empty until the thumbnail job has stored one.
	ThumbnailPath string
	UploadedAt    time.Time
}

// HasThumbnail reports whether a thumbnail object exists.
func (f *File) HasThumbnail() bool {
	return f.ThumbnailPath != ""
}

// FileQuery selects a page of a user's files.
type FileQuery struct {
	UserID    string
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	// Filename, when set, matches case-insensitively on the whole name.
	Filename string
}

// Offset is the number of rows skipped before this page.
func (q FileQuery) Offset() int {
	if q.Page < 1 {
		return 0
	}
	return (q.Page - 1) * q.PageSize
}
