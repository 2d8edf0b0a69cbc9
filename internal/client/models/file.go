// Package models defines the client-side views of server resources.
package models

import (
	"net/url"
	"strconv"
	"time"
)

// FileMetadata describes one stored file as returned by the server.
type FileMetadata struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	StoragePath  string    `json:"storage_path"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	HasThumbnail bool      `json:"has_thumbnail"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

// FileList is one page of a listing.
type FileList struct {
	Files      []FileMetadata `json:"files"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

const (
	SortByName = "name"
	SortByDate = "date"
	SortBySize = "size"

	SortAsc  = "asc"
	SortDesc = "desc"

	DefaultPageSize = 20
	MaxPageSize     = 100
)

// ListQuery selects a page of the listing. Zero values fall back to the
// server defaults. Filename filters by case-insensitive exact name.
type ListQuery struct {
	Page      int
	PageSize  int
	SortBy    string
	SortOrder string
	Filename  string
}

// Values encodes q as query parameters, omitting zero fields.
func (q ListQuery) Values() url.Values {
	v := url.Values{}
	if q.Page > 0 {
		v.Set("page", strconv.Itoa(q.Page))
	}
	if q.PageSize > 0 {
		v.Set("page_size", strconv.Itoa(q.PageSize))
	}
	if q.SortBy != "" {
		v.Set("sort_by", q.SortBy)
	}
	if q.SortOrder != "" {
		v.Set("sort_order", q.SortOrder)
	}
	if q.Filename != "" {
		v.Set("filename", q.Filename)
	}
	return v
}

// Key is a stable cache key for q.
func (q ListQuery) Key() string {
	return q.Values().Encode()
}
