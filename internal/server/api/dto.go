package api

import (
	"time"

	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/dmitrijs2005/filedash/internal/server/services"
)

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userResponse struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

type tokenPairResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

type authResponse struct {
	tokenPairResponse
	User userResponse `json:"user"`
}

type fileResponse struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Filename     string    `json:"filename"`
	FileSize     int64     `json:"file_size"`
	StoragePath  string    `json:"storage_path"`
	ThumbnailURL string    `json:"thumbnail_url,omitempty"`
	HasThumbnail bool      `json:"has_thumbnail"`
	UploadedAt   time.Time `json:"uploaded_at"`
}

type fileListResponse struct {
	Files      []fileResponse `json:"files"`
	Total      int            `json:"total"`
	Page       int            `json:"page"`
	PageSize   int            `json:"page_size"`
	TotalPages int            `json:"total_pages"`
}

type uploadResponse struct {
	File    fileResponse `json:"file"`
	Message string       `json:"message"`
}

type conflictDetail struct {
	Message      string        `json:"message"`
	ExistingFile *fileResponse `json:"existing_file,omitempty"`
}

func toUser(u *models.User) userResponse {
	return userResponse{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toAuth(r *services.AuthResult) authResponse {
	return authResponse{
		tokenPairResponse: tokenPairResponse{AccessToken: r.AccessToken, RefreshToken: r.RefreshToken},
		User:              toUser(r.User),
	}
}

func toFile(f *models.File, thumbnailURL string) fileResponse {
	return fileResponse{
		ID:           f.ID,
		UserID:       f.UserID,
		Filename:     f.Filename,
		FileSize:     f.FileSize,
		StoragePath:  f.StoragePath,
		ThumbnailURL: thumbnailURL,
		HasThumbnail: f.HasThumbnail(),
		UploadedAt:   f.UploadedAt,
	}
}

func toFileList(l *services.FileList) fileListResponse {
	out := fileListResponse{
		Files:      make([]fileResponse, 0, len(l.Files)),
		Total:      l.Total,
		Page:       l.Page,
		PageSize:   l.PageSize,
		TotalPages: l.TotalPages,
	}
	for _, v := range l.Files {
		out.Files = append(out.Files, toFile(v.File, v.ThumbnailURL))
	}
	return out
}
