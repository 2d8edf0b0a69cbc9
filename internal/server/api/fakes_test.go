package api

import (
	"context"
	"io"
	"time"

	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/dmitrijs2005/filedash/internal/server/services"
)

var createdAt = time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeUsers struct {
	signupErr  error
	loginErr   error
	refreshErr error
	logoutErr  error
	meErr      error

	loggedOut []string
}

func (f *fakeUsers) Signup(_ context.Context, email, _ string) (*services.AuthResult, error) {
	if f.signupErr != nil {
		return nil, f.signupErr
	}
	return authResult(email), nil
}

func (f *fakeUsers) Login(_ context.Context, email, _ string) (*services.AuthResult, error) {
	if f.loginErr != nil {
		return nil, f.loginErr
	}
	return authResult(email), nil
}

func (f *fakeUsers) RefreshToken(_ context.Context, token string) (*services.TokenPair, error) {
	if f.refreshErr != nil {
		return nil, f.refreshErr
	}
	return &services.TokenPair{AccessToken: "access-2", RefreshToken: token + "-next"}, nil
}

func (f *fakeUsers) Logout(_ context.Context, userID, token string) error {
	f.loggedOut = append(f.loggedOut, userID+":"+token)
	return f.logoutErr
}

func (f *fakeUsers) Me(_ context.Context, userID string) (*models.User, error) {
	if f.meErr != nil {
		return nil, f.meErr
	}
	return &models.User{ID: userID, Email: "a@b.io", CreatedAt: createdAt}, nil
}

// Authenticate accepts "good" as user u1 and "expired" as an expired token.
func (f *fakeUsers) Authenticate(token string) (string, error) {
	switch token {
	case "good":
		return "u1", nil
	case "expired":
		return "", common.ErrTokenExpired
	default:
		return "", common.ErrInvalidToken
	}
}

func authResult(email string) *services.AuthResult {
	return &services.AuthResult{
		TokenPair: services.TokenPair{AccessToken: "access-1", RefreshToken: "refresh-1"},
		User:      &models.User{ID: "u1", Email: email, CreatedAt: createdAt},
	}
}

type fakeFiles struct {
	uploadErr   error
	listErr     error
	deleteErr   error
	downloadErr error

	uploaded  services.UploadInput
	body      string
	listQuery models.FileQuery
	list      *services.FileList
	deleted   string
}

func (f *fakeFiles) Upload(_ context.Context, in services.UploadInput) (*models.File, error) {
	b, _ := io.ReadAll(in.Body)
	f.uploaded = in
	f.body = string(b)
	if f.uploadErr != nil {
		return nil, f.uploadErr
	}
	return &models.File{
		ID:          "f1",
		UserID:      in.UserID,
		Filename:    in.Filename,
		FileSize:    in.Size,
		ContentType: in.ContentType,
		StoragePath: services.StoragePath(in.UserID, "f1", in.Filename),
		UploadedAt:  createdAt,
	}, nil
}

func (f *fakeFiles) List(_ context.Context, q models.FileQuery) (*services.FileList, error) {
	f.listQuery = q
	if f.listErr != nil {
		return nil, f.listErr
	}
	if f.list != nil {
		return f.list, nil
	}
	return &services.FileList{Files: []services.FileView{}, Page: 1, PageSize: 20}, nil
}

func (f *fakeFiles) Delete(_ context.Context, _, id string) error {
	f.deleted = id
	return f.deleteErr
}

func (f *fakeFiles) DownloadURL(_ context.Context, userID, id string) (string, error) {
	if f.downloadErr != nil {
		return "", f.downloadErr
	}
	return "https://s3.test/" + services.StoragePath(userID, id, "a.txt"), nil
}

func newTestServer(users *fakeUsers, files *fakeFiles) *Server {
	return NewServer(users, files, 1024, logging.NewNop())
}
