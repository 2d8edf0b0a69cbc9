// Package api exposes the REST surface of the server on a gorilla/mux router.
package api

import (
	"context"
	"net/http"

	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/dmitrijs2005/filedash/internal/server/services"
	"github.com/gorilla/mux"
)

// UserService is the account logic the handlers need.
type UserService interface {
	Signup(ctx context.Context, email, password string) (*services.AuthResult, error)
	Login(ctx context.Context, email, password string) (*services.AuthResult, error)
	RefreshToken(ctx context.Context, refreshToken string) (*services.TokenPair, error)
	Logout(ctx context.Context, userID, refreshToken string) error
	Me(ctx context.Context, userID string) (*models.User, error)
	Authenticate(accessToken string) (string, error)
}

// FileService is the file logic the handlers need.
type FileService interface {
	Upload(ctx context.Context, in services.UploadInput) (*models.File, error)
	List(ctx context.Context, q models.FileQuery) (*services.FileList, error)
	Delete(ctx context.Context, userID, id string) error
	DownloadURL(ctx context.Context, userID, id string) (string, error)
}

// Server holds the router and its handlers.
type Server struct {
	router *mux.Router
	auth   *AuthHandler
	files  *FileHandler
	logger logging.Logger
}

// NewServer wires the routes. maxUploadSize bounds the file part of an
// upload request.
func NewServer(users UserService, files FileService, maxUploadSize int64, logger logging.Logger) *Server {
	s := &Server{
		router: mux.NewRouter(),
		auth:   NewAuthHandler(users, logger),
		files:  NewFileHandler(files, maxUploadSize, logger),
		logger: logger.With("module", "api"),
	}
	s.setupRoutes(users)
	return s
}

// Router returns the HTTP handler.
func (s *Server) Router() http.Handler {
	return s.router
}

func (s *Server) setupRoutes(users UserService) {
	s.router.Use(RecoveryMiddleware(s.logger))
	s.router.Use(LoggingMiddleware(s.logger))

	s.router.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusNotFound, "Not found")
	})
	s.router.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeDetail(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	s.router.HandleFunc("/healthz", Health).Methods(http.MethodGet)

	public := s.router.PathPrefix("/auth").Subrouter()
	public.HandleFunc("/signup", s.auth.Signup).Methods(http.MethodPost)
	public.HandleFunc("/login", s.auth.Login).Methods(http.MethodPost)
	public.HandleFunc("/refresh", s.auth.Refresh).Methods(http.MethodPost)

	authed := s.router.NewRoute().Subrouter()
	authed.Use(AuthMiddleware(users))
	authed.HandleFunc("/auth/logout", s.auth.Logout).Methods(http.MethodPost)
	authed.HandleFunc("/auth/me", s.auth.Me).Methods(http.MethodGet)
	authed.HandleFunc("/files", s.files.List).Methods(http.MethodGet)
	authed.HandleFunc("/files/upload", s.files.Upload).Methods(http.MethodPost)
	authed.HandleFunc("/files/{id}", s.files.Delete).Methods(http.MethodDelete)
	authed.HandleFunc("/files/{id}/download", s.files.Download).Methods(http.MethodGet)
}
