package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/logging"
)

// AuthHandler serves the /auth endpoints. Bodies use the
// {success, data, error} envelope.
type AuthHandler struct {
	users  UserService
	logger logging.Logger
}

func NewAuthHandler(users UserService, logger logging.Logger) *AuthHandler {
	return &AuthHandler{users: users, logger: logger.With("module", "auth")}
}

// Signup handles POST /auth/signup
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.users.Signup(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeData(w, http.StatusCreated, toAuth(res))
	case errors.Is(err, common.ErrorValidation):
		writeFailure(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, common.ErrorAlreadyExists):
		writeFailure(w, http.StatusConflict, "Email already registered")
	default:
		h.internal(w, r, "signup failed", err)
	}
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	res, err := h.users.Login(r.Context(), req.Email, req.Password)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, toAuth(res))
	case errors.Is(err, common.ErrorUnauthorized):
		writeFailure(w, http.StatusUnauthorized, "Invalid email or password")
	default:
		h.internal(w, r, "login failed", err)
	}
}

// Refresh handles POST /auth/refresh
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
		writeFailure(w, http.StatusBadRequest, "refresh_token is required")
		return
	}

	pair, err := h.users.RefreshToken(r.Context(), req.RefreshToken)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, tokenPairResponse{AccessToken: pair.AccessToken, RefreshToken: pair.RefreshToken})
	case errors.Is(err, common.ErrRefreshTokenExpired):
		writeFailure(w, http.StatusUnauthorized, common.ErrRefreshTokenExpired.Error())
	case errors.Is(err, common.ErrorUnauthorized):
		writeFailure(w, http.StatusUnauthorized, "Invalid refresh token")
	default:
		h.internal(w, r, "refresh failed", err)
	}
}

// Logout handles POST /auth/logout. The body is optional; without a
// refresh token there is nothing to revoke.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	var req refreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeFailure(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.users.Logout(r.Context(), userID, req.RefreshToken); err != nil {
		h.internal(w, r, "logout failed", err)
		return
	}
	writeData(w, http.StatusOK, map[string]string{"message": "Logged out"})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	u, err := h.users.Me(r.Context(), userID)
	switch {
	case err == nil:
		writeData(w, http.StatusOK, toUser(u))
	case errors.Is(err, common.ErrorNotFound):
		writeFailure(w, http.StatusNotFound, "User not found")
	default:
		h.internal(w, r, "me failed", err)
	}
}

func (h *AuthHandler) internal(w http.ResponseWriter, r *http.Request, msg string, err error) {
	h.logger.Error(r.Context(), msg, "error", err)
	writeFailure(w, http.StatusInternalServerError, "Internal server error")
}
