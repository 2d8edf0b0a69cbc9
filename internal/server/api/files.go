package api

import (
	"errors"
	"fmt"
	"mime"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/filedash/internal/common"
	"github.com/dmitrijs2005/filedash/internal/logging"
	"github.com/dmitrijs2005/filedash/internal/server/models"
	"github.com/dmitrijs2005/filedash/internal/server/services"
	"github.com/dmitrijs2005/filedash/internal/validation"
	"github.com/gorilla/mux"
)

const (
	// multipartOverhead covers boundaries, part headers and small fields.
	multipartOverhead = 1 << 20
	// multipartMemory is kept in memory; the rest spills to temp files.
	multipartMemory = 8 << 20
)

// FileHandler serves the /files endpoints. Errors use {"detail": ...}.
type FileHandler struct {
	files   FileService
	maxSize int64
	logger  logging.Logger
}

func NewFileHandler(files FileService, maxSize int64, logger logging.Logger) *FileHandler {
	return &FileHandler{files: files, maxSize: maxSize, logger: logger.With("module", "files")}
}

func (h *FileHandler) tooLarge() string {
	return fmt.Sprintf("File size exceeds maximum allowed size of %d MB", h.maxSize/(1024*1024))
}

// Upload handles POST /files/upload with a multipart "file" part and an
// optional "overwrite" field or query parameter.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxSize+multipartOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			writeDetail(w, http.StatusRequestEntityTooLarge, h.tooLarge())
			return
		}
		writeDetail(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	overwrite, _ := strconv.ParseBool(r.FormValue("overwrite"))

	created, err := h.files.Upload(r.Context(), services.UploadInput{
		UserID:      userID,
		Filename:    filepath.Base(header.Filename),
		ContentType: contentType(header.Header.Get("Content-Type"), header.Filename),
		Size:        header.Size,
		Body:        file,
		Overwrite:   overwrite,
	})

	var verr *validation.ValidationError
	var conflict *services.ConflictError
	switch {
	case err == nil:
		writeJSON(w, http.StatusCreated, uploadResponse{File: toFile(created, ""), Message: "File uploaded successfully"})
	case errors.As(err, &verr):
		status := http.StatusBadRequest
		if verr.Kind == validation.KindTooLarge {
			status = http.StatusRequestEntityTooLarge
		}
		writeDetail(w, status, verr.Message)
	case errors.As(err, &conflict):
		detail := conflictDetail{Message: conflict.Error()}
		if conflict.Existing != nil {
			existing := toFile(conflict.Existing, "")
			detail.ExistingFile = &existing
		}
		writeDetail(w, http.StatusConflict, detail)
	default:
		h.logger.Error(r.Context(), "upload failed", "user_id", userID, "filename", header.Filename, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to upload file")
	}
}

// contentType prefers the part header unless it is the generic default,
// then falls back to the extension.
func contentType(declared, filename string) string {
	declared = strings.TrimSpace(declared)
	if declared != "" && declared != "application/octet-stream" {
		return declared
	}
	if byExt := mime.TypeByExtension(strings.ToLower(filepath.Ext(filename))); byExt != "" {
		return byExt
	}
	return declared
}

// List handles GET /files?page&page_size&sort_by&sort_order&filename
func (h *FileHandler) List(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	q := r.URL.Query()

	page, err := intParam(q.Get("page"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "page must be an integer")
		return
	}
	pageSize, err := intParam(q.Get("page_size"))
	if err != nil {
		writeDetail(w, http.StatusBadRequest, "page_size must be an integer")
		return
	}

	list, err := h.files.List(r.Context(), models.FileQuery{
		UserID:    userID,
		Page:      page,
		PageSize:  pageSize,
		SortBy:    q.Get("sort_by"),
		SortOrder: q.Get("sort_order"),
		Filename:  q.Get("filename"),
	})
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, toFileList(list))
	case errors.Is(err, common.ErrorValidation):
		writeDetail(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(r.Context(), "list failed", "user_id", userID, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to list files")
	}
}

func intParam(v string) (int, error) {
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

// Delete handles DELETE /files/{id}
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	err := h.files.Delete(r.Context(), userID, id)
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, "File not found")
	default:
		h.logger.Error(r.Context(), "delete failed", "file_id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to delete file")
	}
}

// Download handles GET /files/{id}/download by redirecting to a presigned
// object URL.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	userID, _ := UserIDFromContext(r.Context())
	id := mux.Vars(r)["id"]

	link, err := h.files.DownloadURL(r.Context(), userID, id)
	switch {
	case err == nil:
		http.Redirect(w, r, link, http.StatusTemporaryRedirect)
	case errors.Is(err, common.ErrorNotFound):
		writeDetail(w, http.StatusNotFound, "File not found")
	default:
		h.logger.Error(r.Context(), "download link failed", "file_id", id, "error", err)
		writeDetail(w, http.StatusInternalServerError, "Failed to create download link")
	}
}
