package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/klaudly/klaudly/internal/ctxkeys"
	"github.com/klaudly/klaudly/internal/model"
	"github.com/klaudly/klaudly/internal/service"
)

// multipart bodies carry the form fields next to the file
const multipartOverhead = 1 << 20

type EntryHandler struct {
	entryService  *service.EntryService
	maxUploadSize int64
}

func NewEntryHandler(entryService *service.EntryService, maxUploadSize int64) *EntryHandler {
	return &EntryHandler{
		entryService:  entryService,
		maxUploadSize: maxUploadSize,
	}
}

type createFolderRequest struct {
	Name     string  `json:"name"`
	UserID   string  `json:"userId"`
	ParentID *string `json:"parentId"`
}

type createFolderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Folder  *model.Entry `json:"folder"`
}

type uploadAuthResponse struct {
	URL     string `json:"url"`
	Method  string `json:"method"`
	Key     string `json:"key"`
	FileURL string `json:"fileUrl"`
	Expire  int64  `json:"expire"` // Unix seconds
}

type deleteResponse struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	DeletedFile *model.Entry `json:"deletedFile"`
}

func (h *EntryHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())
	query := r.URL.Query()

	entries, err := h.entryService.List(r.Context(), principal, query.Get("userId"), optionalID(query.Get("parentId")))
	if err != nil {
		writeError(w, r, err, "Error fetching files")
		return
	}

	writeJSON(w, http.StatusOK, entries)
}

func (h *EntryHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	var req createFolderRequest
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 64<<10)).Decode(&req)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid request body"})
		return
	}

	var parentID *string
	if req.ParentID != nil {
		parentID = optionalID(*req.ParentID)
	}

	folder, err := h.entryService.CreateFolder(r.Context(), principal, service.CreateFolderInput{
		OwnerID:  req.UserID,
		Name:     req.Name,
		ParentID: parentID,
	})
	if err != nil {
		writeError(w, r, err, "Failed to create folder")
		return
	}

	writeJSON(w, http.StatusOK, createFolderResponse{
		Success: true,
		Message: "Folder Created Successfully!",
		Folder:  folder,
	})
}

func (h *EntryHandler) Upload(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadSize+multipartOverhead)
	err := r.ParseMultipartForm(32 << 20)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: "File too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid upload"})
		return
	}
	defer func() { _ = r.MultipartForm.RemoveAll() }()

	input := service.UploadInput{
		OwnerID:  r.FormValue("userId"),
		ParentID: optionalID(r.FormValue("parentId")),
	}

	file, header, err := r.FormFile("file")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		// Left to the service: an upload without a body is rejected there
		// after the ownership check.
	case err != nil:
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "Invalid upload"})
		return
	default:
		defer func() { _ = file.Close() }()
		input.Body = file
		input.Filename = header.Filename
		input.ContentType = header.Header.Get("Content-Type")
		input.Size = header.Size
	}

	entry, err := h.entryService.Upload(r.Context(), principal, input)
	if err != nil {
		writeError(w, r, err, "Failed to upload file")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) UploadAuth(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())
	query := r.URL.Query()

	auth, err := h.entryService.AuthorizeUpload(r.Context(), principal, service.UploadAuthInput{
		OwnerID:     query.Get("userId"),
		ParentID:    optionalID(query.Get("parentId")),
		Filename:    query.Get("filename"),
		ContentType: query.Get("contentType"),
	})
	if err != nil {
		writeError(w, r, err, "Failed to generate upload credentials")
		return
	}

	writeJSON(w, http.StatusOK, uploadAuthResponse{
		URL:     auth.URL,
		Method:  auth.Method,
		Key:     auth.Key,
		FileURL: auth.FileURL,
		Expire:  auth.ExpiresAt.Unix(),
	})
}

func (h *EntryHandler) ToggleStar(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	entry, err := h.entryService.ToggleStar(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to update the file")
		return
	}

	writeJSON(w, http.StatusOK, entry)
}

func (h *EntryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	principal := ctxkeys.Principal(r.Context())

	deleted, err := h.entryService.Delete(r.Context(), principal, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err, "Failed to delete file")
		return
	}

	writeJSON(w, http.StatusOK, deleteResponse{
		Success:     true,
		Message:     "File deleted successfully",
		DeletedFile: deleted,
	})
}

// optionalID maps an absent or blank id to nil.
func optionalID(id string) *string {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil
	}
	return &id
}
