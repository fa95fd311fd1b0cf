package api

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// maxUploadBytes bounds multipart uploads.
const maxUploadBytes = 32 << 20

// uploadDir is the media sub-directory of project files.
const uploadDir = "projects"

// MediaStore keeps uploaded file contents.
type MediaStore interface {
	Save(dir, filename string, r io.Reader) (string, int64, error)
	Open(rel string) (*os.File, error)
	Remove(rel string) error
}

// FileHandler serves /api/project-files.
type FileHandler struct {
	*ResourceHandler[domain.ProjectFile]
	files  CRUD[domain.ProjectFile]
	media  MediaStore
	logger *slog.Logger
}

// NewFileHandler creates a FileHandler.
func NewFileHandler(files CRUD[domain.ProjectFile], media MediaStore, schema listing.Schema, pageSize int, log *slog.Logger) *FileHandler {
	if log == nil {
		log = slog.Default()
	}
	return &FileHandler{
		ResourceHandler: NewResourceHandler[domain.ProjectFile](files, schema, pageSize, log),
		files:           files,
		media:           media,
		logger:          log.With("component", "file_handler"),
	}
}

// Routes registers the project file routes on r. Files are immutable once
// uploaded, so there is no PUT or PATCH.
func (h *FileHandler) Routes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Upload)
	r.Get("/{id}", h.Get)
	r.Get("/{id}/download", h.Download)
	r.Delete("/{id}", h.Delete)
}

// Upload handles the multipart POST /api/project-files with a "file" part
// and an optional "name" field defaulting to the uploaded file name.
func (h *FileHandler) Upload(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		HandleAPIError(w, r, domain.NewValidationError("file", "The submitted data was not a file.", nil), "")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		HandleAPIError(w, r, domain.NewValidationError("file", "No file was submitted.", nil), "")
		return
	}
	defer file.Close()

	v := h.files.New()
	v.Name = strings.TrimSpace(r.FormValue("name"))
	if v.Name == "" {
		v.Name = header.Filename
	}

	rel, size, err := h.media.Save(uploadDir, header.Filename, file)
	if err != nil {
		HandleAPIError(w, r, err, "Failed to store file")
		return
	}
	v.Path = rel
	v.Size = size

	if err := h.files.Create(r.Context(), actor, v); err != nil {
		if rmErr := h.media.Remove(rel); rmErr != nil {
			logger.FromContextOrDefault(r.Context(), h.logger).
				Warn("failed to remove orphaned upload", "path", rel, "error", rmErr)
		}
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, v)
}

// Download handles GET /api/project-files/{id}/download.
func (h *FileHandler) Download(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	v, err := h.files.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	f, err := h.media.Open(v.Path)
	if errors.Is(err, os.ErrNotExist) {
		HandleAPIError(w, r, store.NotFound("project file"), "File is missing from storage")
		return
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	defer f.Close()

	w.Header().Set("Content-Disposition", `attachment; filename="`+path.Base(v.Path)+`"`)
	http.ServeContent(w, r, path.Base(v.Path), v.CreatedAt, f)
}

// Delete removes the record and then the stored file.
func (h *FileHandler) Delete(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	id, err := pathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	v, err := h.files.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.files.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.media.Remove(v.Path); err != nil {
		logger.FromContextOrDefault(r.Context(), h.logger).
			Warn("failed to remove stored file", "path", v.Path, "error", err)
	}
	w.WriteHeader(http.StatusNoContent)
}
