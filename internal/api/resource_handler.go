package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/service"
)

// CRUD is the service contract behind a ResourceHandler.
type CRUD[T any] interface {
	New() *T
	List(ctx context.Context, q listing.Query) ([]T, int, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, actor service.Actor, v *T) error
	Update(ctx context.Context, actor service.Actor, id int64, partial bool, decode func(dst *T) error) (*T, error)
	Delete(ctx context.Context, actor service.Actor, id int64) error
}

// ResourceHandler serves the list, create, retrieve, update and delete
// endpoints of one model.
type ResourceHandler[T any] struct {
	svc      CRUD[T]
	schema   listing.Schema
	mode     listing.Mode
	pageSize int
	list     http.HandlerFunc
	get      http.HandlerFunc
	logger   *slog.Logger
}

// NewResourceHandler creates a cursor-paginated handler over svc.
func NewResourceHandler[T any](svc CRUD[T], schema listing.Schema, pageSize int, log *slog.Logger) *ResourceHandler[T] {
	if log == nil {
		log = slog.Default()
	}
	h := &ResourceHandler[T]{
		svc:      svc,
		schema:   schema,
		mode:     listing.CursorMode,
		pageSize: pageSize,
		logger:   log,
	}
	h.list = h.List
	h.get = h.Get
	return h
}

// WithMode switches the pagination style.
func (h *ResourceHandler[T]) WithMode(mode listing.Mode) *ResourceHandler[T] {
	h.mode = mode
	return h
}

// Schema returns the listing schema of the resource.
func (h *ResourceHandler[T]) Schema() listing.Schema {
	return h.schema
}

// Routes registers the collection and item routes on r.
func (h *ResourceHandler[T]) Routes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.Create)
	r.Get("/{id}", h.get)
	r.Put("/{id}", h.Put)
	r.Patch("/{id}", h.Patch)
	r.Delete("/{id}", h.Delete)
}

// Query parses the list parameters of r.
func (h *ResourceHandler[T]) Query(r *http.Request) (listing.Query, error) {
	return listing.Parse(r.URL.Query(), h.schema, h.mode, h.pageSize)
}

// List handles GET on the collection.
func (h *ResourceHandler[T]) List(w http.ResponseWriter, r *http.Request) {
	q, err := h.Query(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rows, total, err := h.svc.List(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondPage(w, r, q, rows, total)
}

// respondPage writes rows in the pagination envelope of q.
func respondPage[R any](w http.ResponseWriter, r *http.Request, q listing.Query, rows []R, total int) {
	if err := listing.CheckPage(q, len(rows)); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, listing.NewPage(q, rows, total, selfURL(r)))
}

// Create handles POST on the collection.
func (h *ResourceHandler[T]) Create(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	v := h.svc.New()
	if err := decodeBody(r, v); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if err := h.svc.Create(r.Context(), actor, v); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusCreated, v)
}

// Get handles GET on an item.
func (h *ResourceHandler[T]) Get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	v, err := h.svc.Get(r.Context(), id)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, v)
}

// Put handles full updates: fields missing from the body get their
// defaults.
func (h *ResourceHandler[T]) Put(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, false)
}

// Patch handles partial updates: fields missing from the body keep their
// stored values.
func (h *ResourceHandler[T]) Patch(w http.ResponseWriter, r *http.Request) {
	h.update(w, r, true)
}

func (h *ResourceHandler[T]) update(w http.ResponseWriter, r *http.Request, partial bool) {
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
	v, err := h.svc.Update(r.Context(), actor, id, partial, func(dst *T) error {
		return decodeBody(r, dst)
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, v)
}

// Delete handles DELETE on an item.
func (h *ResourceHandler[T]) Delete(w http.ResponseWriter, r *http.Request) {
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
	if err := h.svc.Delete(r.Context(), actor, id); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
