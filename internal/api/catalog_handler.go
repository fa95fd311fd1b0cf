package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/phrazzld/taskhub/internal/api/shared"
	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
)

// CategoryAPI is the category service as used by CategoryHandler.
type CategoryAPI interface {
	CRUD[domain.Category]
	CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error)
}

// CategoryHandler serves /api/categories.
type CategoryHandler struct {
	*ResourceHandler[domain.Category]
	categories CategoryAPI
}

// NewCategoryHandler creates a CategoryHandler.
func NewCategoryHandler(categories CategoryAPI, schema listing.Schema, pageSize int, log *slog.Logger) *CategoryHandler {
	return &CategoryHandler{
		ResourceHandler: NewResourceHandler[domain.Category](categories, schema, pageSize, log),
		categories:      categories,
	}
}

// Routes registers the category routes on r.
func (h *CategoryHandler) Routes(r chi.Router) {
	r.Get("/count-tasks", h.CountTasks)
	h.ResourceHandler.Routes(r)
}

// CountTasks handles GET /api/categories/count-tasks.
func (h *CategoryHandler) CountTasks(w http.ResponseWriter, r *http.Request) {
	rows, err := h.categories.CountTasks(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if rows == nil {
		rows = []domain.CategoryTaskCount{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rows)
}

// GenreAPI is the genre service as used by GenreHandler.
type GenreAPI interface {
	CRUD[domain.Genre]
	Statistic(ctx context.Context) ([]domain.GenreStat, error)
}

// GenreHandler serves /api/genres.
type GenreHandler struct {
	*ResourceHandler[domain.Genre]
	genres GenreAPI
}

// NewGenreHandler creates a GenreHandler.
func NewGenreHandler(genres GenreAPI, schema listing.Schema, pageSize int, log *slog.Logger) *GenreHandler {
	return &GenreHandler{
		ResourceHandler: NewResourceHandler[domain.Genre](genres, schema, pageSize, log),
		genres:          genres,
	}
}

// Routes registers the genre routes on r.
func (h *GenreHandler) Routes(r chi.Router) {
	r.Get("/statistic", h.Statistic)
	h.ResourceHandler.Routes(r)
}

// Statistic handles GET /api/genres/statistic.
func (h *GenreHandler) Statistic(w http.ResponseWriter, r *http.Request) {
	rows, err := h.genres.Statistic(r.Context())
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	if rows == nil {
		rows = []domain.GenreStat{}
	}
	shared.RespondWithJSON(w, r, http.StatusOK, rows)
}

// BookAPI is the book service as used by BookHandler.
type BookAPI interface {
	CRUD[domain.Book]
	ListItems(ctx context.Context, q listing.Query) ([]domain.BookListItem, int, error)
}

// BookHandler serves /api/books. The list shows related rows as display
// strings while the detail view carries IDs and the rating.
type BookHandler struct {
	*ResourceHandler[domain.Book]
	books BookAPI
}

// NewBookHandler creates a BookHandler.
func NewBookHandler(books BookAPI, schema listing.Schema, pageSize int, log *slog.Logger) *BookHandler {
	h := &BookHandler{
		ResourceHandler: NewResourceHandler[domain.Book](books, schema, pageSize, log),
		books:           books,
	}
	h.list = h.ListItems
	return h
}

// ListItems handles GET /api/books.
func (h *BookHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	q, err := h.Query(r)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	rows, total, err := h.books.ListItems(r.Context(), q)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}
	respondPage(w, r, q, rows, total)
}
