package service

import (
	"context"
	"log/slog"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/store"
)

// CategoryService implements the category use cases.
type CategoryService struct {
	*Resource[domain.Category, *domain.Category]
	categories store.CategoryStore
}

// NewCategoryService creates a CategoryService.
func NewCategoryService(categories store.CategoryStore, log *slog.Logger) *CategoryService {
	return &CategoryService{
		Resource: NewResource[domain.Category](categories, log,
			UniqueName[domain.Category](categories,
				func(c *domain.Category) string { return c.Name },
				"A category with this name already exists.")),
		categories: categories,
	}
}

// CountTasks returns each live category with its number of live tasks.
func (s *CategoryService) CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error) {
	return s.categories.CountTasks(ctx)
}

// GenreService implements the genre use cases.
type GenreService struct {
	*Resource[domain.Genre, *domain.Genre]
	genres store.GenreStore
}

// NewGenreService creates a GenreService.
func NewGenreService(genres store.GenreStore, log *slog.Logger) *GenreService {
	return &GenreService{
		Resource: NewResource[domain.Genre](genres, log,
			UniqueName[domain.Genre](genres,
				func(g *domain.Genre) string { return g.Name },
				"A genre with this name already exists.")),
		genres: genres,
	}
}

// Statistic returns every genre with its number of books.
func (s *GenreService) Statistic(ctx context.Context) ([]domain.GenreStat, error) {
	return s.genres.Statistic(ctx)
}

// BookService implements the book use cases.
type BookService struct {
	*Resource[domain.Book, *domain.Book]
	books store.BookStore
}

// NewBookService creates a BookService.
func NewBookService(books store.BookStore, log *slog.Logger) *BookService {
	return &BookService{
		Resource: NewResource[domain.Book](books, log),
		books:    books,
	}
}

// ListItems returns the compact book list with display names.
func (s *BookService) ListItems(ctx context.Context, q listing.Query) ([]domain.BookListItem, int, error) {
	return s.books.ListItems(ctx, q)
}
