package mocks

import (
	"context"
	"database/sql"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/store"
)

// MockCategoryStore implements store.CategoryStore on a MockRepository.
type MockCategoryStore struct {
	*MockRepository[domain.Category, *domain.Category]
	CountTasksFn func(ctx context.Context) ([]domain.CategoryTaskCount, error)
}

var _ store.CategoryStore = (*MockCategoryStore)(nil)

// NewMockCategoryStore returns a store holding categories.
func NewMockCategoryStore(categories ...domain.Category) *MockCategoryStore {
	return &MockCategoryStore{MockRepository: NewMockRepository[domain.Category]("category", categories...)}
}

func (m *MockCategoryStore) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, c := range m.All() {
		if c.ID != excludeID && strings.EqualFold(c.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

// CountTasks reports zero tasks for every category when CountTasksFn is nil.
func (m *MockCategoryStore) CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error) {
	if m.CountTasksFn != nil {
		return m.CountTasksFn(ctx)
	}
	var out []domain.CategoryTaskCount
	for _, c := range m.All() {
		out = append(out, domain.CategoryTaskCount{ID: c.ID, Name: c.Name})
	}
	return out, nil
}

// MockGenreStore implements store.GenreStore on a MockRepository.
type MockGenreStore struct {
	*MockRepository[domain.Genre, *domain.Genre]
	StatisticFn func(ctx context.Context) ([]domain.GenreStat, error)
}

var _ store.GenreStore = (*MockGenreStore)(nil)

// NewMockGenreStore returns a store holding genres.
func NewMockGenreStore(genres ...domain.Genre) *MockGenreStore {
	return &MockGenreStore{MockRepository: NewMockRepository[domain.Genre]("genre", genres...)}
}

func (m *MockGenreStore) NameTaken(_ context.Context, name string, excludeID int64) (bool, error) {
	for _, g := range m.All() {
		if g.ID != excludeID && strings.EqualFold(g.Name, name) {
			return true, nil
		}
	}
	return false, nil
}

func (m *MockGenreStore) Statistic(ctx context.Context) ([]domain.GenreStat, error) {
	if m.StatisticFn != nil {
		return m.StatisticFn(ctx)
	}
	return nil, m.Err
}

// MockBookStore implements store.BookStore on a MockRepository.
type MockBookStore struct {
	*MockRepository[domain.Book, *domain.Book]
}

var _ store.BookStore = (*MockBookStore)(nil)

// NewMockBookStore returns a store holding books.
func NewMockBookStore(books ...domain.Book) *MockBookStore {
	return &MockBookStore{MockRepository: NewMockRepository[domain.Book]("book", books...)}
}

func (m *MockBookStore) Get(ctx context.Context, id int64) (*domain.Book, error) {
	b, err := m.MockRepository.Get(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, store.ErrBookNotFound
	}
	return b, err
}

// ListItems renders the stored books without related names.
func (m *MockBookStore) ListItems(ctx context.Context, q listing.Query) ([]domain.BookListItem, int, error) {
	rows, total, err := m.List(ctx, q)
	if err != nil {
		return nil, 0, err
	}
	out := make([]domain.BookListItem, len(rows))
	for i, b := range rows {
		out[i] = domain.BookListItem{
			ID:              b.ID,
			Name:            b.Name,
			Price:           b.Price,
			DiscountedPrice: b.DiscountedPrice,
			IsBestseller:    b.IsBestseller,
		}
	}
	return out, total, nil
}

func (m *MockBookStore) WithTx(*sql.Tx) store.BookStore { return m }
