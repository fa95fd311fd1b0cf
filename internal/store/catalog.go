package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
)

// NameChecker reports whether a name is already used, compared
// case-insensitively. excludeID skips the row being updated.
type NameChecker interface {
	NameTaken(ctx context.Context, name string, excludeID int64) (bool, error)
}

// CategoryStore persists categories.
type CategoryStore interface {
	Repository[domain.Category]
	NameChecker

	// CountTasks returns every live category with its number of live tasks.
	CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error)
}

// GenreStore persists genres.
type GenreStore interface {
	Repository[domain.Genre]
	NameChecker

	// Statistic returns every genre with its number of books, ordered by name.
	Statistic(ctx context.Context) ([]domain.GenreStat, error)
}

// BookStore persists books. Get fills in the mean review rating.
type BookStore interface {
	Repository[domain.Book]

	// ListItems returns the compact list representation.
	ListItems(ctx context.Context, q listing.Query) ([]domain.BookListItem, int, error)

	// WithTx returns a BookStore that uses the provided transaction.
	WithTx(tx *sql.Tx) BookStore
}

// BulkStore applies admin bulk updates to rows of a registered model.
type BulkStore interface {
	// SetColumn sets column to value on the rows with the given IDs of
	// model and returns the number of updated rows.
	SetColumn(ctx context.Context, model domain.ModelInfo, column string, value any, ids []int64) (int64, error)
}
