package store

import (
	"context"

	"github.com/phrazzld/taskhub/internal/listing"
)

// Repository is the CRUD contract shared by every persisted model.
type Repository[T any] interface {
	// Create inserts v and fills in its ID and database defaults.
	// Returns ErrDuplicate when a unique constraint is violated and
	// ErrInvalidEntity when a referenced row does not exist.
	Create(ctx context.Context, v *T) error

	// Get returns the row with the given ID. Soft-deleted rows are not
	// returned. Returns ErrNotFound if there is no such row.
	Get(ctx context.Context, id int64) (*T, error)

	// Update overwrites the writable columns of v.
	// Returns ErrNotFound if the row does not exist.
	Update(ctx context.Context, v *T) error

	// Delete removes the row, or flags it for soft-deletable models.
	// Returns ErrNotFound if the row does not exist.
	Delete(ctx context.Context, id int64) error

	// List returns the rows selected by q. In cursor and page mode up to
	// q.PageSize+1 rows are returned so callers can tell whether a next
	// page exists. The count is only computed in page mode.
	List(ctx context.Context, q listing.Query) ([]T, int, error)
}
