package store

import (
	"context"
	"database/sql"

	"github.com/phrazzld/taskhub/internal/domain"
)

// UserStore defines the interface for user data persistence.
type UserStore interface {
	// Create saves a new user, hashing user.Password.
	// Returns ErrUsernameExists or ErrEmailExists when either is taken.
	Create(ctx context.Context, user *domain.User) error

	// GetByID retrieves a user by ID. Returns ErrUserNotFound if absent.
	GetByID(ctx context.Context, id int64) (*domain.User, error)

	// GetByUsername retrieves a user by username. Returns ErrUserNotFound if absent.
	GetByUsername(ctx context.Context, username string) (*domain.User, error)

	// GetByEmail retrieves a user by email, ignoring case.
	// Returns ErrUserNotFound if absent.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)

	// Update modifies an existing user. A non-empty Password is re-hashed.
	Update(ctx context.Context, user *domain.User) error

	// Delete removes a user. Returns ErrUserNotFound if absent.
	Delete(ctx context.Context, id int64) error

	// WithTx returns a UserStore that uses the provided transaction.
	WithTx(tx *sql.Tx) UserStore
}

// TokenStore persists the API keys of the "Token" authentication scheme.
type TokenStore interface {
	// GetOrCreate returns the user's token, creating one if none exists.
	GetOrCreate(ctx context.Context, userID int64) (*domain.APIToken, error)

	// GetByKey returns the token with the given key.
	// Returns ErrTokenNotFound if absent.
	GetByKey(ctx context.Context, key string) (*domain.APIToken, error)

	// WithTx returns a TokenStore that uses the provided transaction.
	WithTx(tx *sql.Tx) TokenStore
}

// GroupStore persists permission groups and memberships.
type GroupStore interface {
	// Save creates the group if needed and replaces its permissions.
	Save(ctx context.Context, group *domain.Group) error

	// List returns every group with its permissions, ordered by name.
	List(ctx context.Context) ([]domain.Group, error)

	// AddUser adds the user to the named group.
	// Returns ErrGroupNotFound if the group does not exist.
	AddUser(ctx context.Context, userID int64, group string) error

	// UserGroups returns the names of the user's groups.
	UserGroups(ctx context.Context, userID int64) ([]string, error)

	// WithTx returns a GroupStore that uses the provided transaction.
	WithTx(tx *sql.Tx) GroupStore
}
