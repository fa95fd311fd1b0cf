package postgres

import (
	"context"
	"crypto/rand"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"golang.org/x/crypto/bcrypt"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/platform/logger"
	"github.com/phrazzld/taskhub/internal/store"
)

// PostgresUserStore implements the store.UserStore interface
// using a PostgreSQL database as the storage backend.
type PostgresUserStore struct {
	db         store.DBTX
	bcryptCost int
	logger     *slog.Logger
}

// NewPostgresUserStore creates a new PostgreSQL implementation of the UserStore interface.
// It accepts a database connection that should be initialized and managed by the caller.
func NewPostgresUserStore(db store.DBTX, bcryptCost int, logger *slog.Logger) *PostgresUserStore {
	if logger == nil {
		logger = slog.Default()
	}
	if bcryptCost == 0 {
		bcryptCost = bcrypt.DefaultCost
	}
	return &PostgresUserStore{
		db:         db,
		bcryptCost: bcryptCost,
		logger:     logger.With(slog.String("component", "user_store")),
	}
}

// Ensure PostgresUserStore implements store.UserStore interface
var _ store.UserStore = (*PostgresUserStore)(nil)

// WithTx implements store.UserStore.
func (s *PostgresUserStore) WithTx(tx *sql.Tx) store.UserStore {
	return &PostgresUserStore{db: tx, bcryptCost: s.bcryptCost, logger: s.logger}
}

const userColumns = `id, username, email, first_name, last_name, hashed_password,
	is_staff, is_superuser, is_active, date_joined`

func (s *PostgresUserStore) hash(user *domain.User) error {
	if user.Password == "" {
		return nil
	}
	hashed, err := bcrypt.GenerateFromPassword([]byte(user.Password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	user.HashedPassword = string(hashed)
	user.Password = ""
	return nil
}

// mapUserError maps user constraint violations onto the user sentinels
// while keeping the field messages.
func mapUserError(err error) error {
	mapped := MapError(err)
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return mapped
	}
	if pgErr.ConstraintName == "users_email_lower_key" {
		return fmt.Errorf("%w: %w", store.ErrEmailExists, mapped)
	}
	return fmt.Errorf("%w: %w", store.ErrUsernameExists, mapped)
}

// Create implements store.UserStore.Create
func (s *PostgresUserStore) Create(ctx context.Context, user *domain.User) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := user.Validate(); err != nil {
		return err
	}
	if err := s.hash(user); err != nil {
		return err
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO users (username, email, first_name, last_name, hashed_password,
		                   is_staff, is_superuser, is_active)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, date_joined`,
		user.Username, user.Email, user.FirstName, user.LastName, user.HashedPassword,
		user.IsStaff, user.IsSuperuser, user.IsActive,
	).Scan(&user.ID, &user.DateJoined)
	if err != nil {
		log.Warn("failed to create user",
			slog.String("username", user.Username),
			slog.String("error", err.Error()))
		return mapUserError(err)
	}

	log.Info("user created", slog.Int64("user_id", user.ID))
	return nil
}

func (s *PostgresUserStore) getBy(ctx context.Context, cond string, arg any) (*domain.User, error) {
	var u domain.User
	err := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE "+cond, arg).Scan(
		&u.ID, &u.Username, &u.Email, &u.FirstName, &u.LastName, &u.HashedPassword,
		&u.IsStaff, &u.IsSuperuser, &u.IsActive, &u.DateJoined)
	if err != nil {
		return nil, notFound(err, store.ErrUserNotFound)
	}
	return &u, nil
}

// GetByID implements store.UserStore.GetByID
func (s *PostgresUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	return s.getBy(ctx, "id = $1", id)
}

// GetByUsername implements store.UserStore.GetByUsername
func (s *PostgresUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.getBy(ctx, "username = $1", username)
}

// GetByEmail implements store.UserStore.GetByEmail
func (s *PostgresUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if strings.TrimSpace(email) == "" {
		return nil, store.ErrUserNotFound
	}
	return s.getBy(ctx, "LOWER(email) = LOWER($1)", strings.TrimSpace(email))
}

// Update implements store.UserStore.Update
func (s *PostgresUserStore) Update(ctx context.Context, user *domain.User) error {
	if err := user.Validate(); err != nil {
		return err
	}
	if err := s.hash(user); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE users
		SET username = $1, email = $2, first_name = $3, last_name = $4, hashed_password = $5,
		    is_staff = $6, is_superuser = $7, is_active = $8
		WHERE id = $9`,
		user.Username, user.Email, user.FirstName, user.LastName, user.HashedPassword,
		user.IsStaff, user.IsSuperuser, user.IsActive, user.ID)
	if err != nil {
		return mapUserError(err)
	}
	if err := CheckRowsAffected(result, "user"); err != nil {
		return store.ErrUserNotFound
	}
	return nil
}

// Delete implements store.UserStore.Delete
func (s *PostgresUserStore) Delete(ctx context.Context, id int64) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return MapError(err)
	}
	if err := CheckRowsAffected(result, "user"); err != nil {
		return store.ErrUserNotFound
	}
	return nil
}

// PostgresTokenStore implements store.TokenStore.
type PostgresTokenStore struct {
	db store.DBTX
}

var _ store.TokenStore = (*PostgresTokenStore)(nil)

// NewPostgresTokenStore creates a token store bound to db.
func NewPostgresTokenStore(db store.DBTX) *PostgresTokenStore {
	return &PostgresTokenStore{db: db}
}

// WithTx implements store.TokenStore.
func (s *PostgresTokenStore) WithTx(tx *sql.Tx) store.TokenStore {
	return &PostgresTokenStore{db: tx}
}

// GenerateTokenKey returns a random 40 character hex key.
func GenerateTokenKey() (string, error) {
	b := make([]byte, 20)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate token key: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// GetOrCreate implements store.TokenStore. Concurrent callers for the same
// user receive the same token.
func (s *PostgresTokenStore) GetOrCreate(ctx context.Context, userID int64) (*domain.APIToken, error) {
	key, err := GenerateTokenKey()
	if err != nil {
		return nil, err
	}

	t := domain.APIToken{UserID: userID}
	err = s.db.QueryRowContext(ctx, `
		WITH inserted AS (
			INSERT INTO auth_tokens (key, user_id) VALUES ($1, $2)
			ON CONFLICT (user_id) DO NOTHING
			RETURNING key, created_at
		)
		SELECT key, created_at FROM inserted
		UNION ALL
		SELECT key, created_at FROM auth_tokens WHERE user_id = $2
		LIMIT 1`, key, userID).Scan(&t.Key, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, store.ErrUserNotFound)
	}
	return &t, nil
}

// GetByKey implements store.TokenStore.
func (s *PostgresTokenStore) GetByKey(ctx context.Context, key string) (*domain.APIToken, error) {
	var t domain.APIToken
	err := s.db.QueryRowContext(ctx,
		"SELECT key, user_id, created_at FROM auth_tokens WHERE key = $1", key,
	).Scan(&t.Key, &t.UserID, &t.CreatedAt)
	if err != nil {
		return nil, notFound(err, store.ErrTokenNotFound)
	}
	return &t, nil
}

// PostgresGroupStore implements store.GroupStore.
type PostgresGroupStore struct {
	db store.DBTX
}

var _ store.GroupStore = (*PostgresGroupStore)(nil)

// NewPostgresGroupStore creates a group store bound to db.
func NewPostgresGroupStore(db store.DBTX) *PostgresGroupStore {
	return &PostgresGroupStore{db: db}
}

// WithTx implements store.GroupStore.
func (s *PostgresGroupStore) WithTx(tx *sql.Tx) store.GroupStore {
	return &PostgresGroupStore{db: tx}
}

// Save implements store.GroupStore. Run it inside a transaction so the
// permission set is replaced atomically.
func (s *PostgresGroupStore) Save(ctx context.Context, group *domain.Group) error {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO auth_groups (name) VALUES ($1)
		ON CONFLICT (name) DO UPDATE SET name = EXCLUDED.name
		RETURNING id`, group.Name).Scan(&group.ID)
	if err != nil {
		return MapError(err)
	}

	if _, err := s.db.ExecContext(ctx, "DELETE FROM auth_group_permissions WHERE group_id = $1", group.ID); err != nil {
		return MapError(err)
	}
	for _, p := range group.Permissions {
		if _, err := s.db.ExecContext(ctx,
			"INSERT INTO auth_group_permissions (group_id, object, action) VALUES ($1, $2, $3) ON CONFLICT DO NOTHING",
			group.ID, p.Object, p.Action); err != nil {
			return MapError(err)
		}
	}
	return nil
}

// List implements store.GroupStore.
func (s *PostgresGroupStore) List(ctx context.Context) ([]domain.Group, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.id, g.name, p.object, p.action
		FROM auth_groups g
		LEFT JOIN auth_group_permissions p ON p.group_id = g.id
		ORDER BY g.name, p.object, p.action`)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	groups := []domain.Group{}
	for rows.Next() {
		var (
			id             int64
			name           string
			object, action sql.NullString
		)
		if err := rows.Scan(&id, &name, &object, &action); err != nil {
			return nil, fmt.Errorf("failed to scan group row: %w", err)
		}
		if n := len(groups); n == 0 || groups[n-1].ID != id {
			groups = append(groups, domain.Group{ID: id, Name: name, Permissions: []domain.Permission{}})
		}
		if object.Valid {
			g := &groups[len(groups)-1]
			g.Permissions = append(g.Permissions, domain.Permission{Object: object.String, Action: action.String})
		}
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return groups, nil
}

// AddUser implements store.GroupStore.
func (s *PostgresGroupStore) AddUser(ctx context.Context, userID int64, group string) error {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_user_groups (user_id, group_id)
		SELECT $1, id FROM auth_groups WHERE name = $2
		ON CONFLICT DO NOTHING`, userID, group)
	if err != nil {
		return MapError(err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		// Either the group is missing or the membership already exists.
		var exists bool
		if err := s.db.QueryRowContext(ctx,
			"SELECT EXISTS (SELECT 1 FROM auth_groups WHERE name = $1)", group).Scan(&exists); err != nil {
			return MapError(err)
		}
		if !exists {
			return store.ErrGroupNotFound
		}
	}
	return nil
}

// UserGroups implements store.GroupStore.
func (s *PostgresGroupStore) UserGroups(ctx context.Context, userID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT g.name
		FROM auth_user_groups ug
		JOIN auth_groups g ON g.id = ug.group_id
		WHERE ug.user_id = $1
		ORDER BY g.name`, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan group name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}
