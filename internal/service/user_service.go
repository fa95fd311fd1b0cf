package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// RegisterRequest is the sign-up form.
type RegisterRequest struct {
	Username  string `json:"username"`
	Email     string `json:"email"`
	Password  string `json:"password"`
	Password2 string `json:"password2"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
}

// Registration is a newly created account with its API token.
type Registration struct {
	User  *domain.User
	Token *domain.APIToken
}

// UserService implements account use cases.
type UserService struct {
	users  store.UserStore
	tokens store.TokenStore
	db     *sql.DB
	logger *slog.Logger
}

// NewUserService creates a UserService. db runs the registration transaction.
func NewUserService(users store.UserStore, tokens store.TokenStore, db *sql.DB, log *slog.Logger) *UserService {
	if log == nil {
		log = slog.Default()
	}
	return &UserService{
		users:  users,
		tokens: tokens,
		db:     db,
		logger: log.With("component", "user_service"),
	}
}

// Register validates req and creates the user together with its API token
// in one transaction.
func (s *UserService) Register(ctx context.Context, req RegisterRequest) (*Registration, error) {
	fe := domain.FieldErrors{}
	username := strings.TrimSpace(req.Username)
	email := strings.TrimSpace(req.Email)

	if username == "" {
		fe.Add("username", "This field is required.")
	}
	if email == "" {
		fe.Add("email", "This field is required.")
	} else {
		_, err := s.users.GetByEmail(ctx, email)
		switch {
		case err == nil:
			fe.Add("email", "A user with that email already exists.")
		case !errors.Is(err, store.ErrUserNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}
	if req.Password != req.Password2 {
		fe.Add("password", "Passwords must match.")
	}
	if len(fe) > 0 {
		return nil, fe
	}

	user, err := domain.NewUser(username, email, req.Password)
	if err != nil {
		return nil, err
	}
	user.FirstName = req.FirstName
	user.LastName = req.LastName

	var token *domain.APIToken
	err = store.RunInTransaction(ctx, s.db, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.users.WithTx(tx).Create(ctx, user); err != nil {
			return err
		}
		token, err = s.tokens.WithTx(tx).GetOrCreate(ctx, user.ID)
		return err
	})
	if err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			s.logger.Debug("registration rejected", "username", username, "error", err)
		} else {
			s.logger.Error("failed to register user", "username", username, "error", err)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.logger.Info("user registered", "user_id", user.ID, "username", user.Username)
	return &Registration{User: user, Token: token}, nil
}

// GetUser returns the user with the given ID.
func (s *UserService) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// APIToken returns the user's API token, creating it on first use.
func (s *UserService) APIToken(ctx context.Context, userID int64) (*domain.APIToken, error) {
	return s.tokens.GetOrCreate(ctx, userID)
}

// UserForToken resolves an API token to its user.
func (s *UserService) UserForToken(ctx context.Context, key string) (*domain.User, error) {
	token, err := s.tokens.GetByKey(ctx, key)
	if err != nil {
		return nil, err
	}
	return s.users.GetByID(ctx, token.UserID)
}
