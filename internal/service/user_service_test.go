package service_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/service"
	"github.com/phrazzld/taskhub/internal/store"
)

func newTxDB(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, m, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, m.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, m
}

func validRegistration() service.RegisterRequest {
	return service.RegisterRequest{
		Username:  "alice",
		Email:     "alice@example.com",
		Password:  "correct-horse",
		Password2: "correct-horse",
		FirstName: "Alice",
	}
}

func TestUserService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates user and token in one transaction", func(t *testing.T) {
		db, dbMock := newTxDB(t)
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		svc := service.NewUserService(users, tokens, db, nil)

		users.On("GetByEmail", ctx, "alice@example.com").Return(nil, store.ErrUserNotFound)
		users.On("Create", ctx, mock.MatchedBy(func(u *domain.User) bool {
			return u.Username == "alice" && u.Password == "correct-horse" && u.FirstName == "Alice" && u.IsActive
		})).Run(func(args mock.Arguments) {
			args.Get(1).(*domain.User).ID = 42
		}).Return(nil)
		tokens.On("GetOrCreate", ctx, int64(42)).Return(&domain.APIToken{Key: "abc", UserID: 42}, nil)

		dbMock.ExpectBegin()
		dbMock.ExpectCommit()

		reg, err := svc.Register(ctx, validRegistration())
		require.NoError(t, err)
		assert.Equal(t, int64(42), reg.User.ID)
		assert.Equal(t, "abc", reg.Token.Key)
	})

	t.Run("token failure rolls back", func(t *testing.T) {
		db, dbMock := newTxDB(t)
		users := new(MockUserStore)
		tokens := new(MockTokenStore)
		svc := service.NewUserService(users, tokens, db, nil)

		users.On("GetByEmail", ctx, mock.Anything).Return(nil, store.ErrUserNotFound)
		users.On("Create", ctx, mock.Anything).Return(nil)
		tokens.On("GetOrCreate", ctx, mock.Anything).Return(nil, errors.New("disk full"))

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		_, err := svc.Register(ctx, validRegistration())
		assert.Error(t, err)
	})

	t.Run("duplicate username surfaces store error", func(t *testing.T) {
		db, dbMock := newTxDB(t)
		users := new(MockUserStore)
		svc := service.NewUserService(users, new(MockTokenStore), db, nil)

		users.On("GetByEmail", ctx, mock.Anything).Return(nil, store.ErrUserNotFound)
		users.On("Create", ctx, mock.Anything).Return(store.ErrUsernameExists)

		dbMock.ExpectBegin()
		dbMock.ExpectRollback()

		_, err := svc.Register(ctx, validRegistration())
		assert.ErrorIs(t, err, store.ErrUsernameExists)
	})

	tests := []struct {
		name   string
		mutate func(r *service.RegisterRequest)
		exists bool
		field  string
		msg    string
	}{
		{
			name:   "email taken",
			mutate: func(r *service.RegisterRequest) {},
			exists: true,
			field:  "email",
			msg:    "A user with that email already exists.",
		},
		{
			name:   "passwords differ",
			mutate: func(r *service.RegisterRequest) { r.Password2 = "something-else" },
			field:  "password",
			msg:    "Passwords must match.",
		},
		{
			name:   "missing username",
			mutate: func(r *service.RegisterRequest) { r.Username = "  " },
			field:  "username",
			msg:    "This field is required.",
		},
		{
			name: "weak password",
			mutate: func(r *service.RegisterRequest) {
				r.Password, r.Password2 = "123", "123"
			},
			field: "password",
			msg:   "This password is too short. It must contain at least 8 characters.",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			users := new(MockUserStore)
			svc := service.NewUserService(users, new(MockTokenStore), nil, nil)
			if tt.exists {
				users.On("GetByEmail", ctx, mock.Anything).Return(&domain.User{ID: 1}, nil)
			} else {
				users.On("GetByEmail", ctx, mock.Anything).Return(nil, store.ErrUserNotFound)
			}

			req := validRegistration()
			tt.mutate(&req)
			_, err := svc.Register(ctx, req)
			require.ErrorIs(t, err, domain.ErrValidation)

			fe, ok := domain.AsFieldErrors(err)
			require.True(t, ok)
			assert.Contains(t, fe[tt.field], tt.msg)
			users.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
		})
	}
}

func TestUserService_UserForToken(t *testing.T) {
	ctx := context.Background()
	users := new(MockUserStore)
	tokens := new(MockTokenStore)
	svc := service.NewUserService(users, tokens, nil, nil)

	tokens.On("GetByKey", ctx, "good").Return(&domain.APIToken{Key: "good", UserID: 3}, nil)
	tokens.On("GetByKey", ctx, "bad").Return(nil, store.ErrTokenNotFound)
	users.On("GetByID", ctx, int64(3)).Return(&domain.User{ID: 3, Username: "bob"}, nil)

	u, err := svc.UserForToken(ctx, "good")
	require.NoError(t, err)
	assert.Equal(t, "bob", u.Username)

	_, err = svc.UserForToken(ctx, "bad")
	assert.ErrorIs(t, err, store.ErrNotFound)
}
