package service_test

import (
	"context"
	"database/sql"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/events"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/store"
)

// MockRepository mocks store.Repository for any model.
type MockRepository[T any] struct {
	mock.Mock
}

func (m *MockRepository[T]) Create(ctx context.Context, v *T) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockRepository[T]) Get(ctx context.Context, id int64) (*T, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*T), args.Error(1)
}

func (m *MockRepository[T]) Update(ctx context.Context, v *T) error {
	args := m.Called(ctx, v)
	return args.Error(0)
}

func (m *MockRepository[T]) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockRepository[T]) List(ctx context.Context, q listing.Query) ([]T, int, error) {
	args := m.Called(ctx, q)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]T), args.Int(1), args.Error(2)
}

// MockTaskStore mocks store.TaskStore.
type MockTaskStore struct {
	MockRepository[domain.Task]
}

func (m *MockTaskStore) Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error) {
	args := m.Called(ctx, now)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.TaskStats), args.Error(1)
}

func (m *MockTaskStore) SetField(ctx context.Context, column string, value any, ids []int64) (int64, error) {
	args := m.Called(ctx, column, value, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore { return m }

// MockSubTaskStore mocks store.SubTaskStore.
type MockSubTaskStore struct {
	MockRepository[domain.SubTask]
}

func (m *MockSubTaskStore) ListByTask(ctx context.Context, taskID int64) ([]domain.SubTask, error) {
	args := m.Called(ctx, taskID)
	return args.Get(0).([]domain.SubTask), args.Error(1)
}

func (m *MockSubTaskStore) ListByDueWeekday(ctx context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error) {
	args := m.Called(ctx, day, q)
	return args.Get(0).([]domain.SubTask), args.Int(1), args.Error(2)
}

func (m *MockSubTaskStore) SetStatus(ctx context.Context, status domain.TaskStatus, ids []int64) (int64, error) {
	args := m.Called(ctx, status, ids)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockSubTaskStore) WithTx(*sql.Tx) store.SubTaskStore { return m }

// MockCategoryStore mocks store.CategoryStore.
type MockCategoryStore struct {
	MockRepository[domain.Category]
}

func (m *MockCategoryStore) NameTaken(ctx context.Context, name string, excludeID int64) (bool, error) {
	args := m.Called(ctx, name, excludeID)
	return args.Bool(0), args.Error(1)
}

func (m *MockCategoryStore) CountTasks(ctx context.Context) ([]domain.CategoryTaskCount, error) {
	args := m.Called(ctx)
	return args.Get(0).([]domain.CategoryTaskCount), args.Error(1)
}

// MockBulkStore mocks store.BulkStore.
type MockBulkStore struct {
	mock.Mock
}

func (m *MockBulkStore) SetColumn(ctx context.Context, model domain.ModelInfo, column string, value any, ids []int64) (int64, error) {
	args := m.Called(ctx, model.Plural, column, value, ids)
	return args.Get(0).(int64), args.Error(1)
}

// MockUserStore mocks store.UserStore.
type MockUserStore struct {
	mock.Mock
}

func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	args := m.Called(ctx, username)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserStore) Update(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserStore) Delete(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockUserStore) WithTx(*sql.Tx) store.UserStore { return m }

// MockTokenStore mocks store.TokenStore.
type MockTokenStore struct {
	mock.Mock
}

func (m *MockTokenStore) GetOrCreate(ctx context.Context, userID int64) (*domain.APIToken, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIToken), args.Error(1)
}

func (m *MockTokenStore) GetByKey(ctx context.Context, key string) (*domain.APIToken, error) {
	args := m.Called(ctx, key)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.APIToken), args.Error(1)
}

func (m *MockTokenStore) WithTx(*sql.Tx) store.TokenStore { return m }

// MockEmitter mocks events.Emitter.
type MockEmitter struct {
	mock.Mock
}

func (m *MockEmitter) EmitEvent(ctx context.Context, event *events.Event) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}
