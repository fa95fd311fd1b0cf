package mocks

import (
	"context"
	"database/sql"
	"slices"
	"sync"
	"time"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/listing"
	"github.com/phrazzld/taskhub/internal/store"
)

// Identified is the pointer constraint of MockRepository.
type Identified[T any] interface {
	*T
	GetID() int64
	SetID(id int64)
}

// MockRepository implements store.Repository over an in-memory map. List
// ignores conditions and ordering: rows come back by ascending ID with the
// pagination window of the query applied.
type MockRepository[T any, PT Identified[T]] struct {
	CreateFn func(ctx context.Context, v *T) error
	ListFn   func(ctx context.Context, q listing.Query) ([]T, int, error)

	// Err, when set, is returned by every method without a Fn override.
	Err error

	entity string
	mu     sync.Mutex
	rows   map[int64]T
	nextID int64
}

// NewMockRepository returns a repository holding rows. Rows without an ID
// are numbered from 1.
func NewMockRepository[T any, PT Identified[T]](entity string, rows ...T) *MockRepository[T, PT] {
	m := &MockRepository[T, PT]{entity: entity, rows: make(map[int64]T)}
	for i := range rows {
		m.put(&rows[i])
	}
	return m
}

func (m *MockRepository[T, PT]) put(v *T) {
	id := PT(v).GetID()
	if id == 0 {
		m.nextID++
		id = m.nextID
		PT(v).SetID(id)
	} else if id > m.nextID {
		m.nextID = id
	}
	m.rows[id] = *v
}

func (m *MockRepository[T, PT]) Create(ctx context.Context, v *T) error {
	if m.CreateFn != nil {
		return m.CreateFn(ctx, v)
	}
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	PT(v).SetID(0)
	m.put(v)
	return nil
}

func (m *MockRepository[T, PT]) Get(_ context.Context, id int64) (*T, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.rows[id]
	if !ok {
		return nil, store.NotFound(m.entity)
	}
	return &v, nil
}

func (m *MockRepository[T, PT]) Update(_ context.Context, v *T) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	id := PT(v).GetID()
	if _, ok := m.rows[id]; !ok {
		return store.NotFound(m.entity)
	}
	m.rows[id] = *v
	return nil
}

func (m *MockRepository[T, PT]) Delete(_ context.Context, id int64) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.rows[id]; !ok {
		return store.NotFound(m.entity)
	}
	delete(m.rows, id)
	return nil
}

func (m *MockRepository[T, PT]) List(ctx context.Context, q listing.Query) ([]T, int, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, q)
	}
	if m.Err != nil {
		return nil, 0, m.Err
	}
	return window(m.All(), q), m.Len(), nil
}

// All returns every row by ascending ID.
func (m *MockRepository[T, PT]) All() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int64, 0, len(m.rows))
	for id := range m.rows {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	out := make([]T, 0, len(ids))
	for _, id := range ids {
		out = append(out, m.rows[id])
	}
	return out
}

// Len returns the number of stored rows.
func (m *MockRepository[T, PT]) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.rows)
}

// window applies the offset and the page size plus one look-ahead row.
func window[T any](rows []T, q listing.Query) []T {
	if q.Mode == listing.Unpaged {
		return rows
	}
	off := min(q.Offset(), len(rows))
	end := min(off+q.PageSize+1, len(rows))
	return rows[off:end]
}

// MockTaskStore implements store.TaskStore on a MockRepository.
type MockTaskStore struct {
	*MockRepository[domain.Task, *domain.Task]
	StatsFn    func(ctx context.Context, now time.Time) (*domain.TaskStats, error)
	SetFieldFn func(ctx context.Context, column string, value any, ids []int64) (int64, error)
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// NewMockTaskStore returns a store holding tasks.
func NewMockTaskStore(tasks ...domain.Task) *MockTaskStore {
	return &MockTaskStore{MockRepository: NewMockRepository[domain.Task]("task", tasks...)}
}

func (m *MockTaskStore) Get(ctx context.Context, id int64) (*domain.Task, error) {
	t, err := m.MockRepository.Get(ctx, id)
	if store.IsNotFoundError(err) {
		return nil, store.ErrTaskNotFound
	}
	return t, err
}

// Stats counts the stored tasks by status when StatsFn is nil.
func (m *MockTaskStore) Stats(ctx context.Context, now time.Time) (*domain.TaskStats, error) {
	if m.StatsFn != nil {
		return m.StatsFn(ctx, now)
	}
	stats := &domain.TaskStats{TasksByStatus: []domain.StatusCount{}}
	counts := map[domain.TaskStatus]int{}
	for _, t := range m.All() {
		stats.TotalTasks++
		counts[t.Status]++
		if t.DueDate != nil && t.DueDate.Before(now) {
			stats.OverdueTasks++
		}
	}
	for _, s := range domain.TaskStatuses {
		if n := counts[s]; n > 0 {
			stats.TasksByStatus = append(stats.TasksByStatus, domain.StatusCount{Status: s, Count: n})
		}
	}
	return stats, nil
}

func (m *MockTaskStore) SetField(ctx context.Context, column string, value any, ids []int64) (int64, error) {
	if m.SetFieldFn != nil {
		return m.SetFieldFn(ctx, column, value, ids)
	}
	return int64(len(ids)), nil
}

func (m *MockTaskStore) WithTx(*sql.Tx) store.TaskStore { return m }

// MockSubTaskStore implements store.SubTaskStore on a MockRepository.
type MockSubTaskStore struct {
	*MockRepository[domain.SubTask, *domain.SubTask]
	ListByDueWeekdayFn func(ctx context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error)
}

var _ store.SubTaskStore = (*MockSubTaskStore)(nil)

// NewMockSubTaskStore returns a store holding subtasks.
func NewMockSubTaskStore(subtasks ...domain.SubTask) *MockSubTaskStore {
	return &MockSubTaskStore{MockRepository: NewMockRepository[domain.SubTask]("subtask", subtasks...)}
}

func (m *MockSubTaskStore) ListByTask(_ context.Context, taskID int64) ([]domain.SubTask, error) {
	out := []domain.SubTask{}
	for _, s := range m.All() {
		if s.TaskID == taskID {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *MockSubTaskStore) ListByDueWeekday(ctx context.Context, day time.Weekday, q listing.Query) ([]domain.SubTask, int, error) {
	if m.ListByDueWeekdayFn != nil {
		return m.ListByDueWeekdayFn(ctx, day, q)
	}
	return m.List(ctx, q)
}

func (m *MockSubTaskStore) SetStatus(_ context.Context, _ domain.TaskStatus, ids []int64) (int64, error) {
	return int64(len(ids)), nil
}

func (m *MockSubTaskStore) WithTx(*sql.Tx) store.SubTaskStore { return m }
