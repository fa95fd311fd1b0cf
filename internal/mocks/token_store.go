package mocks

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/phrazzld/taskhub/internal/domain"
	"github.com/phrazzld/taskhub/internal/store"
)

// MockTokenStore implements store.TokenStore over an in-memory map.
type MockTokenStore struct {
	GetOrCreateFn func(ctx context.Context, userID int64) (*domain.APIToken, error)
	GetByKeyFn    func(ctx context.Context, key string) (*domain.APIToken, error)

	mu     sync.Mutex
	tokens map[int64]*domain.APIToken
}

var _ store.TokenStore = (*MockTokenStore)(nil)

// NewMockTokenStore creates an empty MockTokenStore.
func NewMockTokenStore() *MockTokenStore {
	return &MockTokenStore{tokens: make(map[int64]*domain.APIToken)}
}

// GetOrCreate returns a deterministic 40-hex key per user.
func (m *MockTokenStore) GetOrCreate(ctx context.Context, userID int64) (*domain.APIToken, error) {
	if m.GetOrCreateFn != nil {
		return m.GetOrCreateFn(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if t, ok := m.tokens[userID]; ok {
		return t, nil
	}
	t := &domain.APIToken{Key: fmt.Sprintf("%040x", userID), UserID: userID}
	m.tokens[userID] = t
	return t, nil
}

func (m *MockTokenStore) GetByKey(ctx context.Context, key string) (*domain.APIToken, error) {
	if m.GetByKeyFn != nil {
		return m.GetByKeyFn(ctx, key)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.tokens {
		if t.Key == key {
			return t, nil
		}
	}
	return nil, store.ErrTokenNotFound
}

func (m *MockTokenStore) WithTx(*sql.Tx) store.TokenStore { return m }
