package mocks

import (
	"context"
	"sync"

	"github.com/ruralshare/authflow/domain"
)

// MockSessionStore implements domain.SessionStore for testing
type MockSessionStore struct {
	SaveFunc  func(ctx context.Context, s *domain.Session) error
	LoadFunc  func(ctx context.Context) (*domain.Session, error)
	ClearFunc func(ctx context.Context) error

	mu      sync.Mutex
	current *domain.Session
}

// NewMockSessionStore creates a new MockSessionStore
func NewMockSessionStore() *MockSessionStore {
	return &MockSessionStore{}
}

func (m *MockSessionStore) Save(ctx context.Context, s *domain.Session) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, s)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := *s
	m.current = &cp
	return nil
}

func (m *MockSessionStore) Load(ctx context.Context) (*domain.Session, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.current == nil {
		return nil, domain.ErrSessionNotFound
	}
	cp := *m.current
	return &cp, nil
}

func (m *MockSessionStore) Clear(ctx context.Context) error {
	if m.ClearFunc != nil {
		return m.ClearFunc(ctx)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = nil
	return nil
}

// Stored returns the session currently held by the default behavior.
func (m *MockSessionStore) Stored() *domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.current
}

// Compile-time interface compliance verification
var _ domain.SessionStore = (*MockSessionStore)(nil)
