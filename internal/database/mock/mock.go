// Package mock provides mock implementations of database interfaces for testing.
package mock

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/kozaktomas/sign-vision/internal/database"
)

// MockSignStore is an in-memory implementation of database.SignWriter
type MockSignStore struct {
	mu     sync.RWMutex
	signs  map[int64]*database.StoredSign
	nextID int64
	clock  time.Time

	// Error injection
	GetError    error
	ListError   error
	CreateError error
	UpdateError error
	DeleteError error
}

// NewMockSignStore creates a new mock sign store
func NewMockSignStore() *MockSignStore {
	return &MockSignStore{
		signs: make(map[int64]*database.StoredSign),
		clock: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

// AddSign stores a sign directly, bypassing Create checks. Every added sign
// is newer than the previous one.
func (m *MockSignStore) AddSign(sign database.StoredSign) database.StoredSign {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.insertLocked(&sign)
	return sign
}

func (m *MockSignStore) insertLocked(sign *database.StoredSign) {
	m.nextID++
	m.clock = m.clock.Add(time.Second)
	sign.ID = m.nextID
	sign.CreatedAt = m.clock
	stored := *sign
	m.signs[sign.ID] = &stored
}

// GetByName retrieves a sign by name
func (m *MockSignStore) GetByName(ctx context.Context, name string) (*database.StoredSign, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, s := range m.signs {
		if s.Name == name {
			found := *s
			return &found, nil
		}
	}
	return nil, nil
}

// GetByID retrieves a sign by ID
func (m *MockSignStore) GetByID(ctx context.Context, id int64) (*database.StoredSign, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.signs[id]
	if !ok {
		return nil, nil
	}
	found := *s
	return &found, nil
}

// List returns every sign, newest first
func (m *MockSignStore) List(ctx context.Context) ([]database.StoredSign, error) {
	if m.ListError != nil {
		return nil, m.ListError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.StoredSign, 0, len(m.signs))
	for _, s := range m.signs {
		result = append(result, *s)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].ID > result[j].ID
	})
	return result, nil
}

// Count returns the number of stored signs
func (m *MockSignStore) Count(ctx context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.signs), nil
}

// Create inserts a sign, rejecting duplicate names
func (m *MockSignStore) Create(ctx context.Context, sign *database.StoredSign) error {
	if m.CreateError != nil {
		return m.CreateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, s := range m.signs {
		if s.Name == sign.Name {
			return database.ErrSignExists
		}
	}
	m.insertLocked(sign)
	return nil
}

// Update replaces description and video of an existing sign
func (m *MockSignStore) Update(ctx context.Context, sign *database.StoredSign) error {
	if m.UpdateError != nil {
		return m.UpdateError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.signs[sign.ID]
	if !ok {
		return database.ErrNotFound
	}
	s.Description = sign.Description
	s.VideoPath = sign.VideoPath
	return nil
}

// Delete removes a sign by ID
func (m *MockSignStore) Delete(ctx context.Context, id int64) error {
	if m.DeleteError != nil {
		return m.DeleteError
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.signs[id]; !ok {
		return database.ErrNotFound
	}
	delete(m.signs, id)
	return nil
}

// MockUserStore is an in-memory implementation of database.UserWriter
type MockUserStore struct {
	mu     sync.RWMutex
	users  map[int64]*database.User
	nextID int64

	// Error injection
	GetError error
}

// NewMockUserStore creates a new mock user store
func NewMockUserStore() *MockUserStore {
	return &MockUserStore{users: make(map[int64]*database.User)}
}

// GetByUsername retrieves a user by username
func (m *MockUserStore) GetByUsername(ctx context.Context, username string) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.Username == username {
			found := *u
			return &found, nil
		}
	}
	return nil, nil
}

// GetUserByID retrieves a user by ID
func (m *MockUserStore) GetUserByID(ctx context.Context, id int64) (*database.User, error) {
	if m.GetError != nil {
		return nil, m.GetError
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, nil
	}
	found := *u
	return &found, nil
}

// ListUsers returns every user ordered by username
func (m *MockUserStore) ListUsers(ctx context.Context) ([]database.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]database.User, 0, len(m.users))
	for _, u := range m.users {
		result = append(result, *u)
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].Username < result[j].Username
	})
	return result, nil
}

// CreateUser inserts a user, rejecting duplicate usernames
func (m *MockUserStore) CreateUser(ctx context.Context, user *database.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Username == user.Username {
			return database.ErrUserExists
		}
	}
	m.nextID++
	user.ID = m.nextID
	user.CreatedAt = time.Now()
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

// SetActive enables or disables a user
func (m *MockUserStore) SetActive(ctx context.Context, id int64, active bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return database.ErrNotFound
	}
	u.IsActive = active
	return nil
}
