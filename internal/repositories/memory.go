package repositories

import (
	"context"
	"sync"
)

// MemoryCredentialStore holds the slot in memory. The zero value is ready to use.
type MemoryCredentialStore struct {
	mu    sync.Mutex
	value string

	// Err, when set, is returned by every operation.
	Err error
}

// NewMemoryCredentialStore returns a store pre-populated with value.
func NewMemoryCredentialStore(value string) *MemoryCredentialStore {
	return &MemoryCredentialStore{value: value}
}

func (s *MemoryCredentialStore) Load(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return "", s.Err
	}
	return s.value, nil
}

func (s *MemoryCredentialStore) Save(ctx context.Context, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.value = value
	return nil
}

func (s *MemoryCredentialStore) Delete(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.value = ""
	return nil
}

// Value returns the stored value without the error hook.
func (s *MemoryCredentialStore) Value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value
}
