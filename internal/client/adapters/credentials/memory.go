// Package credentials содержит реализации хранилища учетных данных.
package credentials

import (
	"context"
	"sync"

	"revornix/internal/client/domain"
	"revornix/internal/client/ports/credentials"
)

// MemoryStore хранит учетные данные в памяти процесса.
type MemoryStore struct {
	mu    sync.RWMutex
	creds *domain.Credentials
}

var _ credentials.Store = (*MemoryStore)(nil)

// NewMemoryStore создает пустое хранилище.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Get возвращает копию учетных данных.
func (s *MemoryStore) Get(_ context.Context) (*domain.Credentials, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.creds == nil {
		return nil, nil
	}
	c := *s.creds
	return &c, nil
}

// Set заменяет пару целиком.
func (s *MemoryStore) Set(_ context.Context, creds domain.Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = &creds
	return nil
}

// Clear удаляет учетные данные.
func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.creds = nil
	return nil
}
