package notifications

import (
	"context"
	"errors"
	"sync"
)

var ErrNotFound = errors.New("inbox not found")

const keyPrefix = "notifications_"

// Key - ключ хранилища для входящих пользователя
func Key(userID string) string {
	return keyPrefix + userID
}

// Store - KV-хранилище сериализованных входящих
type Store interface {
	Get(ctx context.Context, userID string) ([]byte, error)
	Set(ctx context.Context, userID string, value []byte) error
	Clear(ctx context.Context, userID string) error
	Close() error
}

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Get(_ context.Context, userID string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	v, ok := s.data[Key(userID)]
	if !ok {
		return nil, ErrNotFound
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *MemoryStore) Set(_ context.Context, userID string, value []byte) error {
	v := make([]byte, len(value))
	copy(v, value)

	s.mu.Lock()
	s.data[Key(userID)] = v
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Clear(_ context.Context, userID string) error {
	s.mu.Lock()
	delete(s.data, Key(userID))
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Close() error { return nil }
