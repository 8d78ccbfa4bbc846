package notifications

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
)

type PebbleStore struct {
	db *pebble.DB
}

// OpenPebbleStore открывает встроенное хранилище; opts может быть nil
func OpenPebbleStore(path string, opts *pebble.Options) (*PebbleStore, error) {
	if opts == nil {
		opts = &pebble.Options{}
	}
	db, err := pebble.Open(path, opts)
	if err != nil {
		return nil, fmt.Errorf("pebble open %s: %w", path, err)
	}
	return &PebbleStore{db: db}, nil
}

func (s *PebbleStore) Get(_ context.Context, userID string) ([]byte, error) {
	v, closer, err := s.db.Get([]byte(Key(userID)))
	if errors.Is(err, pebble.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	defer closer.Close()

	// буфер pebble валиден только до closer.Close
	out := make([]byte, len(v))
	copy(out, v)
	return out, nil
}

func (s *PebbleStore) Set(_ context.Context, userID string, value []byte) error {
	return s.db.Set([]byte(Key(userID)), value, pebble.Sync)
}

func (s *PebbleStore) Clear(_ context.Context, userID string) error {
	return s.db.Delete([]byte(Key(userID)), pebble.Sync)
}

func (s *PebbleStore) Close() error {
	return s.db.Close()
}
