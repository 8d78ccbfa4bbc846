package notifications

import (
	"context"
	"fmt"

	"workforce_backend/internal/config"
)

// NewStore выбирает реализацию по notifications.store
func NewStore(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Notifications.Store {
	case "memory", "":
		return NewMemoryStore(), nil
	case "redis":
		return OpenRedisStore(ctx, cfg.Notifications.RedisAddr, cfg.Notifications.RedisDB)
	case "pebble":
		return OpenPebbleStore(cfg.Notifications.PebblePath, nil)
	default:
		return nil, fmt.Errorf("unsupported notifications store: %s", cfg.Notifications.Store)
	}
}
