package app

import (
	"context"
	"fmt"

	"workforce_backend/internal/config"
	"workforce_backend/internal/database"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/services"
	"workforce_backend/internal/workers"
)

// Migrate - только миграции, без запуска сервера
func Migrate(cfg *config.Config) error {
	Bootstrap(cfg)

	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, false)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	if err := database.AutoMigrate(gormDB); err != nil {
		return err
	}
	logger.Info("Migrations applied", "driver", cfg.Database.Driver)
	return nil
}

// PruneEvents - разовая очистка журнала догоняющей доставки
func PruneEvents(ctx context.Context, cfg *config.Config) error {
	Bootstrap(cfg)

	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, false)
	if err != nil {
		return err
	}
	defer func() {
		if sqlDB, err := gormDB.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	// хаба нет: событий никто не получит, нужен только журнал
	serviceContainer := services.NewServiceContainer(services.Dependencies{
		Inbox: notifications.NewInbox(notifications.NewMemoryStore(), cfg.Notifications.Capacity),
	})

	scheduler := workers.NewScheduler()
	pruner := workers.NewEventPruner(gormDB, serviceContainer.NotificationService, cfg.Events.Retention)
	if err := scheduler.Add(pruner.Job(cfg.Events.PruneSchedule)); err != nil {
		return err
	}
	if err := scheduler.RunNow(ctx, workers.PruneEventsJobName); err != nil {
		return fmt.Errorf("prune events: %w", err)
	}
	return nil
}
