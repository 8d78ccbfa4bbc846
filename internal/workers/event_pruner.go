package workers

import (
	"context"
	"time"

	"gorm.io/gorm"

	"workforce_backend/internal/logger"
	"workforce_backend/internal/services"
)

const PruneEventsJobName = "prune_events"

// EventPruner удаляет из журнала догоняющей доставки события старше retention
type EventPruner struct {
	db        *gorm.DB
	notifier  services.NotificationService
	retention time.Duration
}

func NewEventPruner(db *gorm.DB, notifier services.NotificationService, retention time.Duration) *EventPruner {
	return &EventPruner{db: db, notifier: notifier, retention: retention}
}

func (p *EventPruner) Run(ctx context.Context) error {
	removed, err := p.notifier.PruneEvents(ctx, p.db.WithContext(ctx), p.retention)
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("pruned realtime events", "removed", removed, "retention", p.retention.String())
	}
	return nil
}

// Job - задача для Scheduler
func (p *EventPruner) Job(schedule string) Job {
	return Job{
		Name:     PruneEventsJobName,
		Schedule: schedule,
		Run:      p.Run,
	}
}
