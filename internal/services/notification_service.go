package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"workforce_backend/internal/keylock"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/metrics"
	"workforce_backend/internal/models"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/repositories"
	"workforce_backend/internal/services/dto"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"
)

const (
	announcementImportLimit = 20
	defaultReplayLimit      = 200
	maxReplayLimit          = 500
)

type NotificationService interface {
	// Fan-out
	Publish(ctx context.Context, db *gorm.DB, userIDs []string, event string, payload any, note *notifications.Notification) int
	PublishToAll(ctx context.Context, db *gorm.DB, event string, payload any, note *notifications.Notification) (int, error)
	PublishHREvent(ctx context.Context, db *gorm.DB, req *dto.PublishEventRequest) (*dto.PublishEventResponse, error)

	// Журнал догоняющей доставки
	Replay(ctx context.Context, db *gorm.DB, userID string, afterSeq uint64, limit int) (*dto.EventsResponse, error)
	PruneEvents(ctx context.Context, db *gorm.DB, retention time.Duration) (int64, error)

	// Входящие
	GetInbox(ctx context.Context, db *gorm.DB, userID string) (*dto.NotificationListResponse, error)
	GetUnreadCount(ctx context.Context, userID string) int
	MarkAsRead(ctx context.Context, userID, notificationID string) error
	MarkAllAsRead(ctx context.Context, userID string) error
	DeleteNotification(ctx context.Context, userID, notificationID string) error
	ClearInbox(ctx context.Context, userID string) error
}

type notificationService struct {
	inbox            *notifications.Inbox
	eventRepo        repositories.EventRepository
	userRepo         repositories.UserRepository
	announcementRepo repositories.AnnouncementRepository
	gateway          RealtimeGateway
	clock            Clock
	userLocks        *keylock.Locks
}

func NewNotificationService(
	inbox *notifications.Inbox,
	eventRepo repositories.EventRepository,
	userRepo repositories.UserRepository,
	announcementRepo repositories.AnnouncementRepository,
	gateway RealtimeGateway,
	clock Clock,
) NotificationService {
	if clock == nil {
		clock = SystemClock
	}
	return &notificationService{
		inbox:            inbox,
		eventRepo:        eventRepo,
		userRepo:         userRepo,
		announcementRepo: announcementRepo,
		gateway:          gateway,
		clock:            clock,
		userLocks:        keylock.New(),
	}
}

// ---------------- Fan-out ----------------

// Publish пишет событие в журнал каждого получателя, отправляет его во все вкладки
// и, если note != nil, кладет запись во входящие. Возвращает число вкладок, куда ушло событие.
// Ошибки журнала и ящика логируются: доставка в реальном времени важнее.
func (s *notificationService) Publish(ctx context.Context, db *gorm.DB, userIDs []string, event string, payload any, note *notifications.Notification) int {
	raw, err := json.Marshal(payload)
	if err != nil {
		logger.CtxWithError(ctx, "failed to marshal realtime payload", err, "event", event)
		return 0
	}

	delivered := 0
	for _, userID := range userIDs {
		delivered += s.publishOne(ctx, db, userID, event, raw, note)
	}
	return delivered
}

func (s *notificationService) publishOne(ctx context.Context, db *gorm.DB, userID, event string, raw json.RawMessage, note *notifications.Notification) int {
	// журнал и отправка под одним замком, чтобы seq приходили по порядку
	unlock := s.userLocks.Lock(userID)
	var seq uint64
	if rec, err := s.eventRepo.Append(db, userID, event, raw); err != nil {
		logger.CtxWithError(ctx, "failed to append realtime event", err, "event", event, "user_id", userID)
	} else {
		seq = rec.Seq
	}
	delivered := s.gateway.EmitToUser(userID, event, raw, seq)
	unlock()

	if note != nil {
		n := *note
		if _, added := s.inbox.Add(ctx, userID, n); added {
			metrics.InboxAdded.Inc()
		}
	}
	return delivered
}

func (s *notificationService) PublishToAll(ctx context.Context, db *gorm.DB, event string, payload any, note *notifications.Notification) (int, error) {
	userIDs, err := s.userRepo.ListIDs(db)
	if err != nil {
		return 0, apperrors.InternalError(err)
	}
	return s.Publish(ctx, db, userIDs, event, payload, note), nil
}

func (s *notificationService) PublishHREvent(ctx context.Context, db *gorm.DB, req *dto.PublishEventRequest) (*dto.PublishEventResponse, error) {
	if !realtime.IsHREvent(req.Event) {
		return nil, apperrors.ErrUnknownEvent
	}

	var recipients []string
	if req.All {
		ids, err := s.userRepo.ListIDs(db)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		recipients = ids
	} else {
		users, err := s.userRepo.FindByIDs(db, uniqueStrings(req.UserIDs))
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		for _, id := range uniqueStrings(req.UserIDs) {
			if _, ok := users[id]; ok {
				recipients = append(recipients, id)
			}
		}
	}
	if len(recipients) == 0 {
		return nil, apperrors.ErrInvalidOperation("events", "No known recipients")
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	title := req.Title
	if title == "" {
		title = defaultEventTitle(req.Event)
	}

	payload := map[string]any{
		"title":    title,
		"message":  req.Message,
		"priority": priority,
	}
	if len(req.Data) > 0 {
		payload["data"] = req.Data
	}

	note := &notifications.Notification{
		Type:     req.Event,
		Title:    title,
		Message:  req.Message,
		Priority: priority,
		Data:     req.Data,
	}

	delivered := s.Publish(ctx, db, recipients, req.Event, payload, note)
	logger.CtxInfo(ctx, "hr event published", "event", req.Event, "recipients", len(recipients), "delivered", delivered)

	return &dto.PublishEventResponse{
		Event:      req.Event,
		Recipients: len(recipients),
		Delivered:  delivered,
	}, nil
}

func defaultEventTitle(event string) string {
	switch event {
	case realtime.EventAttendanceUpdate:
		return "Attendance updated"
	case realtime.EventSalaryUpdate:
		return "Salary updated"
	case realtime.EventLeaveUpdate:
		return "Leave request updated"
	case realtime.EventEmployeeJoined:
		return "New employee joined"
	default:
		return "Notification"
	}
}

// ---------------- Журнал ----------------

func (s *notificationService) Replay(ctx context.Context, db *gorm.DB, userID string, afterSeq uint64, limit int) (*dto.EventsResponse, error) {
	if limit <= 0 {
		limit = defaultReplayLimit
	}
	if limit > maxReplayLimit {
		limit = maxReplayLimit
	}

	events, err := s.eventRepo.Since(db, userID, afterSeq, limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	resp := &dto.EventsResponse{Events: make([]dto.EventResponse, 0, len(events)), LastSeq: afterSeq}
	for _, e := range events {
		resp.Events = append(resp.Events, dto.EventResponse{
			Seq:       e.Seq,
			Event:     e.Event,
			Data:      json.RawMessage(e.Payload),
			Timestamp: e.CreatedAt.UTC().Format(time.RFC3339Nano),
		})
		resp.LastSeq = e.Seq
	}
	return resp, nil
}

func (s *notificationService) PruneEvents(ctx context.Context, db *gorm.DB, retention time.Duration) (int64, error) {
	if retention <= 0 {
		return 0, fmt.Errorf("retention must be positive, got %s", retention)
	}
	removed, err := s.eventRepo.PruneBefore(db, s.clock().Add(-retention))
	if err != nil {
		return 0, err
	}
	metrics.EventsPruned.Add(float64(removed))
	return removed, nil
}

// ---------------- Входящие ----------------

// GetInbox сначала импортирует свежие объявления (с дедупликацией по id объявления)
func (s *notificationService) GetInbox(ctx context.Context, db *gorm.DB, userID string) (*dto.NotificationListResponse, error) {
	announcements, err := s.announcementRepo.FindRecent(db, announcementImportLimit)
	if err != nil {
		logger.CtxWithError(ctx, "failed to load announcements for inbox import", err, "user_id", userID)
	} else if len(announcements) > 0 {
		batch := make([]notifications.Notification, 0, len(announcements))
		// от старых к новым, чтобы кольцо вытесняло старые
		for i := len(announcements) - 1; i >= 0; i-- {
			batch = append(batch, AnnouncementNotification(&announcements[i]))
		}
		if added := s.inbox.Import(ctx, userID, batch); added > 0 {
			metrics.InboxAdded.Add(float64(added))
		}
	}

	items, unread := s.inbox.List(ctx, userID)
	if items == nil {
		items = []notifications.Notification{}
	}
	return &dto.NotificationListResponse{Notifications: items, UnreadCount: unread}, nil
}

func (s *notificationService) GetUnreadCount(ctx context.Context, userID string) int {
	return s.inbox.UnreadCount(ctx, userID)
}

func (s *notificationService) MarkAsRead(ctx context.Context, userID, notificationID string) error {
	return mapInboxError(s.inbox.MarkRead(ctx, userID, notificationID))
}

func (s *notificationService) MarkAllAsRead(ctx context.Context, userID string) error {
	return mapInboxError(s.inbox.MarkAllRead(ctx, userID))
}

func (s *notificationService) DeleteNotification(ctx context.Context, userID, notificationID string) error {
	return mapInboxError(s.inbox.Delete(ctx, userID, notificationID))
}

func (s *notificationService) ClearInbox(ctx context.Context, userID string) error {
	return mapInboxError(s.inbox.Clear(ctx, userID))
}

func mapInboxError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, notifications.ErrNotificationNotFound) {
		return apperrors.ErrNotificationNotFound
	}
	return apperrors.InternalError(err)
}

// AnnouncementNotification - запись входящих для объявления; SourceID = id объявления
func AnnouncementNotification(a *models.Announcement) notifications.Notification {
	data, _ := json.Marshal(map[string]any{
		"announcementId": a.ID,
		"authorName":     a.AuthorName,
	})
	return notifications.Notification{
		Type:      "announcement",
		Title:     a.Title,
		Message:   a.Message,
		Priority:  a.Priority,
		Timestamp: a.CreatedAt.UTC(),
		Data:      data,
		SourceID:  a.ID,
	}
}

func uniqueStrings(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
