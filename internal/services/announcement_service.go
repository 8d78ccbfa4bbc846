package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"workforce_backend/internal/email"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/models"
	"workforce_backend/internal/repositories"
	"workforce_backend/internal/services/dto"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"
)

const defaultAnnouncementLimit = 20

type AnnouncementService interface {
	Create(ctx context.Context, db *gorm.DB, authorID string, req *dto.CreateAnnouncementRequest) (*models.Announcement, error)
	List(ctx context.Context, db *gorm.DB, limit int) ([]models.Announcement, error)
}

type announcementService struct {
	announcementRepo repositories.AnnouncementRepository
	userRepo         repositories.UserRepository
	notifier         NotificationService
	mailer           email.Provider
	clock            Clock
}

func NewAnnouncementService(
	announcementRepo repositories.AnnouncementRepository,
	userRepo repositories.UserRepository,
	notifier NotificationService,
	mailer email.Provider,
	clock Clock,
) AnnouncementService {
	if clock == nil {
		clock = SystemClock
	}
	return &announcementService{
		announcementRepo: announcementRepo,
		userRepo:         userRepo,
		notifier:         notifier,
		mailer:           mailer,
		clock:            clock,
	}
}

func (s *announcementService) Create(ctx context.Context, db *gorm.DB, authorID string, req *dto.CreateAnnouncementRequest) (*models.Announcement, error) {
	author, err := s.userRepo.FindByID(db, authorID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("Author no longer exists")
		}
		return nil, apperrors.InternalError(err)
	}

	priority := req.Priority
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !priority.IsValid() {
		return nil, apperrors.ValidationError(map[string]string{"priority": "Must be one of: low, medium, high, critical"})
	}

	a := &models.Announcement{
		Title:      strings.TrimSpace(req.Title),
		Message:    strings.TrimSpace(req.Message),
		Priority:   priority,
		AuthorID:   author.ID,
		AuthorName: author.Name,
	}
	a.CreatedAt = s.clock()
	if err := s.announcementRepo.Create(db, a); err != nil {
		return nil, apperrors.InternalError(err)
	}

	note := AnnouncementNotification(a)
	delivered, err := s.notifier.PublishToAll(ctx, db, realtime.EventNewAnnouncement, a, &note)
	if err != nil {
		logger.CtxWithError(ctx, "failed to broadcast announcement", err, "announcement_id", a.ID)
	}
	logger.CtxInfo(ctx, "📢 announcement published", "announcement_id", a.ID, "priority", a.Priority, "delivered", delivered)

	if a.Priority == models.PriorityCritical {
		s.mailCritical(ctx, db, a)
	}
	return a, nil
}

// mailCritical - письмо всем активным сотрудникам; ошибки только логируются
func (s *announcementService) mailCritical(ctx context.Context, db *gorm.DB, a *models.Announcement) {
	users, err := s.userRepo.ListActive(db, "")
	if err != nil {
		logger.CtxWithError(ctx, "failed to load recipients for critical announcement", err)
		return
	}
	to := make([]string, 0, len(users))
	for _, u := range users {
		if u.Email != "" && u.ID != a.AuthorID {
			to = append(to, u.Email)
		}
	}
	if len(to) == 0 {
		return
	}

	msg, err := email.CriticalAnnouncement(to, a.Title, a.Message, a.AuthorName, a.CreatedAt)
	if err != nil {
		logger.CtxWithError(ctx, "failed to build announcement email", err)
		return
	}

	sendCtx := context.WithoutCancel(ctx)
	go func() {
		if err := s.mailer.Send(sendCtx, msg); err != nil {
			logger.CtxWithError(sendCtx, "critical announcement email failed", err, "announcement_id", a.ID)
		}
	}()
}

func (s *announcementService) List(ctx context.Context, db *gorm.DB, limit int) ([]models.Announcement, error) {
	if limit <= 0 || limit > 100 {
		limit = defaultAnnouncementLimit
	}
	list, err := s.announcementRepo.FindRecent(db, limit)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	if list == nil {
		list = []models.Announcement{}
	}
	return list, nil
}
