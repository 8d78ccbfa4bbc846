package services

import (
	"workforce_backend/internal/email"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/repositories"
	"workforce_backend/internal/storage"
)

// Dependencies - все, что нужно для сборки сервисов
type Dependencies struct {
	Inbox         *notifications.Inbox
	Storage       storage.Storage
	Mailer        email.Provider
	Gateway       RealtimeGateway
	Clock         Clock
	MaxUploadSize int64
}

// ServiceContainer содержит все сервисы приложения
type ServiceContainer struct {
	AuthService         AuthService
	ChatService         ChatService
	NotificationService NotificationService
	AnnouncementService AnnouncementService
	Gateway             RealtimeGateway
}

func NewServiceContainer(deps Dependencies) *ServiceContainer {
	if deps.Gateway == nil {
		deps.Gateway = NopGateway{}
	}
	if deps.Clock == nil {
		deps.Clock = SystemClock
	}

	userRepo := repositories.NewUserRepository()
	chatRepo := repositories.NewChatRepository()
	announcementRepo := repositories.NewAnnouncementRepository()
	eventRepo := repositories.NewEventRepository()

	notificationService := NewNotificationService(deps.Inbox, eventRepo, userRepo, announcementRepo, deps.Gateway, deps.Clock)

	return &ServiceContainer{
		AuthService:         NewAuthService(userRepo, notificationService, deps.Gateway),
		ChatService:         NewChatService(chatRepo, userRepo, deps.Storage, notificationService, deps.Gateway, deps.Clock, deps.MaxUploadSize),
		NotificationService: notificationService,
		AnnouncementService: NewAnnouncementService(announcementRepo, userRepo, notificationService, deps.Mailer, deps.Clock),
		Gateway:             deps.Gateway,
	}
}
