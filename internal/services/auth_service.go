package services

import (
	"context"
	"errors"
	"strings"

	"gorm.io/gorm"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/models"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/repositories"
	"workforce_backend/internal/services/dto"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"
)

type AuthService interface {
	Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error)
	Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error)
	SeedFirstAdmin(ctx context.Context, db *gorm.DB, name, email, password string) error
}

type AuthServiceImpl struct {
	userRepo repositories.UserRepository
	notifier NotificationService
	gateway  RealtimeGateway
}

func NewAuthService(userRepo repositories.UserRepository, notifier NotificationService, gateway RealtimeGateway) AuthService {
	return &AuthServiceImpl{
		userRepo: userRepo,
		notifier: notifier,
		gateway:  gateway,
	}
}

// Login - вход по email и паролю
func (s *AuthServiceImpl) Login(ctx context.Context, db *gorm.DB, req *dto.LoginRequest) (*dto.AuthResponse, error) {
	user, err := s.userRepo.FindByEmail(db, req.Email)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidCredentials
		}
		return nil, apperrors.InternalError(err)
	}

	if !auth.CheckPasswordHash(req.Password, user.PasswordHash) {
		logger.CtxWarn(ctx, "login failed: wrong password", "user_id", user.ID)
		return nil, apperrors.ErrInvalidCredentials
	}
	if user.Status != models.UserStatusActive {
		return nil, apperrors.NewForbiddenError("Account is inactive")
	}

	token, expiresAt, err := auth.GenerateToken(user.ID, user.Role)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	return &dto.AuthResponse{
		Token:     token,
		ExpiresAt: expiresAt,
		User:      NewUserResponse(user, s.gateway.IsOnline(user.ID), true),
	}, nil
}

// Register - добавление сотрудника (право employees:manage проверяет роутер)
func (s *AuthServiceImpl) Register(ctx context.Context, db *gorm.DB, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	if err := auth.ValidatePassword(req.Password); err != nil {
		return nil, apperrors.ValidationError(map[string]string{"password": err.Error()})
	}
	if !req.Role.IsValid() {
		return nil, apperrors.ValidationError(map[string]string{"role": "Unknown role"})
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        req.Email,
		PasswordHash: hash,
		Role:         req.Role,
		Model:        req.Role.Model(),
		Status:       models.UserStatusActive,
		Theme:        models.ThemeLight,
	}
	if err := s.userRepo.Create(db, user); err != nil {
		if errors.Is(err, repositories.ErrUserAlreadyExists) {
			return nil, apperrors.ErrEmailAlreadyExists
		}
		return nil, apperrors.InternalError(err)
	}

	logger.CtxInfo(ctx, "user registered", "user_id", user.ID, "role", user.Role)

	payload := map[string]any{
		"userId":   user.ID,
		"name":     user.Name,
		"role":     user.Role,
		"title":    "New employee joined",
		"message":  user.Name + " joined the team",
		"priority": models.PriorityLow,
	}
	note := &notifications.Notification{
		Type:     realtime.EventEmployeeJoined,
		Title:    "New employee joined",
		Message:  user.Name + " joined the team",
		Priority: models.PriorityLow,
		SourceID: user.ID,
	}
	if _, err := s.notifier.PublishToAll(ctx, db, realtime.EventEmployeeJoined, payload, note); err != nil {
		logger.CtxWithError(ctx, "failed to announce new employee", err, "user_id", user.ID)
	}

	return NewUserResponse(user, false, true), nil
}

func (s *AuthServiceImpl) Me(ctx context.Context, db *gorm.DB, userID string) (*dto.UserResponse, error) {
	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}
	return NewUserResponse(user, s.gateway.IsOnline(userID), true), nil
}

// SeedFirstAdmin создает администратора, если админов еще нет
func (s *AuthServiceImpl) SeedFirstAdmin(ctx context.Context, db *gorm.DB, name, email, password string) error {
	if email == "" || password == "" {
		logger.CtxWarn(ctx, "FIRST_ADMIN_EMAIL/FIRST_ADMIN_PASSWORD not set, skipping admin seed")
		return nil
	}

	return db.Transaction(func(tx *gorm.DB) error {
		count, err := s.userRepo.CountByRole(tx, models.UserRoleAdmin)
		if err != nil {
			return err
		}
		if count > 0 {
			logger.CtxDebug(ctx, "admin already exists, seed skipped")
			return nil
		}

		hash, err := auth.HashPassword(password)
		if err != nil {
			return err
		}
		if name == "" {
			name = "Administrator"
		}
		admin := &models.User{
			Name:         name,
			Email:        email,
			PasswordHash: hash,
			Role:         models.UserRoleAdmin,
			Model:        models.UserModelAdmin,
			Status:       models.UserStatusActive,
			Theme:        models.ThemeLight,
		}
		if err := s.userRepo.Create(tx, admin); err != nil {
			return err
		}
		logger.CtxInfo(ctx, "✅ first admin created", "email", admin.Email)
		return nil
	})
}

// NewUserResponse - публичное представление пользователя
func NewUserResponse(u *models.User, online, withCapabilities bool) *dto.UserResponse {
	resp := &dto.UserResponse{
		ID:           u.ID,
		Name:         u.Name,
		Email:        u.Email,
		Role:         u.Role,
		Model:        u.Model,
		ProfilePhoto: u.ProfilePhoto,
		Theme:        u.Theme,
		IsOnline:     online,
	}
	if withCapabilities {
		for _, c := range auth.Capabilities(u.Role).List() {
			resp.Capabilities = append(resp.Capabilities, string(c))
		}
	}
	return resp
}
