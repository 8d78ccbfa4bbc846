package dto

import (
	"time"

	"workforce_backend/internal/models"
)

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// RegisterRequest - добавление сотрудника администратором
type RegisterRequest struct {
	Name     string          `json:"name" validate:"required,min=1,max=120"`
	Email    string          `json:"email" validate:"required,email"`
	Password string          `json:"password" validate:"required,min=8"`
	Role     models.UserRole `json:"role" validate:"required,is-user-role"`
}

type AuthResponse struct {
	Token     string        `json:"token"`
	ExpiresAt time.Time     `json:"expiresAt"`
	User      *UserResponse `json:"user"`
}

type UserResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Email        string           `json:"email"`
	Role         models.UserRole  `json:"role"`
	Model        models.UserModel `json:"model"`
	ProfilePhoto string           `json:"profilePhoto,omitempty"`
	Theme        models.Theme     `json:"theme"`
	Capabilities []string         `json:"capabilities,omitempty"`
	IsOnline     bool             `json:"isOnline"`
}
