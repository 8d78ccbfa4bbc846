package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/models"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/contextkeys"
)

// AuthMiddleware - проверка JWT.
// Для websocket токен можно передать query-параметром ?token=, браузер не умеет заголовки при upgrade.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr := bearerToken(c)
		if tokenStr == "" {
			apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authorization header missing or invalid"))
			return
		}

		claims, err := auth.ParseToken(tokenStr)
		if err != nil {
			apperrors.HandleError(c, apperrors.ErrInvalidToken)
			return
		}

		c.Set(contextkeys.UserIDKey, claims.UserID)
		c.Set(contextkeys.RoleKey, claims.Role)
		c.Request = c.Request.WithContext(logger.WithUserID(c.Request.Context(), claims.UserID))
		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	}
	return c.Query("token")
}

// RequireCapability пропускает роли, у которых есть все перечисленные возможности
func RequireCapability(caps ...auth.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		role, ok := GetRole(c)
		if !ok {
			apperrors.HandleError(c, apperrors.NewForbiddenError("Access denied: no role"))
			return
		}

		for _, capability := range caps {
			if !auth.Can(role, capability) {
				logger.CtxWarn(c.Request.Context(), "capability denied",
					"role", role,
					"capability", capability,
					"path", c.Request.URL.Path,
				)
				apperrors.HandleError(c, apperrors.ErrInsufficientPermissions)
				return
			}
		}
		c.Next()
	}
}

// GetUserID извлекает ID пользователя из контекста
func GetUserID(c *gin.Context) string {
	return c.GetString(contextkeys.UserIDKey)
}

func GetRole(c *gin.Context) (models.UserRole, bool) {
	val, exists := c.Get(contextkeys.RoleKey)
	if !exists {
		return "", false
	}
	switch role := val.(type) {
	case models.UserRole:
		return role, true
	case string:
		return models.UserRole(role), true
	default:
		return "", false
	}
}
