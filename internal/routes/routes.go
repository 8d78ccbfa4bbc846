package routes

import (
	"workforce_backend/internal/config"
	"workforce_backend/internal/handlers"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/middleware"

	"github.com/gin-gonic/gin"
)

// RegisterRoutes регистрирует все HTTP и WebSocket маршруты.
func RegisterRoutes(
	ginRouter *gin.Engine,
	appHandlers *handlers.AppHandlers, // <-- Принимаем ГОТОВЫЕ хэндлеры
	cfg *config.Config,
) {
	// Регистрация HTTP API v1
	api := ginRouter.Group("/api/v1")

	protected := api.Group("")
	protected.Use(middleware.AuthMiddleware())
	if cfg.RateLimit.RPS > 0 {
		protected.Use(middleware.RateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst))
	}
	{
		appHandlers.AuthHandler.RegisterRoutes(api, protected)
		appHandlers.ChatHandler.RegisterRoutes(protected)
		appHandlers.NotificationHandler.RegisterRoutes(protected)
		appHandlers.AnnouncementHandler.RegisterRoutes(protected)
		appHandlers.EventHandler.RegisterRoutes(protected)
		appHandlers.PresenceHandler.RegisterRoutes(protected)
	}

	// Регистрация WebSocket
	wsGroup := ginRouter.Group("/ws")
	wsGroup.Use(middleware.AuthMiddleware())
	{
		wsGroup.GET("", appHandlers.WebSocketHandler.ServeWS)
	}
	logger.Info("WebSocket route /ws registered")
}
