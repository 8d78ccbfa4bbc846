package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"workforce_backend/docs"
	"workforce_backend/internal/auth"
	"workforce_backend/internal/config"
	"workforce_backend/internal/database"
	"workforce_backend/internal/email"
	"workforce_backend/internal/handlers"
	"workforce_backend/internal/logger"
	"workforce_backend/internal/metrics"
	"workforce_backend/internal/middleware"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/routes"
	"workforce_backend/internal/services"
	"workforce_backend/internal/storage"
	"workforce_backend/internal/validator"
	"workforce_backend/internal/workers"
	"workforce_backend/ws"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"gorm.io/gorm"
)

// App - собранное приложение: база, хаб, сервисы, роутер и планировщик
type App struct {
	Config    *config.Config
	DB        *gorm.DB
	Hub       *ws.Hub
	Services  *services.ServiceContainer
	Router    *gin.Engine
	Scheduler *workers.Scheduler

	store notifications.Store
}

// Run - точка входа `serve`: поднимает сервер и ждет SIGINT/SIGTERM
func Run(cfg *config.Config) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Serve(ctx)
}

// New собирает приложение; ctx управляет жизнью хаба
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	Bootstrap(cfg)

	logger.Info("Connecting to database...", "driver", cfg.Database.Driver)
	gormDB, err := database.Open(cfg.Database.Driver, cfg.Database.DSN, !cfg.IsProduction())
	if err != nil {
		return nil, err
	}
	if err := database.AutoMigrate(gormDB); err != nil {
		return nil, err
	}
	logger.Info("Database connected")

	store, err := notifications.NewStore(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to open notifications store: %w", err)
	}
	logger.Info("Notifications store initialized", "type", cfg.Notifications.Store)

	storageInstance, err := storage.NewStorage(storage.ConfigFrom(cfg))
	if err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}
	logger.Info("Storage initialized", "type", cfg.Storage.Type)

	// 1. Хаб
	hub := ws.NewHub(hubOptions(cfg))
	go hub.Run(ctx)

	// 2. Сервисы
	serviceContainer := initializeServices(cfg, hub, store, storageInstance)

	if err := serviceContainer.AuthService.SeedFirstAdmin(ctx, gormDB, cfg.FirstAdmin.Name, cfg.FirstAdmin.Email, cfg.FirstAdmin.Password); err != nil {
		// Если не удалось создать админа (проблемы с БД и т.д.) - не запускаем сервер
		_ = store.Close()
		return nil, fmt.Errorf("failed to seed first admin user: %w", err)
	}

	// 3. Роутер
	ginRouter := SetupRouter(cfg, gormDB, hub, serviceContainer)

	// 4. Планировщик
	scheduler := workers.NewScheduler()
	pruner := workers.NewEventPruner(gormDB, serviceContainer.NotificationService, cfg.Events.Retention)
	if err := scheduler.Add(pruner.Job(cfg.Events.PruneSchedule)); err != nil {
		_ = store.Close()
		return nil, err
	}

	return &App{
		Config:    cfg,
		DB:        gormDB,
		Hub:       hub,
		Services:  serviceContainer,
		Router:    ginRouter,
		Scheduler: scheduler,
		store:     store,
	}, nil
}

// Bootstrap - то, что нужно любой команде: логгер и параметры JWT
func Bootstrap(cfg *config.Config) {
	logger.Init(cfg.Server.Env, cfg.Server.LogLevel)
	logger.Info("Logger initialized", "env", cfg.Server.Env)
	auth.Configure(cfg.JWT.Secret, time.Duration(cfg.JWT.TTL)*time.Minute)
}

// Serve слушает порт до отмены ctx, затем корректно останавливается
func (a *App) Serve(ctx context.Context) error {
	address := fmt.Sprintf("%s:%d", a.Config.Server.Host, a.Config.Server.Port)
	srv := &http.Server{
		Addr:              address,
		Handler:           a.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	a.Scheduler.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		logger.Info(fmt.Sprintf("🚀 Server starting on %s", address))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			a.Scheduler.Stop()
			return fmt.Errorf("server startup error: %w", err)
		}
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.Config.Server.ShutdownTimeout)
	defer cancel()

	a.Scheduler.Stop()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown error: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// Close освобождает хранилище уведомлений и соединения с базой
func (a *App) Close() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			logger.Error("Failed to close notifications store", "error", err)
		}
	}
	if sqlDB, err := a.DB.DB(); err == nil {
		_ = sqlDB.Close()
	}
}

func hubOptions(cfg *config.Config) ws.Options {
	opts := ws.DefaultOptions()
	if cfg.Realtime.TypingExpiry > 0 {
		opts.TypingExpiry = cfg.Realtime.TypingExpiry
	}
	if cfg.Realtime.SendBuffer > 0 {
		opts.SendBuffer = cfg.Realtime.SendBuffer
	}
	if cfg.Realtime.MaxMessageSize > 0 {
		opts.MaxMessageSize = cfg.Realtime.MaxMessageSize
	}
	return opts
}

// SetupRouter собирает хэндлеры и маршруты поверх готовых сервисов
func SetupRouter(cfg *config.Config, gormDB *gorm.DB, hub *ws.Hub, serviceContainer *services.ServiceContainer) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	customValidator := validator.New()

	// 1. Хэндлеры
	appHandlers := initializeHandlers(cfg, customValidator, serviceContainer)

	// 2. WebSocket
	dispatcher := ws.NewDispatcher(hub, gormDB, serviceContainer.ChatService, serviceContainer.NotificationService, customValidator)
	origins := cfg.Realtime.AllowedOrigins
	if len(origins) == 0 {
		origins = cfg.CORS.AllowedOrigins
	}
	appHandlers.WebSocketHandler = ws.NewWebSocketHandler(hub, dispatcher, origins)

	// 3. Gin
	ginRouter := initializeGinRouter(cfg, gormDB)

	// 4. Делегируем регистрацию маршрутов пакету 'routes'
	routes.RegisterRoutes(ginRouter, appHandlers, cfg)

	return ginRouter
}

func initializeServices(cfg *config.Config, hub *ws.Hub, store notifications.Store, storageInstance storage.Storage) *services.ServiceContainer {
	return services.NewServiceContainer(services.Dependencies{
		Inbox:         notifications.NewInbox(store, cfg.Notifications.Capacity),
		Storage:       storageInstance,
		Mailer:        email.NewProvider(cfg),
		Gateway:       hub,
		MaxUploadSize: cfg.Upload.MaxSize,
	})
}

func initializeHandlers(cfg *config.Config, customValidator *validator.Validator, services *services.ServiceContainer) *handlers.AppHandlers {
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		AuthHandler:         handlers.NewAuthHandler(baseHandler, services.AuthService),
		ChatHandler:         handlers.NewChatHandler(baseHandler, services.ChatService, cfg.Upload.MaxSize),
		NotificationHandler: handlers.NewNotificationHandler(baseHandler, services.NotificationService),
		AnnouncementHandler: handlers.NewAnnouncementHandler(baseHandler, services.AnnouncementService, middleware.ResponseCache(cfg.Cache.TTL, cfg.Cache.Capacity)),
		EventHandler:        handlers.NewEventHandler(baseHandler, services.NotificationService),
		PresenceHandler:     handlers.NewPresenceHandler(services.Gateway),
	}
}

func initializeGinRouter(cfg *config.Config, db *gorm.DB) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware(cfg.CORS.AllowedOrigins))
	router.Use(metrics.GinMiddleware())
	router.Use(middleware.DBMiddleware(db))

	router.GET("/healthz", func(c *gin.Context) {
		sqlDB, err := db.DB()
		if err == nil {
			err = sqlDB.PingContext(c.Request.Context())
		}
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	docs.SwaggerInfo.BasePath = "/api/v1"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// локальные вложения раздаются самим сервером
	if cfg.Storage.Type == "local" && strings.HasPrefix(cfg.Storage.BaseURL, "/") {
		router.Static(cfg.Storage.BaseURL, cfg.Storage.BasePath)
	}
	return router
}
