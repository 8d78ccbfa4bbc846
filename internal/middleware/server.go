package middleware

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"workforce_backend/internal/logger"
	"workforce_backend/pkg/contextkeys"
)

const requestIDHeader = "X-Request-ID"

// служебные пути не пишутся в лог на каждый запрос
var quietPaths = map[string]bool{
	"/healthz": true,
	"/metrics": true,
}

func RequestIDMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(contextkeys.RequestIDKey, requestID)
		c.Request = c.Request.WithContext(logger.WithRequestID(c.Request.Context(), requestID))
		c.Header(requestIDHeader, requestID)
		c.Next()
	}
}

// LoggingMiddleware пишет запрос после обработки; уровень зависит от класса статуса.
// Upgrade на /ws логируется как обычный запрос, время жизни соединения пишет хаб.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		if quietPaths[c.Request.URL.Path] && status < 400 {
			return
		}

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		fields := []any{
			slog.String("method", c.Request.Method),
			slog.String("route", route),
			slog.String("path", c.Request.URL.Path),
			slog.Int("status", status),
			slog.Duration("duration", time.Since(start)),
			slog.Int("size_bytes", c.Writer.Size()),
			slog.String("client_ip", c.ClientIP()),
		}
		if len(c.Errors) > 0 {
			fields = append(fields, slog.String("gin_errors", c.Errors.String()))
		}

		// после AuthMiddleware user_id уже лежит в контексте запроса
		log := logger.FromContext(c.Request.Context())
		switch {
		case status >= 500:
			log.Error("http request failed", fields...)
		case status >= 400:
			log.Warn("http request rejected", fields...)
		default:
			log.Info("http request", fields...)
		}
	}
}

// DBMiddleware кладет в gin.Context пул или транзакцию, открытую выше по цепочке
func DBMiddleware(db *gorm.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if tx, ok := c.Request.Context().Value(contextkeys.DBContextKey).(*gorm.DB); ok && tx != nil {
			c.Set(string(contextkeys.DBContextKey), tx)
		} else {
			c.Set(string(contextkeys.DBContextKey), db.WithContext(c.Request.Context()))
		}
		c.Next()
	}
}
