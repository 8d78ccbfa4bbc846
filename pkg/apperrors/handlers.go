package apperrors

import (
	"log/slog"

	"github.com/gin-gonic/gin"
)

// ErrorResponse - тело ответа: {"error": {code, domain, message, details}}
type ErrorResponse struct {
	Error *AppError `json:"error"`
}

// GinErrorHandler пишет AppError в ответ; Debug оставляет детали 5xx
type GinErrorHandler struct {
	Debug bool
}

func (h *GinErrorHandler) HandleGinError(c *gin.Context, err error) {
	appErr := Classify(err)

	if appErr.IsServerError() {
		slog.Default().Error("server error",
			"error", appErr.Error(),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"request_id", c.Writer.Header().Get("X-Request-ID"),
		)
		if !h.Debug {
			appErr = appErr.WithDetails(nil)
		}
	}

	c.AbortWithStatusJSON(appErr.HTTPCode, ErrorResponse{Error: appErr})
}

// HandleError - детали 5xx видны только в debug-режиме gin
func HandleError(c *gin.Context, err error) {
	handler := &GinErrorHandler{Debug: gin.Mode() == gin.DebugMode}
	handler.HandleGinError(c, err)
}
