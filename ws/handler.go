package ws

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"workforce_backend/internal/logger"
	"workforce_backend/internal/middleware"
	"workforce_backend/pkg/apperrors"
)

// WebSocketHandler поднимает соединение после AuthMiddleware
type WebSocketHandler struct {
	hub      *Hub
	handler  EventHandler
	upgrader websocket.Upgrader
}

func NewWebSocketHandler(hub *Hub, handler EventHandler, allowedOrigins []string) *WebSocketHandler {
	return &WebSocketHandler{
		hub:     hub,
		handler: handler,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(allowedOrigins),
		},
	}
}

// originChecker: пустой список или "*" пускают всех; без заголовка Origin - не браузер
func originChecker(allowed []string) func(r *http.Request) bool {
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[strings.TrimRight(o, "/")] = struct{}{}
	}
	if len(set) == 0 {
		return func(*http.Request) bool { return true }
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[strings.TrimRight(origin, "/")]
		return ok
	}
}

// ServeWS godoc
// @Summary Realtime channel
// @Description Upgrades to a websocket. Token via Authorization header or ?token=
// @Tags realtime
// @Security BearerAuth
// @Param token query string false "JWT"
// @Success 101
// @Failure 401 {object} apperrors.AppError
// @Router /ws [get]
func (h *WebSocketHandler) ServeWS(c *gin.Context) {
	userID := middleware.GetUserID(c)
	if userID == "" {
		apperrors.HandleError(c, apperrors.NewUnauthorizedError("Authentication required"))
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade уже ответил клиенту
		logger.CtxWarn(c.Request.Context(), "websocket upgrade failed", "error", err)
		return
	}

	// контекст запроса отменяется после возврата из хэндлера
	ctx := context.WithoutCancel(c.Request.Context())
	client := newClient(ctx, h.hub, conn, userID)
	h.hub.Register(client)

	go client.writePump()
	go client.readPump(h.handler)
}
