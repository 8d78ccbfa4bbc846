package handlers

import (
	"net/http"

	"workforce_backend/internal/services"
	"workforce_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type PresenceHandler struct {
	gateway services.RealtimeGateway
}

func NewPresenceHandler(gateway services.RealtimeGateway) *PresenceHandler {
	return &PresenceHandler{gateway: gateway}
}

func (h *PresenceHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/presence/online", h.Online)
}

// Online godoc
// @Summary Кто онлайн
// @Tags presence
// @Security BearerAuth
// @Produce json
// @Success 200 {object} dto.OnlineUsersResponse
// @Router /presence/online [get]
func (h *PresenceHandler) Online(c *gin.Context) {
	ids := h.gateway.OnlineUserIDs()
	if ids == nil {
		ids = []string{}
	}
	c.JSON(http.StatusOK, dto.OnlineUsersResponse{UserIDs: ids})
}
