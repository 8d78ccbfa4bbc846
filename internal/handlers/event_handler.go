package handlers

import (
	"net/http"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/middleware"
	"workforce_backend/internal/services"
	"workforce_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

// EventHandler - журнал догоняющей доставки и публикация HR-событий
type EventHandler struct {
	*BaseHandler
	notificationService services.NotificationService
}

func NewEventHandler(base *BaseHandler, notificationService services.NotificationService) *EventHandler {
	return &EventHandler{
		BaseHandler:         base,
		notificationService: notificationService,
	}
}

func (h *EventHandler) RegisterRoutes(r *gin.RouterGroup) {
	events := r.Group("/events")
	{
		events.GET("", h.GetEvents)
		events.POST("/publish", middleware.RequireCapability(auth.CapPublishEvents), h.Publish)
	}
}

// GetEvents godoc
// @Summary События после seq
// @Description Для клиентов без websocket и для проверки после переподключения
// @Tags events
// @Security BearerAuth
// @Produce json
// @Param since query int false "Последний полученный seq"
// @Param limit query int false "1..500"
// @Success 200 {object} dto.EventsResponse
// @Router /events [get]
func (h *EventHandler) GetEvents(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.EventsQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	resp, err := h.notificationService.Replay(c.Request.Context(), h.GetDB(c), userID, query.Since, query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Publish godoc
// @Summary Опубликовать HR-событие
// @Tags events
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param event body dto.PublishEventRequest true "Событие"
// @Success 202 {object} dto.PublishEventResponse
// @Failure 403 {object} apperrors.AppError
// @Router /events/publish [post]
func (h *EventHandler) Publish(c *gin.Context) {
	var req dto.PublishEventRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	resp, err := h.notificationService.PublishHREvent(c.Request.Context(), h.GetDB(c), &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}
