package handlers

import (
	"net/http"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/middleware"
	"workforce_backend/internal/services"
	"workforce_backend/internal/services/dto"

	"github.com/gin-gonic/gin"
)

type AnnouncementHandler struct {
	*BaseHandler
	announcementService services.AnnouncementService
	listCache           gin.HandlerFunc
}

// NewAnnouncementHandler; listCache - ResponseCache для GET списка (nil - без кеша)
func NewAnnouncementHandler(base *BaseHandler, announcementService services.AnnouncementService, listCache gin.HandlerFunc) *AnnouncementHandler {
	return &AnnouncementHandler{
		BaseHandler:         base,
		announcementService: announcementService,
		listCache:           listCache,
	}
}

func (h *AnnouncementHandler) RegisterRoutes(r *gin.RouterGroup) {
	announcements := r.Group("/announcements")
	{
		list := []gin.HandlerFunc{h.List}
		if h.listCache != nil {
			list = append([]gin.HandlerFunc{h.listCache}, list...)
		}
		announcements.GET("", list...)
		announcements.POST("", middleware.RequireCapability(auth.CapCreateAnnouncements), h.Create)
	}
}

// Create godoc
// @Summary Опубликовать объявление
// @Description Рассылается всем как new_announcement; critical дополнительно уходит письмом
// @Tags announcements
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param announcement body dto.CreateAnnouncementRequest true "Объявление"
// @Success 201 {object} models.Announcement
// @Failure 403 {object} apperrors.AppError
// @Router /announcements [post]
func (h *AnnouncementHandler) Create(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.CreateAnnouncementRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	a, err := h.announcementService.Create(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, a)
}

// List godoc
// @Summary Последние объявления
// @Tags announcements
// @Security BearerAuth
// @Produce json
// @Param limit query int false "1..100, по умолчанию 20"
// @Success 200 {array} models.Announcement
// @Router /announcements [get]
func (h *AnnouncementHandler) List(c *gin.Context) {
	var query dto.AnnouncementListQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	list, err := h.announcementService.List(c.Request.Context(), h.GetDB(c), query.Limit)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}
