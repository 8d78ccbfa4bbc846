package handlers

import (
	"errors"
	"net/http"

	"workforce_backend/internal/auth"
	"workforce_backend/internal/middleware"
	"workforce_backend/internal/services"
	"workforce_backend/internal/services/dto"
	"workforce_backend/pkg/apperrors"

	"github.com/gin-gonic/gin"
)

// multipartMemory - сколько держать в памяти при разборе формы, остальное во временных файлах
const multipartMemory = 8 << 20

// multipartSlack - запас на границы и поля формы сверх лимита файла
const multipartSlack = 1 << 20

type ChatHandler struct {
	*BaseHandler
	chatService   services.ChatService
	maxUploadSize int64
}

func NewChatHandler(base *BaseHandler, chatService services.ChatService, maxUploadSize int64) *ChatHandler {
	return &ChatHandler{
		BaseHandler:   base,
		chatService:   chatService,
		maxUploadSize: maxUploadSize,
	}
}

func (h *ChatHandler) RegisterRoutes(r *gin.RouterGroup) {
	messages := r.Group("/messages")
	{
		messages.GET("/conversations", h.GetConversations)
		messages.GET("/:otherUserId", h.GetHistory)

		canSend := middleware.RequireCapability(auth.CapSendMessages)
		messages.POST("", canSend, h.SendMessage)
		messages.POST("/upload", canSend, h.UploadAttachment)
		messages.POST("/profile-photo", h.UpdateProfilePhoto)

		messages.PUT("/:id", h.EditMessage)
		messages.DELETE("/:id", h.DeleteMessage)
	}
}

// GetConversations godoc
// @Summary Список диалогов
// @Description Диалоги пользователя, новые сверху, со счетчиками непрочитанных
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Success 200 {array} dto.ConversationResponse
// @Router /messages/conversations [get]
func (h *ChatHandler) GetConversations(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	convs, err := h.chatService.GetConversations(c.Request.Context(), h.GetDB(c), userID)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, convs)
}

// GetHistory godoc
// @Summary История переписки
// @Description Сообщения с собеседником по возрастанию времени; отмечает диалог прочитанным
// @Tags messages
// @Security BearerAuth
// @Produce json
// @Param otherUserId path string true "ID собеседника"
// @Param since query string false "RFC3339, только более новые"
// @Param limit query int false "До 200, по умолчанию 50"
// @Success 200 {object} dto.HistoryResponse
// @Router /messages/{otherUserId} [get]
func (h *ChatHandler) GetHistory(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var query dto.HistoryQuery
	if !h.BindAndValidate_Query(c, &query) {
		return
	}

	history, err := h.chatService.GetHistory(c.Request.Context(), h.GetDB(c), userID, c.Param("otherUserId"), query)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, history)
}

// SendMessage godoc
// @Summary Отправить сообщение
// @Description text или gif; файлы идут через /messages/upload
// @Tags messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param message body dto.SendMessageRequest true "Сообщение"
// @Success 201 {object} dto.MessageResponse
// @Failure 400 {object} apperrors.AppError
// @Router /messages [post]
func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	msg, err := h.chatService.SendMessage(c.Request.Context(), h.GetDB(c), userID, &req)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UploadAttachment godoc
// @Summary Отправить файл
// @Tags messages
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Вложение"
// @Param receiverId formData string true "Получатель"
// @Param receiverModel formData string true "admin или employee"
// @Param content formData string false "Подпись"
// @Success 201 {object} dto.MessageResponse
// @Failure 413 {object} apperrors.AppError
// @Router /messages/upload [post]
func (h *ChatHandler) UploadAttachment(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if !h.limitBody(c) {
		return
	}
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			apperrors.HandleError(c, apperrors.ErrFileTooLarge(max(c.Request.ContentLength, tooLarge.Limit), h.maxUploadSize))
			return
		}
		apperrors.HandleError(c, apperrors.NewBadRequestError("failed to parse form: "+err.Error()))
		return
	}

	var req dto.SendMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	file, closeFile, err := h.formFile(c, "file")
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	defer closeFile()

	msg, err := h.chatService.UploadAttachment(c.Request.Context(), h.GetDB(c), userID, &req, file)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusCreated, msg)
}

// UpdateProfilePhoto godoc
// @Summary Фото профиля
// @Description Файл-изображение или внешний gifUrl
// @Tags messages
// @Security BearerAuth
// @Accept multipart/form-data
// @Produce json
// @Param file formData file false "Изображение"
// @Param gifUrl formData string false "Ссылка на GIF"
// @Success 200 {object} dto.UserResponse
// @Router /messages/profile-photo [post]
func (h *ChatHandler) UpdateProfilePhoto(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if !h.limitBody(c) {
		return
	}

	var req dto.ProfilePhotoRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	var file *dto.UploadedFile
	if c.ContentType() == "multipart/form-data" {
		f, closeFile, err := h.formFile(c, "file")
		if err != nil && !errors.Is(err, apperrors.ErrFileRequired) {
			h.HandleServiceError(c, err)
			return
		}
		if err == nil {
			defer closeFile()
			file = f
		}
	}

	user, err := h.chatService.UpdateProfilePhoto(c.Request.Context(), h.GetDB(c), userID, file, req.GifURL)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, user)
}

// EditMessage godoc
// @Summary Редактировать сообщение
// @Description Только отправитель, только text, в течение 15 минут
// @Tags messages
// @Security BearerAuth
// @Accept json
// @Produce json
// @Param id path string true "ID сообщения"
// @Param body body dto.EditMessageRequest true "Новый текст"
// @Success 200 {object} dto.MessageResponse
// @Failure 403 {object} apperrors.AppError
// @Router /messages/{id} [put]
func (h *ChatHandler) EditMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	var req dto.EditMessageRequest
	if !h.BindAndValidate_JSON(c, &req) {
		return
	}

	msg, err := h.chatService.EditMessage(c.Request.Context(), h.GetDB(c), userID, c.Param("id"), req.Content)
	if err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.JSON(http.StatusOK, msg)
}

// DeleteMessage godoc
// @Summary Удалить сообщение
// @Tags messages
// @Security BearerAuth
// @Param id path string true "ID сообщения"
// @Success 204
// @Failure 403 {object} apperrors.AppError
// @Router /messages/{id} [delete]
func (h *ChatHandler) DeleteMessage(c *gin.Context) {
	userID, ok := h.GetAndAuthorizeUserID(c)
	if !ok {
		return
	}

	if err := h.chatService.DeleteMessage(c.Request.Context(), h.GetDB(c), userID, c.Param("id")); err != nil {
		h.HandleServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// limitBody режет тело до лимита файла плюс запас, чтобы форма не
// ушла во временные файлы целиком до проверки размера в сервисе.
// Точный лимит по-прежнему проверяет сервис.
func (h *ChatHandler) limitBody(c *gin.Context) bool {
	if h.maxUploadSize <= 0 {
		return true
	}
	limit := h.maxUploadSize + multipartSlack
	if c.Request.ContentLength > limit {
		apperrors.HandleError(c, apperrors.ErrFileTooLarge(c.Request.ContentLength, h.maxUploadSize))
		return false
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, limit)
	return true
}

// formFile открывает часть формы; closeFile нужно вызвать после сервиса
func (h *ChatHandler) formFile(c *gin.Context, field string) (*dto.UploadedFile, func(), error) {
	header, err := c.FormFile(field)
	if err != nil {
		return nil, nil, apperrors.ErrFileRequired
	}
	f, err := header.Open()
	if err != nil {
		return nil, nil, apperrors.InternalError(err)
	}
	return &dto.UploadedFile{
		Name:        header.Filename,
		Size:        header.Size,
		ContentType: header.Header.Get("Content-Type"),
		Reader:      f,
	}, func() { _ = f.Close() }, nil
}
