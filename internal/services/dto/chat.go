package dto

import (
	"io"
	"time"

	"workforce_backend/internal/models"
	"workforce_backend/internal/models/chat"
)

type SendMessageRequest struct {
	ReceiverID    string           `json:"receiverId" form:"receiverId" validate:"required"`
	ReceiverModel models.UserModel `json:"receiverModel" form:"receiverModel" validate:"required,is-receiver-model"`
	Content       string           `json:"content" form:"content" validate:"max=5000"`
	MessageType   chat.MessageType `json:"messageType" form:"messageType" validate:"omitempty,is-message-type"`
	GifURL        string           `json:"gifUrl" form:"gifUrl" validate:"omitempty,url"`
}

// UploadedFile - файл из multipart, уже открытый хэндлером.
// ContentType из заголовка части; сервис перепроверяет его по содержимому.
type UploadedFile struct {
	Name        string
	Size        int64
	ContentType string
	Reader      io.ReadSeeker
}

type EditMessageRequest struct {
	Content string `json:"content" validate:"required,max=5000"`
}

type HistoryQuery struct {
	Since string `form:"since"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=200"`
}

type ProfilePhotoRequest struct {
	GifURL string `json:"gifUrl" form:"gifUrl" validate:"omitempty,url"`
}

type AttachmentResponse struct {
	URL      string `json:"url"`
	FileName string `json:"fileName,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

type MessageResponse struct {
	ID             string              `json:"id"`
	ConversationID string              `json:"conversationId"`
	SenderID       string              `json:"senderId"`
	ReceiverID     string              `json:"receiverId"`
	ReceiverModel  models.UserModel    `json:"receiverModel"`
	Content        string              `json:"content"`
	MessageType    chat.MessageType    `json:"messageType"`
	Attachment     *AttachmentResponse `json:"attachment,omitempty"`
	IsEdited       bool                `json:"isEdited"`
	EditedAt       *time.Time          `json:"editedAt,omitempty"`
	CreatedAt      time.Time           `json:"createdAt"`
}

type ParticipantResponse struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Model        models.UserModel `json:"model"`
	Role         models.UserRole  `json:"role"`
	ProfilePhoto string           `json:"profilePhoto,omitempty"`
	IsOnline     bool             `json:"isOnline"`
}

type ConversationResponse struct {
	ID                 string               `json:"id"`
	Participant        *ParticipantResponse `json:"participant"`
	LastMessagePreview string               `json:"lastMessagePreview"`
	LastMessageAt      *time.Time           `json:"lastMessageAt,omitempty"`
	IsRead             bool                 `json:"isRead"`
	UnreadCount        int                  `json:"unreadCount"`
}

type HistoryResponse struct {
	ConversationID string             `json:"conversationId"`
	Messages       []*MessageResponse `json:"messages"`
}

// MessageDeletedPayload - данные события message_deleted
type MessageDeletedPayload struct {
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
}

// NewMessageResponse собирает ответ; вложение отдается отдельным объектом
func NewMessageResponse(m *chat.Message) *MessageResponse {
	resp := &MessageResponse{
		ID:             m.ID,
		ConversationID: m.ConversationID,
		SenderID:       m.SenderID,
		ReceiverID:     m.ReceiverID,
		ReceiverModel:  m.ReceiverModel,
		Content:        m.Content,
		MessageType:    m.MessageType,
		IsEdited:       m.IsEdited,
		EditedAt:       m.EditedAt,
		CreatedAt:      m.CreatedAt,
	}
	if m.HasAttachment() {
		att := &AttachmentResponse{URL: *m.AttachmentURL}
		if m.AttachmentName != nil {
			att.FileName = *m.AttachmentName
		}
		if m.AttachmentSize != nil {
			att.Size = *m.AttachmentSize
		}
		if m.AttachmentMime != nil {
			att.MimeType = *m.AttachmentMime
		}
		resp.Attachment = att
	}
	return resp
}
