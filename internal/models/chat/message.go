package chat

import (
	"time"

	"workforce_backend/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type MessageType string

const (
	MessageTypeText  MessageType = "text"
	MessageTypeImage MessageType = "image"
	MessageTypeFile  MessageType = "file"
	MessageTypeGIF   MessageType = "gif"
	MessageTypeAudio MessageType = "audio"
)

func (t MessageType) IsValid() bool {
	switch t {
	case MessageTypeText, MessageTypeImage, MessageTypeFile, MessageTypeGIF, MessageTypeAudio:
		return true
	}
	return false
}

// EditWindow - сколько после отправки текстовое сообщение можно редактировать
const EditWindow = 15 * time.Minute

type Message struct {
	ID             string           `gorm:"type:varchar(36);primaryKey" json:"id"`
	ConversationID string           `gorm:"type:varchar(80);not null;index:idx_messages_conversation_created,priority:1" json:"conversationId"`
	SenderID       string           `gorm:"type:varchar(36);not null;index" json:"senderId"`
	ReceiverID     string           `gorm:"type:varchar(36);not null;index" json:"receiverId"`
	ReceiverModel  models.UserModel `gorm:"type:varchar(20);not null" json:"receiverModel"`
	Content        string           `gorm:"type:text" json:"content"`
	MessageType    MessageType      `gorm:"type:varchar(10);not null;default:'text'" json:"messageType"`
	AttachmentURL  *string          `json:"-"`
	AttachmentName *string          `json:"-"`
	AttachmentSize *int64           `json:"-"`
	AttachmentMime *string          `json:"-"`
	AttachmentPath *string          `json:"-"`
	IsEdited       bool             `gorm:"not null;default:false" json:"isEdited"`
	EditedAt       *time.Time       `json:"editedAt,omitempty"`
	CreatedAt      time.Time        `gorm:"not null;index:idx_messages_conversation_created,priority:2" json:"createdAt"`
}

func (m *Message) BeforeCreate(tx *gorm.DB) error {
	if m.ID == "" {
		m.ID = uuid.NewString()
	}
	return nil
}

// HasAttachment - есть ли у сообщения файл или gif
func (m *Message) HasAttachment() bool {
	return m.AttachmentURL != nil && *m.AttachmentURL != ""
}

// CanEdit проверяет правило редактирования: отправитель, тип text, моложе 15 минут
func (m *Message) CanEdit(userID string, now time.Time) error {
	if m.SenderID != userID {
		return ErrNotSender
	}
	if m.MessageType != MessageTypeText {
		return ErrNotText
	}
	if now.Sub(m.CreatedAt) >= EditWindow {
		return ErrEditWindowExpired
	}
	return nil
}

// Preview - короткий текст для списка диалогов
func (m *Message) Preview() string {
	if m.MessageType != MessageTypeText && m.Content == "" {
		return "[" + string(m.MessageType) + "]"
	}
	r := []rune(m.Content)
	if len(r) > 100 {
		return string(r[:100])
	}
	return m.Content
}
