package client

import (
	"encoding/json"
	"time"
)

type User struct {
	ID           string   `json:"id"`
	Name         string   `json:"name"`
	Email        string   `json:"email"`
	Role         string   `json:"role"`
	Model        string   `json:"model"`
	ProfilePhoto string   `json:"profilePhoto,omitempty"`
	Theme        string   `json:"theme"`
	Capabilities []string `json:"capabilities,omitempty"`
	IsOnline     bool     `json:"isOnline"`
}

type AuthResponse struct {
	Token     string    `json:"token"`
	ExpiresAt time.Time `json:"expiresAt"`
	User      *User     `json:"user"`
}

type Attachment struct {
	URL      string `json:"url"`
	FileName string `json:"fileName,omitempty"`
	Size     int64  `json:"size,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// Message - и ответ REST, и data события new_message / message_edited
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"conversationId"`
	SenderID       string      `json:"senderId"`
	ReceiverID     string      `json:"receiverId"`
	ReceiverModel  string      `json:"receiverModel"`
	Content        string      `json:"content"`
	MessageType    string      `json:"messageType"`
	Attachment     *Attachment `json:"attachment,omitempty"`
	IsEdited       bool        `json:"isEdited"`
	EditedAt       *time.Time  `json:"editedAt,omitempty"`
	CreatedAt      time.Time   `json:"createdAt"`
}

type SendMessageRequest struct {
	ReceiverID    string `json:"receiverId"`
	ReceiverModel string `json:"receiverModel"`
	Content       string `json:"content,omitempty"`
	MessageType   string `json:"messageType,omitempty"`
	GifURL        string `json:"gifUrl,omitempty"`
}

type Participant struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Model        string `json:"model"`
	Role         string `json:"role"`
	ProfilePhoto string `json:"profilePhoto,omitempty"`
	IsOnline     bool   `json:"isOnline"`
}

type Conversation struct {
	ID                 string       `json:"id"`
	Participant        *Participant `json:"participant"`
	LastMessagePreview string       `json:"lastMessagePreview"`
	LastMessageAt      *time.Time   `json:"lastMessageAt,omitempty"`
	IsRead             bool         `json:"isRead"`
	UnreadCount        int          `json:"unreadCount"`
}

type History struct {
	ConversationID string     `json:"conversationId"`
	Messages       []*Message `json:"messages"`
}

type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Priority  string          `json:"priority"`
	Read      bool            `json:"read"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	SourceID  string          `json:"sourceId,omitempty"`
}

type NotificationList struct {
	Notifications []Notification `json:"notifications"`
	UnreadCount   int            `json:"unreadCount"`
}

type Announcement struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Message    string    `json:"message"`
	Priority   string    `json:"priority"`
	AuthorID   string    `json:"authorId"`
	AuthorName string    `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

type Event struct {
	Seq       uint64          `json:"seq"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type Events struct {
	Events  []Event `json:"events"`
	LastSeq uint64  `json:"lastSeq"`
}
