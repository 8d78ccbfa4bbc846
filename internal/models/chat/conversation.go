package chat

import (
	"strings"
	"time"
)

// Conversation - диалог двух участников. ID каноничен: "{min}_{max}".
type Conversation struct {
	ID                 string     `gorm:"type:varchar(80);primaryKey" json:"id"`
	ParticipantA       string     `gorm:"type:varchar(36);not null;index" json:"participantA"`
	ParticipantB       string     `gorm:"type:varchar(36);not null;index" json:"participantB"`
	LastMessageID      *string    `gorm:"type:varchar(36)" json:"lastMessageId,omitempty"`
	LastMessagePreview string     `gorm:"size:255" json:"lastMessagePreview"`
	LastMessageAt      *time.Time `gorm:"index" json:"lastMessageAt,omitempty"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updatedAt"`

	Members []ConversationMember `gorm:"foreignKey:ConversationID" json:"-"`
}

// ConversationID возвращает канонический id для неупорядоченной пары
func ConversationID(a, b string) string {
	if a > b {
		a, b = b, a
	}
	return a + "_" + b
}

// Participants разбирает канонический id обратно на пару
func Participants(conversationID string) (string, string, bool) {
	a, b, ok := strings.Cut(conversationID, "_")
	if !ok || a == "" || b == "" || strings.Contains(b, "_") {
		return "", "", false
	}
	return a, b, true
}

// Other возвращает собеседника userID
func (c *Conversation) Other(userID string) string {
	if c.ParticipantA == userID {
		return c.ParticipantB
	}
	return c.ParticipantA
}

func (c *Conversation) HasParticipant(userID string) bool {
	return c.ParticipantA == userID || c.ParticipantB == userID
}
