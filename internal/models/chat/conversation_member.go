package chat

import "time"

// ConversationMember - состояние прочтения диалога для одного участника
type ConversationMember struct {
	ConversationID string     `gorm:"type:varchar(80);primaryKey" json:"conversationId"`
	UserID         string     `gorm:"type:varchar(36);primaryKey;index" json:"userId"`
	IsRead         bool       `gorm:"not null;default:true" json:"isRead"`
	UnreadCount    int        `gorm:"not null;default:0" json:"unreadCount"`
	LastReadAt     *time.Time `json:"lastReadAt,omitempty"`
}
