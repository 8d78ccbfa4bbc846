package models

import (
	"time"

	"gorm.io/datatypes"
)

// RealtimeEvent - запись журнала догоняющей доставки.
// seq монотонно растет в пределах пользователя.
type RealtimeEvent struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"-"`
	UserID    string         `gorm:"type:varchar(36);not null;uniqueIndex:idx_realtime_events_user_seq,priority:1" json:"-"`
	Seq       uint64         `gorm:"not null;uniqueIndex:idx_realtime_events_user_seq,priority:2" json:"seq"`
	Event     string         `gorm:"size:64;not null" json:"event"`
	Payload   datatypes.JSON `json:"data"`
	CreatedAt time.Time      `gorm:"autoCreateTime;index" json:"timestamp"`
}

// EventSequence хранит последний выданный seq пользователя,
// чтобы очистка журнала не сбрасывала счетчик
type EventSequence struct {
	UserID  string `gorm:"type:varchar(36);primaryKey"`
	LastSeq uint64 `gorm:"not null;default:0"`
}
