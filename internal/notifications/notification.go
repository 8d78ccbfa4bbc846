package notifications

import (
	"encoding/json"
	"time"

	"workforce_backend/internal/models"
)

// Notification - запись во входящих пользователя
type Notification struct {
	ID        string          `json:"id"`
	Type      string          `json:"type"`
	Title     string          `json:"title"`
	Message   string          `json:"message"`
	Priority  models.Priority `json:"priority"`
	Read      bool            `json:"read"`
	Timestamp time.Time       `json:"timestamp"`
	Data      json.RawMessage `json:"data,omitempty"`
	// SourceID - id исходной сущности (объявления, сообщения); по нему дедупликация
	SourceID string `json:"sourceId,omitempty"`
}

func (n Notification) IsCritical() bool {
	return n.Priority == models.PriorityCritical
}
