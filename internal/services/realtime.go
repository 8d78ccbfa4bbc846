package services

import (
	"time"
)

// RealtimeGateway - то, что сервисам нужно от websocket-хаба
type RealtimeGateway interface {
	// EmitToUser отправляет событие во все вкладки пользователя; seq=0 для эфемерных
	EmitToUser(userID, event string, payload any, seq uint64) int
	EmitToRoom(conversationID, event string, payload any, exceptUserID string) int
	Broadcast(event string, payload any) int
	OnlineUserIDs() []string
	IsOnline(userID string) bool
}

// Clock - источник времени, подменяется в тестах
type Clock func() time.Time

func SystemClock() time.Time {
	return time.Now().UTC()
}

// NopGateway - шлюз без соединений (CLI-команды, тесты без хаба)
type NopGateway struct{}

func (NopGateway) EmitToUser(string, string, any, uint64) int { return 0 }
func (NopGateway) EmitToRoom(string, string, any, string) int { return 0 }
func (NopGateway) Broadcast(string, any) int                  { return 0 }
func (NopGateway) OnlineUserIDs() []string                    { return nil }
func (NopGateway) IsOnline(string) bool                       { return false }
