package handlers

import "workforce_backend/ws"

// AppHandlers содержит все хэндлеры приложения.
type AppHandlers struct {
	AuthHandler         *AuthHandler
	ChatHandler         *ChatHandler
	NotificationHandler *NotificationHandler
	AnnouncementHandler *AnnouncementHandler
	EventHandler        *EventHandler
	PresenceHandler     *PresenceHandler
	WebSocketHandler    *ws.WebSocketHandler
}
