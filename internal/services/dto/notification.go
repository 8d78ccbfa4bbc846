package dto

import (
	"encoding/json"

	"workforce_backend/internal/models"
	"workforce_backend/internal/notifications"
)

type NotificationListResponse struct {
	Notifications []notifications.Notification `json:"notifications"`
	UnreadCount   int                          `json:"unreadCount"`
}

type UnreadCountResponse struct {
	UnreadCount int `json:"unreadCount"`
}

type CreateAnnouncementRequest struct {
	Title    string          `json:"title" validate:"required,min=1,max=200"`
	Message  string          `json:"message" validate:"required,min=1,max=5000"`
	Priority models.Priority `json:"priority" validate:"omitempty,is-priority"`
}

type AnnouncementListQuery struct {
	Limit int `form:"limit" validate:"omitempty,min=1,max=100"`
}

// PublishEventRequest - HR-событие от внешних модулей (посещаемость, зарплата, отпуска)
type PublishEventRequest struct {
	Event    string          `json:"event" validate:"required,oneof=attendance_update salary_update leave_update employee_joined notification"`
	UserIDs  []string        `json:"userIds" validate:"required_without=All,omitempty,dive,required"`
	All      bool            `json:"all"`
	Title    string          `json:"title" validate:"max=200"`
	Message  string          `json:"message" validate:"max=5000"`
	Priority models.Priority `json:"priority" validate:"omitempty,is-priority"`
	Data     json.RawMessage `json:"data"`
}

type PublishEventResponse struct {
	Event      string `json:"event"`
	Recipients int    `json:"recipients"`
	Delivered  int    `json:"delivered"`
}

type EventsQuery struct {
	Since uint64 `form:"since"`
	Limit int    `form:"limit" validate:"omitempty,min=1,max=500"`
}

type EventResponse struct {
	Seq       uint64          `json:"seq"`
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Timestamp string          `json:"timestamp"`
}

type EventsResponse struct {
	Events  []EventResponse `json:"events"`
	LastSeq uint64          `json:"lastSeq"`
}

type OnlineUsersResponse struct {
	UserIDs []string `json:"userIds"`
}
