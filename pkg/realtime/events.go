// Package realtime - протокол websocket-канала: конверт и имена событий.
// Используется и сервером (ws), и клиентским SDK (pkg/client).
package realtime

import (
	"encoding/json"
	"time"
)

// Входящие (клиент -> сервер)
const (
	EventUserOnline        = "user_online"
	EventJoinConversation  = "join_conversation"
	EventLeaveConversation = "leave_conversation"
	EventSendMessage       = "send_message"
	EventTyping            = "typing"
	EventStopTyping        = "stop_typing"
	EventResume            = "resume"
)

// Исходящие (сервер -> клиент)
const (
	EventOnlineUsers      = "online_users"
	EventUserTyping       = "user_typing"
	EventUserStopTyping   = "user_stop_typing"
	EventNewMessage       = "new_message"
	EventMessageEdited    = "message_edited"
	EventMessageDeleted   = "message_deleted"
	EventNewAnnouncement  = "new_announcement"
	EventAttendanceUpdate = "attendance_update"
	EventSalaryUpdate     = "salary_update"
	EventLeaveUpdate      = "leave_update"
	EventEmployeeJoined   = "employee_joined"
	EventNotification     = "notification"
	EventError            = "error"
	EventResumed          = "resumed"
)

// HREvents - события, которые внешние модули публикуют через /events/publish
var HREvents = []string{
	EventAttendanceUpdate,
	EventSalaryUpdate,
	EventLeaveUpdate,
	EventEmployeeJoined,
	EventNotification,
}

func IsHREvent(event string) bool {
	for _, e := range HREvents {
		if e == event {
			return true
		}
	}
	return false
}

// Envelope - кадр канала. Seq есть только у событий из журнала догоняющей доставки.
type Envelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data,omitempty"`
	Seq       uint64          `json:"seq,omitempty"`
	Timestamp time.Time       `json:"timestamp"`
}

// NewEnvelope сериализует data; nil дает пустые данные
func NewEnvelope(event string, data any, seq uint64, at time.Time) (Envelope, error) {
	env := Envelope{Event: event, Seq: seq, Timestamp: at.UTC()}
	if data == nil {
		return env, nil
	}
	if raw, ok := data.(json.RawMessage); ok {
		env.Data = raw
		return env, nil
	}
	raw, err := json.Marshal(data)
	if err != nil {
		return env, err
	}
	env.Data = raw
	return env, nil
}

// Decode разбирает data в v
func (e Envelope) Decode(v any) error {
	if len(e.Data) == 0 {
		return nil
	}
	return json.Unmarshal(e.Data, v)
}

// Полезная нагрузка входящих событий

type ConversationPayload struct {
	ConversationID string `json:"conversationId"`
}

type TypingPayload struct {
	ConversationID string `json:"conversationId"`
	ReceiverID     string `json:"receiverId,omitempty"`
	UserID         string `json:"userId,omitempty"`
}

type ResumePayload struct {
	LastSeq uint64 `json:"lastSeq"`
}

type SendMessagePayload struct {
	ReceiverID    string `json:"receiverId"`
	ReceiverModel string `json:"receiverModel"`
	Content       string `json:"content"`
	MessageType   string `json:"messageType"`
	GifURL        string `json:"gifUrl,omitempty"`
}

type OnlineUsersPayload struct {
	UserIDs []string `json:"userIds"`
}

type ErrorPayload struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ResumedPayload struct {
	Replayed int    `json:"replayed"`
	LastSeq  uint64 `json:"lastSeq"`
}
