package logger

import (
	"context"
	"log/slog"
)

type contextKey string

const (
	requestIDKey      contextKey = "request_id"
	userIDKey         contextKey = "user_id"
	connIDKey         contextKey = "conn_id"
	conversationIDKey contextKey = "conversation_id"
)

// порядок полей в записи
var contextFields = []contextKey{requestIDKey, userIDKey, connIDKey, conversationIDKey}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userIDKey, userID)
}

// WithConnID - id websocket-соединения (одна вкладка пользователя)
func WithConnID(ctx context.Context, connID string) context.Context {
	return context.WithValue(ctx, connIDKey, connID)
}

// WithConversationID помечает записи диалогом, который обрабатывается
func WithConversationID(ctx context.Context, conversationID string) context.Context {
	return context.WithValue(ctx, conversationIDKey, conversationID)
}

func GetRequestID(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

func GetUserID(ctx context.Context) string {
	return stringValue(ctx, userIDKey)
}

func stringValue(ctx context.Context, key contextKey) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(key).(string)
	return v
}

// Attrs - непустые поля контекста в виде пар ключ/значение
func Attrs(ctx context.Context) []any {
	var fields []any
	for _, key := range contextFields {
		if v := stringValue(ctx, key); v != "" {
			fields = append(fields, string(key), v)
		}
	}
	return fields
}

// FromContext - логгер с полями запроса или соединения
func FromContext(ctx context.Context) *slog.Logger {
	l := GetLogger()
	if fields := Attrs(ctx); len(fields) > 0 {
		l = l.With(fields...)
	}
	return l
}

func CtxDebug(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Debug(msg, args...)
}

func CtxInfo(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Info(msg, args...)
}

func CtxWarn(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Warn(msg, args...)
}

func CtxError(ctx context.Context, msg string, args ...any) {
	FromContext(ctx).Error(msg, args...)
}

// CtxWithError - error-запись с полем error; nil err пишется как есть
func CtxWithError(ctx context.Context, msg string, err error, args ...any) {
	fields := make([]any, 0, len(args)+2)
	if err != nil {
		fields = append(fields, "error", err.Error())
	}
	fields = append(fields, args...)
	FromContext(ctx).Error(msg, fields...)
}
