package apperrors

import (
	"fmt"
	"net/http"

	"github.com/dustin/go-humanize"
)

/*
Этот файл содержит фабрики и предопределенные переменные
для общих ошибок бизнес-логики и домена.
*/

// =========================================================================
// Фабричные ФУНКЦИИ
// =========================================================================

// ErrNotFound - фабрика для ошибки "не найдено" (404).
// Используется, когда ошибка репозитория (типа gorm.ErrRecordNotFound)
// должна быть преобразована в AppError.
func ErrNotFound(err error) *AppError {
	return Wrap(err, CodeNotFound, "resource", "Resource not found", http.StatusNotFound)
}

// ErrAlreadyExists - фабрика для ошибки "уже существует" (409)
func ErrAlreadyExists(err error) *AppError {
	return Wrap(err, CodeAlreadyExists, "resource", "Resource already exists", http.StatusConflict)
}

// ErrInvalidOperation - фабрика для невалидных операций (400)
func ErrInvalidOperation(domain, message string) *AppError {
	return New(CodeInvalidOperation, domain, message, http.StatusBadRequest)
}

// ErrFileTooLarge - файл превышает лимит (413). Размеры в человекочитаемом виде.
func ErrFileTooLarge(size, limit int64) *AppError {
	return New(
		CodeFileTooLarge,
		"upload",
		fmt.Sprintf("file exceeds %s limit", humanize.Bytes(uint64(limit))),
		http.StatusRequestEntityTooLarge,
	).WithDetails(map[string]any{
		"size":  humanize.Bytes(uint64(size)),
		"limit": humanize.Bytes(uint64(limit)),
	})
}

// =========================================================================
// Предопределенные ПЕРЕМЕННЫЕ
// =========================================================================

// --- Auth ---

var ErrInvalidCredentials = New(
	CodeInvalidCredentials,
	"auth",
	"Invalid email or password",
	http.StatusUnauthorized,
)

var ErrInvalidToken = New(
	CodeInvalidToken,
	"auth",
	"Invalid or expired token",
	http.StatusUnauthorized,
)

var ErrInsufficientPermissions = New(
	CodeForbidden,
	"auth",
	"Insufficient permissions",
	http.StatusForbidden,
)

var ErrEmailAlreadyExists = New(
	CodeAlreadyExists,
	"user",
	"User with this email already exists",
	http.StatusConflict,
)

// --- Messages ---

// ErrMessageNotFound - сообщение не найдено или уже удалено.
var ErrMessageNotFound = New(
	CodeNotFound,
	"message",
	"Message not found",
	http.StatusNotFound,
)

// ErrNotMessageSender - редактировать и удалять может только отправитель.
var ErrNotMessageSender = New(
	CodeForbidden,
	"message",
	"Only the sender can modify this message",
	http.StatusForbidden,
)

// ErrEditWindowExpired - прошло 15 минут с момента отправки.
var ErrEditWindowExpired = New(
	CodeEditWindowExpired,
	"message",
	"Messages can only be edited within 15 minutes of sending",
	http.StatusForbidden,
)

// ErrMessageNotEditable - редактируются только текстовые сообщения.
var ErrMessageNotEditable = New(
	CodeNotEditable,
	"message",
	"Only text messages can be edited",
	http.StatusBadRequest,
)

var ErrEmptyMessage = New(
	CodeValidationFailed,
	"message",
	"Message content is required unless an attachment is present",
	http.StatusBadRequest,
)

var ErrInvalidMessageType = New(
	CodeValidationFailed,
	"message",
	"Invalid message type",
	http.StatusBadRequest,
)

// --- Conversations ---

var ErrInvalidReceiver = New(
	CodeValidationFailed,
	"conversation",
	"Receiver does not exist or receiver model does not match",
	http.StatusBadRequest,
)

var ErrCannotMessageSelf = New(
	CodeInvalidOperation,
	"conversation",
	"Cannot start a conversation with yourself",
	http.StatusBadRequest,
)

var ErrNotConversationMember = New(
	CodeForbidden,
	"conversation",
	"You are not a participant of this conversation",
	http.StatusForbidden,
)

// --- Uploads ---

var ErrInvalidFileType = New(
	CodeValidationFailed,
	"upload",
	"File type is not allowed",
	http.StatusUnsupportedMediaType,
)

var ErrFileRequired = New(
	CodeValidationFailed,
	"upload",
	"A file or gifUrl is required",
	http.StatusBadRequest,
)

// --- Notifications ---

var ErrNotificationNotFound = New(
	CodeNotFound,
	"notification",
	"Notification not found",
	http.StatusNotFound,
)

var ErrUnknownEvent = New(
	CodeValidationFailed,
	"event",
	"Unknown realtime event",
	http.StatusBadRequest,
)
