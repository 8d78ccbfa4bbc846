package services_test

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"workforce_backend/internal/models"
	"workforce_backend/internal/models/chat"
	"workforce_backend/internal/services/dto"
	"workforce_backend/internal/testutil"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var pngHeader = []byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR\x00\x00\x00\x01\x00\x00\x00\x01\x08\x06\x00\x00\x00\x1f\x15\xc4\x89")

func textTo(receiver *models.User, content string) *dto.SendMessageRequest {
	return &dto.SendMessageRequest{
		ReceiverID:    receiver.ID,
		ReceiverModel: receiver.Model,
		Content:       content,
		MessageType:   chat.MessageTypeText,
	}
}

// TestChat_SendDeliversToBothSidesAndCountsUnread - "золотой путь" отправки
func TestChat_SendDeliversToBothSidesAndCountsUnread(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Alice", "alice@example.com", models.UserRoleEmployee)

	msg, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, "  Hello Alice  "))
	require.NoError(t, err)
	assert.Equal(t, "Hello Alice", msg.Content)
	assert.Equal(t, chat.ConversationID(admin.ID, emp.ID), msg.ConversationID)
	assert.Equal(t, models.UserModelEmployee, msg.ReceiverModel)

	// Событие получили обе стороны, у получателя seq из журнала
	toReceiver := env.gw.For(emp.ID, realtime.EventNewMessage)
	require.Len(t, toReceiver, 1)
	assert.Equal(t, uint64(1), toReceiver[0].Seq)
	assert.Contains(t, string(toReceiver[0].Data), msg.ID)
	require.Len(t, env.gw.For(admin.ID, realtime.EventNewMessage), 1)

	// Запись во входящих только у получателя
	assert.Equal(t, 1, env.svc.NotificationService.GetUnreadCount(ctx, emp.ID))
	assert.Equal(t, 0, env.svc.NotificationService.GetUnreadCount(ctx, admin.ID))

	convs, err := env.svc.ChatService.GetConversations(ctx, env.db, emp.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, admin.ID, convs[0].Participant.ID)
	assert.Equal(t, "Admin", convs[0].Participant.Name)
	assert.Equal(t, "Hello Alice", convs[0].LastMessagePreview)
	assert.False(t, convs[0].IsRead)
	assert.Equal(t, 1, convs[0].UnreadCount)

	// История отмечает диалог прочитанным
	hist, err := env.svc.ChatService.GetHistory(ctx, env.db, emp.ID, admin.ID, dto.HistoryQuery{})
	require.NoError(t, err)
	require.Len(t, hist.Messages, 1)

	convs, err = env.svc.ChatService.GetConversations(ctx, env.db, emp.ID)
	require.NoError(t, err)
	assert.True(t, convs[0].IsRead)
	assert.Equal(t, 0, convs[0].UnreadCount)
}

func TestChat_SendValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Bob", "bob@example.com", models.UserRoleEmployee)

	_, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, "   "))
	assert.ErrorIs(t, err, apperrors.ErrEmptyMessage)

	_, err = env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(admin, "me"))
	assert.ErrorIs(t, err, apperrors.ErrCannotMessageSelf)

	wrongModel := textTo(emp, "hi")
	wrongModel.ReceiverModel = models.UserModelAdmin
	_, err = env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, wrongModel)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReceiver)

	unknown := textTo(emp, "hi")
	unknown.ReceiverID = "missing"
	_, err = env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, unknown)
	assert.ErrorIs(t, err, apperrors.ErrInvalidReceiver)

	image := textTo(emp, "")
	image.MessageType = chat.MessageTypeImage
	_, err = env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, image)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeInvalidOperation, appErr.Code)

	gif := textTo(emp, "")
	gif.MessageType = chat.MessageTypeGIF
	_, err = env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, gif)
	appErr, ok = apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)

	gif.GifURL = "https://media.example.com/cat.gif"
	resp, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, gif)
	require.NoError(t, err)
	require.NotNil(t, resp.Attachment)
	assert.Equal(t, gif.GifURL, resp.Attachment.URL)
}

// TestChat_EditWindow - править можно 15 минут, только свой текст
func TestChat_EditWindow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Carol", "carol@example.com", models.UserRoleEmployee)

	sent, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, "first draft"))
	require.NoError(t, err)

	_, err = env.svc.ChatService.EditMessage(ctx, env.db, emp.ID, sent.ID, "hijack")
	assert.ErrorIs(t, err, apperrors.ErrNotMessageSender)

	env.clock.Advance(14 * time.Minute)
	edited, err := env.svc.ChatService.EditMessage(ctx, env.db, admin.ID, sent.ID, "final text")
	require.NoError(t, err)
	assert.True(t, edited.IsEdited)
	require.NotNil(t, edited.EditedAt)
	assert.Equal(t, "final text", edited.Content)

	// обе стороны получили message_edited, во входящие ничего не добавилось
	assert.Len(t, env.gw.For(emp.ID, realtime.EventMessageEdited), 1)
	assert.Len(t, env.gw.For(admin.ID, realtime.EventMessageEdited), 1)
	assert.Equal(t, 1, env.svc.NotificationService.GetUnreadCount(ctx, emp.ID))

	convs, err := env.svc.ChatService.GetConversations(ctx, env.db, admin.ID)
	require.NoError(t, err)
	assert.Equal(t, "final text", convs[0].LastMessagePreview)

	env.clock.Advance(2 * time.Minute)
	_, err = env.svc.ChatService.EditMessage(ctx, env.db, admin.ID, sent.ID, "too late")
	assert.ErrorIs(t, err, apperrors.ErrEditWindowExpired)

	_, err = env.svc.ChatService.EditMessage(ctx, env.db, admin.ID, "missing", "x")
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

// TestChat_DeleteRecomputesPreview - удаление последнего сообщения возвращает превью предыдущего
func TestChat_DeleteRecomputesPreview(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Dave", "dave@example.com", models.UserRoleEmployee)

	first, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, "first"))
	require.NoError(t, err)
	env.clock.Advance(time.Second)
	second, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, "second"))
	require.NoError(t, err)

	err = env.svc.ChatService.DeleteMessage(ctx, env.db, emp.ID, second.ID)
	assert.ErrorIs(t, err, apperrors.ErrNotMessageSender)

	require.NoError(t, env.svc.ChatService.DeleteMessage(ctx, env.db, admin.ID, second.ID))

	deleted := env.gw.For(emp.ID, realtime.EventMessageDeleted)
	require.Len(t, deleted, 1)
	var payload dto.MessageDeletedPayload
	require.NoError(t, json.Unmarshal(deleted[0].Data, &payload))
	assert.Equal(t, second.ID, payload.MessageID)
	assert.Equal(t, second.ConversationID, payload.ConversationID)

	convs, err := env.svc.ChatService.GetConversations(ctx, env.db, admin.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Equal(t, "first", convs[0].LastMessagePreview)

	require.NoError(t, env.svc.ChatService.DeleteMessage(ctx, env.db, admin.ID, first.ID))
	convs, err = env.svc.ChatService.GetConversations(ctx, env.db, admin.ID)
	require.NoError(t, err)
	require.Len(t, convs, 1)
	assert.Empty(t, convs[0].LastMessagePreview)
	assert.Nil(t, convs[0].LastMessageAt)

	err = env.svc.ChatService.DeleteMessage(ctx, env.db, admin.ID, first.ID)
	assert.ErrorIs(t, err, apperrors.ErrMessageNotFound)
}

func TestChat_UploadAttachment(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Erin", "erin@example.com", models.UserRoleEmployee)

	req := &dto.SendMessageRequest{ReceiverID: emp.ID, ReceiverModel: emp.Model}
	file := &dto.UploadedFile{
		Name:        "Photo.PNG",
		Size:        int64(len(pngHeader)),
		ContentType: "application/octet-stream",
		Reader:      bytes.NewReader(pngHeader),
	}

	resp, err := env.svc.ChatService.UploadAttachment(ctx, env.db, admin.ID, req, file)
	require.NoError(t, err)
	assert.Equal(t, chat.MessageTypeImage, resp.MessageType)
	require.NotNil(t, resp.Attachment)
	assert.Equal(t, "image/png", resp.Attachment.MimeType)
	assert.Equal(t, "Photo.PNG", resp.Attachment.FileName)
	assert.True(t, strings.HasSuffix(resp.Attachment.URL, ".png"))

	key := strings.TrimPrefix(resp.Attachment.URL, "/uploads/")
	stored, err := os.ReadFile(filepath.Join(env.storage.BasePath(), key))
	require.NoError(t, err)
	assert.Equal(t, pngHeader, stored)

	// после удаления сообщения файла нет
	require.NoError(t, env.svc.ChatService.DeleteMessage(ctx, env.db, admin.ID, resp.ID))
	_, err = os.Stat(filepath.Join(env.storage.BasePath(), key))
	assert.True(t, os.IsNotExist(err))
}

func TestChat_UploadRejectsLargeFileAndBadReceiver(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Frank", "frank@example.com", models.UserRoleEmployee)

	big := bytes.Repeat([]byte("a"), 2048)
	_, err := env.svc.ChatService.UploadAttachment(ctx, env.db, admin.ID,
		&dto.SendMessageRequest{ReceiverID: emp.ID, ReceiverModel: emp.Model},
		&dto.UploadedFile{Name: "big.txt", Size: int64(len(big)), Reader: bytes.NewReader(big)})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeFileTooLarge, appErr.Code)
	assert.Equal(t, "file exceeds 1.0 kB limit", appErr.Message)

	_, err = env.svc.ChatService.UploadAttachment(ctx, env.db, admin.ID,
		&dto.SendMessageRequest{ReceiverID: emp.ID, ReceiverModel: models.UserModelAdmin},
		&dto.UploadedFile{Name: "a.png", Size: int64(len(pngHeader)), Reader: bytes.NewReader(pngHeader)})
	assert.ErrorIs(t, err, apperrors.ErrInvalidReceiver)

	_, err = env.svc.ChatService.UploadAttachment(ctx, env.db, admin.ID,
		&dto.SendMessageRequest{ReceiverID: emp.ID, ReceiverModel: emp.Model}, nil)
	assert.ErrorIs(t, err, apperrors.ErrFileRequired)
}

func TestChat_HistorySinceAndEmptyConversation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	admin := testutil.CreateUser(t, env.db, "Admin", "admin@example.com", models.UserRoleAdmin)
	emp := testutil.CreateUser(t, env.db, "Gina", "gina@example.com", models.UserRoleEmployee)

	hist, err := env.svc.ChatService.GetHistory(ctx, env.db, admin.ID, emp.ID, dto.HistoryQuery{})
	require.NoError(t, err)
	assert.Empty(t, hist.Messages)
	assert.Equal(t, chat.ConversationID(admin.ID, emp.ID), hist.ConversationID)

	for i, text := range []string{"one", "two", "three"} {
		_, err := env.svc.ChatService.SendMessage(ctx, env.db, admin.ID, textTo(emp, text))
		require.NoError(t, err, "message %d", i)
		env.clock.Advance(time.Minute)
	}

	since := time.Date(2026, 3, 2, 9, 0, 30, 0, time.UTC).Format(time.RFC3339)
	hist, err = env.svc.ChatService.GetHistory(ctx, env.db, emp.ID, admin.ID, dto.HistoryQuery{Since: since})
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "two", hist.Messages[0].Content)
	assert.Equal(t, "three", hist.Messages[1].Content)

	hist, err = env.svc.ChatService.GetHistory(ctx, env.db, emp.ID, admin.ID, dto.HistoryQuery{Limit: 2})
	require.NoError(t, err)
	require.Len(t, hist.Messages, 2)
	assert.Equal(t, "two", hist.Messages[0].Content)

	_, err = env.svc.ChatService.GetHistory(ctx, env.db, emp.ID, admin.ID, dto.HistoryQuery{Since: "yesterday"})
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok)
	assert.Equal(t, apperrors.CodeValidationFailed, appErr.Code)
}

func TestChat_CanJoin(t *testing.T) {
	env := newTestEnv(t)

	conv := chat.ConversationID("u1", "u2")
	assert.NoError(t, env.svc.ChatService.CanJoin("u1", conv))
	assert.NoError(t, env.svc.ChatService.CanJoin("u2", conv))
	assert.ErrorIs(t, env.svc.ChatService.CanJoin("u3", conv), apperrors.ErrNotConversationMember)
	assert.Error(t, env.svc.ChatService.CanJoin("u1", "u2_u1"))
	assert.Error(t, env.svc.ChatService.CanJoin("u1", "garbage"))
}

func TestChat_UpdateProfilePhoto(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	emp := testutil.CreateUser(t, env.db, "Hank", "hank@example.com", models.UserRoleEmployee)

	user, err := env.svc.ChatService.UpdateProfilePhoto(ctx, env.db, emp.ID,
		&dto.UploadedFile{Name: "me.png", Size: int64(len(pngHeader)), Reader: bytes.NewReader(pngHeader)}, "")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(user.ProfilePhoto, "/uploads/"))

	user, err = env.svc.ChatService.UpdateProfilePhoto(ctx, env.db, emp.ID, nil, "https://media.example.com/wave.gif")
	require.NoError(t, err)
	assert.Equal(t, "https://media.example.com/wave.gif", user.ProfilePhoto)

	_, err = env.svc.ChatService.UpdateProfilePhoto(ctx, env.db, emp.ID,
		&dto.UploadedFile{Name: "doc.pdf", Size: 9, Reader: bytes.NewReader([]byte("%PDF-1.4\n"))}, "")
	assert.ErrorIs(t, err, apperrors.ErrInvalidFileType)

	_, err = env.svc.ChatService.UpdateProfilePhoto(ctx, env.db, emp.ID, nil, "")
	assert.ErrorIs(t, err, apperrors.ErrFileRequired)
}
