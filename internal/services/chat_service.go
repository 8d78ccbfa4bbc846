package services

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/gabriel-vasile/mimetype"
	"gorm.io/gorm"

	"workforce_backend/internal/logger"
	"workforce_backend/internal/metrics"
	"workforce_backend/internal/models"
	"workforce_backend/internal/models/chat"
	"workforce_backend/internal/notifications"
	"workforce_backend/internal/repositories"
	"workforce_backend/internal/services/dto"
	"workforce_backend/internal/storage"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

type ChatService interface {
	SendMessage(ctx context.Context, db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error)
	UploadAttachment(ctx context.Context, db *gorm.DB, senderID string, req *dto.SendMessageRequest, file *dto.UploadedFile) (*dto.MessageResponse, error)
	EditMessage(ctx context.Context, db *gorm.DB, userID, messageID, content string) (*dto.MessageResponse, error)
	DeleteMessage(ctx context.Context, db *gorm.DB, userID, messageID string) error

	GetConversations(ctx context.Context, db *gorm.DB, userID string) ([]*dto.ConversationResponse, error)
	GetHistory(ctx context.Context, db *gorm.DB, userID, otherUserID string, query dto.HistoryQuery) (*dto.HistoryResponse, error)
	UpdateProfilePhoto(ctx context.Context, db *gorm.DB, userID string, file *dto.UploadedFile, gifURL string) (*dto.UserResponse, error)

	// CanJoin - может ли пользователь войти в комнату диалога
	CanJoin(userID, conversationID string) error
}

type chatService struct {
	chatRepo      repositories.ChatRepository
	userRepo      repositories.UserRepository
	storage       storage.Storage
	notifier      NotificationService
	gateway       RealtimeGateway
	clock         Clock
	maxUploadSize int64
}

func NewChatService(
	chatRepo repositories.ChatRepository,
	userRepo repositories.UserRepository,
	storage storage.Storage,
	notifier NotificationService,
	gateway RealtimeGateway,
	clock Clock,
	maxUploadSize int64,
) ChatService {
	if clock == nil {
		clock = SystemClock
	}
	return &chatService{
		chatRepo:      chatRepo,
		userRepo:      userRepo,
		storage:       storage,
		notifier:      notifier,
		gateway:       gateway,
		clock:         clock,
		maxUploadSize: maxUploadSize,
	}
}

// ---------------- Отправка ----------------

func (s *chatService) SendMessage(ctx context.Context, db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*dto.MessageResponse, error) {
	msgType := req.MessageType
	if msgType == "" {
		msgType = chat.MessageTypeText
	}
	if !msgType.IsValid() {
		return nil, apperrors.ErrInvalidMessageType
	}

	msg := &chat.Message{
		Content:     strings.TrimSpace(req.Content),
		MessageType: msgType,
	}

	switch msgType {
	case chat.MessageTypeText:
		if msg.Content == "" {
			return nil, apperrors.ErrEmptyMessage
		}
	case chat.MessageTypeGIF:
		if req.GifURL == "" {
			return nil, apperrors.ValidationError(map[string]string{"gifUrl": "This field is required for gif messages"})
		}
		url := req.GifURL
		msg.AttachmentURL = &url
	default:
		// image, file и audio приходят только через загрузку
		return nil, apperrors.ErrInvalidOperation("chat", "Use the upload endpoint to send "+string(msgType)+" messages")
	}

	return s.deliver(ctx, db, senderID, req, msg)
}

func (s *chatService) UploadAttachment(ctx context.Context, db *gorm.DB, senderID string, req *dto.SendMessageRequest, file *dto.UploadedFile) (*dto.MessageResponse, error) {
	if file == nil || file.Reader == nil {
		return nil, apperrors.ErrFileRequired
	}
	if file.Size > s.maxUploadSize {
		logger.CtxWarn(ctx, "attachment rejected", "size", humanize.Bytes(uint64(file.Size)), "user_id", senderID)
		return nil, apperrors.ErrFileTooLarge(file.Size, s.maxUploadSize)
	}

	// проверяем получателя до записи файла
	if _, err := s.resolveReceiver(db, senderID, req); err != nil {
		return nil, err
	}

	mime, err := detectMime(file)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	conversationID := chat.ConversationID(senderID, req.ReceiverID)
	key := storage.AttachmentKey(conversationID, file.Name)
	if err := s.storage.Save(ctx, key, file.Reader, mime); err != nil {
		return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "upload", "Failed to store file", http.StatusInternalServerError)
	}

	url := s.storage.URL(key)
	name := file.Name
	size := file.Size
	msg := &chat.Message{
		Content:        strings.TrimSpace(req.Content),
		MessageType:    MessageTypeFromMime(mime),
		AttachmentURL:  &url,
		AttachmentName: &name,
		AttachmentSize: &size,
		AttachmentMime: &mime,
		AttachmentPath: &key,
	}

	resp, err := s.deliver(ctx, db, senderID, req, msg)
	if err != nil {
		if delErr := s.storage.Delete(ctx, key); delErr != nil {
			logger.CtxWithError(ctx, "failed to remove orphan attachment", delErr, "key", key)
		}
		return nil, err
	}
	return resp, nil
}

// MessageTypeFromMime: image/gif -> gif, image/* -> image, audio/* -> audio, остальное file
func MessageTypeFromMime(mime string) chat.MessageType {
	mime = strings.ToLower(mime)
	if i := strings.Index(mime, ";"); i >= 0 {
		mime = strings.TrimSpace(mime[:i])
	}
	switch {
	case mime == "image/gif":
		return chat.MessageTypeGIF
	case strings.HasPrefix(mime, "image/"):
		return chat.MessageTypeImage
	case strings.HasPrefix(mime, "audio/"):
		return chat.MessageTypeAudio
	default:
		return chat.MessageTypeFile
	}
}

// detectMime определяет тип по содержимому; заголовок части используется,
// только если по содержимому ничего конкретного не понять
func detectMime(file *dto.UploadedFile) (string, error) {
	detected, err := mimetype.DetectReader(file.Reader)
	if err != nil {
		return "", err
	}
	if _, err := file.Reader.Seek(0, io.SeekStart); err != nil {
		return "", err
	}

	mime := detected.String()
	if detected.Is("application/octet-stream") || detected.Is("text/plain") {
		if file.ContentType != "" {
			mime = file.ContentType
		}
	}
	return mime, nil
}

func (s *chatService) resolveReceiver(db *gorm.DB, senderID string, req *dto.SendMessageRequest) (*models.User, error) {
	if req.ReceiverID == "" {
		return nil, apperrors.ErrInvalidReceiver
	}
	if req.ReceiverID == senderID {
		return nil, apperrors.ErrCannotMessageSelf
	}
	receiver, err := s.userRepo.FindByID(db, req.ReceiverID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrInvalidReceiver
		}
		return nil, apperrors.InternalError(err)
	}
	if receiver.Model != req.ReceiverModel {
		return nil, apperrors.ErrInvalidReceiver.WithDetails(map[string]string{
			"receiverModel": "Receiver belongs to " + string(receiver.Model),
		})
	}
	return receiver, nil
}

// deliver сохраняет сообщение, диалог и счетчики одной транзакцией и рассылает событие
func (s *chatService) deliver(ctx context.Context, db *gorm.DB, senderID string, req *dto.SendMessageRequest, msg *chat.Message) (*dto.MessageResponse, error) {
	receiver, err := s.resolveReceiver(db, senderID, req)
	if err != nil {
		return nil, err
	}
	sender, err := s.userRepo.FindByID(db, senderID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.NewUnauthorizedError("Sender no longer exists")
		}
		return nil, apperrors.InternalError(err)
	}

	now := s.clock()
	msg.SenderID = senderID
	msg.ReceiverID = receiver.ID
	msg.ReceiverModel = receiver.Model
	msg.CreatedAt = now

	err = db.Transaction(func(tx *gorm.DB) error {
		conv, err := s.chatRepo.EnsureConversation(tx, senderID, receiver.ID)
		if err != nil {
			return err
		}
		msg.ConversationID = conv.ID

		if err := s.chatRepo.CreateMessage(tx, msg); err != nil {
			return err
		}
		if err := s.chatRepo.SetLastMessage(tx, conv.ID, msg); err != nil {
			return err
		}
		return s.chatRepo.MarkDelivered(tx, conv.ID, senderID, receiver.ID, now)
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	metrics.Messages.WithLabelValues("send").Inc()

	resp := dto.NewMessageResponse(msg)
	note := &notifications.Notification{
		Type:     "message",
		Title:    "New message from " + sender.Name,
		Message:  msg.Preview(),
		Priority: models.PriorityMedium,
		SourceID: msg.ID,
	}
	s.notifier.Publish(ctx, db, []string{receiver.ID}, realtime.EventNewMessage, resp, note)
	s.notifier.Publish(ctx, db, []string{senderID}, realtime.EventNewMessage, resp, nil)

	logger.CtxInfo(ctx, "message sent",
		"message_id", msg.ID,
		"conversation_id", msg.ConversationID,
		"type", msg.MessageType,
	)
	return resp, nil
}

// ---------------- Редактирование и удаление ----------------

func (s *chatService) EditMessage(ctx context.Context, db *gorm.DB, userID, messageID, content string) (*dto.MessageResponse, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, apperrors.ErrEmptyMessage
	}

	msg, err := s.findMessage(db, messageID)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	if err := msg.CanEdit(userID, now); err != nil {
		switch {
		case errors.Is(err, chat.ErrNotSender):
			return nil, apperrors.ErrNotMessageSender
		case errors.Is(err, chat.ErrNotText):
			return nil, apperrors.ErrMessageNotEditable
		case errors.Is(err, chat.ErrEditWindowExpired):
			return nil, apperrors.ErrEditWindowExpired
		default:
			return nil, apperrors.InternalError(err)
		}
	}

	msg.Content = content
	msg.IsEdited = true
	msg.EditedAt = &now

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.chatRepo.UpdateMessageContent(tx, msg); err != nil {
			return err
		}
		conv, err := s.chatRepo.FindConversation(tx, msg.ConversationID)
		if err != nil {
			return err
		}
		if conv.LastMessageID != nil && *conv.LastMessageID == msg.ID {
			return s.chatRepo.SetLastMessage(tx, conv.ID, msg)
		}
		return nil
	})
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	metrics.Messages.WithLabelValues("edit").Inc()

	resp := dto.NewMessageResponse(msg)
	s.notifier.Publish(ctx, db, []string{msg.SenderID, msg.ReceiverID}, realtime.EventMessageEdited, resp, nil)
	return resp, nil
}

func (s *chatService) DeleteMessage(ctx context.Context, db *gorm.DB, userID, messageID string) error {
	msg, err := s.findMessage(db, messageID)
	if err != nil {
		return err
	}
	if msg.SenderID != userID {
		return apperrors.ErrNotMessageSender
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		if err := s.chatRepo.DeleteMessage(tx, msg.ID); err != nil {
			return err
		}
		conv, err := s.chatRepo.FindConversation(tx, msg.ConversationID)
		if err != nil {
			return err
		}
		if conv.LastMessageID == nil || *conv.LastMessageID != msg.ID {
			return nil
		}

		latest, err := s.chatRepo.FindLatestMessage(tx, conv.ID)
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return s.chatRepo.SetLastMessage(tx, conv.ID, nil)
		}
		if err != nil {
			return err
		}
		return s.chatRepo.SetLastMessage(tx, conv.ID, latest)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return apperrors.ErrMessageNotFound
		}
		return apperrors.InternalError(err)
	}
	metrics.Messages.WithLabelValues("delete").Inc()

	if msg.AttachmentPath != nil && *msg.AttachmentPath != "" {
		if err := s.storage.Delete(ctx, *msg.AttachmentPath); err != nil {
			logger.CtxWithError(ctx, "failed to delete attachment file", err, "key", *msg.AttachmentPath)
		}
	}

	payload := dto.MessageDeletedPayload{MessageID: msg.ID, ConversationID: msg.ConversationID}
	s.notifier.Publish(ctx, db, []string{msg.SenderID, msg.ReceiverID}, realtime.EventMessageDeleted, payload, nil)
	return nil
}

func (s *chatService) findMessage(db *gorm.DB, messageID string) (*chat.Message, error) {
	msg, err := s.chatRepo.FindMessageByID(db, messageID)
	if err != nil {
		if errors.Is(err, repositories.ErrMessageNotFound) {
			return nil, apperrors.ErrMessageNotFound
		}
		return nil, apperrors.InternalError(err)
	}
	return msg, nil
}

// ---------------- Чтение ----------------

func (s *chatService) GetConversations(ctx context.Context, db *gorm.DB, userID string) ([]*dto.ConversationResponse, error) {
	convs, err := s.chatRepo.FindUserConversations(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	members, err := s.chatRepo.FindMembers(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	otherIDs := make([]string, 0, len(convs))
	for i := range convs {
		otherIDs = append(otherIDs, convs[i].Other(userID))
	}
	users, err := s.userRepo.FindByIDs(db, otherIDs)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}

	result := make([]*dto.ConversationResponse, 0, len(convs))
	for i := range convs {
		conv := &convs[i]
		otherID := conv.Other(userID)

		participant := &dto.ParticipantResponse{ID: otherID, IsOnline: s.gateway.IsOnline(otherID)}
		if u, ok := users[otherID]; ok {
			participant.Name = u.Name
			participant.Model = u.Model
			participant.Role = u.Role
			participant.ProfilePhoto = u.ProfilePhoto
		}

		member, ok := members[conv.ID]
		if !ok {
			member = chat.ConversationMember{IsRead: true}
		}

		result = append(result, &dto.ConversationResponse{
			ID:                 conv.ID,
			Participant:        participant,
			LastMessagePreview: conv.LastMessagePreview,
			LastMessageAt:      conv.LastMessageAt,
			IsRead:             member.IsRead,
			UnreadCount:        member.UnreadCount,
		})
	}
	return result, nil
}

func (s *chatService) GetHistory(ctx context.Context, db *gorm.DB, userID, otherUserID string, query dto.HistoryQuery) (*dto.HistoryResponse, error) {
	if otherUserID == userID {
		return nil, apperrors.ErrCannotMessageSelf
	}

	criteria := repositories.MessageCriteria{Limit: query.Limit}
	if criteria.Limit <= 0 {
		criteria.Limit = defaultHistoryLimit
	}
	if criteria.Limit > maxHistoryLimit {
		criteria.Limit = maxHistoryLimit
	}
	if query.Since != "" {
		since, err := time.Parse(time.RFC3339, query.Since)
		if err != nil {
			return nil, apperrors.NewBadRequestError("Invalid since format. Use RFC3339")
		}
		since = since.UTC()
		criteria.Since = &since
	}

	conversationID := chat.ConversationID(userID, otherUserID)
	resp := &dto.HistoryResponse{ConversationID: conversationID, Messages: []*dto.MessageResponse{}}

	if _, err := s.chatRepo.FindConversation(db, conversationID); err != nil {
		if errors.Is(err, repositories.ErrConversationNotFound) {
			return resp, nil
		}
		return nil, apperrors.InternalError(err)
	}

	msgs, err := s.chatRepo.FindMessages(db, conversationID, criteria)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	for i := range msgs {
		resp.Messages = append(resp.Messages, dto.NewMessageResponse(&msgs[i]))
	}

	if err := s.chatRepo.MarkRead(db, conversationID, userID, s.clock()); err != nil {
		logger.CtxWithError(ctx, "failed to mark conversation read", err, "conversation_id", conversationID)
	}
	return resp, nil
}

func (s *chatService) UpdateProfilePhoto(ctx context.Context, db *gorm.DB, userID string, file *dto.UploadedFile, gifURL string) (*dto.UserResponse, error) {
	var url string

	switch {
	case file != nil && file.Reader != nil:
		if file.Size > s.maxUploadSize {
			return nil, apperrors.ErrFileTooLarge(file.Size, s.maxUploadSize)
		}
		mime, err := detectMime(file)
		if err != nil {
			return nil, apperrors.InternalError(err)
		}
		if !strings.HasPrefix(mime, "image/") {
			return nil, apperrors.ErrInvalidFileType
		}
		key := storage.ProfilePhotoKey(userID, file.Name)
		if err := s.storage.Save(ctx, key, file.Reader, mime); err != nil {
			return nil, apperrors.Wrap(err, apperrors.CodeStorageError, "upload", "Failed to store file", http.StatusInternalServerError)
		}
		url = s.storage.URL(key)
	case strings.TrimSpace(gifURL) != "":
		url = strings.TrimSpace(gifURL)
	default:
		return nil, apperrors.ErrFileRequired
	}

	if err := s.userRepo.UpdateProfilePhoto(db, userID, url); err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, apperrors.ErrNotFound(err)
		}
		return nil, apperrors.InternalError(err)
	}

	user, err := s.userRepo.FindByID(db, userID)
	if err != nil {
		return nil, apperrors.InternalError(err)
	}
	return NewUserResponse(user, s.gateway.IsOnline(userID), false), nil
}

func (s *chatService) CanJoin(userID, conversationID string) error {
	a, b, ok := chat.Participants(conversationID)
	if !ok || chat.ConversationID(a, b) != conversationID || a == b {
		return apperrors.NewBadRequestError("Invalid conversation id")
	}
	if userID != a && userID != b {
		return apperrors.ErrNotConversationMember
	}
	return nil
}
