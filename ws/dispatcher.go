package ws

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"workforce_backend/internal/logger"
	"workforce_backend/internal/models"
	"workforce_backend/internal/models/chat"
	"workforce_backend/internal/services"
	"workforce_backend/internal/services/dto"
	"workforce_backend/internal/validator"
	"workforce_backend/pkg/apperrors"
	"workforce_backend/pkg/realtime"
)

// replayPageSize - сколько событий журнала читать за раз при resume
const replayPageSize = 200

// Dispatcher разбирает входящие события и вызывает сервисы
type Dispatcher struct {
	hub       *Hub
	db        *gorm.DB
	chat      services.ChatService
	notifier  services.NotificationService
	validator *validator.Validator
}

func NewDispatcher(hub *Hub, db *gorm.DB, chatService services.ChatService, notifier services.NotificationService, v *validator.Validator) *Dispatcher {
	if v == nil {
		v = validator.New()
	}
	return &Dispatcher{
		hub:       hub,
		db:        db,
		chat:      chatService,
		notifier:  notifier,
		validator: v,
	}
}

func (d *Dispatcher) Handle(ctx context.Context, c *Client, env realtime.Envelope) {
	logger.RealtimeLog(env.Event, c.userID, "direction", "in")

	var err error
	switch env.Event {
	case realtime.EventUserOnline:
		d.hub.broadcastPresence()
	case realtime.EventJoinConversation:
		err = d.join(c, env)
	case realtime.EventLeaveConversation:
		err = d.leave(c, env)
	case realtime.EventSendMessage:
		err = d.sendMessage(ctx, c, env)
	case realtime.EventTyping, realtime.EventStopTyping:
		err = d.typing(c, env)
	case realtime.EventResume:
		err = d.resume(ctx, c, env)
	default:
		err = apperrors.ErrUnknownEvent
	}

	if err != nil {
		d.replyError(ctx, c, env.Event, err)
	}
}

func (d *Dispatcher) replyError(ctx context.Context, c *Client, event string, err error) {
	var payload realtime.ErrorPayload

	var vErr *validator.ValidationError
	if errors.As(err, &vErr) {
		payload = realtime.ErrorPayload{Message: err.Error(), Code: string(apperrors.CodeValidationFailed)}
		logger.CtxWarn(ctx, "realtime payload invalid", "event", event, "errors", vErr.Errors)
	} else {
		appErr := apperrors.Classify(err)
		payload = realtime.ErrorPayload{Message: appErr.Message, Code: string(appErr.Code)}
		if appErr.IsServerError() {
			logger.CtxWithError(ctx, "realtime event failed", err, "event", event)
		} else {
			logger.CtxWarn(ctx, "realtime event rejected", "event", event, "error", appErr.Message)
		}
	}

	// соединение не закрывается: ошибка уходит только этой вкладке
	d.hub.SendTo(c, realtime.EventError, payload, 0)
}

func decodeConversation(env realtime.Envelope) (string, error) {
	var p realtime.ConversationPayload
	if err := env.Decode(&p); err != nil || p.ConversationID == "" {
		return "", apperrors.NewBadRequestError("conversationId is required")
	}
	return p.ConversationID, nil
}

func (d *Dispatcher) join(c *Client, env realtime.Envelope) error {
	conversationID, err := decodeConversation(env)
	if err != nil {
		return err
	}
	if err := d.chat.CanJoin(c.userID, conversationID); err != nil {
		return err
	}
	ctx := logger.WithConversationID(c.ctx, conversationID)
	if previous := d.hub.JoinRoom(c, conversationID); previous != "" {
		d.hub.StopTyping(previous, c.userID)
		logger.CtxDebug(ctx, "left previous room", "previous", previous)
	}
	logger.CtxDebug(ctx, "joined room")
	return nil
}

func (d *Dispatcher) leave(c *Client, env realtime.Envelope) error {
	conversationID, err := decodeConversation(env)
	if err != nil {
		return err
	}
	if d.hub.LeaveRoom(c, conversationID) {
		d.hub.StopTyping(conversationID, c.userID)
	}
	return nil
}

func (d *Dispatcher) sendMessage(ctx context.Context, c *Client, env realtime.Envelope) error {
	var p realtime.SendMessagePayload
	if err := env.Decode(&p); err != nil {
		return apperrors.NewBadRequestError("Invalid send_message payload")
	}

	req := &dto.SendMessageRequest{
		ReceiverID:    p.ReceiverID,
		ReceiverModel: models.UserModel(p.ReceiverModel),
		Content:       p.Content,
		MessageType:   chat.MessageType(p.MessageType),
		GifURL:        p.GifURL,
	}
	if err := d.validator.Validate(req); err != nil {
		return err
	}

	// ответ приходит отправителю как new_message через журнал
	_, err := d.chat.SendMessage(ctx, d.db.WithContext(ctx), c.userID, req)
	if err == nil {
		d.hub.StopTyping(chat.ConversationID(c.userID, req.ReceiverID), c.userID)
	}
	return err
}

func (d *Dispatcher) typing(c *Client, env realtime.Envelope) error {
	var p realtime.TypingPayload
	if err := env.Decode(&p); err != nil || p.ConversationID == "" {
		return apperrors.NewBadRequestError("conversationId is required")
	}
	if err := d.chat.CanJoin(c.userID, p.ConversationID); err != nil {
		return err
	}

	if env.Event == realtime.EventTyping {
		d.hub.StartTyping(p.ConversationID, c.userID)
	} else {
		d.hub.StopTyping(p.ConversationID, c.userID)
	}
	return nil
}

// resume досылает этому соединению события журнала после lastSeq
func (d *Dispatcher) resume(ctx context.Context, c *Client, env realtime.Envelope) error {
	var p realtime.ResumePayload
	if err := env.Decode(&p); err != nil {
		return apperrors.NewBadRequestError("Invalid resume payload")
	}

	db := d.db.WithContext(ctx)
	after := p.LastSeq
	replayed := 0
	for {
		page, err := d.notifier.Replay(ctx, db, c.userID, after, replayPageSize)
		if err != nil {
			return err
		}
		for _, e := range page.Events {
			if !d.hub.SendTo(c, e.Event, e.Data, e.Seq) {
				return nil
			}
			replayed++
		}
		after = page.LastSeq
		if len(page.Events) < replayPageSize {
			break
		}
	}

	logger.CtxInfo(ctx, "catch-up replayed", "from_seq", p.LastSeq, "replayed", replayed, "last_seq", after)
	d.hub.SendTo(c, realtime.EventResumed, realtime.ResumedPayload{Replayed: replayed, LastSeq: after}, 0)
	return nil
}
