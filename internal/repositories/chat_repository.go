package repositories

import (
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workforce_backend/internal/models/chat"
)

var (
	ErrConversationNotFound = errors.New("conversation not found")
	ErrMessageNotFound      = errors.New("message not found")
)

type ChatRepository interface {
	// Conversations
	EnsureConversation(db *gorm.DB, a, b string) (*chat.Conversation, error)
	FindConversation(db *gorm.DB, id string) (*chat.Conversation, error)
	FindUserConversations(db *gorm.DB, userID string) ([]chat.Conversation, error)
	SetLastMessage(db *gorm.DB, conversationID string, msg *chat.Message) error

	// Members
	FindMembers(db *gorm.DB, userID string) (map[string]chat.ConversationMember, error)
	MarkDelivered(db *gorm.DB, conversationID, senderID, receiverID string, at time.Time) error
	MarkRead(db *gorm.DB, conversationID, userID string, at time.Time) error

	// Messages
	CreateMessage(db *gorm.DB, msg *chat.Message) error
	FindMessageByID(db *gorm.DB, id string) (*chat.Message, error)
	FindMessages(db *gorm.DB, conversationID string, criteria MessageCriteria) ([]chat.Message, error)
	FindLatestMessage(db *gorm.DB, conversationID string) (*chat.Message, error)
	UpdateMessageContent(db *gorm.DB, msg *chat.Message) error
	DeleteMessage(db *gorm.DB, id string) error
}

// MessageCriteria - выборка истории; Since = только строго новее
type MessageCriteria struct {
	Since *time.Time
	Limit int
}

type ChatRepositoryImpl struct{}

func NewChatRepository() ChatRepository {
	return &ChatRepositoryImpl{}
}

// EnsureConversation идемпотентно создает диалог и две строки участников
func (r *ChatRepositoryImpl) EnsureConversation(db *gorm.DB, a, b string) (*chat.Conversation, error) {
	id := chat.ConversationID(a, b)
	first, second, _ := chat.Participants(id)

	conv := chat.Conversation{ID: id}
	err := db.Where(chat.Conversation{ID: id}).
		Attrs(chat.Conversation{ParticipantA: first, ParticipantB: second}).
		FirstOrCreate(&conv).Error
	if err != nil {
		return nil, err
	}

	for _, userID := range []string{first, second} {
		member := chat.ConversationMember{ConversationID: id, UserID: userID, IsRead: true}
		if err := db.Clauses(clause.OnConflict{DoNothing: true}).Create(&member).Error; err != nil {
			return nil, err
		}
	}
	return &conv, nil
}

func (r *ChatRepositoryImpl) FindConversation(db *gorm.DB, id string) (*chat.Conversation, error) {
	var conv chat.Conversation
	if err := db.First(&conv, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrConversationNotFound
		}
		return nil, err
	}
	return &conv, nil
}

// FindUserConversations - диалоги пользователя, свежие первыми, пустые в конце
func (r *ChatRepositoryImpl) FindUserConversations(db *gorm.DB, userID string) ([]chat.Conversation, error) {
	var convs []chat.Conversation
	err := db.Where("participant_a = ? OR participant_b = ?", userID, userID).
		Order("CASE WHEN last_message_at IS NULL THEN 1 ELSE 0 END").
		Order("last_message_at DESC").
		Find(&convs).Error
	return convs, err
}

// SetLastMessage обновляет превью; nil очищает его
func (r *ChatRepositoryImpl) SetLastMessage(db *gorm.DB, conversationID string, msg *chat.Message) error {
	updates := map[string]interface{}{
		"last_message_id":      nil,
		"last_message_preview": "",
		"last_message_at":      nil,
	}
	if msg != nil {
		updates["last_message_id"] = msg.ID
		updates["last_message_preview"] = msg.Preview()
		updates["last_message_at"] = msg.CreatedAt
	}

	return db.Model(&chat.Conversation{}).Where("id = ?", conversationID).Updates(updates).Error
}

func (r *ChatRepositoryImpl) FindMembers(db *gorm.DB, userID string) (map[string]chat.ConversationMember, error) {
	var members []chat.ConversationMember
	if err := db.Where("user_id = ?", userID).Find(&members).Error; err != nil {
		return nil, err
	}
	out := make(map[string]chat.ConversationMember, len(members))
	for _, m := range members {
		out[m.ConversationID] = m
	}
	return out, nil
}

// MarkDelivered: у отправителя диалог прочитан, у получателя +1 непрочитанное
func (r *ChatRepositoryImpl) MarkDelivered(db *gorm.DB, conversationID, senderID, receiverID string, at time.Time) error {
	if err := r.MarkRead(db, conversationID, senderID, at); err != nil {
		return err
	}

	return db.Model(&chat.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, receiverID).
		Updates(map[string]interface{}{
			"is_read":      false,
			"unread_count": gorm.Expr("unread_count + ?", 1),
		}).Error
}

// MarkRead не проверяет RowsAffected: MySQL не считает строки без изменений
func (r *ChatRepositoryImpl) MarkRead(db *gorm.DB, conversationID, userID string, at time.Time) error {
	return db.Model(&chat.ConversationMember{}).
		Where("conversation_id = ? AND user_id = ?", conversationID, userID).
		Updates(map[string]interface{}{
			"is_read":      true,
			"unread_count": 0,
			"last_read_at": at,
		}).Error
}

func (r *ChatRepositoryImpl) CreateMessage(db *gorm.DB, msg *chat.Message) error {
	return db.Create(msg).Error
}

func (r *ChatRepositoryImpl) FindMessageByID(db *gorm.DB, id string) (*chat.Message, error) {
	var msg chat.Message
	if err := db.First(&msg, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

// FindMessages - история по возрастанию времени. При лимите берутся последние N.
func (r *ChatRepositoryImpl) FindMessages(db *gorm.DB, conversationID string, criteria MessageCriteria) ([]chat.Message, error) {
	q := db.Where("conversation_id = ?", conversationID)
	if criteria.Since != nil {
		q = q.Where("created_at > ?", *criteria.Since)
	}

	var msgs []chat.Message
	if criteria.Since != nil {
		// догоняющая выборка: первые N после метки
		err := q.Order("created_at ASC").Order("id ASC").Limit(criteria.Limit).Find(&msgs).Error
		return msgs, err
	}

	if err := q.Order("created_at DESC").Order("id DESC").Limit(criteria.Limit).Find(&msgs).Error; err != nil {
		return nil, err
	}
	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	return msgs, nil
}

func (r *ChatRepositoryImpl) FindLatestMessage(db *gorm.DB, conversationID string) (*chat.Message, error) {
	var msg chat.Message
	err := db.Where("conversation_id = ?", conversationID).
		Order("created_at DESC").Order("id DESC").
		First(&msg).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrMessageNotFound
		}
		return nil, err
	}
	return &msg, nil
}

func (r *ChatRepositoryImpl) UpdateMessageContent(db *gorm.DB, msg *chat.Message) error {
	result := db.Model(&chat.Message{}).Where("id = ?", msg.ID).Updates(map[string]interface{}{
		"content":   msg.Content,
		"is_edited": msg.IsEdited,
		"edited_at": msg.EditedAt,
	})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}

func (r *ChatRepositoryImpl) DeleteMessage(db *gorm.DB, id string) error {
	result := db.Where("id = ?", id).Delete(&chat.Message{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrMessageNotFound
	}
	return nil
}
