package repositories

import (
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"workforce_backend/internal/models"
)

// EventRepository - журнал догоняющей доставки
type EventRepository interface {
	Append(db *gorm.DB, userID, event string, payload []byte) (*models.RealtimeEvent, error)
	Since(db *gorm.DB, userID string, seq uint64, limit int) ([]models.RealtimeEvent, error)
	LastSeq(db *gorm.DB, userID string) (uint64, error)
	PruneBefore(db *gorm.DB, cutoff time.Time) (int64, error)
}

type EventRepositoryImpl struct{}

func NewEventRepository() EventRepository {
	return &EventRepositoryImpl{}
}

// Append выдает следующий seq пользователя и пишет событие в одной транзакции
func (r *EventRepositoryImpl) Append(db *gorm.DB, userID, event string, payload []byte) (*models.RealtimeEvent, error) {
	var rec models.RealtimeEvent

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).
			Create(&models.EventSequence{UserID: userID}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.EventSequence{}).
			Where("user_id = ?", userID).
			Update("last_seq", gorm.Expr("last_seq + ?", 1)).Error; err != nil {
			return err
		}

		var seq models.EventSequence
		if err := tx.First(&seq, "user_id = ?", userID).Error; err != nil {
			return err
		}

		rec = models.RealtimeEvent{
			UserID:  userID,
			Seq:     seq.LastSeq,
			Event:   event,
			Payload: datatypes.JSON(payload),
		}
		return tx.Create(&rec).Error
	})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// Since - события с seq > after по возрастанию
func (r *EventRepositoryImpl) Since(db *gorm.DB, userID string, after uint64, limit int) ([]models.RealtimeEvent, error) {
	var events []models.RealtimeEvent
	err := db.Where("user_id = ? AND seq > ?", userID, after).
		Order("seq ASC").
		Limit(limit).
		Find(&events).Error
	return events, err
}

func (r *EventRepositoryImpl) LastSeq(db *gorm.DB, userID string) (uint64, error) {
	var seq models.EventSequence
	err := db.Where("user_id = ?", userID).Limit(1).Find(&seq).Error
	return seq.LastSeq, err
}

// PruneBefore удаляет старые записи; счетчики seq не трогаются
func (r *EventRepositoryImpl) PruneBefore(db *gorm.DB, cutoff time.Time) (int64, error) {
	result := db.Where("created_at < ?", cutoff).Delete(&models.RealtimeEvent{})
	return result.RowsAffected, result.Error
}
