package repositories

import (
	"errors"

	"gorm.io/gorm"

	"workforce_backend/internal/models"
)

var ErrAnnouncementNotFound = errors.New("announcement not found")

type AnnouncementRepository interface {
	Create(db *gorm.DB, a *models.Announcement) error
	FindByID(db *gorm.DB, id string) (*models.Announcement, error)
	FindRecent(db *gorm.DB, limit int) ([]models.Announcement, error)
}

type AnnouncementRepositoryImpl struct{}

func NewAnnouncementRepository() AnnouncementRepository {
	return &AnnouncementRepositoryImpl{}
}

func (r *AnnouncementRepositoryImpl) Create(db *gorm.DB, a *models.Announcement) error {
	return db.Create(a).Error
}

func (r *AnnouncementRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.Announcement, error) {
	var a models.Announcement
	if err := db.First(&a, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAnnouncementNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *AnnouncementRepositoryImpl) FindRecent(db *gorm.DB, limit int) ([]models.Announcement, error) {
	var list []models.Announcement
	err := db.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&list).Error
	return list, err
}
