package repositories

import (
	"errors"
	"strings"

	"gorm.io/gorm"

	"workforce_backend/internal/models"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository interface {
	FindByID(db *gorm.DB, id string) (*models.User, error)
	FindByEmail(db *gorm.DB, email string) (*models.User, error)
	FindByIDs(db *gorm.DB, ids []string) (map[string]models.User, error)
	Create(db *gorm.DB, user *models.User) error
	UpdateProfilePhoto(db *gorm.DB, userID, url string) error
	ListIDs(db *gorm.DB) ([]string, error)
	ListActive(db *gorm.DB, role models.UserRole) ([]models.User, error)
	CountByRole(db *gorm.DB, role models.UserRole) (int64, error)
}

type UserRepositoryImpl struct{}

func NewUserRepository() UserRepository {
	return &UserRepositoryImpl{}
}

func (r *UserRepositoryImpl) FindByID(db *gorm.DB, id string) (*models.User, error) {
	var user models.User
	if err := db.First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *UserRepositoryImpl) FindByEmail(db *gorm.DB, email string) (*models.User, error) {
	var user models.User
	err := db.First(&user, "email = ?", strings.ToLower(strings.TrimSpace(email))).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

// FindByIDs - пользователи по id одним запросом; отсутствующие просто не попадут в карту
func (r *UserRepositoryImpl) FindByIDs(db *gorm.DB, ids []string) (map[string]models.User, error) {
	out := make(map[string]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []models.User
	if err := db.Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, err
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *UserRepositoryImpl) Create(db *gorm.DB, user *models.User) error {
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))

	var count int64
	if err := db.Model(&models.User{}).Where("email = ?", user.Email).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return ErrUserAlreadyExists
	}
	return db.Create(user).Error
}

func (r *UserRepositoryImpl) UpdateProfilePhoto(db *gorm.DB, userID, url string) error {
	result := db.Model(&models.User{}).Where("id = ?", userID).Update("profile_photo", url)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}

// ListIDs - все получатели широковещательных событий
func (r *UserRepositoryImpl) ListIDs(db *gorm.DB) ([]string, error) {
	var ids []string
	err := db.Model(&models.User{}).
		Where("status = ?", models.UserStatusActive).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}

// ListActive - активные пользователи; пустая роль = все роли
func (r *UserRepositoryImpl) ListActive(db *gorm.DB, role models.UserRole) ([]models.User, error) {
	q := db.Where("status = ?", models.UserStatusActive)
	if role != "" {
		q = q.Where("role = ?", role)
	}
	var users []models.User
	err := q.Order("name").Find(&users).Error
	return users, err
}

func (r *UserRepositoryImpl) CountByRole(db *gorm.DB, role models.UserRole) (int64, error) {
	var count int64
	err := db.Model(&models.User{}).Where("role = ?", role).Count(&count).Error
	return count, err
}
