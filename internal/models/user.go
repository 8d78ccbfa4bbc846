package models

type User struct {
	BaseModel
	Name         string     `gorm:"not null" json:"name"`
	Email        string     `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string     `gorm:"not null" json:"-"`
	Role         UserRole   `gorm:"type:varchar(20);not null" json:"role"`
	Model        UserModel  `gorm:"type:varchar(20);not null;index" json:"model"`
	Status       UserStatus `gorm:"type:varchar(20);default:'active'" json:"status"`
	ProfilePhoto string     `json:"profilePhoto,omitempty"`
	Theme        Theme      `gorm:"type:varchar(10);default:'light'" json:"theme"`
}

func (User) TableName() string {
	return "users"
}
