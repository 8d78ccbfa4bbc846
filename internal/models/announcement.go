package models

type Priority string

const (
	PriorityLow      Priority = "low"
	PriorityMedium   Priority = "medium"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

type Announcement struct {
	BaseModel
	Title      string   `gorm:"size:200;not null" json:"title"`
	Message    string   `gorm:"type:text;not null" json:"message"`
	Priority   Priority `gorm:"type:varchar(10);not null;default:'medium'" json:"priority"`
	AuthorID   string   `gorm:"type:varchar(36);index" json:"authorId"`
	AuthorName string   `json:"authorName"`
}
