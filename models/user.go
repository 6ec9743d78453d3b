package models

import (
	"time"

	"gorm.io/gorm"
)

// User is a learner account. Passwords are stored as bcrypt hashes only.
// LongestStreak >= StudyStreak holds after every streak update.
type User struct {
	ID               uint            `gorm:"primaryKey" json:"id"`
	Email            string          `gorm:"size:255;uniqueIndex;not null" json:"email"`
	Name             string          `gorm:"size:128" json:"name"`
	PasswordHash     string          `gorm:"size:255" json:"-"`
	Provider         string          `gorm:"size:32" json:"provider"`
	ProviderID       string          `gorm:"size:255;index" json:"provider_id"`
	StudyStreak      int             `gorm:"not null;default:0" json:"study_streak"`
	LongestStreak    int             `gorm:"not null;default:0" json:"longest_streak"`
	LastStudySession *time.Time      `json:"last_study_session"`
	TotalStudyTime   int             `gorm:"not null;default:0" json:"total_study_time"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
	Progress         *ProgressRecord `gorm:"constraint:OnUpdate:CASCADE,OnDelete:CASCADE;" json:"-"`
}

// BeforeCreate hook ensures timestamps are set even when not provided.
func (u *User) BeforeCreate(tx *gorm.DB) error {
	now := time.Now().UTC()
	if u.CreatedAt.IsZero() {
		u.CreatedAt = now
	}
	u.UpdatedAt = now
	return nil
}
