package models

import "time"

// Session states. A session is created active and completes exactly once.
const (
	SessionActive    = "active"
	SessionCompleted = "completed"
)

// StudySession is one pomodoro interval owned by a single user.
type StudySession struct {
	ID              uint       `gorm:"primaryKey" json:"id"`
	UserID          uint       `gorm:"index;not null" json:"user_id"`
	StartTime       time.Time  `gorm:"not null" json:"start_time"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	PlannedDuration int        `gorm:"not null" json:"planned_duration"`
	ActualDuration  *int       `json:"actual_duration,omitempty"`
	Status          string     `gorm:"size:16;index;not null;default:active" json:"status"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// IsActive reports whether the session can still be completed.
func (s *StudySession) IsActive() bool {
	return s.Status == SessionActive
}
