package models

import (
	"sort"
	"strings"
	"time"

	"gorm.io/datatypes"
)

// MasteryThreshold is the level from which a topic counts as mastered.
const MasteryThreshold = 80.0

// Learner levels derived from the mean mastery across topics.
const (
	LevelBeginner     = "beginner"
	LevelIntermediate = "intermediate"
	LevelAdvanced     = "advanced"
)

// ProgressRecord holds per-topic mastery (0-100) and learning goals for one user.
type ProgressRecord struct {
	ID              uint                                   `gorm:"primaryKey" json:"id"`
	UserID          uint                                   `gorm:"uniqueIndex;not null" json:"user_id"`
	CurrentLevel    string                                 `gorm:"size:32;not null;default:beginner" json:"current_level"`
	KnowledgeLevels datatypes.JSONType[map[string]float64] `json:"knowledge_levels"`
	LearningGoals   datatypes.JSONSlice[string]            `json:"learning_goals"`
	LastActiveAt    *time.Time                             `json:"last_active_at"`
	CreatedAt       time.Time                              `json:"created_at"`
	UpdatedAt       time.Time                              `json:"updated_at"`
}

// NewProgressRecord returns an empty record for a freshly registered user.
func NewProgressRecord(userID uint) *ProgressRecord {
	return &ProgressRecord{
		UserID:          userID,
		CurrentLevel:    LevelBeginner,
		KnowledgeLevels: datatypes.NewJSONType(map[string]float64{}),
		LearningGoals:   datatypes.JSONSlice[string]{},
	}
}

// Levels returns a copy of the topic -> mastery mapping, never nil.
func (p *ProgressRecord) Levels() map[string]float64 {
	src := p.KnowledgeLevels.Data()
	out := make(map[string]float64, len(src))
	for k, v := range src {
		out[k] = v
	}
	return out
}

// SetLevel overwrites the mastery for topic and refreshes CurrentLevel.
func (p *ProgressRecord) SetLevel(topic string, level float64) {
	levels := p.Levels()
	levels[topic] = level
	p.KnowledgeLevels = datatypes.NewJSONType(levels)
	p.CurrentLevel = LevelFor(levels)
}

// HasTopic reports whether topic is tracked, ignoring case.
func (p *ProgressRecord) HasTopic(topic string) bool {
	for name := range p.KnowledgeLevels.Data() {
		if strings.EqualFold(name, topic) {
			return true
		}
	}
	return false
}

// MasteredTopics lists topics at or above MasteryThreshold, sorted by name.
func (p *ProgressRecord) MasteredTopics() []string {
	topics := []string{}
	for topic, level := range p.KnowledgeLevels.Data() {
		if level >= MasteryThreshold {
			topics = append(topics, topic)
		}
	}
	sort.Strings(topics)
	return topics
}

// Goals returns the learning goals, never nil.
func (p *ProgressRecord) Goals() []string {
	if p.LearningGoals == nil {
		return []string{}
	}
	return append([]string{}, p.LearningGoals...)
}

// LevelFor maps the mean mastery of levels onto a learner level.
func LevelFor(levels map[string]float64) string {
	if len(levels) == 0 {
		return LevelBeginner
	}
	var sum float64
	for _, v := range levels {
		sum += v
	}
	mean := sum / float64(len(levels))
	switch {
	case mean >= 75:
		return LevelAdvanced
	case mean >= 40:
		return LevelIntermediate
	default:
		return LevelBeginner
	}
}
