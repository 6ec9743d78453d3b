package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cppla/studytutor/models"
	"github.com/cppla/studytutor/utils"
)

const (
	maxTopicLength = 128
	maxGoalLength  = 200
	maxGoals       = 20
	statsCacheTTL  = 5 * time.Minute
)

// Cache is the read-through store used for stats snapshots.
// Entries are keyed by a per-user generation that every mutation bumps.
type Cache interface {
	Fetch(ctx context.Context, key string, ttl time.Duration, out any, fill func(context.Context) (any, error)) error
	Version(ctx context.Context, key string) (int64, error)
	Bump(ctx context.Context, key string)
}

// Stats is the per-user snapshot returned by GetStats.
type Stats struct {
	Streak           int                `json:"streak"`
	LongestStreak    int                `json:"longest_streak"`
	TotalStudyTime   int                `json:"total_study_time"`
	LastStudySession *time.Time         `json:"last_study_session"`
	CurrentLevel     string             `json:"current_level"`
	KnowledgeLevels  map[string]float64 `json:"knowledge_level"`
	MasteredTopics   []string           `json:"mastered_topics"`
}

// Topic is one tracked subject with its mastery level.
type Topic struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Level    float64 `json:"level"`
	Mastered bool    `json:"mastered"`
}

// Completion is the outcome of ending a session.
type Completion struct {
	Session        models.StudySession `json:"session"`
	Streak         int                 `json:"streak"`
	LongestStreak  int                 `json:"longest_streak"`
	TotalStudyTime int                 `json:"total_study_time"`
}

// Tracker owns study sessions, streaks and topic progress.
// Mutations for one user are serialized; different users run in parallel.
type Tracker struct {
	db             *gorm.DB
	cache          Cache
	locks          *userLocks
	now            func() time.Time
	defaultMinutes int
	maxMinutes     int
}

// TrackerOption customizes a Tracker.
type TrackerOption func(*Tracker)

// WithClock replaces time.Now, mainly for tests.
func WithClock(now func() time.Time) TrackerOption {
	return func(t *Tracker) { t.now = now }
}

// WithCache enables the stats cache.
func WithCache(c Cache) TrackerOption {
	return func(t *Tracker) { t.cache = c }
}

// WithPomodoroLimits sets the default and maximum planned duration in minutes.
func WithPomodoroLimits(defaultMinutes, maxMinutes int) TrackerOption {
	return func(t *Tracker) {
		if defaultMinutes > 0 {
			t.defaultMinutes = defaultMinutes
		}
		if maxMinutes > 0 {
			t.maxMinutes = maxMinutes
		}
	}
}

// NewTracker creates a Tracker on top of db.
func NewTracker(db *gorm.DB, opts ...TrackerOption) *Tracker {
	t := &Tracker{
		db:             db,
		locks:          newUserLocks(),
		now:            time.Now,
		defaultMinutes: 25,
		maxMinutes:     240,
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// DefaultMinutes is the planned duration used when a client sends none.
func (t *Tracker) DefaultMinutes() int { return t.defaultMinutes }

// MaxMinutes is the largest accepted planned duration.
func (t *Tracker) MaxMinutes() int { return t.maxMinutes }

func (t *Tracker) clock() time.Time {
	return t.now().UTC()
}

// StartSession opens an active pomodoro session. plannedMinutes == 0 selects the default.
func (t *Tracker) StartSession(ctx context.Context, userID uint, plannedMinutes int) (*models.StudySession, error) {
	if plannedMinutes == 0 {
		plannedMinutes = t.defaultMinutes
	}
	if plannedMinutes < 1 || plannedMinutes > t.maxMinutes {
		return nil, invalidArgument("planned duration must be between 1 and %d minutes", t.maxMinutes)
	}

	db := t.db.WithContext(ctx)
	if err := ensureUser(db, userID); err != nil {
		return nil, err
	}

	session := models.StudySession{
		UserID:          userID,
		StartTime:       t.clock(),
		PlannedDuration: plannedMinutes,
		Status:          models.SessionActive,
	}
	if err := db.Create(&session).Error; err != nil {
		return nil, persistence("create session", err)
	}
	return &session, nil
}

// EndSession completes an active session owned by userID and advances the streak in the
// same transaction. A session can be completed once; later calls fail with ErrInvalidState.
func (t *Tracker) EndSession(ctx context.Context, userID, sessionID uint) (*Completion, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	now := t.clock()
	var out Completion
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).First(&user, userID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var session models.StudySession
		if err := tx.Where("id = ? AND user_id = ?", sessionID, userID).First(&session).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSessionNotFound
			}
			return err
		}
		if !session.IsActive() {
			return fmt.Errorf("%w: session %d already completed", ErrInvalidState, sessionID)
		}

		minutes := roundMinutes(now.Sub(session.StartTime))
		res := tx.Model(&models.StudySession{}).
			Where("id = ? AND status = ?", session.ID, models.SessionActive).
			Updates(map[string]interface{}{
				"end_time":        now,
				"actual_duration": minutes,
				"status":          models.SessionCompleted,
				"updated_at":      now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInvalidState
		}

		next := AdvanceStreak(StreakState{
			Streak:         user.StudyStreak,
			LongestStreak:  user.LongestStreak,
			LastSession:    user.LastStudySession,
			TotalStudyTime: user.TotalStudyTime,
		}, now, minutes)
		if err := tx.Model(&user).Updates(map[string]interface{}{
			"study_streak":       next.Streak,
			"longest_streak":     next.LongestStreak,
			"last_study_session": now,
			"total_study_time":   next.TotalStudyTime,
		}).Error; err != nil {
			return err
		}

		end := now
		session.EndTime = &end
		session.ActualDuration = &minutes
		session.Status = models.SessionCompleted
		session.UpdatedAt = now
		out = Completion{
			Session:        session,
			Streak:         next.Streak,
			LongestStreak:  next.LongestStreak,
			TotalStudyTime: next.TotalStudyTime,
		}
		return nil
	})
	if err != nil {
		return nil, persistence("end session", err)
	}
	t.invalidateStats(ctx, userID)
	return &out, nil
}

// ListSessions returns the latest sessions of a user, newest first.
func (t *Tracker) ListSessions(ctx context.Context, userID uint, limit int) ([]models.StudySession, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	var sessions []models.StudySession
	if err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time DESC").Order("id DESC").
		Limit(limit).
		Find(&sessions).Error; err != nil {
		return nil, persistence("list sessions", err)
	}
	return sessions, nil
}

// UpdateProgress sets the mastery level of topic. Levels outside [0, 100] are rejected.
// The streak is driven by session completion only; this stamps LastActiveAt.
func (t *Tracker) UpdateProgress(ctx context.Context, userID uint, topic string, level float64) (*models.ProgressRecord, error) {
	topic, err := cleanTopic(topic)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(level) || math.IsInf(level, 0) || level < 0 || level > 100 {
		return nil, invalidArgument("progress level must be between 0 and 100")
	}

	return t.mutateProgress(ctx, userID, func(p *models.ProgressRecord) error {
		p.SetLevel(topic, level)
		return nil
	})
}

// ListTopics returns the tracked topics of userID sorted by name.
func (t *Tracker) ListTopics(ctx context.Context, userID uint) ([]Topic, error) {
	record, err := t.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return topicsOf(record), nil
}

// AddTopic starts tracking name at level 0. Names are matched case-insensitively;
// a topic that is already tracked fails with ErrConflict.
func (t *Tracker) AddTopic(ctx context.Context, userID uint, name string) ([]Topic, error) {
	name, err := cleanTopic(name)
	if err != nil {
		return nil, err
	}
	record, err := t.mutateProgress(ctx, userID, func(p *models.ProgressRecord) error {
		if p.HasTopic(name) {
			return fmt.Errorf("%w: topic %q is already tracked", ErrConflict, name)
		}
		p.SetLevel(name, 0)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return topicsOf(record), nil
}

func cleanTopic(topic string) (string, error) {
	topic = strings.TrimSpace(utils.SanitizeText(topic))
	if topic == "" {
		return "", invalidArgument("topic is required")
	}
	if utf8.RuneCountInString(topic) > maxTopicLength {
		return "", invalidArgument("topic exceeds %d characters", maxTopicLength)
	}
	return topic, nil
}

func topicsOf(p *models.ProgressRecord) []Topic {
	levels := p.Levels()
	topics := make([]Topic, 0, len(levels))
	for name, level := range levels {
		topics = append(topics, Topic{
			ID:       name,
			Name:     name,
			Level:    level,
			Mastered: level >= models.MasteryThreshold,
		})
	}
	sort.Slice(topics, func(i, j int) bool { return topics[i].Name < topics[j].Name })
	return topics
}

// SetLearningGoals replaces the learning goals; blanks and duplicates are dropped.
func (t *Tracker) SetLearningGoals(ctx context.Context, userID uint, goals []string) (*models.ProgressRecord, error) {
	clean := make([]string, 0, len(goals))
	seen := map[string]struct{}{}
	for _, g := range goals {
		g = strings.TrimSpace(utils.SanitizeText(g))
		if g == "" {
			continue
		}
		if utf8.RuneCountInString(g) > maxGoalLength {
			return nil, invalidArgument("goal exceeds %d characters", maxGoalLength)
		}
		key := strings.ToLower(g)
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		clean = append(clean, g)
	}
	if len(clean) > maxGoals {
		return nil, invalidArgument("at most %d learning goals", maxGoals)
	}

	return t.mutateProgress(ctx, userID, func(p *models.ProgressRecord) error {
		p.LearningGoals = clean
		return nil
	})
}

func (t *Tracker) mutateProgress(ctx context.Context, userID uint, apply func(*models.ProgressRecord) error) (*models.ProgressRecord, error) {
	unlock := t.locks.Lock(userID)
	defer unlock()

	now := t.clock()
	var record models.ProgressRecord
	err := t.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockProgress(tx, userID, &record); err != nil {
			return err
		}
		if err := apply(&record); err != nil {
			return err
		}
		record.LastActiveAt = &now
		return tx.Save(&record).Error
	})
	if err != nil {
		return nil, persistence("update progress", err)
	}
	t.invalidateStats(ctx, userID)
	return &record, nil
}

// lockProgress loads the progress row of userID FOR UPDATE, creating it first when missing.
// Another process may insert the same row concurrently; the insert then does nothing and the
// row is selected again.
func lockProgress(tx *gorm.DB, userID uint, record *models.ProgressRecord) error {
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(record).Error
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	// accounts created before progress records existed get one on first write
	if err := ensureUser(tx, userID); err != nil {
		return err
	}
	if err := insertProgressIfAbsent(tx, userID); err != nil {
		return err
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).Where("user_id = ?", userID).First(record).Error
}

func insertProgressIfAbsent(tx *gorm.DB, userID uint) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoNothing: true,
	}).Create(models.NewProgressRecord(userID)).Error
}

// GetProgress returns the progress record of userID; users without one get an empty record.
func (t *Tracker) GetProgress(ctx context.Context, userID uint) (*models.ProgressRecord, error) {
	db := t.db.WithContext(ctx)
	var record models.ProgressRecord
	err := db.Where("user_id = ?", userID).First(&record).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if err := ensureUser(db, userID); err != nil {
			return nil, err
		}
		return models.NewProgressRecord(userID), nil
	}
	if err != nil {
		return nil, persistence("load progress", err)
	}
	return &record, nil
}

// GetStats returns streak counters and knowledge levels, served from cache when possible.
func (t *Tracker) GetStats(ctx context.Context, userID uint) (*Stats, error) {
	if t.cache == nil {
		return t.loadStats(ctx, userID)
	}
	version, err := t.cache.Version(ctx, statsVersionKey(userID))
	if err != nil {
		utils.Sugar.Warnf("stats cache version unavailable user=%d err=%v", userID, err)
		return t.loadStats(ctx, userID)
	}
	var stats Stats
	err = t.cache.Fetch(ctx, statsKey(userID, version), statsCacheTTL, &stats, func(ctx context.Context) (any, error) {
		return t.loadStats(ctx, userID)
	})
	if err != nil {
		return nil, err
	}
	return &stats, nil
}

func (t *Tracker) loadStats(ctx context.Context, userID uint) (*Stats, error) {
	db := t.db.WithContext(ctx)
	var user models.User
	if err := db.First(&user, userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, persistence("load user", err)
	}
	progress, err := t.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &Stats{
		Streak:           user.StudyStreak,
		LongestStreak:    user.LongestStreak,
		TotalStudyTime:   user.TotalStudyTime,
		LastStudySession: user.LastStudySession,
		CurrentLevel:     progress.CurrentLevel,
		KnowledgeLevels:  progress.Levels(),
		MasteredTopics:   progress.MasteredTopics(),
	}, nil
}

// invalidateStats runs after commit; fills that read the old state are left under the old generation.
func (t *Tracker) invalidateStats(ctx context.Context, userID uint) {
	if t.cache != nil {
		t.cache.Bump(ctx, statsVersionKey(userID))
	}
}

func statsVersionKey(userID uint) string {
	return "stats:v:" + strconv.FormatUint(uint64(userID), 10)
}

func statsKey(userID uint, version int64) string {
	return "stats:" + strconv.FormatUint(uint64(userID), 10) + ":" + strconv.FormatInt(version, 10)
}

func ensureUser(db *gorm.DB, userID uint) error {
	var count int64
	if err := db.Model(&models.User{}).Where("id = ?", userID).Count(&count).Error; err != nil {
		return persistence("lookup user", err)
	}
	if count == 0 {
		return ErrUserNotFound
	}
	return nil
}

// roundMinutes converts an elapsed duration to whole minutes, never negative.
func roundMinutes(d time.Duration) int {
	if d <= 0 {
		return 0
	}
	return int(math.Round(d.Minutes()))
}
