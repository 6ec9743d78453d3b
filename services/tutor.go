package services

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/cppla/studytutor/models"
)

const maxMessageLength = 4000

// Generator produces a tutor reply for message given a context preamble.
type Generator interface {
	Generate(ctx context.Context, message, preamble string) (string, error)
}

// Tutor answers learner questions through a Generator and keeps the conversation log.
type Tutor struct {
	db      *gorm.DB
	tracker *Tracker
	gen     Generator
	now     func() time.Time
}

// NewTutor creates a Tutor. Progress is read through tracker.
func NewTutor(db *gorm.DB, tracker *Tracker, gen Generator) *Tutor {
	return &Tutor{db: db, tracker: tracker, gen: gen, now: time.Now}
}

// Chat sends message to the model with the learner's progress as context and appends
// the exchange to the conversation log. The generator is called once, without retry.
func (t *Tutor) Chat(ctx context.Context, userID uint, message string) (*models.ConversationTurn, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return nil, invalidArgument("message is required")
	}
	if utf8.RuneCountInString(message) > maxMessageLength {
		return nil, invalidArgument("message exceeds %d characters", maxMessageLength)
	}

	progress, err := t.tracker.GetProgress(ctx, userID)
	if err != nil {
		return nil, err
	}

	reply, err := t.gen.Generate(ctx, message, BuildTutorContext(progress))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrGenerationFailed, err)
	}

	turn := models.ConversationTurn{
		UserID:    userID,
		Message:   message,
		Response:  reply,
		Timestamp: t.now().UTC(),
	}
	if err := t.db.WithContext(ctx).Create(&turn).Error; err != nil {
		return nil, persistence("append conversation turn", err)
	}
	return &turn, nil
}

// History returns up to limit latest turns of userID, oldest first.
func (t *Tutor) History(ctx context.Context, userID uint, limit int) ([]models.ConversationTurn, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var turns []models.ConversationTurn
	if err := t.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("timestamp DESC").Order("id DESC").
		Limit(limit).
		Find(&turns).Error; err != nil {
		return nil, persistence("load conversation", err)
	}
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}

// BuildTutorContext renders the preamble handed to the model.
func BuildTutorContext(p *models.ProgressRecord) string {
	mastered := p.MasteredTopics()
	goals := p.Goals()
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI tutor. The student's current level is %s.\n", orNone(p.CurrentLevel))
	fmt.Fprintf(&b, "Topics they've mastered: %s.\n", orNone(strings.Join(mastered, ", ")))
	fmt.Fprintf(&b, "Current learning goals: %s.\n\n", orNone(strings.Join(goals, ", ")))
	b.WriteString("Provide guidance and help them learn, but don't give direct answers.\n")
	b.WriteString("Use the Socratic method to guide them to understanding.")
	return b.String()
}

func orNone(s string) string {
	if strings.TrimSpace(s) == "" {
		return "none yet"
	}
	return s
}
