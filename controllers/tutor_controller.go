package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studytutor/services"
	"github.com/cppla/studytutor/utils"
)

// TutorController serves pomodoro sessions, tutor chat and the progress summary.
type TutorController struct {
	tracker *services.Tracker
	tutor   *services.Tutor
}

// NewTutorController wires the tutor endpoints.
func NewTutorController(tracker *services.Tracker, tutor *services.Tutor) *TutorController {
	return &TutorController{tracker: tracker, tutor: tutor}
}

// StartPomodoro opens a study session. The body is optional; duration is in minutes.
func (t *TutorController) StartPomodoro(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Duration int `json:"duration"`
	}
	if ctx.Request.ContentLength != 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
			return
		}
	}

	session, err := t.tracker.StartSession(ctx.Request.Context(), userID, req.Duration)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"session_id":       session.ID,
		"planned_duration": session.PlannedDuration,
		"start_time":       session.StartTime,
	})
}

// EndPomodoro completes a session and reports the updated streak.
func (t *TutorController) EndPomodoro(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		SessionID uint `json:"session_id" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "session_id is required")
		return
	}

	done, err := t.tracker.EndSession(ctx.Request.Context(), userID, req.SessionID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"success":          true,
		"actual_duration":  done.Session.ActualDuration,
		"streak":           done.Streak,
		"longest_streak":   done.LongestStreak,
		"total_study_time": done.TotalStudyTime,
	})
}

// ListSessions returns recent sessions, newest first.
func (t *TutorController) ListSessions(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	sessions, err := t.tracker.ListSessions(ctx.Request.Context(), userID, parseLimit(ctx.Query("limit")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": sessions})
}

// Chat forwards a question to the tutor.
func (t *TutorController) Chat(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Message string `json:"message" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "message is required")
		return
	}

	turn, err := t.tutor.Chat(ctx.Request.Context(), userID, req.Message)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"id":        turn.ID,
		"role":      "assistant",
		"content":   turn.Response,
		"timestamp": turn.Timestamp,
	})
}

// History returns the conversation log, oldest first.
func (t *TutorController) History(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	turns, err := t.tutor.History(ctx.Request.Context(), userID, parseLimit(ctx.Query("limit")))
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"items": turns})
}

// Progress returns the learner's level, mastered topics and goals.
func (t *TutorController) Progress(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	p, err := t.tracker.GetProgress(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"current_level":   p.CurrentLevel,
		"knowledge_level": p.Levels(),
		"mastered_topics": p.MasteredTopics(),
		"learning_goals":  p.Goals(),
		"last_active_at":  p.LastActiveAt,
	})
}
