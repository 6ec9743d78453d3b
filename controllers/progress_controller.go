package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/studytutor/services"
	"github.com/cppla/studytutor/utils"
)

// ProgressController updates topics, levels and goals and serves stats.
type ProgressController struct {
	tracker *services.Tracker
}

func NewProgressController(tracker *services.Tracker) *ProgressController {
	return &ProgressController{tracker: tracker}
}

// UpdateProgress records the mastery level of one topic.
func (p *ProgressController) UpdateProgress(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Topic    string   `json:"topic" binding:"required"`
		Progress *float64 `json:"progress" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "topic and progress are required")
		return
	}

	record, err := p.tracker.UpdateProgress(ctx.Request.Context(), userID, req.Topic, *req.Progress)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{
		"success":         true,
		"current_level":   record.CurrentLevel,
		"knowledge_level": record.Levels(),
	})
}

// SetGoals replaces the learning goals.
func (p *ProgressController) SetGoals(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Goals []string `json:"goals"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "invalid request payload")
		return
	}

	record, err := p.tracker.SetLearningGoals(ctx.Request.Context(), userID, req.Goals)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"learning_goals": record.Goals()})
}

// GetStats returns streak counters and knowledge levels.
func (p *ProgressController) GetStats(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	stats, err := p.tracker.GetStats(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, stats)
}

// ListTopics returns the tracked topics with their levels.
func (p *ProgressController) ListTopics(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	topics, err := p.tracker.ListTopics(ctx.Request.Context(), userID)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Success(ctx, gin.H{"topics": topics})
}

// AddTopic starts tracking a new topic at level 0.
func (p *ProgressController) AddTopic(ctx *gin.Context) {
	userID, ok := requireUser(ctx)
	if !ok {
		return
	}
	var req struct {
		Name string `json:"name" binding:"required"`
	}
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40003, "topic name is required")
		return
	}

	topics, err := p.tracker.AddTopic(ctx.Request.Context(), userID, req.Name)
	if err != nil {
		respondError(ctx, err)
		return
	}
	utils.Created(ctx, gin.H{"topics": topics})
}
