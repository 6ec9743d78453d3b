package controllers

import (
	"github.com/gin-gonic/gin"

	"github.com/cppla/studytutor/config"
	"github.com/cppla/studytutor/utils"
)

// ConfigController serves public, environment-driven client configuration.
type ConfigController struct {
	cfg config.AppConfig
}

func NewConfigController(cfg config.AppConfig) *ConfigController {
	return &ConfigController{cfg: cfg}
}

// GetPomodoro returns the timer defaults used by clients.
func (c *ConfigController) GetPomodoro(ctx *gin.Context) {
	utils.Success(ctx, gin.H{
		"default_minutes":     c.cfg.DefaultPomodoroMinutes,
		"max_minutes":         c.cfg.MaxPomodoroMinutes,
		"short_break_minutes": c.cfg.ShortBreakMinutes,
		"long_break_minutes":  c.cfg.LongBreakMinutes,
	})
}
