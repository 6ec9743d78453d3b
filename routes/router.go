package routes

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/cppla/studytutor/config"
	"github.com/cppla/studytutor/controllers"
	"github.com/cppla/studytutor/middleware"
	"github.com/cppla/studytutor/utils"
)

// Dependencies are the constructed collaborators the router wires into handlers.
type Dependencies struct {
	Auth        *controllers.AuthController
	Tutor       *controllers.TutorController
	Progress    *controllers.ProgressController
	Config      *controllers.ConfigController
	Identity    *middleware.Auth
	RateLimiter *middleware.RateLimiter
}

// SetupRouter wires routes, middlewares, and controllers.
func SetupRouter(cfg config.AppConfig, deps Dependencies) *gin.Engine {
	switch strings.ToLower(cfg.GinMode) {
	case "debug":
		gin.SetMode(gin.DebugMode)
	case "test":
		gin.SetMode(gin.TestMode)
	default:
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	if cfg.GinPath != "" {
		gl, err := utils.NewRollingFileLogger(cfg.GinPath, cfg.LogLevel, cfg.LogMaxSizeMB, cfg.LogMaxBackups, cfg.LogMaxAgeDays, cfg.LogCompress)
		if err == nil {
			r.Use(utils.Ginzap(gl, time.RFC3339, true))
			r.Use(utils.RecoveryWithZap(gl, true))
		} else {
			utils.Sugar.Warnf("gin logger init failed, using default recovery: %v", err)
			r.Use(gin.Recovery())
		}
	} else {
		r.Use(gin.Recovery())
	}
	if cfg.TracingEnabled {
		r.Use(otelgin.Middleware("studytutor"))
	}

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", utils.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", utils.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.AllowedOrigins) == 1 && cfg.AllowedOrigins[0] == "*" {
		// credentials cannot be combined with a wildcard origin
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.AllowedOrigins
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(ctx *gin.Context) {
		utils.Success(ctx, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	limited := api.Group("")
	if deps.RateLimiter != nil {
		limited.Use(deps.RateLimiter.Handler())
	}

	api.GET("/config/pomodoro", deps.Config.GetPomodoro)

	authGroup := limited.Group("/auth")
	authGroup.POST("/register", deps.Auth.Register)
	authGroup.POST("/login", deps.Auth.Login)
	authGroup.GET("/oauth/:provider/login", deps.Auth.OAuthRedirect)
	authGroup.GET("/oauth/:provider/callback", deps.Auth.OAuthCallback)
	authGroup.POST("/logout", deps.Identity.Required(), deps.Auth.Logout)
	authGroup.GET("/me", deps.Identity.Required(), deps.Auth.Me)

	protected := limited.Group("")
	protected.Use(deps.Identity.Required())

	tutor := protected.Group("/tutor")
	tutor.POST("/start-pomodoro", deps.Tutor.StartPomodoro)
	tutor.POST("/end-pomodoro", deps.Tutor.EndPomodoro)
	tutor.GET("/sessions", deps.Tutor.ListSessions)
	tutor.POST("/chat", deps.Tutor.Chat)
	tutor.GET("/history", deps.Tutor.History)
	tutor.GET("/progress", deps.Tutor.Progress)

	protected.POST("/progress", deps.Progress.UpdateProgress)
	protected.PUT("/goals", deps.Progress.SetGoals)
	protected.GET("/stats", deps.Progress.GetStats)
	protected.GET("/topics", deps.Progress.ListTopics)
	protected.POST("/topics", deps.Progress.AddTopic)

	r.NoRoute(func(ctx *gin.Context) {
		utils.Error(ctx, http.StatusNotFound, 40400, "api route not found")
	})

	return r
}
