package main

import (
	"context"
	"time"

	"github.com/cppla/studytutor/config"
	"github.com/cppla/studytutor/controllers"
	"github.com/cppla/studytutor/llm"
	"github.com/cppla/studytutor/middleware"
	"github.com/cppla/studytutor/models"
	"github.com/cppla/studytutor/routes"
	"github.com/cppla/studytutor/services"
	"github.com/cppla/studytutor/utils"
)

func main() {
	cfg := config.Load()

	// Initialize logger early
	if err := utils.InitLogger(cfg); err != nil {
		panic(err)
	}
	defer func() { _ = utils.Logger.Sync() }()

	shutdownTracing, err := utils.InitTracing(context.Background(), cfg, "studytutor")
	if err != nil {
		utils.Sugar.Fatalf("init tracing: %v", err)
	}

	db, err := config.OpenDatabase(cfg, &models.User{}, &models.StudySession{}, &models.ProgressRecord{}, &models.ConversationTurn{})
	if err != nil {
		utils.Sugar.Fatalf("open database: %v", err)
	}

	generator, err := llm.New(cfg)
	if err != nil {
		utils.Sugar.Fatalf("init chat model: %v", err)
	}

	rc := utils.NewRedis(cfg)
	tracker := services.NewTracker(db,
		services.WithCache(utils.NewJSONCache(rc)),
		services.WithPomodoroLimits(cfg.DefaultPomodoroMinutes, cfg.MaxPomodoroMinutes),
	)
	tutor := services.NewTutor(db, tracker, generator)
	accounts := services.NewAccounts(db)

	tokens := utils.NewTokenIssuer(cfg.JWTSecret, time.Duration(cfg.TokenTTLHours)*time.Hour)
	blacklist := utils.NewTokenBlacklist(rc)
	states := utils.NewOAuthStateStore(rc, 10*time.Minute)
	sessions := utils.NewSessionStore(cfg.SessionSecret, cfg.TokenTTLHours*3600, cfg.GinMode == "release")
	limiter := middleware.NewRateLimiter(cfg.RateLimitPerMinute)

	r := routes.SetupRouter(cfg, routes.Dependencies{
		Auth:        controllers.NewAuthController(accounts, tokens, blacklist, sessions, states, cfg),
		Tutor:       controllers.NewTutorController(tracker, tutor),
		Progress:    controllers.NewProgressController(tracker),
		Config:      controllers.NewConfigController(cfg),
		Identity:    middleware.NewAuth(tokens, blacklist, sessions),
		RateLimiter: limiter,
	})

	housekeeper := utils.NewHousekeeper()
	for _, job := range []struct {
		name  string
		every time.Duration
		prune func() int
	}{
		{"token-blacklist", 10 * time.Minute, blacklist.Prune},
		{"oauth-states", 5 * time.Minute, states.Prune},
		{"rate-limiters", time.Minute, limiter.Prune},
	} {
		if err := housekeeper.Every(job.every, job.name, job.prune); err != nil {
			utils.Sugar.Fatalf("schedule %s: %v", job.name, err)
		}
	}
	housekeeper.Start()

	srv := utils.NewServer(":"+cfg.AppPort, r)
	srv.OnShutdown(func(ctx context.Context) {
		housekeeper.Stop()
		if err := shutdownTracing(ctx); err != nil {
			utils.Sugar.Warnf("tracing shutdown: %v", err)
		}
		if rc != nil {
			_ = rc.Close()
		}
		if err := config.CloseDatabase(db); err != nil {
			utils.Sugar.Warnf("close database: %v", err)
		}
	})

	utils.Sugar.Infof("Starting server on port %s (graceful)", cfg.AppPort)
	if err := srv.ListenAndServe(); err != nil {
		utils.Sugar.Fatalf("server stopped with error: %v", err)
	}
	utils.Sugar.Info("server stopped")
}
