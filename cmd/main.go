package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/pressroomhq/pressroom-backend/internal/data/db"
	"github.com/pressroomhq/pressroom-backend/internal/data/repos"
	"github.com/pressroomhq/pressroom-backend/internal/engine"
	"github.com/pressroomhq/pressroom-backend/internal/extract"
	"github.com/pressroomhq/pressroom-backend/internal/handlers"
	"github.com/pressroomhq/pressroom-backend/internal/humanize"
	"github.com/pressroomhq/pressroom-backend/internal/platform/anthropic"
	"github.com/pressroomhq/pressroom-backend/internal/platform/envutil"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
	"github.com/pressroomhq/pressroom-backend/internal/publish"
	"github.com/pressroomhq/pressroom-backend/internal/queue"
	"github.com/pressroomhq/pressroom-backend/internal/scheduler"
	"github.com/pressroomhq/pressroom-backend/internal/scout"
	"github.com/pressroomhq/pressroom-backend/internal/server"
	"github.com/pressroomhq/pressroom-backend/internal/workbench"
)

func main() {
	// Logger
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("Failed to init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	// Env
	log.Info("Loading environment variables from main...")
	port := envutil.GetEnv("PORT", "8080", log)
	schedulerInterval := envutil.GetEnvAsInt("SCHEDULER_INTERVAL_SECONDS", 60, log)

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = db.AutoMigrateAll(postgresService.DB()); err != nil {
		log.Error("Postgres auto migration failed", "error", err)
		os.Exit(1)
	}
	if err = db.EnsureIndexes(postgresService.DB()); err != nil {
		log.Warn("Postgres index setup failed", "error", err)
	}
	thePG := postgresService.DB()

	// Repos
	log.Info("Setting up Repos from main...")
	orgRepo := repos.NewOrgRepo(thePG, log)
	settingRepo := repos.NewSettingRepo(thePG, log)
	voiceRepo := repos.NewVoiceRepo(thePG, log)
	signalRepo := repos.NewSignalRepo(thePG, log)
	storyRepo := repos.NewStoryRepo(thePG, log)
	contentRepo := repos.NewContentRepo(thePG, log)
	briefRepo := repos.NewBriefRepo(thePG, log)

	// Services
	log.Info("Setting up Services from main...")
	llm := anthropic.NewClient(log)
	humanizer := humanize.NewTransformer(log)
	extractor := extract.NewExtractor()
	scoutService := scout.NewService(log, signalRepo, settingRepo, llm)
	engineService := engine.NewService(log, signalRepo, storyRepo, contentRepo, briefRepo, voiceRepo, llm, humanizer, extractor)
	workbenchService := workbench.NewService(log, storyRepo, signalRepo, settingRepo, scoutService, llm)
	queueService := queue.NewService(log, contentRepo, signalRepo)
	publishService := publish.NewService(log, contentRepo, settingRepo, publish.NewLinkedIn(), publish.NewFacebook())

	// Handlers
	log.Info("Setting up handlers from main...")
	orgHandler := handlers.NewOrgHandler(log, orgRepo)
	settingsHandler := handlers.NewSettingsHandler(log, settingRepo, voiceRepo)
	signalHandler := handlers.NewSignalHandler(log, signalRepo, engineService)
	storyHandler := handlers.NewStoryHandler(log, workbenchService, engineService)
	contentHandler := handlers.NewContentHandler(log, queueService, engineService, publishService)
	pipelineHandler := handlers.NewPipelineHandler(log, scoutService, engineService)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		Log:             log,
		OrgHandler:      orgHandler,
		SettingsHandler: settingsHandler,
		SignalHandler:   signalHandler,
		StoryHandler:    storyHandler,
		ContentHandler:  contentHandler,
		PipelineHandler: pipelineHandler,
	})

	// Scheduler
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	sched := scheduler.New(log, time.Duration(schedulerInterval)*time.Second, orgRepo, settingRepo, publishService, scoutService, engineService)
	sched.Start(ctx)

	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Warn("Server shutdown", "error", err)
	}
}
