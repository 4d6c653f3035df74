package server

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/pressroomhq/pressroom-backend/internal/handlers"
	"github.com/pressroomhq/pressroom-backend/internal/middleware"
	"github.com/pressroomhq/pressroom-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log             *logger.Logger
	OrgHandler      *handlers.OrgHandler
	SettingsHandler *handlers.SettingsHandler
	SignalHandler   *handlers.SignalHandler
	StoryHandler    *handlers.StoryHandler
	ContentHandler  *handlers.ContentHandler
	PipelineHandler *handlers.PipelineHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestLogger(cfg.Log))

	// Cors
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:80",
			"http://localhost:3000",
			"http://localhost:5173",
		},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")

	// Orgs
	api.POST("/orgs", cfg.OrgHandler.Create)
	api.GET("/orgs", cfg.OrgHandler.List)

	org := api.Group("/orgs/:id")
	{
		org.GET("", cfg.OrgHandler.Get)
		org.DELETE("", cfg.OrgHandler.Delete)

		// Settings and voice
		org.GET("/settings", cfg.SettingsHandler.Get)
		org.PUT("/settings", cfg.SettingsHandler.Put)
		org.GET("/voice", cfg.SettingsHandler.GetVoice)
		org.PUT("/voice", cfg.SettingsHandler.PutVoice)

		// Signal wire
		org.GET("/signals", cfg.SignalHandler.List)
		org.GET("/signals/stats", cfg.SignalHandler.Stats)
		org.GET("/signals/:sid", cfg.SignalHandler.Get)
		org.DELETE("/signals/:sid", cfg.SignalHandler.Delete)
		org.PATCH("/signals/:sid/prioritize", cfg.SignalHandler.Prioritize)
		org.POST("/signals/:sid/dig-deeper", cfg.SignalHandler.DigDeeper)

		// Story workbench
		org.POST("/stories", cfg.StoryHandler.Create)
		org.GET("/stories", cfg.StoryHandler.List)
		org.GET("/stories/:sid", cfg.StoryHandler.Get)
		org.PATCH("/stories/:sid", cfg.StoryHandler.Update)
		org.DELETE("/stories/:sid", cfg.StoryHandler.Delete)
		org.POST("/stories/:sid/signals", cfg.StoryHandler.AddSignal)
		org.DELETE("/stories/:sid/signals/:signal_id", cfg.StoryHandler.RemoveSignal)
		org.PATCH("/stories/:sid/signals/:signal_id", cfg.StoryHandler.UpdateSignalNotes)
		org.POST("/stories/:sid/discover", cfg.StoryHandler.Discover)
		org.POST("/stories/:sid/accept", cfg.StoryHandler.AcceptCandidate)
		org.POST("/stories/:sid/generate", cfg.StoryHandler.Generate)

		// Content queue
		org.GET("/content", cfg.ContentHandler.List)
		org.GET("/content/:cid", cfg.ContentHandler.Get)
		org.DELETE("/content/:cid", cfg.ContentHandler.Delete)
		org.POST("/content/:cid/action", cfg.ContentHandler.Action)
		org.PUT("/content/:cid", cfg.ContentHandler.Edit)
		org.POST("/content/:cid/regenerate", cfg.ContentHandler.Regenerate)
		org.POST("/content/:cid/schedule", cfg.ContentHandler.Schedule)
		org.POST("/content/:cid/publish", cfg.ContentHandler.Publish)

		// Pipeline
		org.POST("/pipeline/scout", cfg.PipelineHandler.Scout)
		org.POST("/pipeline/generate", cfg.PipelineHandler.Generate)
		org.POST("/pipeline/run", cfg.PipelineHandler.Run)
	}

	return router
}
