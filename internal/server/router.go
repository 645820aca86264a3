package server

import (
	"strings"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/notewise/notewise-backend/internal/handlers"
	"github.com/notewise/notewise-backend/internal/middleware"
	"github.com/notewise/notewise-backend/internal/utils"
)

type RouterConfig struct {
	AuthMiddleware *middleware.AuthMiddleware
	NoteHandler    *handlers.NoteHandler
	JobHandler     *handlers.JobHandler
	SSEHandler     *handlers.SSEHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.Default()
	router.Use(otelgin.Middleware("notewise-backend"))
	router.Use(middleware.AttachTraceContext())

	router.Use(cors.New(cors.Config{
		AllowOrigins:     allowedOrigins(),
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "PATCH", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
	}))

	router.GET("/healthcheck", handlers.HealthCheck)

	api := router.Group("/api")
	api.Use(cfg.AuthMiddleware.RequireAuth())
	{
		api.POST("/notes/process", cfg.NoteHandler.Process)
		api.POST("/notes/process-async", cfg.NoteHandler.ProcessAsync)
		api.GET("/notes", cfg.NoteHandler.List)
		api.GET("/notes/search", cfg.NoteHandler.Search)
		api.GET("/notes/:id", cfg.NoteHandler.Get)
		api.DELETE("/notes/:id", cfg.NoteHandler.Delete)

		api.GET("/jobs/:id/status", cfg.JobHandler.Status)
		api.GET("/jobs/:id/result", cfg.JobHandler.Result)

		api.GET("/events", cfg.SSEHandler.Stream)
	}

	return router
}

func allowedOrigins() []string {
	raw := utils.GetEnv("CORS_ALLOW_ORIGINS", "http://localhost:3000", nil)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
