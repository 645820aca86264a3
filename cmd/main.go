package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/notewise/notewise-backend/internal/agents"
	"github.com/notewise/notewise-backend/internal/config"
	"github.com/notewise/notewise-backend/internal/data/repos"
	"github.com/notewise/notewise-backend/internal/db"
	"github.com/notewise/notewise-backend/internal/gate"
	"github.com/notewise/notewise-backend/internal/handlers"
	"github.com/notewise/notewise-backend/internal/ingestion"
	"github.com/notewise/notewise-backend/internal/jobs/notegen"
	"github.com/notewise/notewise-backend/internal/jobs/runtime"
	"github.com/notewise/notewise-backend/internal/jobs/worker"
	"github.com/notewise/notewise-backend/internal/middleware"
	"github.com/notewise/notewise-backend/internal/observability"
	"github.com/notewise/notewise-backend/internal/pkg/logger"
	"github.com/notewise/notewise-backend/internal/platform/gcp"
	"github.com/notewise/notewise-backend/internal/platform/openai"
	"github.com/notewise/notewise-backend/internal/realtime"
	"github.com/notewise/notewise-backend/internal/server"
	"github.com/notewise/notewise-backend/internal/services"
	"github.com/notewise/notewise-backend/internal/utils"
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

	// Tracing
	if shutdown := observability.InitTracing(context.Background(), log, "notewise-backend"); shutdown != nil {
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := shutdown(ctx); err != nil {
				log.Warn("OTel shutdown failed", "error", err)
			}
		}()
	}

	// Env
	log.Info("Loading environment variables from main...")
	jwtSecretKey := utils.GetEnv("JWT_SECRET_KEY", "defaultsecret", log)
	configPath := utils.GetEnv("PIPELINE_CONFIG_PATH", "configs/pipeline.yaml", log)

	// Pipeline policy
	cfg, err := config.Load(configPath, log)
	if err != nil {
		log.Error("Could not load pipeline config", "error", err)
		os.Exit(1)
	}

	// Postgres
	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		log.Error("Postgres init failed", "error", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		log.Warn("Postgres auto migration failed", "error", err)
	}
	thePG := postgresService.DB()

	// Redis (optional; job status caching degrades to the database without it)
	var rdb *redis.Client
	if addr := utils.GetEnv("REDIS_ADDR", "", log); addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:        addr,
			DialTimeout: 5 * time.Second,
		})
		pingCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := rdb.Ping(pingCtx).Err(); err != nil {
			log.Warn("Redis unreachable, continuing without status cache", "error", err)
			_ = rdb.Close()
			rdb = nil
		}
		cancel()
	}

	// Repos
	log.Info("Setting up Repos from main...")
	r := repos.New(log)

	// Platform clients
	log.Info("Setting up platform clients from main...")
	openaiClient, err := openai.NewClient(log)
	if err != nil {
		log.Error("Could not init OpenAIClient", "error", err)
		os.Exit(1)
	}
	visionClient, err := gcp.NewVision(log)
	if err != nil {
		log.Warn("Could not init Vision client, image notes disabled", "error", err)
	}
	speechClient, err := gcp.NewSpeech(log)
	if err != nil {
		log.Warn("Could not init Speech client, audio notes disabled", "error", err)
	}

	// Pipeline
	normalizer := ingestion.NewNormalizer(log, visionClient, speechClient)
	pipeline := agents.NewPipeline(log, openaiClient, &cfg)
	featureGate := gate.New(log, thePG, r.User, &cfg)

	// Realtime
	log.Info("Setting up SSE hub now...")
	hub := realtime.NewHub(log)
	notifier := services.NewJobNotifier(hub)

	// Services
	log.Info("Setting up Services from main...")
	jobService := services.NewJobService(log, thePG, rdb, r, featureGate, normalizer, pipeline, notifier)
	noteService := services.NewNoteService(log, thePG, r.Note)

	// Worker
	registry := runtime.NewRegistry()
	if err := registry.Register(notegen.NewHandler(log, normalizer, pipeline, r.Note)); err != nil {
		log.Error("Could not register note generation handler", "error", err)
		os.Exit(1)
	}
	jobWorker := worker.NewWorker(thePG, log, r.JobRun, registry, notifier, cfg.Worker)
	jobWorker.Start(context.Background())

	// Handlers
	log.Info("Setting up handlers from main...")
	noteHandler := handlers.NewNoteHandler(log, jobService, noteService)
	jobHandler := handlers.NewJobHandler(log, jobService)
	sseHandler := handlers.NewSSEHandler(log, hub)

	// Middleware
	log.Info("Setting up middleware from main...")
	authMiddleware := middleware.NewAuthMiddleware(log, thePG, r.User, jwtSecretKey)

	// Router
	log.Info("Setting up router from main...")
	router := server.NewRouter(server.RouterConfig{
		AuthMiddleware: authMiddleware,
		NoteHandler:    noteHandler,
		JobHandler:     jobHandler,
		SSEHandler:     sseHandler,
	})

	port := utils.GetEnv("PORT", "8080", log)
	fmt.Printf("Server listening on :%s\n", port)
	if err := router.Run(":" + port); err != nil {
		log.Warn("Server failed", "error", err)
	}
}
