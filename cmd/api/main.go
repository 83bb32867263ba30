package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/websocket/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/research-analyst/backend/internal/analysis"
	"github.com/research-analyst/backend/internal/api/handlers"
	"github.com/research-analyst/backend/internal/fundamentals"
	"github.com/research-analyst/backend/internal/ingestion"
	"github.com/research-analyst/backend/internal/metrics"
	"github.com/research-analyst/backend/internal/middleware/ratelimit"
	"github.com/research-analyst/backend/internal/middleware/security"
	"github.com/research-analyst/backend/internal/middleware/validation"
	"github.com/research-analyst/backend/internal/query"
	"github.com/research-analyst/backend/internal/session"
	"github.com/research-analyst/backend/internal/storage/sqlite"
	"github.com/research-analyst/backend/pkg/circuitbreaker"
	"github.com/research-analyst/backend/pkg/config"
	appLogger "github.com/research-analyst/backend/pkg/logger"
	"github.com/research-analyst/backend/pkg/retry"
)

func main() {
	configPath := flag.String("config", "", "path to a config file; defaults to ./config.yaml or ./config/config.yaml")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting Research Analyst API Server", zap.String("environment", cfg.Server.Environment))

	metrics.Init()

	checks := map[string]handlers.Check{}

	var (
		audit       handlers.AuditLog
		recorder    ingestion.Recorder
		transcripts handlers.TranscriptReader
		engineOpts  []query.Option
	)
	if cfg.SQLite.Enabled {
		sqliteClient, err := sqlite.NewClient(cfg.SQLite.Path)
		if err != nil {
			appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
		}
		defer sqliteClient.Close()

		if err := sqliteClient.InitSchema(); err != nil {
			appLogger.Fatal("Failed to initialize schema", zap.Error(err))
		}

		audit = sqliteClient
		recorder = sqliteClient
		transcripts = sqliteClient
		engineOpts = append(engineOpts, query.WithTranscriptSource(
			ingestion.NewStoredSource(sqliteClient, ingestion.NewStaticSource(analysis.SampleTranscript)),
		))
		checks["sqlite"] = func(context.Context) error { return sqliteClient.Ping() }
	}

	var sessions session.Store
	switch cfg.Sessions.Backend {
	case "redis":
		redisStore, err := session.NewRedisStore(cfg.RedisAddr(), cfg.Redis.Password, cfg.Redis.DB, cfg.SessionTTL())
		if err != nil {
			appLogger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		defer redisStore.Close()

		sessions = redisStore
		checks["redis"] = redisStore.Ping
	default:
		memoryStore := session.NewMemoryStore(cfg.SessionTTL())
		defer memoryStore.Stop()

		sessions = memoryStore
	}

	lexicon := analysis.DefaultLexicon()
	if cfg.Analysis.LexiconPath != "" {
		lexicon, err = analysis.LoadLexicon(cfg.Analysis.LexiconPath)
		if err != nil {
			appLogger.Fatal("Failed to load sentiment lexicon", zap.Error(err))
		}
	}
	analyzer := analysis.NewAnalyzer(
		lexicon,
		analysis.NewRandomEvaluator(cfg.Analysis.RandomSeed),
		appLogger.GetLogger(),
	)

	retryCfg := retry.DefaultConfig()
	retryCfg.MaxAttempts = cfg.Fundamentals.MaxAttempts

	fetcher := fundamentals.NewClient(fundamentals.Config{
		BaseURL:   cfg.Fundamentals.BaseURL,
		UserAgent: cfg.Fundamentals.UserAgent,
		Timeout:   cfg.FetchTimeout(),
		Retry:     retryCfg,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Fundamentals.FailureThreshold,
			Timeout:          time.Duration(cfg.Fundamentals.OpenTimeoutSec) * time.Second,
		},
	})
	checks["fundamentals"] = func(context.Context) error {
		if fetcher.BreakerState() == circuitbreaker.StateOpen {
			return circuitbreaker.ErrCircuitOpen
		}
		return nil
	}

	queryEngine := query.NewEngine(fetcher, analyzer, engineOpts...)
	chat := handlers.NewChat(queryEngine, sessions, audit)
	processor := ingestion.NewProcessor(analyzer, recorder)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		BodyLimit:    cfg.Server.BodyLimit,
		ErrorHandler: handlers.ErrorHandler,
	})

	limiterCfg := ratelimit.Config{
		MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
		Logger:               appLogger.GetLogger(),
	}
	if cfg.RateLimit.Backend == "redis" {
		limiterClient := redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer limiterClient.Close()

		limiterCfg.Redis = limiterClient
		checks["ratelimit"] = func(ctx context.Context) error { return limiterClient.Ping(ctx).Err() }
	}
	limiter := ratelimit.New(limiterCfg)
	defer limiter.Stop()

	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:  strings.Join(cfg.Server.AllowedOrigins, ","),
		AllowHeaders:  "Origin, Content-Type, Accept, Authorization, X-Session-ID",
		AllowMethods:  "GET, POST, OPTIONS",
		ExposeHeaders: "Content-Disposition, X-Query-ID, X-Session-ID",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		IsDevelopment:  cfg.Server.Environment == "development",
	}))

	queryHandler := handlers.NewQueryHandler(chat, audit, cfg.Export.FileName)
	sessionHandler := handlers.NewSessionHandler(chat)
	transcriptHandler := handlers.NewTranscriptHandler(processor, transcripts)
	healthHandler := handlers.NewHealthHandler(checks)
	wsHandler := handlers.NewWebSocketHandler(chat, cfg.Export.FileName, cfg.Server.MaxQueryLength, time.Duration(cfg.Server.WriteTimeout)*time.Second)

	api := app.Group("/api/v1")
	api.Get("/health", healthHandler.Health)
	api.Get("/ready", healthHandler.Ready)

	api.Use(limiter.Middleware())
	api.Use(validation.Middleware(validation.Config{
		MaxQueryLength:    cfg.Server.MaxQueryLength,
		MaxTranscriptSize: cfg.Server.BodyLimit,
		Logger:            appLogger.GetLogger(),
	}))

	api.Post("/query", queryHandler.HandleQuery)
	api.Post("/query/export", queryHandler.ExportQuery)
	api.Get("/queries", queryHandler.GetQueryHistory)
	api.Post("/feedback", queryHandler.SubmitFeedback)
	api.Get("/sessions/:id/history", sessionHandler.GetHistory)
	api.Post("/transcripts/analyze", transcriptHandler.AnalyzeTranscript)
	api.Get("/transcripts/:id", transcriptHandler.GetTranscript)

	app.Get("/metrics", metrics.MetricsHandler())

	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})
	app.Get("/ws", websocket.New(wsHandler.HandleConnection))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		appLogger.Error("Server shutdown failed", zap.Error(err))
	}
	appLogger.Info("Server stopped")
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFile(path)
	}
	return config.Load()
}
