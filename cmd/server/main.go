package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/database"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/logger"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/repository"
	"github.com/stemsi/exstem-assessment/internal/repository/memstore"
	"github.com/stemsi/exstem-assessment/internal/router"
	"github.com/stemsi/exstem-assessment/internal/service"
	"github.com/stemsi/exstem-assessment/internal/validator"
	"github.com/stemsi/exstem-assessment/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("store", cfg.StoreDriver).
		Str("log_level", cfg.LogLevel).
		Msg("Starting ExStem Assessment")

	// ─── Initialize Validator & Metrics ────────────────────────────────
	validator.Setup()
	metrics.Init()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Open Store ────────────────────────────────────────────────────
	var (
		bank  repository.QuestionBank
		store repository.AttemptStore
		db    handler.Pinger
	)
	switch cfg.StoreDriver {
	case config.StoreDriverPostgres:
		pool, err := database.NewPostgresPool(ctx, cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
		}
		defer pool.Close()
		bank = repository.NewExamRepository(pool)
		store = repository.NewAttemptRepository(pool)
		db = pool
	case config.StoreDriverMemory:
		mem := memstore.New()
		if cfg.ExamSeedFile != "" {
			n, err := mem.LoadSeedFile(cfg.ExamSeedFile)
			if err != nil {
				log.Fatal().Err(err).Str("file", cfg.ExamSeedFile).Msg("Failed to load exam seed file")
			}
			log.Info().Int("exams", n).Str("file", cfg.ExamSeedFile).Msg("Exam seed loaded")
		}
		log.Warn().Msg("Memory store in use, attempts are lost on restart")
		bank, store = mem, mem
	default:
		log.Fatal().Str("driver", cfg.StoreDriver).Msg("Unknown STORE_DRIVER")
	}

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Services ──────────────────────────────────────────
	var events service.EventPublisher = service.NopPublisher{}
	if rdb != nil {
		events = service.NewRedisEventPublisher(rdb, log)
	}

	authService := service.NewAuthService(cfg)
	examService := service.NewExamService(bank, rdb, cfg.ExamCacheTTL, log)
	attemptService := service.NewAttemptService(store, examService, events, cfg.MaxAnswerLength, log)
	gradingService := service.NewGradingService(store, examService, events, log)
	monitorService := service.NewMonitorService(store, examService)

	limiter := middleware.NewAttemptRateLimiter(cfg.SecurityEventRate, cfg.SecurityEventBurst)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Attempt: handler.NewAttemptHandler(attemptService, log),
		Grading: handler.NewGradingHandler(gradingService, attemptService, log),
		Exam:    handler.NewExamHandler(examService, log),
		Monitor: handler.NewMonitorHandler(rdb, monitorService, log),
		WS:      handler.NewWSHandler(attemptService, limiter, log, cfg.AllowedOrigins),
		System:  handler.NewSystemHandler(db, rdb, cfg.StoreDriver, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	workerDone := make(chan struct{})

	expiryWorker, err := worker.NewExpiryWorker(attemptService, cfg.ExpirySweepSchedule, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule expiry worker")
	}
	go func() {
		expiryWorker.Start(workerCtx)
		close(workerDone)
	}()

	// ─── Prewarm Redis Caches ─────────────────────────────────────────
	// Published exams are cached before traffic arrives so the first wave
	// of Start calls does not stampede the database.
	prewarm(ctx, examService, rdb, log)

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(authService, limiter, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the expiry sweep and wait for a running one to finish.
	workerCancel()
	select {
	case <-workerDone:
	case <-time.After(worker.SweepTimeout):
		log.Warn().Msg("Expiry worker did not stop in time")
	}

	log.Info().Msg("Shutdown complete")
}

func prewarm(ctx context.Context, exams *service.ExamService, rdb *redis.Client, log zerolog.Logger) {
	if rdb == nil {
		return
	}
	if err := exams.PrewarmAllCaches(ctx); err != nil {
		log.Warn().Err(err).Msg("Cache prewarm failed")
	}
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
