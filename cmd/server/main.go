package main

import (
	"context"
	"errors"
	"io/fs"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/database"
	"github.com/stemsi/ujian-proctor/internal/handler"
	"github.com/stemsi/ujian-proctor/internal/logger"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/middleware"
	"github.com/stemsi/ujian-proctor/internal/repository"
	"github.com/stemsi/ujian-proctor/internal/roster"
	"github.com/stemsi/ujian-proctor/internal/router"
	"github.com/stemsi/ujian-proctor/internal/service"
	"github.com/stemsi/ujian-proctor/internal/telegram"
	"github.com/stemsi/ujian-proctor/internal/validator"
	"github.com/stemsi/ujian-proctor/internal/worker"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Msg("Starting Ujian Proctor")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis ──────────────────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer rdb.Close()

	// ─── Load Roster ───────────────────────────────────────────────────
	ros := loadRoster(cfg.RosterPath, log)

	m := metrics.New()

	// ─── Initialize Repositories ───────────────────────────────────────
	participantRepo := repository.NewParticipantRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	codeRepo := repository.NewAccessCodeRepository(pool)
	attemptRepo := repository.NewAttemptRepository(pool)
	lockRepo := repository.NewSessionLockRepository(pool)
	eventRepo := repository.NewSecurityEventRepository(pool)
	adminRepo := repository.NewAdminRepository(pool)

	// ─── Notification Sink ─────────────────────────────────────────────
	var notifier service.Notifier
	if cfg.TelegramEnabled() {
		notifier = service.NewQueueNotifier(rdb, m, log)
	} else {
		log.Warn().Msg("Telegram not configured, notifications are only logged")
		notifier = service.NewLogNotifier(log)
	}

	// ─── Initialize Services ──────────────────────────────────────────
	authService := service.NewAuthService(cfg, service.NewRedisSessionRegistry(rdb))
	participantService := service.NewParticipantService(participantRepo, ros, log)
	examService := service.NewExamService(examRepo, codeRepo, service.NewRedisExamCache(rdb, log), log)
	eventService := service.NewSecurityEventService(eventRepo, m, log)
	redemptionService := service.NewRedemptionService(codeRepo, m, log)
	attemptService := service.NewAttemptService(attemptRepo, lockRepo, participantRepo, examRepo, eventService, notifier, log)
	lockService := service.NewSessionLockService(lockRepo, eventService, log)
	loginService := service.NewLoginService(participantService, examService, authService, adminRepo, log)
	notificationService := service.NewNotificationService(notifier, cfg.Site.Header, log)

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:             handler.NewAuthHandler(authService, loginService, participantService, examService),
		Participant:      handler.NewParticipantHandler(redemptionService, attemptService, lockService),
		ParticipantAdmin: handler.NewParticipantAdminHandler(participantService, authService),
		Exam:             handler.NewExamHandler(examService, attemptService),
		Lock:             handler.NewLockHandler(lockService, eventService),
		Alert:            handler.NewAlertHandler(notificationService),
		WS:               handler.NewWSHandler(attemptService, lockService, log, cfg.AllowedOrigins),
		System:           handler.NewSystemHandler(rdb, cfg.Site, notificationService, log),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if cfg.TelegramEnabled() {
		bot := telegram.NewClient(cfg.TelegramBotToken)
		if name, err := bot.GetMe(ctx); err != nil {
			log.Warn().Err(err).Msg("Telegram bot check failed, notifications will be retried")
		} else {
			log.Info().Str("bot", name).Msg("Telegram bot ready")
		}

		notifyWorker := worker.NewNotificationWorker(rdb, bot, cfg.TelegramChatID, m, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			notifyWorker.Start(workerCtx)
		}()
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	authLimiter := middleware.NewRateLimiter(cfg.AuthRatePerMinute, 0)
	defer authLimiter.Stop()

	r := router.SetupRouter(authService, handlers, cfg, m, authLimiter)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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

	// 2. Stop the notification worker. Undelivered items stay in Redis.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// loadRoster reads the participant roster. A missing file leaves lazy
// participant creation disabled instead of failing startup.
func loadRoster(path string, log zerolog.Logger) *roster.Roster {
	if path == "" {
		log.Warn().Msg("ROSTER_PATH empty, unknown names cannot log in")
		return roster.Empty()
	}
	ros, err := roster.Load(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			log.Warn().Str("path", path).Msg("Roster file not found, unknown names cannot log in")
			return roster.Empty()
		}
		log.Fatal().Err(err).Str("path", path).Msg("Failed to load roster")
	}
	log.Info().Str("path", path).Int("entries", ros.Len()).Msg("Roster loaded")
	return ros
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
