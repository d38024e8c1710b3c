package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/handler"
	"github.com/stemsi/ujian-proctor/internal/metrics"
	"github.com/stemsi/ujian-proctor/internal/middleware"
	"github.com/stemsi/ujian-proctor/internal/model"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth             *handler.AuthHandler
	Participant      *handler.ParticipantHandler
	ParticipantAdmin *handler.ParticipantAdminHandler
	Exam             *handler.ExamHandler
	Lock             *handler.LockHandler
	Alert            *handler.AlertHandler
	WS               *handler.WSHandler
	System           *handler.SystemHandler
}

const statsPath = "/api/v1/admin/system/stats"

// SetupRouter configures all Gin route groups with appropriate middlewares.
// authLimiter guards login and code redemption; the caller owns its lifetime.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
	m *metrics.Metrics,
	authLimiter *middleware.RateLimiter,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID", "X-Browser-Fingerprint"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Content-Disposition"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	router.Use(response.RequestIDMiddleware())
	router.Use(m.Instrument())

	brotliCfg := middleware.DefaultBrotliConfig
	brotliCfg.SkipPaths = []string{"/metrics", "/ws/", statsPath}
	router.Use(middleware.BrotliWithConfig(brotliCfg))

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(m.Handler()))

	// ─── 0. Public Group (No Auth) ─────────────────────────────────────
	publicAPI := router.Group("/api/v1")
	{
		publicAPI.GET("/site", handlers.System.SiteConfig)
		publicAPI.POST("/alerts/telegram", handlers.Alert.TelegramAlert)
		publicAPI.POST("/alerts/violation", handlers.Alert.ViolationAlert)
	}

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := router.Group("/api/v1/auth")
	{
		auth.POST("/login", authLimiter.Middleware(), handlers.Auth.ParticipantLogin)
		auth.POST("/admin/login", authLimiter.Middleware(), handlers.Auth.AdminLogin)

		// Authenticated profile routes
		auth.GET("/me",
			middleware.RequireParticipantJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.GetParticipantProfile,
		)
		auth.POST("/logout",
			middleware.RequireParticipantJWT(authService),
			middleware.CheckSingleDeviceSession(authService),
			handlers.Auth.ParticipantLogout,
		)
		auth.GET("/admin/me", middleware.RequireAdminJWT(authService), handlers.Auth.GetAdminProfile)
	}

	// ─── 2. Participant Group (JWT + Single Device) ────────────────────
	participantAPI := router.Group("/api/v1/participant")
	participantAPI.Use(
		middleware.RequireParticipantJWT(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		participantAPI.POST("/redeem", authLimiter.Middleware(), handlers.Participant.Redeem)

		participantAPI.GET("/attempts/:id", handlers.Participant.GetAttempt)
		participantAPI.POST("/attempts/:id/submit", handlers.Participant.SubmitAnswers)
		participantAPI.POST("/attempts/:id/violations", handlers.Participant.ReportViolation)

		lock := participantAPI.Group("/lock")
		lock.Use(middleware.NoStore())
		{
			lock.POST("/consent", handlers.Participant.Consent)
			lock.POST("/engage", handlers.Participant.Engage)
			lock.GET("/status", handlers.Participant.LockStatus)
		}
	}

	// ─── 3. WebSocket Group (Participant WS Auth) ──────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(
		middleware.RequireParticipantWSAuth(authService),
		middleware.CheckSingleDeviceSession(authService),
	)
	{
		ws.GET("/participant/attempts/:id/stream", handlers.WS.AttemptStream)
	}

	// ─── 4. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		// Participants
		adminAPI.GET("/participants",
			middleware.RequirePermission(model.PermissionParticipantsRead),
			handlers.ParticipantAdmin.ListParticipants,
		)
		adminAPI.GET("/participants/export",
			middleware.RequirePermission(model.PermissionParticipantsRead),
			handlers.ParticipantAdmin.ExportParticipants,
		)
		adminAPI.POST("/participants",
			middleware.RequirePermission(model.PermissionParticipantsWrite),
			handlers.ParticipantAdmin.CreateParticipant,
		)
		adminAPI.POST("/participants/import",
			middleware.RequirePermission(model.PermissionParticipantsWrite),
			handlers.ParticipantAdmin.ImportRoster,
		)
		adminAPI.POST("/participants/:id/reset-session",
			middleware.RequireAnyPermission(model.PermissionParticipantsWrite, model.PermissionLocksManage),
			handlers.ParticipantAdmin.ResetSession,
		)

		// Exams and access codes
		adminAPI.GET("/exams",
			middleware.RequirePermission(model.PermissionExamsRead),
			handlers.Exam.ListExams,
		)
		adminAPI.POST("/exams",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.CreateExam,
		)
		adminAPI.PATCH("/exams/:id/active",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.SetExamActive,
		)
		adminAPI.GET("/exams/:id/codes",
			middleware.RequirePermission(model.PermissionExamsRead),
			handlers.Exam.ListCodes,
		)
		adminAPI.POST("/exams/:id/codes",
			middleware.RequirePermission(model.PermissionExamsWrite),
			handlers.Exam.GenerateCodes,
		)

		// Attempts
		adminAPI.GET("/exams/:id/attempts",
			middleware.RequirePermission(model.PermissionExamsRead),
			handlers.Exam.ListAttempts,
		)
		adminAPI.POST("/attempts/transition",
			middleware.RequirePermission(model.PermissionAttemptsTransition),
			handlers.Exam.BulkTransition,
		)

		// Session locks
		locks := adminAPI.Group("/locks")
		locks.Use(middleware.NoStore(), middleware.RequirePermission(model.PermissionLocksManage))
		{
			locks.GET("/active", handlers.Lock.ListActive)
			locks.GET("/:id/tokens", handlers.Lock.Tokens)
			locks.POST("/:id/unlock", handlers.Lock.Unlock)
			locks.POST("/:id/regenerate", handlers.Lock.RegenerateTokens)
		}

		adminAPI.GET("/security-events",
			middleware.RequirePermission(model.PermissionEventsRead),
			handlers.Lock.ListEvents,
		)

		adminAPI.POST("/notifications/test",
			middleware.RequirePermission(model.PermissionNotificationsTest),
			handlers.System.TestNotification,
		)

		// System Monitoring
		adminAPI.GET("/system/stats",
			handlers.System.StatsStream, // Open to all admins
		)
	}

	return router
}
