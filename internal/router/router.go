package router

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/handler"
	"github.com/stemsi/exstem-assessment/internal/metrics"
	"github.com/stemsi/exstem-assessment/internal/middleware"
	"github.com/stemsi/exstem-assessment/internal/response"
	"github.com/stemsi/exstem-assessment/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Attempt *handler.AttemptHandler
	Grading *handler.GradingHandler
	Exam    *handler.ExamHandler
	Monitor *handler.MonitorHandler
	WS      *handler.WSHandler
	System  *handler.SystemHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	limiter *middleware.AttemptRateLimiter,
	handlers *Handlers,
	cfg *config.Config,
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
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())
	router.Use(metrics.MetricsMiddleware())

	router.GET("/health", handlers.System.Health)
	router.GET("/metrics", metrics.PrometheusHandler())

	// ─── 1. Student Group (JWT) ────────────────────────────────────────
	studentAPI := router.Group("/api/v1/student")
	studentAPI.Use(middleware.RequireStudentJWT(authService))
	{
		studentAPI.POST("/exams/:exam_id/attempts", handlers.Attempt.StartAttempt)
		studentAPI.GET("/attempts/:attempt_id", handlers.Attempt.GetAttempt)
		studentAPI.POST("/attempts/:attempt_id/sections/:section_id/enter", handlers.Attempt.EnterSection)
		studentAPI.PUT("/attempts/:attempt_id/answers/:question_id", handlers.Attempt.SubmitAnswer)
		studentAPI.POST("/attempts/:attempt_id/security-events", limiter.PerAttempt(), handlers.Attempt.ReportSecurityEvent)
		studentAPI.POST("/attempts/:attempt_id/complete", handlers.Attempt.CompleteAttempt)
	}

	// ─── 2. WebSocket Group (Student WS Auth) ──────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireStudentWSAuth(authService))
	{
		ws.GET("/student/attempts/:attempt_id/stream", handlers.WS.AttemptStream)
	}

	// ─── 3. Admin Group (JWT + RBAC) ───────────────────────────────────
	adminAPI := router.Group("/api/v1/admin")
	adminAPI.Use(middleware.RequireAdminJWT(authService))
	{
		grading := adminAPI.Group("/grading")
		{
			grading.GET("/exams/:exam_id/pending", middleware.RequirePermission(service.PermAttemptsGrade), handlers.Grading.ListPendingByExam)
			grading.GET("/attempts/:attempt_id/pending", middleware.RequirePermission(service.PermAttemptsGrade), handlers.Grading.ListPendingByAttempt)
			grading.GET("/attempts/:attempt_id", middleware.RequireAnyPermission(service.PermAttemptsGrade, service.PermAttemptsAudit), handlers.Grading.GetResult)
			grading.POST("/answers/:answer_id", middleware.RequirePermission(service.PermAttemptsGrade), handlers.Grading.GradeAnswer)
			grading.POST("/attempts/:attempt_id/reset", middleware.RequirePermission(service.PermAttemptsReset), handlers.Grading.ResetGrading)
		}

		adminAPI.GET("/attempts/:attempt_id/security-log", middleware.RequirePermission(service.PermAttemptsAudit), handlers.Grading.GetSecurityLog)

		exams := adminAPI.Group("/exams")
		{
			exams.GET("/:id", middleware.RequireAnyPermission(service.PermExamsRead, service.PermAttemptsGrade), handlers.Exam.GetExam)
			exams.POST("/:id/refresh-cache", middleware.RequirePermission(service.PermExamsRefresh), handlers.Exam.RefreshCache)
			exams.GET("/:id/monitor", middleware.RequirePermission(service.PermExamsMonitor), handlers.Monitor.MonitorExamSSE)
		}
	}

	return router
}
