package handler

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/exstem-assessment/internal/config"
	"github.com/stemsi/exstem-assessment/internal/response"
)

const healthTimeout = 2 * time.Second

// Pinger is satisfied by *pgxpool.Pool.
type Pinger interface {
	Ping(ctx context.Context) error
}

// SystemHandler reports process and dependency health.
type SystemHandler struct {
	db        Pinger
	rdb       *redis.Client
	driver    string
	startTime time.Time
	log       zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. db and rdb may be nil when
// the memory driver or no Redis is configured.
func NewSystemHandler(db Pinger, rdb *redis.Client, driver string, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		db:        db,
		rdb:       rdb,
		driver:    driver,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type healthReport struct {
	Status       string `json:"status"`
	Store        string `json:"store"`
	Database     string `json:"database"`
	Redis        string `json:"redis"`
	ResultsQueue int64  `json:"results_queue"`
	Uptime       string `json:"uptime"`
	Goroutines   int    `json:"goroutines"`
	GoVersion    string `json:"go_version"`
}

// Health godoc
// GET /health
// The database is required; Redis only degrades the report.
func (h *SystemHandler) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	report := healthReport{
		Status:     "ok",
		Store:      h.driver,
		Database:   "disabled",
		Redis:      "disabled",
		Uptime:     time.Since(h.startTime).Round(time.Second).String(),
		Goroutines: runtime.NumGoroutine(),
		GoVersion:  runtime.Version(),
	}

	if h.db != nil {
		report.Database = "up"
		if err := h.db.Ping(ctx); err != nil {
			h.log.Warn().Err(err).Msg("Database health check failed")
			report.Database = "down"
			report.Status = "down"
		}
	}

	if h.rdb != nil {
		report.Redis = "up"
		if err := h.rdb.Ping(ctx).Err(); err != nil {
			h.log.Warn().Err(err).Msg("Redis health check failed")
			report.Redis = "down"
			if report.Status == "ok" {
				report.Status = "degraded"
			}
		} else if n, err := h.rdb.LLen(ctx, config.WorkerKey.AttemptResultsQueue).Result(); err == nil {
			report.ResultsQueue = n
		}
	}

	if report.Status == "down" {
		response.SuccessWithError(c, http.StatusServiceUnavailable, response.ErrServiceUnavailable, report)
		return
	}
	response.Success(c, http.StatusOK, report)
}
