package handler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/ujian-proctor/internal/config"
	"github.com/stemsi/ujian-proctor/internal/response"
	"github.com/stemsi/ujian-proctor/internal/service"
)

const statsInterval = 7 * time.Second

// SystemHandler serves site branding, the notification test and a live
// stats stream for the admin dashboard.
type SystemHandler struct {
	rdb                 *redis.Client
	site                config.SiteConfig
	notificationService *service.NotificationService
	startTime           time.Time
	log                 zerolog.Logger
}

// NewSystemHandler creates a new SystemHandler. rdb may be nil, in which case
// queue depth is reported as zero.
func NewSystemHandler(rdb *redis.Client, site config.SiteConfig, notificationService *service.NotificationService, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		rdb:                 rdb,
		site:                site,
		notificationService: notificationService,
		startTime:           time.Now(),
		log:                 log.With().Str("component", "system_handler").Logger(),
	}
}

// SiteConfig godoc
// GET /api/v1/site
// Returns the admin UI branding.
func (h *SystemHandler) SiteConfig(c *gin.Context) {
	response.Success(c, http.StatusOK, h.site)
}

// TestNotification godoc
// POST /api/v1/admin/notifications/test
func (h *SystemHandler) TestNotification(c *gin.Context) {
	h.notificationService.SendTest(c.Request.Context())
	response.Success(c, http.StatusOK, gin.H{"queued": true})
}

type systemStats struct {
	Timestamp   int64  `json:"timestamp"`
	Uptime      string `json:"uptime"`
	Goroutines  int    `json:"goroutines"`
	HeapAlloc   uint64 `json:"heap_alloc"`
	HeapSys     uint64 `json:"heap_sys"`
	NumGC       uint32 `json:"num_gc"`
	GoVersion   string `json:"go_version"`
	NumCPU      int    `json:"num_cpu"`
	NotifyQueue int64  `json:"notify_queue"`
}

// StatsStream godoc
// GET /api/v1/admin/system/stats
// Server-sent events with runtime stats and notification backlog.
func (h *SystemHandler) StatsStream(c *gin.Context) {
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Msg("Admin connected to stats stream")

	ticker := time.NewTicker(statsInterval)
	defer ticker.Stop()

	c.SSEvent("stats", h.collect(c.Request.Context()))
	c.Writer.Flush()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			h.log.Info().Msg("Admin disconnected from stats stream")
			return false
		case <-ticker.C:
			c.SSEvent("stats", h.collect(c.Request.Context()))
			return true
		}
	})
}

func (h *SystemHandler) collect(ctx context.Context) systemStats {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)

	s := systemStats{
		Timestamp:  time.Now().Unix(),
		Uptime:     formatDuration(time.Since(h.startTime)),
		Goroutines: runtime.NumGoroutine(),
		HeapAlloc:  ms.HeapAlloc,
		HeapSys:    ms.Sys,
		NumGC:      ms.NumGC,
		GoVersion:  runtime.Version(),
		NumCPU:     runtime.NumCPU(),
	}
	if h.rdb != nil {
		n, err := h.rdb.LLen(ctx, config.WorkerKey.NotifyTelegramQueue).Result()
		if err != nil {
			h.log.Warn().Err(err).Msg("Failed to read notification queue length")
		}
		s.NotifyQueue = n
	}
	return s
}

func formatDuration(d time.Duration) string {
	days := int(d.Hours()) / 24
	hours := int(d.Hours()) % 24
	minutes := int(d.Minutes()) % 60
	seconds := int(d.Seconds()) % 60

	if days > 0 {
		return fmt.Sprintf("%dd %dh %dm %ds", days, hours, minutes, seconds)
	}
	if hours > 0 {
		return fmt.Sprintf("%dh %dm %ds", hours, minutes, seconds)
	}
	return fmt.Sprintf("%dm %ds", minutes, seconds)
}
