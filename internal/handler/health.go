package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stocktake/internal/worker"
)

const healthProbeTimeout = 3 * time.Second

// Health probes the two stores the engine cannot run without and, when Redis
// is reachable, reports the backlog of the async report queue so a stalled
// worker pool shows up before reviewers notice missing PDFs.
func Health(db *gorm.DB, rdb *redis.Client) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthProbeTimeout)
		defer cancel()

		pgUp := false
		if sqlDB, err := db.DB(); err == nil && sqlDB.PingContext(ctx) == nil {
			pgUp = true
		}

		redisUp := rdb.Ping(ctx).Err() == nil

		queueDepth := int64(-1)
		if redisUp {
			if depth, err := rdb.LLen(ctx, worker.QueueReports).Result(); err == nil {
				queueDepth = depth
			}
		}

		status, body := healthReport(pgUp, redisUp, queueDepth)
		c.JSON(status, body)
	}
}

// healthReport assembles the response. A negative queueDepth means the depth
// could not be read and is omitted.
func healthReport(pgUp, redisUp bool, queueDepth int64) (int, gin.H) {
	label := func(up bool) string {
		if up {
			return "up"
		}
		return "down"
	}

	checks := gin.H{
		"postgres": label(pgUp),
		"redis":    label(redisUp),
	}
	if queueDepth >= 0 {
		checks["report_queue_depth"] = queueDepth
	}

	if !pgUp || !redisUp {
		return http.StatusServiceUnavailable, gin.H{"status": "degraded", "checks": checks}
	}
	return http.StatusOK, gin.H{"status": "ok", "checks": checks}
}
