package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stocktake/internal/config"
	"stocktake/internal/handler"
	"stocktake/internal/middleware"
	"stocktake/internal/repository"
	"stocktake/internal/service"
	"stocktake/internal/worker"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	warehouseRepo := repository.NewWarehouseRepository(db)
	sessionRepo := repository.NewSessionRepository(db)
	itemRepo := repository.NewItemRepository(db)
	stockRepo := repository.NewStockRepository(db)

	// Worker dispatcher — injected into services that enqueue async jobs
	dispatcher := worker.NewDispatcher(rdb)

	// ── Services ─────────────────────────────────────────────────────────────
	sessionSvc := service.NewSessionService(sessionRepo, itemRepo, stockRepo, warehouseRepo, dispatcher)
	countSvc := service.NewCountService(sessionRepo, itemRepo)
	reportSvc := service.NewReportService(sessionRepo, itemRepo)

	// ── Handlers ─────────────────────────────────────────────────────────────
	sessionsH := handler.NewSessionsHandler(sessionSvc)
	countsH := handler.NewCountsHandler(countSvc)
	reportsH := handler.NewReportsHandler(reportSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: operator, supervisor, admin — declared per-endpoint
		v1.GET("/sessions", middleware.RequireRole("operator", "supervisor", "admin"), sessionsH.List)
		v1.GET("/sessions/:id", middleware.RequireRole("operator", "supervisor", "admin"), sessionsH.Get)
		v1.GET("/sessions/:id/items", middleware.RequireRole("operator", "supervisor", "admin"), countsH.ListItems)

		// Session lifecycle — supervisors plan, start and close counts
		sessions := v1.Group("/sessions", middleware.RequireRole("supervisor", "admin"))
		{
			sessions.POST("", sessionsH.Create)
			sessions.POST("/:id/start", sessionsH.Start)
			sessions.POST("/:id/complete", sessionsH.Complete)
			sessions.POST("/:id/cancel", sessionsH.Cancel)
		}
		v1.POST("/sessions/:id/submit", middleware.RequireRole("operator", "supervisor", "admin"), sessionsH.Submit)

		// Counting — floor operators record and verify
		v1.POST("/sessions/:id/items/:itemID/count", middleware.RequireRole("operator", "supervisor", "admin"), countsH.Count)
		v1.POST("/sessions/:id/items/:itemID/verify", middleware.RequireRole("operator", "supervisor", "admin"), countsH.Verify)
		// Manual reconciliation overrides the counts — supervisors only
		v1.POST("/sessions/:id/items/:itemID/reconcile", middleware.RequireRole("supervisor", "admin"), countsH.Reconcile)

		// Scanner batch upload
		v1.POST("/sessions/:id/counts/batch", middleware.RequireRole("operator", "supervisor", "admin"), countsH.BatchCount)

		// Reporting
		v1.GET("/sessions/:id/variance-report", middleware.RequireRole("supervisor", "admin"), reportsH.VarianceReport)
	}

	return r
}
