package httpserver

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	"habitrack/internal/handler"
	"habitrack/pkg/rbac"
)

// Pinger reports whether the database accepts connections.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Connectivity reports whether a broker link is up.
type Connectivity interface {
	IsConnected() bool
}

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	streakHandler *handler.StreakHandler,
	habitHandler *handler.HabitHandler,
	jwtSecret string,
	db Pinger,
	publisher Connectivity,
	consumer Connectivity,
	logger *zap.Logger,
) *Router {
	r := gin.New()
	r.Use(gin.Recovery(), TraceMiddleware(), otelgin.Middleware("habitrack"), AccessLogMiddleware(logger))

	// Health endpoints (放在最前面)
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/healthz", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.HEAD("/health", func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	r.GET("/readyz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 1*time.Second)
		defer cancel()

		if err := db.Ping(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "db_not_ready", "error": err.Error()})
			return
		}

		if publisher != nil && !publisher.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_publisher_not_ready"})
			return
		}
		if consumer != nil && !consumer.IsConnected() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "mq_consumer_not_ready"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	api := r.Group("/api/:uid")
	api.Use(AuthMiddleware(jwtSecret))
	{
		api.GET("/streaks", RequirePermission(rbac.PermissionReadStreak), streakHandler.ListCompletions)
		api.GET("/streaks/scoreboard", RequirePermission(rbac.PermissionReadStreak), streakHandler.Scoreboard)
		api.POST("/streaks", RequirePermission(rbac.PermissionWriteStreak), streakHandler.RecordCompletion)
		api.DELETE("/streaks/:hid", RequirePermission(rbac.PermissionWriteStreak), streakHandler.DeleteCompletions)

		api.GET("/habits", RequirePermission(rbac.PermissionReadHabit), habitHandler.List)
		api.GET("/habits/:id", RequirePermission(rbac.PermissionReadHabit), habitHandler.Get)
		api.POST("/habits", RequirePermission(rbac.PermissionWriteHabit), habitHandler.Create)
		api.PUT("/habits/:id", RequirePermission(rbac.PermissionWriteHabit), habitHandler.Rename)
		api.DELETE("/habits/:id", RequirePermission(rbac.PermissionWriteHabit), habitHandler.Delete)
	}

	return &Router{Engine: r}
}
