package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/videoguard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/videoguard-backend/internal/http/middleware"
	"github.com/yungbote/videoguard-backend/internal/observability"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	Metrics     *observability.Metrics
	Tracing     bool

	AdminAuth *httpMW.AdminAuth
	TaskToken string

	HealthHandler *httpH.HealthHandler
	TaskHandler   *httpH.TaskHandler
	VideoHandler  *httpH.VideoHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	if cfg.Tracing {
		r.Use(otelgin.Middleware(cfg.ServiceName))
	}
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
		r.GET("/readyz", cfg.HealthHandler.Ready)
	}
	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapH(cfg.Metrics.Handler()))
	}

	// Push delivery
	if cfg.TaskHandler != nil {
		tasks := r.Group("/tasks")
		tasks.Use(httpMW.RequireTaskToken(cfg.TaskToken))
		tasks.POST("/process-video", cfg.TaskHandler.ProcessVideo)
	}

	// Operator API
	if cfg.VideoHandler != nil && cfg.AdminAuth != nil {
		admin := r.Group("/admin")
		admin.Use(cfg.AdminAuth.RequireAdmin())

		admin.POST("/videos", cfg.VideoHandler.Submit)
		admin.GET("/videos", cfg.VideoHandler.List)
		admin.GET("/videos/status", cfg.VideoHandler.Status)
		admin.GET("/videos/:id", cfg.VideoHandler.Get)
		admin.GET("/videos/:id/events", cfg.VideoHandler.Events)
		admin.POST("/videos/:id/reprocess", cfg.VideoHandler.Reprocess)
		admin.GET("/stats", cfg.VideoHandler.Stats)
		admin.POST("/sweep", cfg.VideoHandler.Sweep)
	}

	return r
}
