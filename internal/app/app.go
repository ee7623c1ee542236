package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	dbpkg "github.com/yungbote/videoguard-backend/internal/data/db"
	httpserver "github.com/yungbote/videoguard-backend/internal/http"
	httpH "github.com/yungbote/videoguard-backend/internal/http/handlers"
	httpMW "github.com/yungbote/videoguard-backend/internal/http/middleware"
	"github.com/yungbote/videoguard-backend/internal/jobs"
	"github.com/yungbote/videoguard-backend/internal/jobs/worker"
	"github.com/yungbote/videoguard-backend/internal/moderation/engine"
	"github.com/yungbote/videoguard-backend/internal/observability"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
	"github.com/yungbote/videoguard-backend/internal/services"
	"github.com/yungbote/videoguard-backend/internal/temporalx/temporalworker"
	"github.com/yungbote/videoguard-backend/internal/temporalx/videomod"
)

type Options struct {
	// Moderation connects the provider clients and builds the engine and processor. Commands
	// that only read or requeue videos leave it off.
	Moderation bool
	// SkipDelivery leaves Redis and Temporal unconnected.
	SkipDelivery bool
}

type App struct {
	Log     *logger.Logger
	Cfg     Config
	DB      *dbpkg.Service
	Repos   Repos
	Clients Clients
	Metrics *observability.Metrics

	Engine    *engine.Engine
	Processor *jobs.Processor
	Sweeper   *jobs.Sweeper
	Videos    services.VideoService
	AdminAuth *httpMW.AdminAuth

	otelShutdown func(context.Context) error
}

func New(ctx context.Context, opts Options) (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	a := &App{Log: log, Cfg: cfg}
	a.otelShutdown = observability.InitOTel(ctx, log, cfg.Otel)
	if observability.Enabled() {
		a.Metrics = observability.Init(log)
	}

	dbs, err := dbpkg.NewService(log, cfg.DB)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("init database: %w", err)
	}
	a.DB = dbs
	if err := dbs.AutoMigrateAll(); err != nil {
		a.Close()
		return nil, fmt.Errorf("automigrate: %w", err)
	}
	a.Repos = wireRepos(dbs.DB(), log)

	if !opts.SkipDelivery {
		clients, err := wireDelivery(log, cfg)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Clients = clients
	}

	if opts.Moderation {
		if err := a.Clients.wireProviders(log, cfg); err != nil {
			a.Close()
			return nil, err
		}
		eng, err := wireEngine(log, cfg, a.Clients, a.Repos, a.Metrics)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Engine = eng
		popts := jobs.ProcessorOptions{Recorder: a.Metrics}
		if a.Clients.StatusBus != nil {
			popts.Notifier = a.Clients.StatusBus
		}
		a.Processor = jobs.NewProcessor(log, a.Repos.Video, eng, popts)
	}

	a.Sweeper = jobs.NewSweeper(log, a.Repos.Video, a.Metrics, cfg.StaleAfter, cfg.SweepInterval)

	var enqueuer services.VideoEnqueuer
	if a.Clients.Temporal != nil {
		enqueuer = &videomod.Enqueuer{Client: a.Clients.Temporal, TaskQueue: cfg.Temporal.TaskQueue}
	}
	var publisher services.StatusPublisher
	if a.Clients.StatusBus != nil {
		publisher = a.Clients.StatusBus
	}
	a.Videos = services.NewVideoService(log, a.Repos.Video, enqueuer, publisher)
	a.AdminAuth = httpMW.NewAdminAuth(log, cfg.AdminJWTSecret)
	return a, nil
}

// TemporalEnabled reports whether deliveries go through Temporal instead of the polling worker.
func (a *App) TemporalEnabled() bool {
	return a.Clients.Temporal != nil
}

func (a *App) Router() *gin.Engine {
	cfg := httpserver.RouterConfig{
		Log:           a.Log,
		ServiceName:   a.Cfg.Otel.ServiceName,
		CORSOrigins:   a.Cfg.CORSOrigins,
		Metrics:       a.Metrics,
		Tracing:       a.Cfg.Otel.Enabled,
		AdminAuth:     a.AdminAuth,
		TaskToken:     a.Cfg.TasksToken,
		HealthHandler: httpH.NewHealthHandler(map[string]httpH.Pinger{"db": a.DB}),
		VideoHandler: httpH.NewVideoHandlerWithDeps(httpH.VideoHandlerDeps{
			Log:     a.Log,
			Videos:  a.Videos,
			Sweeper: a.Sweeper,
		}),
	}
	if a.Processor != nil {
		cfg.TaskHandler = httpH.NewTaskHandlerWithDeps(httpH.TaskHandlerDeps{Log: a.Log, Processor: a.Processor})
	}
	return httpserver.NewRouter(cfg)
}

func (a *App) NewWorker() (*worker.Worker, error) {
	if a.Processor == nil {
		return nil, fmt.Errorf("moderation is not wired")
	}
	return worker.NewWorker(a.Log, a.Repos.Video, a.Processor, worker.Config{
		Concurrency:  a.Cfg.WorkerConcurrency,
		PollInterval: a.Cfg.WorkerPollInterval,
	}), nil
}

func (a *App) NewTemporalRunner() (*temporalworker.Runner, error) {
	if a.Processor == nil {
		return nil, fmt.Errorf("moderation is not wired")
	}
	return temporalworker.NewRunner(a.Log, a.Cfg.Temporal, a.Clients.Temporal, a.Processor)
}

// StartBackground runs the stale sweep loop and the metrics collectors until ctx is done.
func (a *App) StartBackground(ctx context.Context) {
	go a.Sweeper.Run(ctx)
	if a.Metrics == nil {
		return
	}
	if a.Cfg.MetricsAddr != "" {
		a.Metrics.StartServer(ctx, a.Log, a.Cfg.MetricsAddr)
	}
	if a.DB.Driver() == dbpkg.DriverPostgres {
		a.Metrics.StartPostgresCollector(ctx, a.Log, a.DB.DB())
	}
	if a.Cfg.RedisAddr != "" {
		a.Metrics.StartRedisCollector(ctx, a.Log, a.Cfg.RedisAddr)
	}
	a.Metrics.StartQueueCollector(ctx, a.Log, a.Repos.Video)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.DB != nil {
		_ = a.DB.Close()
	}
	if a.otelShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = a.otelShutdown(ctx)
		cancel()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
