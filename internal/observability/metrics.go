package observability

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/yungbote/videoguard-backend/internal/data/repos/videos"
	"github.com/yungbote/videoguard-backend/internal/domain/moderation"
	"github.com/yungbote/videoguard-backend/internal/pkg/dbctx"
	"github.com/yungbote/videoguard-backend/internal/pkg/logger"
)

type Metrics struct {
	registry *prometheus.Registry

	apiRequests *prometheus.CounterVec
	apiLatency  *prometheus.HistogramVec
	apiInflight prometheus.Gauge

	jobs           *prometheus.CounterVec
	jobLatency     *prometheus.HistogramVec
	claimsSkipped  prometheus.Counter
	adapterLatency *prometheus.HistogramVec
	adapterErrors  *prometheus.CounterVec
	verdicts       *prometheus.CounterVec
	hardRules      *prometheus.CounterVec
	sweepResets    prometheus.Counter
	queueDepth     *prometheus.GaugeVec

	pgStats   *prometheus.GaugeVec
	redisUp   prometheus.Gauge
	redisPing prometheus.Gauge
}

var (
	initOnce sync.Once
	instance *Metrics
)

func Enabled() bool {
	v := strings.TrimSpace(os.Getenv("METRICS_ENABLED"))
	if v == "" {
		return false
	}
	return strings.EqualFold(v, "true") || v == "1" || strings.EqualFold(v, "yes")
}

func Current() *Metrics {
	return instance
}

func scrapeInterval() time.Duration {
	v := strings.TrimSpace(os.Getenv("METRICS_SCRAPE_INTERVAL_SECONDS"))
	if v == "" {
		return 10 * time.Second
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return 10 * time.Second
	}
	return time.Duration(n) * time.Second
}

// Init builds the process-wide metrics once. It returns nil when METRICS_ENABLED is off; every
// method is a no-op on a nil receiver.
func Init(log *logger.Logger) *Metrics {
	if !Enabled() {
		return nil
	}
	initOnce.Do(func() {
		instance = NewMetrics(prometheus.NewRegistry())
		if log != nil {
			log.Info("prometheus metrics enabled")
		}
	})
	return instance
}

func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		apiRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vg_api_requests_total",
			Help: "Total API requests by method/route/status.",
		}, []string{"method", "route", "status"}),
		apiLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vg_api_request_duration_seconds",
			Help:    "API request latency in seconds by method/route/status.",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}, []string{"method", "route", "status"}),
		apiInflight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vg_api_inflight_requests",
			Help: "In-flight API requests.",
		}),
		jobs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vg_jobs_processed_total",
			Help: "Moderation jobs processed by outcome (ok, retryable, fatal).",
		}, []string{"outcome"}),
		jobLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vg_job_duration_seconds",
			Help:    "End-to-end moderation job latency by outcome.",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 900},
		}, []string{"outcome"}),
		claimsSkipped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vg_job_claims_skipped_total",
			Help: "Deliveries that found the video already claimed or finished.",
		}),
		adapterLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "vg_adapter_duration_seconds",
			Help:    "Detector adapter latency by adapter and status.",
			Buckets: []float64{0.5, 1, 5, 15, 30, 60, 120, 300, 600},
		}, []string{"adapter", "status"}),
		adapterErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vg_adapter_failures_total",
			Help: "Detector adapter failures by adapter and error class.",
		}, []string{"adapter", "class"}),
		verdicts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vg_verdicts_total",
			Help: "Completed moderation verdicts.",
		}, []string{"verdict"}),
		hardRules: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "vg_hard_rule_overrides_total",
			Help: "Hard-rule overrides fired, by rule id.",
		}, []string{"rule"}),
		sweepResets: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "vg_stale_resets_total",
			Help: "Videos returned to pending by the stale processing sweep.",
		}),
		queueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vg_video_queue_depth",
			Help: "Videos by job state.",
		}, []string{"state"}),
		pgStats: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "vg_db_pool_stats",
			Help: "Database connection pool stats.",
		}, []string{"stat"}),
		redisUp: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vg_redis_up",
			Help: "Redis reachability (1 up, 0 down).",
		}),
		redisPing: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "vg_redis_ping_seconds",
			Help: "Redis ping latency in seconds.",
		}),
	}
	reg.MustRegister(
		m.apiRequests, m.apiLatency, m.apiInflight,
		m.jobs, m.jobLatency, m.claimsSkipped,
		m.adapterLatency, m.adapterErrors,
		m.verdicts, m.hardRules, m.sweepResets, m.queueDepth,
		m.pgStats, m.redisUp, m.redisPing,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) StartServer(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		_ = srv.Shutdown(shutdownCtx)
		cancel()
	}()
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			if log != nil {
				log.Error("metrics server failed", "error", err, "addr", addr)
			}
		}
	}()
}

func (m *Metrics) ObserveAPI(method, route, status string, dur time.Duration) {
	if m == nil {
		return
	}
	if method == "" {
		method = "UNKNOWN"
	}
	if route == "" {
		route = "unknown"
	}
	if status == "" {
		status = "0"
	}
	m.apiRequests.WithLabelValues(method, route, status).Inc()
	m.apiLatency.WithLabelValues(method, route, status).Observe(dur.Seconds())
}

func (m *Metrics) ApiInflightInc() {
	if m == nil {
		return
	}
	m.apiInflight.Inc()
}

func (m *Metrics) ApiInflightDec() {
	if m == nil {
		return
	}
	m.apiInflight.Dec()
}

// ObserveAdapter records one detector call. Timeouts and provider failures are split by class.
func (m *Metrics) ObserveAdapter(adapter string, elapsed time.Duration, err error) {
	if m == nil {
		return
	}
	status := "ok"
	if err != nil {
		status = "error"
		m.adapterErrors.WithLabelValues(adapter, string(moderation.Classify(err))).Inc()
	}
	m.adapterLatency.WithLabelValues(adapter, status).Observe(elapsed.Seconds())
}

// ObserveJob records a finished analysis. Verdict and hard-rule counters move only for Ok.
func (m *Metrics) ObserveJob(out moderation.Outcome, elapsed time.Duration) {
	if m == nil {
		return
	}
	kind := string(out.Kind)
	m.jobs.WithLabelValues(kind).Inc()
	m.jobLatency.WithLabelValues(kind).Observe(elapsed.Seconds())
	if out.IsOk() {
		m.verdicts.WithLabelValues(string(out.Result.Verdict)).Inc()
		if out.Result.HardRule != "" {
			m.hardRules.WithLabelValues(out.Result.HardRule).Inc()
		}
	}
}

func (m *Metrics) IncClaimSkipped() {
	if m == nil {
		return
	}
	m.claimsSkipped.Inc()
}

func (m *Metrics) AddStaleResets(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.sweepResets.Add(float64(n))
}

func (m *Metrics) StartPostgresCollector(ctx context.Context, log *logger.Logger, db *gorm.DB) {
	if m == nil || db == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				sqlDB, err := db.DB()
				if err != nil {
					if log != nil {
						log.Warn("metrics: db stats unavailable", "error", err)
					}
					continue
				}
				stats := sqlDB.Stats()
				m.pgStats.WithLabelValues("open_connections").Set(float64(stats.OpenConnections))
				m.pgStats.WithLabelValues("in_use").Set(float64(stats.InUse))
				m.pgStats.WithLabelValues("idle").Set(float64(stats.Idle))
				m.pgStats.WithLabelValues("wait_count").Set(float64(stats.WaitCount))
				m.pgStats.WithLabelValues("wait_duration_seconds").Set(stats.WaitDuration.Seconds())
				m.pgStats.WithLabelValues("max_open_connections").Set(float64(stats.MaxOpenConnections))
			}
		}
	}()
}

func (m *Metrics) StartRedisCollector(ctx context.Context, log *logger.Logger, addr string) {
	if m == nil {
		return
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return
	}
	interval := scrapeInterval()
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				_ = rdb.Close()
				return
			case <-ticker.C:
				start := time.Now()
				if err := rdb.Ping(ctx).Err(); err != nil {
					m.redisUp.Set(0)
					if log != nil {
						log.Warn("metrics: redis ping failed", "error", err)
					}
					continue
				}
				m.redisUp.Set(1)
				m.redisPing.Set(time.Since(start).Seconds())
			}
		}
	}()
}

// StateCounter is the slice of the video repo the queue collector needs.
type StateCounter interface {
	Stats(dbc dbctx.Context) (videos.Stats, error)
}

func (m *Metrics) StartQueueCollector(ctx context.Context, log *logger.Logger, repo StateCounter) {
	if m == nil || repo == nil {
		return
	}
	interval := scrapeInterval()
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := m.collectQueue(ctx, repo); err != nil && log != nil {
					log.Warn("metrics: video queue depth query failed", "error", err)
				}
			}
		}
	}()
}

func (m *Metrics) collectQueue(ctx context.Context, repo StateCounter) error {
	stats, err := repo.Stats(dbctx.Of(ctx))
	if err != nil {
		return err
	}
	for _, s := range stats.States {
		m.queueDepth.WithLabelValues(string(s.State)).Set(float64(s.Count))
	}
	return nil
}
