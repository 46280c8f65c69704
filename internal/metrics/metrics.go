package metrics

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"sync"
	"time"

	goredis "github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the signal engine and trader.
type Metrics struct {
	// Analysis pipeline
	JobsTotal     prometheus.Counter
	JobErrors     prometheus.Counter
	AnalyzeDur    prometheus.Histogram
	QueueDepth    prometheus.Gauge
	SourceErrors  prometheus.Counter
	WSReconnects  prometheus.Counter
	TradesDropped prometheus.Counter

	// Signals and entries
	SignalsTotal  *prometheus.CounterVec // labels: strategy, signal
	DupEntrySkips prometheus.Counter
	OrderRejects  prometheus.Counter

	// Position lifecycle
	OpenPositions prometheus.Gauge
	ClosesTotal   *prometheus.CounterVec // labels: reason
	PartialExits  prometheus.Counter
	RealizedPnL   prometheus.Counter // absolute wins only; losses tracked separately
	RealizedLoss  prometheus.Counter

	// Redis circuit breaker
	BreakerState    prometheus.Gauge // 0=closed, 1=open, 2=half-open
	BreakerTrips    prometheus.Counter
	BufferedWrites  prometheus.Counter
	AnalysisFlushes prometheus.Counter
}

// NewMetrics registers and returns all Prometheus metrics.
func NewMetrics() *Metrics {
	m := &Metrics{
		JobsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_analysis_jobs_total",
			Help: "Analysis jobs completed",
		}),
		JobErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_analysis_job_errors_total",
			Help: "Analysis jobs that failed",
		}),
		AnalyzeDur: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "trader_analyze_duration_seconds",
			Help:    "Per-symbol analysis latency",
			Buckets: prometheus.DefBuckets,
		}),
		QueueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_queue_depth",
			Help: "Symbols waiting in the scheduler queue",
		}),
		SourceErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_source_errors_total",
			Help: "Market source fetch errors",
		}),
		WSReconnects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_ws_reconnects_total",
			Help: "Public stream reconnection attempts",
		}),
		TradesDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_stream_trades_dropped_total",
			Help: "Trades dropped on ring buffer overflow",
		}),

		SignalsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_signals_total",
			Help: "Strategy signals emitted (by strategy and direction)",
		}, []string{"strategy", "signal"}),
		DupEntrySkips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_duplicate_entry_skips_total",
			Help: "Buy attempts skipped because the symbol was already held or reserved",
		}),
		OrderRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_order_rejections_total",
			Help: "Orders rejected by the executor",
		}),

		OpenPositions: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_open_positions",
			Help: "Currently open positions",
		}),
		ClosesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "trader_position_closes_total",
			Help: "Position closes (by reason)",
		}, []string{"reason"}),
		PartialExits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_partial_exits_total",
			Help: "Partial take-profit exits executed",
		}),
		RealizedPnL: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_realized_profit_total",
			Help: "Sum of positive realized PnL",
		}),
		RealizedLoss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_realized_loss_total",
			Help: "Sum of absolute negative realized PnL",
		}),

		BreakerState: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "trader_redis_circuit_breaker_state",
			Help: "Redis circuit breaker state (0=closed, 1=open, 2=half-open)",
		}),
		BreakerTrips: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_redis_circuit_breaker_trips_total",
			Help: "Times the Redis circuit breaker tripped open",
		}),
		BufferedWrites: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_redis_buffered_writes_total",
			Help: "Analysis writes buffered while the circuit was open",
		}),
		AnalysisFlushes: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "trader_redis_buffer_flushes_total",
			Help: "Buffered analysis writes replayed after circuit close",
		}),
	}

	prometheus.MustRegister(
		m.JobsTotal,
		m.JobErrors,
		m.AnalyzeDur,
		m.QueueDepth,
		m.SourceErrors,
		m.WSReconnects,
		m.TradesDropped,
		m.SignalsTotal,
		m.DupEntrySkips,
		m.OrderRejects,
		m.OpenPositions,
		m.ClosesTotal,
		m.PartialExits,
		m.RealizedPnL,
		m.RealizedLoss,
		m.BreakerState,
		m.BreakerTrips,
		m.BufferedWrites,
		m.AnalysisFlushes,
	)

	return m
}

// HealthStatus represents the system health.
type HealthStatus struct {
	mu sync.RWMutex

	StreamConnected bool      `json:"stream_connected"`
	LastAnalysisAt  time.Time `json:"last_analysis_at"`
	RedisConnected  bool      `json:"redis_connected"`
	SQLiteOK        bool      `json:"sqlite_ok"`
	OpenPositions   int       `json:"open_positions"`

	RedisLatencyMs  float64   `json:"redis_latency_ms"`
	SQLiteLatencyMs float64   `json:"sqlite_latency_ms"`
	LastCheckAt     time.Time `json:"last_check_at"`
	StartedAt       time.Time `json:"started_at"`
}

// NewHealthStatus returns a default health status.
func NewHealthStatus() *HealthStatus {
	return &HealthStatus{
		StartedAt: time.Now(),
	}
}

func (h *HealthStatus) SetStreamConnected(v bool) {
	h.mu.Lock()
	h.StreamConnected = v
	h.mu.Unlock()
}

func (h *HealthStatus) SetLastAnalysisAt(t time.Time) {
	h.mu.Lock()
	h.LastAnalysisAt = t
	h.mu.Unlock()
}

func (h *HealthStatus) SetOpenPositions(n int) {
	h.mu.Lock()
	h.OpenPositions = n
	h.mu.Unlock()
}

// CheckRedis pings Redis and records latency + connectivity.
func (h *HealthStatus) CheckRedis(ctx context.Context, rdb *goredis.Client) {
	start := time.Now()
	err := rdb.Ping(ctx).Err()
	latency := time.Since(start)

	h.mu.Lock()
	h.RedisConnected = err == nil
	h.RedisLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// CheckSQLite pings the database and records latency + health.
func (h *HealthStatus) CheckSQLite(ctx context.Context, db *sql.DB) {
	start := time.Now()
	err := db.PingContext(ctx)
	latency := time.Since(start)

	h.mu.Lock()
	h.SQLiteOK = err == nil
	h.SQLiteLatencyMs = float64(latency.Microseconds()) / 1000.0
	h.LastCheckAt = time.Now()
	h.mu.Unlock()
}

// StartLivenessChecker runs periodic dependency checks.
func (h *HealthStatus) StartLivenessChecker(ctx context.Context, rdb *goredis.Client, sqlDB *sql.DB, interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				probeCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
				if rdb != nil {
					h.CheckRedis(probeCtx, rdb)
				}
				if sqlDB != nil {
					h.CheckSQLite(probeCtx, sqlDB)
				}
				cancel()
			}
		}
	}()
}

// ServeHTTP handles the /healthz endpoint.
func (h *HealthStatus) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	overallStatus := "healthy"
	httpCode := http.StatusOK
	if !h.RedisConnected || !h.SQLiteOK {
		overallStatus = "degraded"
		httpCode = http.StatusServiceUnavailable
	}
	if !h.RedisConnected && !h.SQLiteOK {
		overallStatus = "unhealthy"
	}

	analysisAge := ""
	if !h.LastAnalysisAt.IsZero() {
		analysisAge = time.Since(h.LastAnalysisAt).Round(time.Millisecond).String()
	}

	status := struct {
		Status          string  `json:"status"`
		Uptime          string  `json:"uptime"`
		StreamConnected bool    `json:"stream_connected"`
		LastAnalysisAt  string  `json:"last_analysis_at"`
		AnalysisAge     string  `json:"analysis_age"`
		OpenPositions   int     `json:"open_positions"`
		RedisConnected  bool    `json:"redis_connected"`
		RedisLatencyMs  float64 `json:"redis_latency_ms"`
		SQLiteOK        bool    `json:"sqlite_ok"`
		SQLiteLatencyMs float64 `json:"sqlite_latency_ms"`
		LastCheckAt     string  `json:"last_check_at"`
	}{
		Status:          overallStatus,
		Uptime:          time.Since(h.StartedAt).Round(time.Second).String(),
		StreamConnected: h.StreamConnected,
		LastAnalysisAt:  h.LastAnalysisAt.Format(time.RFC3339),
		AnalysisAge:     analysisAge,
		OpenPositions:   h.OpenPositions,
		RedisConnected:  h.RedisConnected,
		RedisLatencyMs:  h.RedisLatencyMs,
		SQLiteOK:        h.SQLiteOK,
		SQLiteLatencyMs: h.SQLiteLatencyMs,
		LastCheckAt:     h.LastCheckAt.Format(time.RFC3339),
	}

	w.Header().Set("Content-Type", "application/json")
	if httpCode != http.StatusOK {
		w.WriteHeader(httpCode)
	}
	json.NewEncoder(w).Encode(status)
}

// Server runs an HTTP server exposing /metrics and /healthz.
type Server struct {
	health *HealthStatus
	addr   string
	srv    *http.Server
}

// NewServer creates a metrics and health server.
func NewServer(addr string, health *HealthStatus) *Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", health.ServeHTTP)

	return &Server{
		health: health,
		addr:   addr,
		srv: &http.Server{
			Addr:    addr,
			Handler: mux,
		},
	}
}

// Start launches the HTTP server in a goroutine.
func (s *Server) Start() {
	go func() {
		log.Printf("[metrics] server listening on %s", s.addr)
		if err := s.srv.ListenAndServe(); err != http.ErrServerClosed {
			log.Printf("[metrics] server error: %v", err)
		}
	}()
}

// Stop gracefully shuts down the metrics server.
func (s *Server) Stop(ctx context.Context) {
	s.srv.Shutdown(ctx)
}
