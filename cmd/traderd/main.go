package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/balkhaev/trader-api/config"
	"github.com/balkhaev/trader-api/internal/analyzer"
	"github.com/balkhaev/trader-api/internal/events"
	"github.com/balkhaev/trader-api/internal/execution"
	"github.com/balkhaev/trader-api/internal/logger"
	"github.com/balkhaev/trader-api/internal/market"
	"github.com/balkhaev/trader-api/internal/metrics"
	"github.com/balkhaev/trader-api/internal/model"
	"github.com/balkhaev/trader-api/internal/notification"
	"github.com/balkhaev/trader-api/internal/portfolio"
	"github.com/balkhaev/trader-api/internal/scheduler"
	redisstore "github.com/balkhaev/trader-api/internal/store/redis"
	sqlitestore "github.com/balkhaev/trader-api/internal/store/sqlite"
	"github.com/balkhaev/trader-api/internal/strategy"
	"github.com/balkhaev/trader-api/internal/trader"
)

func main() {
	log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	log.Println("[traderd] starting...")

	cfg := config.Load()
	slogger := logger.Init("traderd", logger.ParseLevel(cfg.LogLevel))

	settings, err := config.NewSettings(config.StrategyFromEnv(config.DefaultStrategyConfig()))
	if err != nil {
		log.Fatalf("[traderd] settings init failed: %v", err)
	}
	sc := settings.Current()

	// ---- Metrics & health ----
	prom := metrics.NewMetrics()
	health := metrics.NewHealthStatus()
	metricsSrv := metrics.NewServer(cfg.MetricsAddr, health)
	metricsSrv.Start()

	// ---- Graceful shutdown context ----
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)

	// ---- SQLite store (positions + audit) ----
	os.MkdirAll("data", 0o755)
	store, err := sqlitestore.New(sqlitestore.Config{DBPath: cfg.SQLitePath})
	if err != nil {
		log.Fatalf("[traderd] sqlite init failed: %v", err)
	}
	defer store.Close()
	log.Println("[traderd] sqlite store ready")

	// ---- Redis analysis writer (optional, behind circuit breaker) ----
	var analysisWriter *redisstore.BufferedWriter
	redisWriter, err := redisstore.New(redisstore.WriterConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	})
	if err != nil {
		log.Printf("[traderd] WARNING: redis init failed: %v (continuing without redis)", err)
	} else {
		cb := redisstore.NewCircuitBreaker(5, 30*time.Second)
		cb.OnStateChange = func(from, to redisstore.State) {
			prom.BreakerState.Set(float64(to))
			if to == redisstore.StateOpen {
				prom.BreakerTrips.Inc()
			}
			log.Printf("[traderd] redis circuit breaker: %s -> %s", from, to)
		}
		analysisWriter = redisstore.NewBufferedWriter(ctx, redisWriter, cb, 10000)
		analysisWriter.OnBuffer = func() { prom.BufferedWrites.Inc() }
		analysisWriter.OnFlush = func(count int) { prom.AnalysisFlushes.Add(float64(count)) }
		log.Println("[traderd] redis analysis writer ready")
	}

	// ---- Liveness checks ----
	if redisWriter != nil {
		health.StartLivenessChecker(ctx, redisWriter.Client(), store.DB(), 10*time.Second)
	} else {
		health.StartLivenessChecker(ctx, nil, store.DB(), 10*time.Second)
	}

	// ---- Market source ----
	symbols := cfg.ParseSymbols()
	sim := market.NewSimSource(symbols)
	var source model.MarketSource = sim
	if cfg.MarketMode == "stream" {
		stream := market.NewStream(market.StreamConfig{
			URL:     cfg.StreamURL,
			Symbols: symbols,
		})
		stream.OnReconnect = func() { prom.WSReconnects.Inc() }
		go func() {
			health.SetStreamConnected(true)
			if err := stream.Run(ctx); err != nil {
				log.Printf("[traderd] stream error: %v", err)
			}
			health.SetStreamConnected(false)
		}()
		source = market.NewHybridSource(stream, sim)
		log.Printf("[traderd] live ticker stream enabled: %s", cfg.StreamURL)
	}

	// ---- Strategies ----
	strategies := []strategy.Strategy{
		strategy.NewLong(strategy.DefaultLongParams()),
		strategy.NewShort(strategy.DefaultShortParams()),
		strategy.NewRSIConfirm(strategy.DefaultRSIConfirmParams()),
		strategy.NewE0V1E(strategy.DefaultE0V1EParams()),
	}
	byName := make(map[string]strategy.Strategy, len(strategies))
	for _, s := range strategies {
		byName[s.Name()] = s
	}

	// ---- Portfolio table with rehydration ----
	table := portfolio.NewTable(sc.MaxPositions)
	saved, err := store.LoadOpenPositions()
	if err != nil {
		log.Fatalf("[traderd] rehydration failed: %v", err)
	}
	if n := table.Rehydrate(saved); n > 0 {
		log.Printf("[traderd] rehydrated %d open positions", n)
		health.SetOpenPositions(n)
		prom.OpenPositions.Set(float64(n))
	}

	// ---- Events, notifications, metrics observers ----
	bus := events.NewBus(128)
	go prom.ObserveEvents(ctx, bus.Subscribe())

	notifier := buildNotifier(cfg)
	relay := notification.NewRelay(notifier)
	go relay.Run(ctx, bus.Subscribe())

	// ---- Trader (entry + exit execution) ----
	executor := execution.NewPaperExecutor(source, 5)
	traderCfg := trader.DefaultConfig()
	traderCfg.CapitalPerTrade = sc.CapitalPerTrade
	traderCfg.StopLossPct = sc.StopLossPct / 100
	traderCfg.TakeProfitPct = sc.TakeProfitPct / 100
	trd := trader.New(traderCfg, table, executor, store, store, bus, slogger)

	// ---- Analyzer + scheduler ----
	anlz := analyzer.New(source, strategies, 200)
	screener := analyzer.NewScreener(source, analyzer.DefaultScreenerConfig())

	// Archive analysis rows off the hot path.
	archiveCh := make(chan *analyzer.Result, 512)
	go store.RunAnalysisArchive(ctx, archiveCh)

	rescan := make(chan struct{}, 1)
	sched := scheduler.New(anlz, cfg.Workers, scheduler.Callbacks{
		Completed: func(res *analyzer.Result) {
			prom.JobsTotal.Inc()
			health.SetLastAnalysisAt(time.Now())
			for name, ms := range res.PerStrategy {
				prom.SignalsTotal.WithLabelValues(name, signalLabel(ms.Signal)).Inc()
			}
			if analysisWriter != nil {
				if err := analysisWriter.WriteAnalysis(res); err != nil {
					log.Printf("[traderd] analysis write failed for %s: %v", res.Symbol, err)
				}
			}
			select {
			case archiveCh <- res:
			default:
			}
			trd.HandleResult(ctx, res)
			open, _ := table.Counts()
			health.SetOpenPositions(open)
		},
		Failed: func(symbol string, err error) {
			prom.JobErrors.Inc()
			prom.SourceErrors.Inc()
		},
		Drained: func() {
			select {
			case rescan <- struct{}{}:
			default:
			}
		},
		Waiting: func(count int) {
			prom.QueueDepth.Set(float64(count))
		},
	}, slogger)
	sched.Start(ctx)

	// ---- Sell monitor ----
	monitorCfg := portfolio.DefaultMonitorConfig()
	monitorCfg.Interval = time.Duration(sc.TickIntervalSec) * time.Second
	monitorCfg.StopLossPct = sc.StopLossPct / 100
	monitorCfg.TakeProfitPct = sc.TakeProfitPct / 100
	monitorCfg.TrailingArmPct = 0.05
	monitorCfg.TrailingStopPct = 0.04
	monitorCfg.TP1Pct = 0.04
	monitorCfg.TP2Pct = 0.07
	monitorCfg.TP3Pct = 0.12
	monitorCfg.MinHold = 5 * time.Minute
	monitor := portfolio.NewMonitor(table, source, byName, trd, store, monitorCfg, slogger)
	go monitor.Run(ctx)

	// Mirror the table's duplicate-skip counter into Prometheus.
	go func() {
		var last uint64
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				cur := table.DuplicateSkips()
				if cur > last {
					prom.DupEntrySkips.Add(float64(cur - last))
					last = cur
				}
			}
		}
	}()

	// ---- Universe scan loop ----
	scan := func() {
		trending, err := screener.TrendingSymbols(ctx)
		if err != nil {
			log.Printf("[traderd] screener failed: %v", err)
			prom.SourceErrors.Inc()
			return
		}
		if len(trending) == 0 {
			trending = symbols
		}
		queued := 0
		for _, sym := range trending {
			if sched.Enqueue(sym, false) {
				queued++
			}
		}
		log.Printf("[traderd] scan queued %d/%d symbols", queued, len(trending))
	}

	go func() {
		scan()
		ticker := time.NewTicker(time.Duration(cfg.ScanIntervalSec) * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				scan()
			case <-rescan:
				// Queue drained before the interval elapsed. Cool down
				// briefly instead of hammering the source.
				select {
				case <-ctx.Done():
					return
				case <-time.After(10 * time.Second):
				}
				scan()
			}
		}
	}()

	log.Printf("[traderd] ready: mode=%s symbols=%d workers=%d max_positions=%d",
		cfg.MarketMode, len(symbols), cfg.Workers, sc.MaxPositions)

	// ---- Wait for signals: SIGHUP reloads tunables, the rest shut down ----
	for {
		sig := <-sigCh
		if sig != syscall.SIGHUP {
			break
		}
		config.Reload()
		next := config.StrategyFromEnv(settings.Current())
		if err := settings.Update(next); err != nil {
			log.Printf("[traderd] reload rejected: %v", err)
			continue
		}
		cur := settings.Current()
		trd.SetRisk(cur.CapitalPerTrade, cur.StopLossPct/100, cur.TakeProfitPct/100)
		table.SetCapacity(cur.MaxPositions)
		log.Printf("[traderd] strategy config reloaded: capital=%.2f max_positions=%d sl=%.1f%% tp=%.1f%%",
			cur.CapitalPerTrade, cur.MaxPositions, cur.StopLossPct, cur.TakeProfitPct)
	}
	log.Println("[traderd] shutdown signal received, cleaning up...")
	cancel()
	sched.Stop()
	bus.Close()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	metricsSrv.Stop(shutdownCtx)
	if redisWriter != nil {
		redisWriter.Close()
	}
	log.Println("[traderd] shutdown complete.")
}

func buildNotifier(cfg *config.Config) notification.Notifier {
	backends := []notification.Notifier{notification.NewLogNotifier()}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != "" {
		backends = append(backends, notification.NewTelegramNotifier(cfg.TelegramBotToken, cfg.TelegramChatID))
	}
	if cfg.WebhookURL != "" {
		backends = append(backends, notification.NewWebhookNotifier(cfg.WebhookURL))
	}
	if len(backends) == 1 {
		return backends[0]
	}
	return notification.NewMulti(backends...)
}

func signalLabel(s model.Signal) string {
	switch s {
	case model.SignalBuy:
		return "buy"
	case model.SignalSell:
		return "sell"
	default:
		return "neutral"
	}
}
