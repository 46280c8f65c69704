package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/balkhaev/trader-api/internal/analyzer"
)

const (
	// Stream trimming: roughly a day of per-symbol analysis runs + buffer.
	analysisStreamMaxLen = 2000
	defaultLatestTTL     = 30 * time.Minute
)

// WriterConfig configures the Redis writer.
type WriterConfig struct {
	Addr     string // Redis address, e.g. "localhost:6379"
	Password string
	DB       int
}

// Writer publishes analysis results to Redis: latest snapshot per symbol,
// an append-only stream of runs, and a pub/sub channel for live consumers.
type Writer struct {
	client *goredis.Client
}

// Client returns the underlying Redis client for health checks.
func (w *Writer) Client() *goredis.Client { return w.client }

// New creates a new Redis Writer and pings the server.
func New(cfg WriterConfig) (*Writer, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	log.Printf("[redis] connected to %s", cfg.Addr)
	return &Writer{client: client}, nil
}

// WriteAnalysis writes one analysis result: SET latest + XADD + PUBLISH in a
// single pipeline roundtrip.
func (w *Writer) WriteAnalysis(ctx context.Context, res *analyzer.Result) error {
	data, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal analysis %s: %w", res.Symbol, err)
	}
	return w.writeRaw(ctx, res.Symbol, string(data))
}

func (w *Writer) writeRaw(ctx context.Context, symbol, jsonData string) error {
	latestKey := "analysis:latest:" + symbol
	streamKey := "analysis:" + symbol
	pubsubCh := "pub:analysis:" + symbol

	pipe := w.client.Pipeline()

	pipe.Set(ctx, latestKey, jsonData, defaultLatestTTL)
	pipe.XAdd(ctx, &goredis.XAddArgs{
		Stream: streamKey,
		MaxLen: analysisStreamMaxLen,
		Approx: true,
		Values: map[string]interface{}{"data": jsonData},
	})
	pipe.Publish(ctx, pubsubCh, jsonData)

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis pipeline for %s: %w", symbol, err)
	}
	return nil
}

// ReadLatest returns the most recent analysis for symbol, or (nil, nil) when
// none has been written within the TTL window.
func (w *Writer) ReadLatest(ctx context.Context, symbol string) (*analyzer.Result, error) {
	raw, err := w.client.Get(ctx, "analysis:latest:"+symbol).Result()
	if err != nil {
		if err == goredis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("redis GET analysis:latest:%s: %w", symbol, err)
	}
	var res analyzer.Result
	if err := json.Unmarshal([]byte(raw), &res); err != nil {
		return nil, fmt.Errorf("unmarshal analysis %s: %w", symbol, err)
	}
	return &res, nil
}

// Close closes the Redis client.
func (w *Writer) Close() error {
	return w.client.Close()
}
