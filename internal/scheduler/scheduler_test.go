package scheduler

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/balkhaev/trader-api/internal/analyzer"
	"github.com/balkhaev/trader-api/internal/model"
)

type stubSource struct {
	fail map[string]bool
}

func (s *stubSource) FetchCandles(_ context.Context, symbol string, _ model.Interval, _ int) ([]model.Candle, error) {
	if s.fail[symbol] {
		return nil, errors.New("venue down")
	}
	return []model.Candle{{Time: time.Now(), Close: 100}}, nil
}

func (s *stubSource) FetchTicker(_ context.Context, symbol string) (model.Ticker, error) {
	if s.fail[symbol] {
		return model.Ticker{}, errors.New("venue down")
	}
	return model.Ticker{Symbol: symbol, LastPrice: 100}, nil
}

func (s *stubSource) FetchTickers(_ context.Context) ([]model.Ticker, error) {
	return nil, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestScheduler_PriorityPreemptsBulk(t *testing.T) {
	a := analyzer.New(&stubSource{}, nil, 10)

	var (
		mu    sync.Mutex
		order []string
	)
	drained := make(chan struct{}, 1)

	s := New(a, 1, Callbacks{
		Completed: func(res *analyzer.Result) {
			mu.Lock()
			order = append(order, res.Symbol)
			mu.Unlock()
		},
		Drained: func() {
			select {
			case drained <- struct{}{}:
			default:
			}
		},
	}, discardLogger())

	// Queue before starting so the single worker sees the final ordering.
	s.Enqueue("AAAUSDT", false)
	s.Enqueue("BBBUSDT", false)
	s.Enqueue("HOTUSDT", true)

	s.Start(context.Background())

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("drained callback never fired")
	}
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(order) != 3 {
		t.Fatalf("expected 3 completions, got %v", order)
	}
	if order[0] != "HOTUSDT" {
		t.Fatalf("priority job should run first, got order %v", order)
	}
}

func TestScheduler_DuplicateEnqueueSkipped(t *testing.T) {
	a := analyzer.New(&stubSource{}, nil, 10)
	s := New(a, 1, Callbacks{}, discardLogger())

	if !s.Enqueue("AAAUSDT", false) {
		t.Fatal("first enqueue should be accepted")
	}
	if s.Enqueue("AAAUSDT", false) {
		t.Fatal("duplicate waiting symbol must be skipped")
	}
	s.Start(context.Background())
	s.Stop()
}

func TestScheduler_FailedJobDoesNotStopPool(t *testing.T) {
	a := analyzer.New(&stubSource{fail: map[string]bool{"BADUSDT": true}}, nil, 10)

	var (
		mu        sync.Mutex
		completed []string
	)
	drained := make(chan struct{}, 1)
	s := New(a, 2, Callbacks{
		Completed: func(res *analyzer.Result) {
			mu.Lock()
			completed = append(completed, res.Symbol)
			mu.Unlock()
		},
		Drained: func() {
			select {
			case drained <- struct{}{}:
			default:
			}
		},
	}, discardLogger())

	s.Enqueue("BADUSDT", false)
	s.Enqueue("GOODUSDT", false)
	s.Start(context.Background())

	select {
	case <-drained:
	case <-time.After(5 * time.Second):
		t.Fatal("drained callback never fired")
	}
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	if len(completed) != 1 || completed[0] != "GOODUSDT" {
		t.Fatalf("only the healthy symbol should complete, got %v", completed)
	}
}

func TestScheduler_StopRejectsNewJobs(t *testing.T) {
	a := analyzer.New(&stubSource{}, nil, 10)
	s := New(a, 1, Callbacks{}, discardLogger())
	s.Start(context.Background())
	s.Stop()

	if s.Enqueue("AAAUSDT", false) {
		t.Fatal("enqueue after Stop must be rejected")
	}
}
