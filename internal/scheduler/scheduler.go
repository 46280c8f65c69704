// Package scheduler runs symbol-analysis jobs on a bounded worker pool over
// an unbounded queue. Ad-hoc jobs can be enqueued with priority so a single
// requested symbol preempts a bulk universe scan.
package scheduler

import (
	"context"
	"log/slog"
	"sync"

	"github.com/balkhaev/trader-api/internal/analyzer"
)

// Callbacks are the scheduler's completion hooks. Any field may be nil.
type Callbacks struct {
	// Completed fires after every successful job, from the worker goroutine.
	Completed func(res *analyzer.Result)

	// Failed fires when an analysis job errors; the job is not retried.
	Failed func(symbol string, err error)

	// Drained fires when the queue empties and no job is in flight. This is
	// the usual trigger for a fresh universe scan.
	Drained func()

	// Waiting fires on every enqueue with the current queue depth.
	Waiting func(count int)
}

// Scheduler owns the job queue and worker pool.
type Scheduler struct {
	analyzer  *analyzer.Analyzer
	callbacks Callbacks
	workers   int
	log       *slog.Logger

	mu       sync.Mutex
	cond     *sync.Cond
	queue    []string // bulk FIFO
	priority []string // ad-hoc FIFO, always served first
	queued   map[string]struct{}
	inFlight int
	stopped  bool

	wg sync.WaitGroup
}

// New creates a scheduler; Start must be called before Enqueue has effect.
func New(a *analyzer.Analyzer, workers int, cb Callbacks, log *slog.Logger) *Scheduler {
	if workers <= 0 {
		workers = 4
	}
	s := &Scheduler{
		analyzer:  a,
		callbacks: cb,
		workers:   workers,
		log:       log,
		queued:    make(map[string]struct{}),
	}
	s.cond = sync.NewCond(&s.mu)
	return s
}

// Start launches the worker pool. Workers exit when Stop is called and the
// queue has been handed out; in-flight jobs always finish.
func (s *Scheduler) Start(ctx context.Context) {
	for i := 0; i < s.workers; i++ {
		s.wg.Add(1)
		go s.worker(ctx)
	}
}

// Enqueue adds a symbol to the queue. A symbol already waiting is skipped
// silently; priority jobs go to the front pool. Returns false if the job was
// not accepted (duplicate or scheduler stopped).
func (s *Scheduler) Enqueue(symbol string, prio bool) bool {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return false
	}
	if _, dup := s.queued[symbol]; dup {
		s.mu.Unlock()
		return false
	}
	s.queued[symbol] = struct{}{}
	if prio {
		s.priority = append(s.priority, symbol)
	} else {
		s.queue = append(s.queue, symbol)
	}
	depth := len(s.priority) + len(s.queue)
	s.mu.Unlock()

	s.cond.Signal()
	if s.callbacks.Waiting != nil {
		s.callbacks.Waiting(depth)
	}
	return true
}

// Stop closes the intake and blocks until all queued and in-flight jobs have
// finished.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	s.cond.Broadcast()
	s.wg.Wait()
}

// next blocks for the next job. ok=false means the scheduler is shutting
// down and the queue is empty.
func (s *Scheduler) next() (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for len(s.priority) == 0 && len(s.queue) == 0 {
		if s.stopped {
			return "", false
		}
		s.cond.Wait()
	}

	var symbol string
	if len(s.priority) > 0 {
		symbol = s.priority[0]
		s.priority = s.priority[1:]
	} else {
		symbol = s.queue[0]
		s.queue = s.queue[1:]
	}
	delete(s.queued, symbol)
	s.inFlight++
	return symbol, true
}

// finish records job completion and fires Drained when the pool goes idle.
func (s *Scheduler) finish() {
	s.mu.Lock()
	s.inFlight--
	idle := s.inFlight == 0 && len(s.priority) == 0 && len(s.queue) == 0
	s.mu.Unlock()

	if idle && s.callbacks.Drained != nil {
		s.callbacks.Drained()
	}
}

func (s *Scheduler) worker(ctx context.Context) {
	defer s.wg.Done()
	for {
		symbol, ok := s.next()
		if !ok {
			return
		}

		res, err := s.analyzer.Analyze(ctx, symbol)
		if err != nil {
			// Source hiccups skip the symbol this cycle; the next scan
			// will pick it up again.
			s.log.Warn("analysis failed", "symbol", symbol, "error", err)
			if s.callbacks.Failed != nil {
				s.callbacks.Failed(symbol, err)
			}
		} else if s.callbacks.Completed != nil {
			s.callbacks.Completed(res)
		}
		s.finish()
	}
}
