package redis

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/balkhaev/trader-api/internal/analyzer"
)

// pendingWrite is an analysis record held back while the circuit is open.
type pendingWrite struct {
	Symbol string
	Data   []byte // JSON-encoded analyzer.Result
}

// BufferedWriter wraps a Redis Writer with a circuit breaker. While the
// circuit is open, analysis writes are buffered locally and replayed when the
// circuit closes again.
type BufferedWriter struct {
	writer *Writer
	cb     *CircuitBreaker
	ctx    context.Context

	mu     sync.Mutex
	buffer []pendingWrite
	maxBuf int // drop-oldest threshold

	// Callbacks for metrics.
	OnBuffer func()
	OnFlush  func(count int)
}

// NewBufferedWriter creates a BufferedWriter wrapping the given Writer.
func NewBufferedWriter(ctx context.Context, w *Writer, cb *CircuitBreaker, maxBufferSize int) *BufferedWriter {
	if maxBufferSize <= 0 {
		maxBufferSize = 10000
	}
	bw := &BufferedWriter{
		writer: w,
		cb:     cb,
		ctx:    ctx,
		buffer: make([]pendingWrite, 0, 256),
		maxBuf: maxBufferSize,
	}

	// Chain onto any existing state-change callback and flush on close.
	prev := cb.OnStateChange
	cb.OnStateChange = func(from, to State) {
		if prev != nil {
			prev(from, to)
		}
		if to == StateClosed {
			go bw.flush()
		}
	}

	return bw
}

// WriteAnalysis writes an analysis result through the circuit breaker.
// If the circuit is open, the record is buffered locally instead of lost.
func (bw *BufferedWriter) WriteAnalysis(res *analyzer.Result) error {
	err := bw.cb.Execute(func() error {
		return bw.writer.WriteAnalysis(bw.ctx, res)
	})
	if err == ErrCircuitOpen {
		bw.bufferWrite(res)
		return nil
	}
	return err
}

func (bw *BufferedWriter) bufferWrite(res *analyzer.Result) {
	data, err := json.Marshal(res)
	if err != nil {
		log.Printf("[buffered-writer] marshal error for %s: %v", res.Symbol, err)
		return
	}

	bw.mu.Lock()
	defer bw.mu.Unlock()

	if len(bw.buffer) >= bw.maxBuf {
		// Buffer full, drop oldest
		bw.buffer = bw.buffer[1:]
	}
	bw.buffer = append(bw.buffer, pendingWrite{Symbol: res.Symbol, Data: data})

	if bw.OnBuffer != nil {
		bw.OnBuffer()
	}
}

// flush replays all buffered records through the underlying writer.
func (bw *BufferedWriter) flush() {
	bw.mu.Lock()
	if len(bw.buffer) == 0 {
		bw.mu.Unlock()
		return
	}
	toFlush := bw.buffer
	bw.buffer = make([]pendingWrite, 0, 256)
	bw.mu.Unlock()

	flushed := 0
	for _, pw := range toFlush {
		if err := bw.writer.writeRaw(bw.ctx, pw.Symbol, string(pw.Data)); err != nil {
			log.Printf("[buffered-writer] flush error for %s: %v", pw.Symbol, err)
			continue
		}
		flushed++
	}

	log.Printf("[buffered-writer] flushed %d buffered writes", flushed)
	if bw.OnFlush != nil {
		bw.OnFlush(flushed)
	}
}

// PendingCount returns the number of buffered records waiting to be flushed.
func (bw *BufferedWriter) PendingCount() int {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	return len(bw.buffer)
}

// Underlying returns the wrapped Redis writer for direct access.
func (bw *BufferedWriter) Underlying() *Writer {
	return bw.writer
}
