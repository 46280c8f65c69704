package sqlite

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/balkhaev/trader-api/internal/analyzer"
)

const (
	archiveBatchSize  = 100
	archiveFlushDelay = 2 * time.Second
)

// RunAnalysisArchive reads analysis results and inserts them in batched
// transactions. Flushes every archiveBatchSize rows or archiveFlushDelay,
// whichever comes first. Blocks until ctx is cancelled or ch is closed.
func (s *Store) RunAnalysisArchive(ctx context.Context, ch <-chan *analyzer.Result) {
	batch := make([]*analyzer.Result, 0, archiveBatchSize)
	timer := time.NewTimer(archiveFlushDelay)
	defer timer.Stop()

	flush := func() {
		if len(batch) == 0 {
			return
		}
		start := time.Now()
		if err := s.insertAnalysisBatch(batch); err != nil {
			log.Printf("[sqlite] analysis batch insert error: %v", err)
		} else {
			log.Printf("[sqlite] archived %d analysis rows in %v", len(batch), time.Since(start))
		}
		batch = batch[:0]
	}

	for {
		select {
		case <-ctx.Done():
			flush()
			return
		case res, ok := <-ch:
			if !ok {
				flush()
				return
			}
			batch = append(batch, res)
			if len(batch) >= archiveBatchSize {
				flush()
				timer.Reset(archiveFlushDelay)
			}
		case <-timer.C:
			flush()
			timer.Reset(archiveFlushDelay)
		}
	}
}

func (s *Store) insertAnalysisBatch(results []*analyzer.Result) error {
	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO analysis (symbol, last_price, buy_signals, data, ts)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, res := range results {
		data, err := json.Marshal(res)
		if err != nil {
			continue
		}
		_, err = stmt.Exec(res.Symbol, res.LastPrice, len(res.BuySignals()), string(data), res.AnalyzedAt.Unix())
		if err != nil {
			tx.Rollback()
			return err
		}
	}

	return tx.Commit()
}
