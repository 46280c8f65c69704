package sqlite

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/balkhaev/trader-api/internal/model"
)

// TradeStats summarizes realized performance from the sells table.
type TradeStats struct {
	Trades   int     `json:"trades"`
	Wins     int     `json:"wins"`
	TotalPnL float64 `json:"total_pnl"`
	WinRate  float64 `json:"win_rate"`
}

// RecentSells returns the last n executed exits, newest first.
func (s *Store) RecentSells(n int) ([]model.SellAudit, error) {
	rows, err := s.db.Query(`
		SELECT symbol, strategy, order_id, price, qty, pnl, pnl_pct, reason, partial, ts
		FROM sells ORDER BY ts DESC, id DESC LIMIT ?
	`, n)
	if err != nil {
		return nil, fmt.Errorf("sqlite query sells: %w", err)
	}
	defer rows.Close()

	var out []model.SellAudit
	for rows.Next() {
		var (
			sa      model.SellAudit
			partial int
			ts      int64
		)
		if err := rows.Scan(&sa.Symbol, &sa.Strategy, &sa.OrderID, &sa.Price, &sa.Qty,
			&sa.PnL, &sa.PnLPct, &sa.Reason, &partial, &ts); err != nil {
			return nil, fmt.Errorf("sqlite scan sell: %w", err)
		}
		sa.Partial = partial != 0
		sa.At = time.Unix(ts, 0).UTC()
		out = append(out, sa)
	}
	return out, rows.Err()
}

// Stats aggregates realized PnL over full exits since the given time.
// Partial exits are excluded so a ladder does not count as several trades.
func (s *Store) Stats(since time.Time) (TradeStats, error) {
	var (
		st   TradeStats
		wins sql.NullInt64
		pnl  sql.NullFloat64
	)
	err := s.db.QueryRow(`
		SELECT COUNT(*), SUM(pnl > 0), SUM(pnl)
		FROM sells WHERE partial = 0 AND ts >= ?
	`, since.Unix()).Scan(&st.Trades, &wins, &pnl)
	if err != nil {
		return TradeStats{}, fmt.Errorf("sqlite trade stats: %w", err)
	}
	st.Wins = int(wins.Int64)
	st.TotalPnL = pnl.Float64
	if st.Trades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Trades)
	}
	return st, nil
}
