package sqlite

import (
	"database/sql"
	"fmt"
	"log"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/balkhaev/trader-api/internal/model"
)

// Config configures the SQLite store.
type Config struct {
	DBPath string // path to SQLite database file, e.g. "data/trader.db"
}

// Store persists positions and trade audit rows. It implements
// model.PositionStore and model.AuditStore.
type Store struct {
	db *sql.DB
}

// DB returns the underlying sql.DB for health checks.
func (s *Store) DB() *sql.DB { return s.db }

// New opens the database with WAL mode and initializes the schema.
func New(cfg Config) (*Store, error) {
	db, err := sql.Open("sqlite3", cfg.DBPath+"?_journal_mode=WAL&_synchronous=NORMAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("sqlite open: %w", err)
	}

	// Single writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if err := createSchema(db); err != nil {
		return nil, fmt.Errorf("sqlite schema: %w", err)
	}

	log.Printf("[sqlite] opened database at %s", cfg.DBPath)
	return &Store{db: db}, nil
}

func createSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS positions (
			id                 TEXT    PRIMARY KEY,
			symbol             TEXT    NOT NULL,
			strategy           TEXT    NOT NULL,
			status             TEXT    NOT NULL,
			entry_price        REAL    NOT NULL,
			entry_ts           INTEGER NOT NULL,
			qty                REAL    NOT NULL,
			capital_invested   REAL    NOT NULL,
			stop_loss_pct      REAL    NOT NULL,
			take_profit_pct    REAL    NOT NULL,
			last_price         REAL    NOT NULL DEFAULT 0,
			pnl                REAL    NOT NULL DEFAULT 0,
			pnl_pct            REAL    NOT NULL DEFAULT 0,
			exit_price         REAL    NOT NULL DEFAULT 0,
			exit_ts            INTEGER NOT NULL DEFAULT 0,
			close_reason       TEXT    NOT NULL DEFAULT '',
			tp1                INTEGER NOT NULL DEFAULT 0,
			tp2                INTEGER NOT NULL DEFAULT 0,
			tp3                INTEGER NOT NULL DEFAULT 0,
			trailing_armed     INTEGER NOT NULL DEFAULT 0,
			held_above_ma      INTEGER NOT NULL DEFAULT 0,
			held_above_ma_fast INTEGER NOT NULL DEFAULT 0
		);
		CREATE INDEX IF NOT EXISTS idx_positions_status ON positions (status);

		CREATE TABLE IF NOT EXISTS buys (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			strategy    TEXT    NOT NULL,
			order_id    TEXT    NOT NULL,
			price       REAL    NOT NULL,
			qty         REAL    NOT NULL,
			diagnostics TEXT    NOT NULL DEFAULT '',
			ts          INTEGER NOT NULL
		);

		CREATE TABLE IF NOT EXISTS analysis (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol      TEXT    NOT NULL,
			last_price  REAL    NOT NULL,
			buy_signals INTEGER NOT NULL,
			data        TEXT    NOT NULL,
			ts          INTEGER NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_analysis_symbol_ts ON analysis (symbol, ts);

		CREATE TABLE IF NOT EXISTS sells (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			symbol   TEXT    NOT NULL,
			strategy TEXT    NOT NULL,
			order_id TEXT    NOT NULL,
			price    REAL    NOT NULL,
			qty      REAL    NOT NULL,
			pnl      REAL    NOT NULL,
			pnl_pct  REAL    NOT NULL,
			reason   TEXT    NOT NULL,
			partial  INTEGER NOT NULL DEFAULT 0,
			ts       INTEGER NOT NULL
		);
	`)
	return err
}

// SaveOpenPosition inserts a freshly opened position.
func (s *Store) SaveOpenPosition(pos *model.Position) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO positions
			(id, symbol, strategy, status, entry_price, entry_ts, qty,
			 capital_invested, stop_loss_pct, take_profit_pct,
			 last_price, pnl, pnl_pct, exit_price, exit_ts, close_reason,
			 tp1, tp2, tp3, trailing_armed, held_above_ma, held_above_ma_fast)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		pos.ID, pos.Symbol, pos.Strategy, string(pos.Status),
		pos.EntryPrice, pos.EntryTime.Unix(), pos.Qty,
		pos.CapitalInvested, pos.StopLossPct, pos.TakeProfitPct,
		pos.LastPrice, pos.PnL, pos.PnLPct,
		pos.ExitPrice, exitUnix(pos.ExitTime), pos.CloseReason,
		b2i(pos.TP1), b2i(pos.TP2), b2i(pos.TP3),
		b2i(pos.TrailingArmed), b2i(pos.HeldAboveMA), b2i(pos.HeldAboveMAFast),
	)
	if err != nil {
		return fmt.Errorf("sqlite insert position %s: %w", pos.ID, err)
	}
	return nil
}

// UpdatePosition rewrites the mutable columns of an existing row.
func (s *Store) UpdatePosition(pos *model.Position) error {
	_, err := s.db.Exec(`
		UPDATE positions SET
			status = ?, qty = ?, last_price = ?, pnl = ?, pnl_pct = ?,
			exit_price = ?, exit_ts = ?, close_reason = ?,
			tp1 = ?, tp2 = ?, tp3 = ?, trailing_armed = ?,
			held_above_ma = ?, held_above_ma_fast = ?
		WHERE id = ?
	`,
		string(pos.Status), pos.Qty, pos.LastPrice, pos.PnL, pos.PnLPct,
		pos.ExitPrice, exitUnix(pos.ExitTime), pos.CloseReason,
		b2i(pos.TP1), b2i(pos.TP2), b2i(pos.TP3), b2i(pos.TrailingArmed),
		b2i(pos.HeldAboveMA), b2i(pos.HeldAboveMAFast),
		pos.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite update position %s: %w", pos.ID, err)
	}
	return nil
}

// LoadOpenPositions returns all rows still marked open, for rehydration.
func (s *Store) LoadOpenPositions() ([]*model.Position, error) {
	rows, err := s.db.Query(`
		SELECT id, symbol, strategy, status, entry_price, entry_ts, qty,
		       capital_invested, stop_loss_pct, take_profit_pct,
		       last_price, pnl, pnl_pct, exit_price, exit_ts, close_reason,
		       tp1, tp2, tp3, trailing_armed, held_above_ma, held_above_ma_fast
		FROM positions WHERE status = ?
	`, string(model.StatusOpen))
	if err != nil {
		return nil, fmt.Errorf("sqlite load open positions: %w", err)
	}
	defer rows.Close()

	var out []*model.Position
	for rows.Next() {
		var (
			pos                         model.Position
			status                      string
			entryTS, exitTS             int64
			tp1, tp2, tp3, armed        int
			heldAboveMA, heldAboveMAFst int
		)
		err := rows.Scan(
			&pos.ID, &pos.Symbol, &pos.Strategy, &status,
			&pos.EntryPrice, &entryTS, &pos.Qty,
			&pos.CapitalInvested, &pos.StopLossPct, &pos.TakeProfitPct,
			&pos.LastPrice, &pos.PnL, &pos.PnLPct,
			&pos.ExitPrice, &exitTS, &pos.CloseReason,
			&tp1, &tp2, &tp3, &armed, &heldAboveMA, &heldAboveMAFst,
		)
		if err != nil {
			return nil, fmt.Errorf("sqlite scan position: %w", err)
		}
		pos.Status = model.PositionStatus(status)
		pos.EntryTime = time.Unix(entryTS, 0).UTC()
		if exitTS > 0 {
			pos.ExitTime = time.Unix(exitTS, 0).UTC()
		}
		pos.TP1 = tp1 != 0
		pos.TP2 = tp2 != 0
		pos.TP3 = tp3 != 0
		pos.TrailingArmed = armed != 0
		pos.HeldAboveMA = heldAboveMA != 0
		pos.HeldAboveMAFast = heldAboveMAFst != 0
		out = append(out, &pos)
	}
	return out, rows.Err()
}

// RecordBuy appends one executed entry to the buys table.
func (s *Store) RecordBuy(buy model.BuyAudit) error {
	_, err := s.db.Exec(`
		INSERT INTO buys (symbol, strategy, order_id, price, qty, diagnostics, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, buy.Symbol, buy.Strategy, buy.OrderID, buy.Price, buy.Qty, buy.Diagnostics, buy.At.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert buy %s: %w", buy.Symbol, err)
	}
	return nil
}

// RecordSell appends one executed exit, full or partial, to the sells table.
func (s *Store) RecordSell(sell model.SellAudit) error {
	_, err := s.db.Exec(`
		INSERT INTO sells (symbol, strategy, order_id, price, qty, pnl, pnl_pct, reason, partial, ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, sell.Symbol, sell.Strategy, sell.OrderID, sell.Price, sell.Qty,
		sell.PnL, sell.PnLPct, sell.Reason, b2i(sell.Partial), sell.At.Unix())
	if err != nil {
		return fmt.Errorf("sqlite insert sell %s: %w", sell.Symbol, err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func b2i(b bool) int {
	if b {
		return 1
	}
	return 0
}

func exitUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
