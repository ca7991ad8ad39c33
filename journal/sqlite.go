package journal

import (
	"database/sql"

	_ "github.com/mattn/go-sqlite3"
)

type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		return nil, err
	}

	return &SQLite{db: db}, nil
}

func (j *SQLite) RecordTrade(t TradeRecord) error {
	_, err := j.db.Exec(`
		INSERT INTO trades
		(trade_id, symbol, side, entry_price, exit_price, entry_time, exit_time, result, reason, pnl)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.TradeID, t.Symbol, t.Side, t.EntryPrice, t.ExitPrice,
		t.EntryTime, t.ExitTime, t.Result, t.Reason, t.PnL,
	)
	return err
}

func (j *SQLite) RecordDailyMetric(m DailyMetricRecord) error {
	_, err := j.db.Exec(`
		INSERT OR REPLACE INTO daily_metrics
		(date, total_trades, winning_trades, losing_trades, win_rate, pnl, target_hit)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		m.Date, m.TotalTrades, m.WinningTrades, m.LosingTrades,
		m.WinRate, m.PnL, m.TargetHit,
	)
	return err
}

func (j *SQLite) Close() error {
	return j.db.Close()
}
