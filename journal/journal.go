package journal

import "time"

// TradeRecord is one resolved trade as persisted.
type TradeRecord struct {
	TradeID    string
	Symbol     string
	Side       string // LONG / SHORT
	EntryPrice float64
	ExitPrice  float64
	EntryTime  time.Time
	ExitTime   time.Time
	Result     string // WIN / LOSS
	Reason     string // StopLoss / Target / MarketClose
	PnL        float64
}

// DailyMetricRecord is one day's rollup.
type DailyMetricRecord struct {
	Date          time.Time
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	PnL           float64
	TargetHit     bool
}

type Journal interface {
	RecordTrade(TradeRecord) error
	RecordDailyMetric(DailyMetricRecord) error
	Close() error
}
