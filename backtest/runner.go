package backtest

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/capvalis/breakout/journal"
	"github.com/capvalis/breakout/market"
	"github.com/capvalis/breakout/pkg/id"
	"github.com/capvalis/breakout/strategy"
)

// SkipReason explains why a day produced no trades.
type SkipReason string

const (
	SkipInsufficientData SkipReason = "insufficient data"
	SkipInvalidRange     SkipReason = "invalid range"
	SkipTradingRules     SkipReason = "trading rules"
)

// SkippedDay records a day that was not traded. WhatIf is set only for
// policy skips where the day itself formed a valid range.
type SkippedDay struct {
	Date   time.Time
	Reason SkipReason
	WhatIf *strategy.WhatIfResult
}

// DailyMetric is the per-day performance rollup.
type DailyMetric struct {
	Date          time.Time
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64
	PnL           float64
	TargetHit     bool
}

// Result is the full outcome of a backtest run.
type Result struct {
	Symbol string
	Start  time.Time
	End    time.Time

	Trades  []strategy.ClosedTrade
	Daily   []DailyMetric
	Skipped []SkippedDay

	Summary Summary
}

// TradeJournal is the optional persistence hook; *journal.SQLite satisfies it.
type TradeJournal interface {
	RecordTrade(journal.TradeRecord) error
	RecordDailyMetric(journal.DailyMetricRecord) error
}

// Runner executes a range-breakout backtest over a date window.
//
// Each Runner owns its cross-day rule state, so one Runner must serve
// exactly one symbol per Run; never share a Runner across concurrent runs.
type Runner struct {
	Fetcher  *market.Fetcher
	Params   strategy.Params
	Symbol   string
	Interval int // minutes

	// PositionSize scales trade points into PnL. Zero means 1.
	PositionSize float64

	// StartBalance anchors the drawdown calculation. Zero means 100000.
	StartBalance float64

	Journal TradeJournal // optional
	Log     zerolog.Logger
}

// Run processes the window one day at a time: range detection, trade
// simulation, metric rollup, then the rule-state update, strictly in
// calendar order. Per-day anomalies are absorbed as skipped days; only a
// total failure to obtain data is returned as an error.
func (r *Runner) Run(ctx context.Context, start, end time.Time) (*Result, error) {
	if r.Fetcher == nil {
		return nil, fmt.Errorf("backtest: Fetcher is required")
	}
	if r.Symbol == "" {
		return nil, fmt.Errorf("backtest: Symbol is required")
	}
	if r.Interval <= 0 {
		r.Interval = 5
	}
	size := r.PositionSize
	if size == 0 {
		size = 1
	}

	log := r.Log.With().Str("component", "backtest").Str("symbol", r.Symbol).Logger()

	candles, err := r.Fetcher.FetchRange(ctx, r.Symbol, start, end, r.Interval)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", r.Symbol, err)
	}

	days := market.GroupByDay(candles)
	log.Info().Int("days", len(days)).Msg("processing trading days")

	res := &Result{Symbol: r.Symbol, Start: start, End: end}
	var rules strategy.DayRuleState

	for _, day := range days {
		if len(day.Candles) < r.Params.MinCandles {
			res.Skipped = append(res.Skipped, SkippedDay{
				Date:   day.Date,
				Reason: SkipInsufficientData,
			})
			continue
		}

		if rules.SkipToday {
			skip := SkippedDay{Date: day.Date, Reason: SkipTradingRules}
			if wi, ok := strategy.WhatIf(day.Candles, r.Params); ok {
				skip.WhatIf = &wi
			}
			res.Skipped = append(res.Skipped, skip)
			rules = rules.AfterSkippedDay()

			log.Debug().
				Time("date", day.Date).
				Msg("day skipped by trading rules")
			continue
		}

		rng, ok := strategy.DetectRange(day.Candles, r.Params)
		if !ok {
			res.Skipped = append(res.Skipped, SkippedDay{
				Date:   day.Date,
				Reason: SkipInvalidRange,
			})
			continue
		}

		out := strategy.SimulateDay(day.Candles, rng, r.Params)

		metric := DailyMetric{
			Date:        day.Date,
			TotalTrades: len(out.Trades),
			TargetHit:   out.TargetHit,
		}
		for _, t := range out.Trades {
			if t.Result == strategy.Win {
				metric.WinningTrades++
			} else {
				metric.LosingTrades++
			}
			metric.PnL += t.Points * size
		}
		if metric.TotalTrades > 0 {
			metric.WinRate = float64(metric.WinningTrades) / float64(metric.TotalTrades)
		}

		res.Trades = append(res.Trades, out.Trades...)
		res.Daily = append(res.Daily, metric)

		if err := r.journalDay(out.Trades, metric, size); err != nil {
			log.Warn().Err(err).Time("date", day.Date).Msg("journal write failed")
		}

		rules = rules.AfterTradedDay(out.TargetHit, out.Profit)
	}

	res.Summary = Summarize(res.Trades, size, r.startBalance())

	log.Info().
		Int("trades", res.Summary.TotalTrades).
		Int("skipped_days", len(res.Skipped)).
		Float64("total_pnl", res.Summary.TotalPnL).
		Msg("backtest complete")

	return res, nil
}

func (r *Runner) startBalance() float64 {
	if r.StartBalance > 0 {
		return r.StartBalance
	}
	return 100_000
}

func (r *Runner) journalDay(trades []strategy.ClosedTrade, metric DailyMetric, size float64) error {
	if r.Journal == nil {
		return nil
	}

	for _, t := range trades {
		rec := journal.TradeRecord{
			TradeID:    id.New(),
			Symbol:     r.Symbol,
			Side:       t.Side.String(),
			EntryPrice: t.EntryPrice,
			ExitPrice:  t.ExitPrice,
			EntryTime:  t.EntryTime,
			ExitTime:   t.ExitTime,
			Result:     t.Result.String(),
			Reason:     string(t.Reason),
			PnL:        t.Points * size,
		}
		if err := r.Journal.RecordTrade(rec); err != nil {
			return err
		}
	}

	return r.Journal.RecordDailyMetric(journal.DailyMetricRecord{
		Date:          metric.Date,
		TotalTrades:   metric.TotalTrades,
		WinningTrades: metric.WinningTrades,
		LosingTrades:  metric.LosingTrades,
		WinRate:       metric.WinRate,
		PnL:           metric.PnL,
		TargetHit:     metric.TargetHit,
	})
}
