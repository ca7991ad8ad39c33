package engine

import (
	"context"
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/capvalis/breakout/broker"
	"github.com/capvalis/breakout/market"
	"github.com/capvalis/breakout/notify"
	"github.com/capvalis/breakout/risk"
	"github.com/capvalis/breakout/strategy"
)

// Options configures the live signal loop.
type Options struct {
	Symbol   string
	Interval int // minutes

	// Lookback is the history window re-fetched each cycle so the day-rule
	// chain has context. Default 5 days.
	Lookback time.Duration

	// Poll is the cycle interval. Default 5s.
	Poll time.Duration

	// Qty is the order quantity per signal, and the lot size for
	// risk-based sizing.
	Qty int

	// Equity and RiskPercent size orders so a stop-out loses at most
	// RiskPercent of equity. When either is zero, Qty is used as-is.
	Equity      float64
	RiskPercent float64

	// MaxActiveOrders caps concurrently tracked orders. Default 2.
	MaxActiveOrders int

	Params strategy.Params
}

func (o *Options) defaults() {
	if o.Lookback <= 0 {
		o.Lookback = 5 * 24 * time.Hour
	}
	if o.Poll <= 0 {
		o.Poll = 5 * time.Second
	}
	if o.MaxActiveOrders <= 0 {
		o.MaxActiveOrders = 2
	}
	if o.Qty <= 0 {
		o.Qty = 1
	}
}

// Engine is the live trading loop: it periodically re-runs the breakout
// strategy over a trailing window, forwards fresh signals to the order
// executor, and reports status through the notifier. Everything runs on
// the caller's goroutine; each Engine owns its state and must not be
// shared across symbols.
type Engine struct {
	fetcher  *market.Fetcher
	exec     broker.OrderExecutor
	notifier notify.Notifier
	opts     Options
	log      zerolog.Logger

	positions    map[string]broker.NetPosition
	activeOrders map[string]notify.Signal
}

func New(f *market.Fetcher, exec broker.OrderExecutor, n notify.Notifier, opts Options, log zerolog.Logger) *Engine {
	opts.defaults()
	if n == nil {
		n = notify.Nop{}
	}
	return &Engine{
		fetcher:      f,
		exec:         exec,
		notifier:     n,
		opts:         opts,
		log:          log.With().Str("component", "engine").Str("symbol", opts.Symbol).Logger(),
		positions:    make(map[string]broker.NetPosition),
		activeOrders: make(map[string]notify.Signal),
	}
}

// Run drives the loop until ctx is cancelled. On shutdown all open
// positions are flattened with market orders.
func (e *Engine) Run(ctx context.Context) error {
	e.log.Info().Msg("engine starting")
	e.notifier.SystemStatus(ctx, e.status("STARTED"))

	ticker := time.NewTicker(e.opts.Poll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.shutdown()
			return ctx.Err()
		case <-ticker.C:
			e.cycle(ctx)
		}
	}
}

func (e *Engine) shutdown() {
	// Fresh context: the run context is already cancelled.
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	e.closeAllPositions(ctx)
	e.notifier.SystemStatus(ctx, e.status("STOPPED"))
	e.log.Info().Msg("engine stopped")
}

func (e *Engine) status(state string) notify.SystemStatus {
	return notify.SystemStatus{
		Status:        state,
		Connected:     e.exec != nil,
		ActiveOrders:  len(e.activeOrders),
		OpenPositions: len(e.positions),
		LastUpdate:    time.Now(),
	}
}

func (e *Engine) cycle(ctx context.Context) {
	e.updatePositions(ctx)

	sigs, err := e.signals(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("signal generation failed")
		e.notifier.Error(ctx, err.Error())
		return
	}

	for _, sig := range sigs {
		e.placeSignal(ctx, sig)
	}

	e.notifier.SystemStatus(ctx, e.status("RUNNING"))
}

func (e *Engine) updatePositions(ctx context.Context) {
	pos, err := e.exec.GetPositions(ctx)
	if err != nil {
		e.log.Error().Err(err).Msg("position refresh failed")
		return
	}
	e.positions = pos
}

// signals re-runs the day chain over the lookback window and emits the
// most recent day's entries. Earlier days only establish the rule flags.
func (e *Engine) signals(ctx context.Context) ([]notify.Signal, error) {
	end := time.Now()
	start := end.Add(-e.opts.Lookback)

	candles, err := e.fetcher.FetchRange(ctx, e.opts.Symbol, start, end, e.opts.Interval)
	if err != nil {
		return nil, err
	}

	days := market.GroupByDay(candles)
	if len(days) == 0 {
		return nil, nil
	}

	var rules strategy.DayRuleState
	for _, day := range days[:len(days)-1] {
		if len(day.Candles) < e.opts.Params.MinCandles {
			continue
		}
		if rules.SkipToday {
			rules = rules.AfterSkippedDay()
			continue
		}
		rng, ok := strategy.DetectRange(day.Candles, e.opts.Params)
		if !ok {
			continue
		}
		out := strategy.SimulateDay(day.Candles, rng, e.opts.Params)
		rules = rules.AfterTradedDay(out.TargetHit, out.Profit)
	}

	today := days[len(days)-1]
	if rules.SkipToday {
		e.log.Debug().Msg("today skipped by trading rules")
		return nil, nil
	}
	if len(today.Candles) < e.opts.Params.MinCandles {
		return nil, nil
	}

	rng, ok := strategy.DetectRange(today.Candles, e.opts.Params)
	if !ok {
		return nil, nil
	}

	out := strategy.SimulateDay(today.Candles, rng, e.opts.Params)

	sigs := make([]notify.Signal, 0, len(out.Trades))
	for _, t := range out.Trades {
		sigs = append(sigs, notify.Signal{
			Symbol:   e.opts.Symbol,
			Side:     t.Side.String(),
			Price:    t.EntryPrice,
			StopLoss: t.StopLoss,
			Target:   t.Target,
			Qty:      e.orderQty(t.EntryPrice, t.StopLoss),
		})
	}
	return sigs, nil
}

// orderQty sizes one order off the stop distance, in whole lots of Qty.
// Falls back to the flat Qty when risk sizing is disabled or the equity
// cannot support a single lot.
func (e *Engine) orderQty(entry, stop float64) int {
	if e.opts.Equity > 0 && e.opts.RiskPercent > 0 {
		if q := risk.QtyForRisk(e.opts.Equity, e.opts.RiskPercent, entry, stop, e.opts.Qty); q > 0 {
			return q
		}
	}
	return e.opts.Qty
}

func (e *Engine) placeSignal(ctx context.Context, sig notify.Signal) {
	if _, held := e.positions[sig.Symbol]; held {
		return
	}
	if len(e.activeOrders) >= e.opts.MaxActiveOrders {
		return
	}

	side := broker.SideBuy
	if sig.Side == strategy.Short.String() {
		side = broker.SideSell
	}

	resp, err := e.exec.PlaceOrder(ctx, broker.OrderRequest{
		Symbol: sig.Symbol,
		Qty:    sig.Qty,
		Type:   broker.OrderTypeMarket,
		Side:   side,
		Source: 1,
	})
	if err != nil {
		e.log.Error().Err(err).Str("side", sig.Side).Msg("order placement failed")
		e.notifier.Error(ctx, err.Error())
		return
	}

	e.activeOrders[resp.OrderID] = sig
	e.notifier.TradeSignal(ctx, sig)

	e.log.Info().
		Str("order_id", resp.OrderID).
		Str("side", sig.Side).
		Float64("entry", sig.Price).
		Msg("signal placed")
}

// closeAllPositions flattens every open position with an opposing market
// order.
func (e *Engine) closeAllPositions(ctx context.Context) {
	for symbol, pos := range e.positions {
		side := broker.SideSell
		if pos.NetQty < 0 {
			side = broker.SideBuy
		}

		resp, err := e.exec.PlaceOrder(ctx, broker.OrderRequest{
			Symbol: symbol,
			Qty:    int(math.Abs(pos.NetQty)),
			Type:   broker.OrderTypeMarket,
			Side:   side,
			Source: 1,
		})
		if err != nil {
			e.log.Error().Err(err).Str("symbol", symbol).Msg("close position failed")
			continue
		}

		e.notifier.OrderStatus(ctx, notify.OrderStatus{
			OrderID: resp.OrderID,
			Symbol:  symbol,
			Status:  "CLOSED",
			Side:    int(side),
			Qty:     math.Abs(pos.NetQty),
		})
		e.log.Info().Str("symbol", symbol).Msg("position closed")
	}
}
