package strategy

import (
	"time"

	"github.com/capvalis/breakout/market"
)

// Side: +1 long, -1 short
type Side int8

const (
	Long  Side = +1
	Short Side = -1
)

func (s Side) String() string {
	if s == Short {
		return "SHORT"
	}
	return "LONG"
}

type Result int8

const (
	Loss Result = iota
	Win
)

func (r Result) String() string {
	if r == Win {
		return "WIN"
	}
	return "LOSS"
}

// ExitReason records why a trade closed.
type ExitReason string

const (
	ExitStopLoss    ExitReason = "StopLoss"
	ExitTarget      ExitReason = "Target"
	ExitMarketClose ExitReason = "MarketClose"
)

// Params controls range detection and trade simulation. The window offsets
// are in candle indices within the day and depend on the bar interval:
// for 5-minute bars the session opens at 09:15, so candles 6..8 cover
// 09:45-10:00 and trading starts at candle 9.
type Params struct {
	MinCandles      int     // minimum candles for a tradeable day
	RangeStart      int     // first candle of the range window (inclusive)
	RangeEnd        int     // one past the last range candle; trading starts here
	MinRangeSize    float64 // days with a narrower range are skipped
	MaxTradesPerDay int
}

func DefaultParams() Params {
	return Params{
		MinCandles:      9,
		RangeStart:      6,
		RangeEnd:        9,
		MinRangeSize:    20,
		MaxTradesPerDay: 2,
	}
}

// Range is the opening range computed from the formation window.
type Range struct {
	High float64
	Low  float64
	Size float64
}

// DetectRange computes the opening range for one trading day. Returns
// ok=false when the day has too few candles or the range is narrower than
// MinRangeSize; both are normal outcomes, not errors.
func DetectRange(candles []market.Candle, p Params) (Range, bool) {
	if len(candles) < p.MinCandles || p.RangeEnd > len(candles) {
		return Range{}, false
	}

	window := candles[p.RangeStart:p.RangeEnd]

	rng := Range{High: window[0].High, Low: window[0].Low}
	for _, c := range window[1:] {
		if c.High > rng.High {
			rng.High = c.High
		}
		if c.Low < rng.Low {
			rng.Low = c.Low
		}
	}
	rng.Size = rng.High - rng.Low

	if rng.Size < p.MinRangeSize {
		return Range{}, false
	}
	return rng, true
}

// StopTargetPoints returns the stop-loss and target point distances for a
// price level. Wider levels get wider stops; the bands are inclusive and
// checked top-down, so a boundary price lands in the higher band.
func StopTargetPoints(price float64) (stop, target float64) {
	switch {
	case price >= 55000 && price <= 80000:
		return 150, 900
	case price >= 40000 && price <= 55000:
		return 120, 720
	case price >= 25000 && price <= 40000:
		return 100, 600
	default:
		return 90, 540
	}
}

// Position is an open trade. Mutated only inside SimulateDay.
type Position struct {
	Side       Side
	EntryPrice float64
	EntryTime  time.Time
	StopLoss   float64
	Target     float64

	// TrailingStopMoved guards the one-shot stop promotion to entry.
	TrailingStopMoved bool
}

// ClosedTrade is a resolved Position.
type ClosedTrade struct {
	Position

	ExitPrice float64
	ExitTime  time.Time
	Result    Result
	Reason    ExitReason

	// Points is the signed per-unit result: exit-entry for longs,
	// entry-exit for shorts.
	Points float64
}

// DayOutcome is the result of simulating one trading day.
type DayOutcome struct {
	Trades    []ClosedTrade
	Profit    float64 // signed points across the day's trades
	TargetHit bool
}

// SimulateDay runs the breakout entry/exit algorithm over the candles that
// follow the range-formation window. The same function serves the real
// backtest pass and the what-if pass on skipped days, so the counterfactual
// can never drift from the live rules.
//
// Entry is pinned to the breached range boundary, not the candle extreme.
// At most one long and one short per day, MaxTradesPerDay total. The entry
// candle is not checked for exits. While holding, the trailing promotion
// (stop to entry at two-thirds of the way to target) is evaluated before
// the exit checks, and the stop check runs before the target check: when
// both land inside one candle's high-low span the trade books as a loss.
// Anything still open at the last candle is force-closed at that close and
// charged as a loss.
func SimulateDay(candles []market.Candle, rng Range, p Params) DayOutcome {
	var out DayOutcome

	if p.RangeEnd >= len(candles) {
		return out
	}

	var (
		pos        *Position
		taken      int
		longTaken  bool
		shortTaken bool
	)

	closeTrade := func(price float64, at time.Time, res Result, reason ExitReason) {
		points := price - pos.EntryPrice
		if pos.Side == Short {
			points = pos.EntryPrice - price
		}
		out.Trades = append(out.Trades, ClosedTrade{
			Position:  *pos,
			ExitPrice: price,
			ExitTime:  at,
			Result:    res,
			Reason:    reason,
			Points:    points,
		})
		out.Profit += points
		pos = nil
	}

	session := candles[p.RangeEnd:]

	for _, c := range session {
		if pos == nil {
			if taken >= p.MaxTradesPerDay {
				break
			}

			switch {
			case c.High > rng.High && !longTaken:
				stop, target := StopTargetPoints(rng.High)
				pos = &Position{
					Side:       Long,
					EntryPrice: rng.High,
					EntryTime:  c.Time,
					StopLoss:   rng.High - stop,
					Target:     rng.High + target,
				}
				longTaken = true
				taken++

			case c.Low < rng.Low && !shortTaken:
				stop, target := StopTargetPoints(rng.Low)
				pos = &Position{
					Side:       Short,
					EntryPrice: rng.Low,
					EntryTime:  c.Time,
					StopLoss:   rng.Low + stop,
					Target:     rng.Low - target,
				}
				shortTaken = true
				taken++
			}

			// No exit checks on the entry candle.
			continue
		}

		if pos.Side == Long {
			twoThirds := pos.EntryPrice + (pos.Target-pos.EntryPrice)*2/3
			if !pos.TrailingStopMoved && c.High >= twoThirds {
				pos.StopLoss = pos.EntryPrice
				pos.TrailingStopMoved = true
			}

			if c.Low <= pos.StopLoss {
				closeTrade(pos.StopLoss, c.Time, Loss, ExitStopLoss)
			} else if c.High >= pos.Target {
				out.TargetHit = true
				closeTrade(pos.Target, c.Time, Win, ExitTarget)
			}
		} else {
			twoThirds := pos.EntryPrice - (pos.EntryPrice-pos.Target)*2/3
			if !pos.TrailingStopMoved && c.Low <= twoThirds {
				pos.StopLoss = pos.EntryPrice
				pos.TrailingStopMoved = true
			}

			if c.High >= pos.StopLoss {
				closeTrade(pos.StopLoss, c.Time, Loss, ExitStopLoss)
			} else if c.Low <= pos.Target {
				out.TargetHit = true
				closeTrade(pos.Target, c.Time, Win, ExitTarget)
			}
		}
	}

	// Unresolved exposure is conservatively charged as a loss, whatever the
	// close is relative to entry.
	if pos != nil {
		last := session[len(session)-1]
		closeTrade(last.Close, last.Time, Loss, ExitMarketClose)
	}

	return out
}
