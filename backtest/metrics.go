package backtest

import (
	"math"

	"github.com/capvalis/breakout/strategy"
)

// Summary aggregates a whole run. WinRate is a 0..1 fraction and 0 when no
// trades were taken. ProfitFactor is |gross wins / gross losses| and +Inf
// when there are wins but no losses.
type Summary struct {
	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	TotalPnL    float64
	AverageWin  float64
	AverageLoss float64

	ProfitFactor   float64
	MaxDrawdownPct float64
}

// Summarize rolls per-trade results into the run summary. size scales
// trade points into PnL; startBalance anchors the equity curve for the
// drawdown calculation.
func Summarize(trades []strategy.ClosedTrade, size, startBalance float64) Summary {
	var s Summary
	s.TotalTrades = len(trades)

	var grossWin, grossLoss float64
	equity := make([]float64, 0, len(trades)+1)
	equity = append(equity, startBalance)
	bal := startBalance

	for _, t := range trades {
		pnl := t.Points * size
		s.TotalPnL += pnl

		if t.Result == strategy.Win {
			s.WinningTrades++
		} else {
			s.LosingTrades++
		}

		if pnl > 0 {
			grossWin += pnl
		} else if pnl < 0 {
			grossLoss += pnl
		}

		bal += pnl
		equity = append(equity, bal)
	}

	if s.TotalTrades > 0 {
		s.WinRate = float64(s.WinningTrades) / float64(s.TotalTrades)
	}

	// Averages are over the positive/negative PnL subsets, not the WIN/LOSS
	// labels: a force-closed trade can carry a positive PnL but count LOSS.
	var posN, negN int
	for _, t := range trades {
		pnl := t.Points * size
		if pnl > 0 {
			posN++
		} else if pnl < 0 {
			negN++
		}
	}
	if posN > 0 {
		s.AverageWin = grossWin / float64(posN)
	}
	if negN > 0 {
		s.AverageLoss = grossLoss / float64(negN)
	}

	switch {
	case grossLoss != 0:
		s.ProfitFactor = math.Abs(grossWin / grossLoss)
	case grossWin > 0:
		s.ProfitFactor = math.Inf(1)
	}

	s.MaxDrawdownPct = maxDrawdownPct(equity)

	return s
}

// maxDrawdownPct returns the largest peak-to-trough decline over an equity
// curve, in percent of the peak.
func maxDrawdownPct(equity []float64) float64 {
	if len(equity) == 0 {
		return 0
	}

	peak := equity[0]
	maxDD := 0.0

	for _, v := range equity {
		if v > peak {
			peak = v
		}
		if peak <= 0 {
			continue
		}
		dd := (peak - v) / peak * 100
		if dd > maxDD {
			maxDD = dd
		}
	}

	return maxDD
}
