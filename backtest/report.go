package backtest

import (
	"fmt"
	"io"
	"math"
)

// PrintResult writes a human-readable run report.
func PrintResult(w io.Writer, r *Result) {
	fmt.Fprintln(w, "==================================================")
	fmt.Fprintln(w, " Range Breakout Backtest")
	fmt.Fprintln(w, "==================================================")

	fmt.Fprintf(w, "Symbol:        %s\n", r.Symbol)
	fmt.Fprintf(w, "Start:         %s\n", r.Start.Format("2006-01-02"))
	fmt.Fprintf(w, "End:           %s\n", r.End.Format("2006-01-02"))

	s := r.Summary

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Trade Statistics")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Trades:        %d\n", s.TotalTrades)
	fmt.Fprintf(w, "Wins:          %d\n", s.WinningTrades)
	fmt.Fprintf(w, "Losses:        %d\n", s.LosingTrades)
	fmt.Fprintf(w, "Win Rate:      %.2f%%\n", s.WinRate*100)

	fmt.Fprintln(w)
	fmt.Fprintln(w, "Performance")
	fmt.Fprintln(w, "--------------------------------------------------")
	fmt.Fprintf(w, "Total P/L:     %.2f\n", s.TotalPnL)
	fmt.Fprintf(w, "Average Win:   %.2f\n", s.AverageWin)
	fmt.Fprintf(w, "Average Loss:  %.2f\n", s.AverageLoss)

	if math.IsInf(s.ProfitFactor, 1) {
		fmt.Fprintf(w, "Profit Factor: inf (no losing trades)\n")
	} else if s.ProfitFactor > 0 {
		fmt.Fprintf(w, "Profit Factor: %.2f\n", s.ProfitFactor)
	}
	if s.MaxDrawdownPct > 0 {
		fmt.Fprintf(w, "Max Drawdown:  %.2f%%\n", s.MaxDrawdownPct)
	}

	if len(r.Skipped) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Skipped Days")
		fmt.Fprintln(w, "--------------------------------------------------")
		for _, sd := range r.Skipped {
			line := fmt.Sprintf("%s  %s", sd.Date.Format("2006-01-02"), sd.Reason)
			if sd.WhatIf != nil {
				line += fmt.Sprintf("  (what-if: %d trades, %.2f pts)",
					sd.WhatIf.Trades, sd.WhatIf.Profit)
			}
			fmt.Fprintf(w, "- %s\n", line)
		}
	}

	fmt.Fprintln(w)
}

// PrintDaily writes the per-day metric table.
func PrintDaily(w io.Writer, daily []DailyMetric) {
	fmt.Fprintln(w, "Date        Trades  Wins  Losses  WinRate    P/L")
	fmt.Fprintln(w, "--------------------------------------------------")
	for _, d := range daily {
		fmt.Fprintf(w, "%s  %6d  %4d  %6d  %6.2f%%  %8.2f\n",
			d.Date.Format("2006-01-02"),
			d.TotalTrades, d.WinningTrades, d.LosingTrades,
			d.WinRate*100, d.PnL)
	}
}
