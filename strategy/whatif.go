package strategy

import "github.com/capvalis/breakout/market"

// WhatIfResult reports the counterfactual outcome of a skipped day.
type WhatIfResult struct {
	Profit float64
	Trades int
	Wins   int
	Losses int
}

// WhatIf replays the breakout algorithm over a skipped day's candles
// without committing trades. It shares SimulateDay with the real pass, so
// running it on a day is guaranteed to report what trading that day would
// have produced. ok=false when the day forms no valid range.
func WhatIf(candles []market.Candle, p Params) (WhatIfResult, bool) {
	rng, ok := DetectRange(candles, p)
	if !ok {
		return WhatIfResult{}, false
	}

	out := SimulateDay(candles, rng, p)

	res := WhatIfResult{
		Profit: out.Profit,
		Trades: len(out.Trades),
	}
	for _, t := range out.Trades {
		if t.Result == Win {
			res.Wins++
		} else {
			res.Losses++
		}
	}
	return res, true
}
