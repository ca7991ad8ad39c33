package market

import "time"

// Candle is one OHLC bar in exchange-local wall time.
// Immutable once produced by the normalizer.
type Candle struct {
	Time time.Time

	Open  float64
	High  float64
	Low   float64
	Close float64
}

// TradingDay is one calendar day's candles, ordered by time.
// Derived by GroupByDay; the date key is the candle's local calendar date.
type TradingDay struct {
	Date    time.Time // midnight, local
	Candles []Candle
}

// GroupByDay splits an ordered candle sequence into trading days.
// Input is expected sorted by time (FetchRange guarantees this); days come
// out in calendar order.
func GroupByDay(candles []Candle) []TradingDay {
	var days []TradingDay

	for _, c := range candles {
		y, m, d := c.Time.Date()
		date := time.Date(y, m, d, 0, 0, 0, 0, c.Time.Location())

		if n := len(days); n > 0 && days[n-1].Date.Equal(date) {
			days[n-1].Candles = append(days[n-1].Candles, c)
			continue
		}
		days = append(days, TradingDay{Date: date, Candles: []Candle{c}})
	}

	return days
}
