package strategy

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capvalis/breakout/market"
)

var dayStart = time.Date(2024, 3, 4, 9, 15, 0, 0, time.UTC)

// flatCandle builds a bar with no intrabar movement.
func flatCandle(i int, price float64) market.Candle {
	return market.Candle{
		Time:  dayStart.Add(time.Duration(i) * 5 * time.Minute),
		Open:  price,
		High:  price,
		Low:   price,
		Close: price,
	}
}

func candle(i int, o, h, l, c float64) market.Candle {
	return market.Candle{
		Time:  dayStart.Add(time.Duration(i) * 5 * time.Minute),
		Open:  o,
		High:  h,
		Low:   l,
		Close: c,
	}
}

// formationDay builds the nine opening candles with the range window
// (candles 6..8) spanning low..high. The six pre-range candles are given
// wider extremes so the tests catch any leakage into the range.
func formationDay(high, low float64) []market.Candle {
	mid := (high + low) / 2
	candles := make([]market.Candle, 0, 16)
	for i := 0; i < 6; i++ {
		candles = append(candles, candle(i, mid, high+500, low-500, mid))
	}
	candles = append(candles,
		candle(6, mid, high, low, mid),
		flatCandle(7, mid),
		flatCandle(8, mid),
	)
	return candles
}

func TestDetectRange(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	t.Run("too few candles", func(t *testing.T) {
		t.Parallel()
		day := formationDay(45100, 45000)[:8]
		_, ok := DetectRange(day, p)
		assert.False(t, ok)
	})

	t.Run("narrow range skipped", func(t *testing.T) {
		t.Parallel()
		day := formationDay(45010, 45000) // size 10 < 20
		_, ok := DetectRange(day, p)
		assert.False(t, ok)
	})

	t.Run("range uses only the formation window", func(t *testing.T) {
		t.Parallel()
		day := formationDay(45100, 45000)
		rng, ok := DetectRange(day, p)
		require.True(t, ok)
		assert.Equal(t, 45100.0, rng.High)
		assert.Equal(t, 45000.0, rng.Low)
		assert.Equal(t, 100.0, rng.Size)
	})

	t.Run("boundary size is tradeable", func(t *testing.T) {
		t.Parallel()
		day := formationDay(45020, 45000) // size exactly MinRangeSize
		_, ok := DetectRange(day, p)
		assert.True(t, ok)
	})
}

func TestStopTargetPoints(t *testing.T) {
	t.Parallel()

	tests := []struct {
		price  float64
		stop   float64
		target float64
	}{
		{60000, 150, 900},
		{80000, 150, 900},
		{55000, 150, 900}, // shared boundary lands in the higher band
		{45000, 120, 720},
		{40000, 120, 720},
		{30000, 100, 600},
		{25000, 100, 600},
		{20000, 90, 540},
		{90000, 90, 540}, // above the top band falls through to the default
	}
	for _, tt := range tests {
		stop, target := StopTargetPoints(tt.price)
		assert.Equal(t, tt.stop, stop, "stop at %v", tt.price)
		assert.Equal(t, tt.target, target, "target at %v", tt.price)
	}
}

func TestSimulateDayLongEntryAtBoundary(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45120, 45150, 45110, 45140), // breaches the high
		flatCandle(10, 45140),
		candle(11, 45140, 45140, 44900, 44900), // through the stop
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.Equal(t, Long, tr.Side)
	assert.Equal(t, 45100.0, tr.EntryPrice, "entry pinned to the range high, not the candle high")
	assert.Equal(t, 45100.0-120, tr.StopLoss)
	assert.Equal(t, 45100.0+720, tr.Target)
	assert.Equal(t, Loss, tr.Result)
	assert.Equal(t, ExitStopLoss, tr.Reason)
	assert.Equal(t, tr.StopLoss, tr.ExitPrice, "exit at the stop level, not the candle low")
	assert.Equal(t, -120.0, tr.Points)
	assert.Equal(t, -120.0, out.Profit)
}

func TestSimulateDayShortEntryAndTarget(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 44990, 44995, 44980, 44985),  // breaches the low
		candle(10, 44985, 44985, 44200, 44200), // through the target (45000-720=44280)
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.Equal(t, Short, tr.Side)
	assert.Equal(t, 45000.0, tr.EntryPrice)
	assert.Equal(t, 45000.0+120, tr.StopLoss)
	assert.Equal(t, 45000.0-720, tr.Target)
	assert.Equal(t, Win, tr.Result)
	assert.Equal(t, ExitTarget, tr.Reason)
	assert.Equal(t, 720.0, tr.Points)
	assert.True(t, out.TargetHit)
}

func TestSimulateDayEntryCandleSkipsExits(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// The breakout candle itself dives through the stop level. The trade
	// must survive it and exit on the following candle.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45090, 45150, 44900, 44950),
		candle(10, 44950, 44960, 44900, 44920),
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.Equal(t, ExitStopLoss, tr.Reason)
	assert.Equal(t, day[10].Time, tr.ExitTime, "exit belongs to the candle after entry")
}

func TestSimulateDayStopBeatsTargetInOneCandle(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// One candle spans both the stop and the target. The stop is checked
	// first, so the trade books as a loss.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),
		candle(10, 45120, 46000, 44900, 45500),
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)
	assert.Equal(t, Loss, out.Trades[0].Result)
	assert.Equal(t, ExitStopLoss, out.Trades[0].Reason)
	assert.False(t, out.TargetHit)
}

func TestSimulateDayTrailingStopPromotion(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// Long from 45100, target 45820, two-thirds mark at 45580. The trade
	// reaches the mark without the target, then falls back to entry: the
	// promoted stop closes it flat.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),
		candle(10, 45120, 45600, 45110, 45550),
		candle(11, 45550, 45560, 45050, 45060),
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.True(t, tr.TrailingStopMoved)
	assert.Equal(t, 45100.0, tr.StopLoss, "stop promoted to entry")
	assert.Equal(t, 45100.0, tr.ExitPrice)
	assert.Equal(t, 0.0, tr.Points)
	assert.Equal(t, Loss, tr.Result)
}

func TestSimulateDayTrailingAppliesBeforeExitChecks(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// A single candle both reaches the two-thirds mark and trades back
	// through entry. The promotion happens first, so the promoted stop
	// fires on the same candle.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),
		candle(10, 45120, 45600, 45050, 45080),
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.True(t, tr.TrailingStopMoved)
	assert.Equal(t, 45100.0, tr.ExitPrice)
	assert.Equal(t, day[10].Time, tr.ExitTime)
}

func TestSimulateDayForceCloseIsAlwaysLoss(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// Still holding at the close, in profit. Force-close books the signed
	// points but classifies the trade as a loss.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),
		candle(10, 45120, 45300, 45110, 45250),
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 1)

	tr := out.Trades[0]
	assert.Equal(t, Loss, tr.Result)
	assert.Equal(t, ExitMarketClose, tr.Reason)
	assert.Equal(t, 45250.0, tr.ExitPrice)
	assert.Equal(t, 150.0, tr.Points, "positive points, still a loss")
	assert.Equal(t, 150.0, out.Profit)
}

func TestSimulateDayOneTradePerSide(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	// Long stopped out, then the high is breached again: no second long.
	// A later breach of the low opens the short.
	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),  // long entry
		candle(10, 45120, 45130, 44950, 44960), // stop (44980)
		candle(11, 45010, 45200, 45005, 45180), // high breached again, ignored
		candle(12, 45180, 45180, 44990, 44995), // low breached, short entry
		candle(13, 44995, 45140, 44990, 45130), // short stop (45120)
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	require.Len(t, out.Trades, 2)
	assert.Equal(t, Long, out.Trades[0].Side)
	assert.Equal(t, Short, out.Trades[1].Side)
}

func TestSimulateDayMaxTradesStopsScanning(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	day := formationDay(45100, 45000)
	day = append(day,
		candle(9, 45110, 45150, 45105, 45120),  // long entry
		candle(10, 45120, 45130, 44950, 44960), // long stopped
		candle(11, 44990, 44995, 44980, 44985), // short entry
		candle(12, 44985, 45140, 44940, 45130), // short stopped
		candle(13, 45130, 46500, 44000, 45000), // would re-trigger everything
	)

	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	assert.Len(t, out.Trades, 2)
}

func TestSimulateDayNoSessionCandles(t *testing.T) {
	t.Parallel()
	p := DefaultParams()

	day := formationDay(45100, 45000) // exactly the formation window
	rng, ok := DetectRange(day, p)
	require.True(t, ok)

	out := SimulateDay(day, rng, p)
	assert.Empty(t, out.Trades)
	assert.Zero(t, out.Profit)
}
