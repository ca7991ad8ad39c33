package engine

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/capvalis/breakout/broker"
	"github.com/capvalis/breakout/market"
	"github.com/capvalis/breakout/notify"
	"github.com/capvalis/breakout/strategy"
)

type stubProvider struct {
	rows []broker.HistoryRow
}

func (p *stubProvider) GetHistory(context.Context, broker.HistoryRequest) (broker.HistoryResponse, error) {
	return broker.HistoryResponse{Status: broker.StatusOK, Candles: p.rows}, nil
}

type stubExecutor struct {
	positions map[string]broker.NetPosition
	orders    []broker.OrderRequest
	nextID    int
}

func (x *stubExecutor) PlaceOrder(_ context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	x.orders = append(x.orders, req)
	x.nextID++
	return broker.OrderResponse{OrderID: string(rune('A' + x.nextID))}, nil
}

func (x *stubExecutor) GetPositions(context.Context) (map[string]broker.NetPosition, error) {
	if x.positions == nil {
		return map[string]broker.NetPosition{}, nil
	}
	return x.positions, nil
}

func bar(b *[]broker.HistoryRow, day, idx int, o, h, l, c float64) {
	ts := time.Date(2024, 3, day, 9, 15+5*idx, 0, 0, market.ExchangeLocation())
	*b = append(*b, broker.HistoryRow{Epoch: ts.Unix(), Open: o, High: h, Low: l, Close: c})
}

func formation(b *[]broker.HistoryRow, day int, high, low float64) {
	mid := (high + low) / 2
	for i := 0; i < 6; i++ {
		bar(b, day, i, mid, mid, mid, mid)
	}
	bar(b, day, 6, mid, high, low, mid)
	bar(b, day, 7, mid, mid, mid, mid)
	bar(b, day, 8, mid, mid, mid, mid)
}

func newTestEngine(rows []broker.HistoryRow, exec *stubExecutor) *Engine {
	return newTestEngineOpts(rows, exec, Options{
		Symbol:   "NSE:NIFTYBANK-INDEX",
		Interval: 5,
		Qty:      75,
		Params:   strategy.DefaultParams(),
	})
}

func newTestEngineOpts(rows []broker.HistoryRow, exec *stubExecutor, opts Options) *Engine {
	fetcher := market.NewFetcher(&stubProvider{rows: rows}, nil, zerolog.Nop())
	return New(fetcher, exec, nil, opts, zerolog.Nop())
}

func TestSignalsEmitOnlyTheLastDay(t *testing.T) {
	t.Parallel()

	var rows []broker.HistoryRow

	// Day 4: stop-out, no target. Day 5: long breakout still open. Only
	// day 5 may produce signals.
	formation(&rows, 4, 45100, 45000)
	bar(&rows, 4, 9, 45110, 45150, 45105, 45120)
	bar(&rows, 4, 10, 45120, 45130, 44900, 44950)

	formation(&rows, 5, 45100, 45000)
	bar(&rows, 5, 9, 45110, 45150, 45105, 45120)

	e := newTestEngine(rows, &stubExecutor{})
	sigs, err := e.signals(context.Background())
	require.NoError(t, err)
	require.Len(t, sigs, 1)

	sig := sigs[0]
	assert.Equal(t, "LONG", sig.Side)
	assert.Equal(t, 45100.0, sig.Price)
	assert.Equal(t, 44980.0, sig.StopLoss)
	assert.Equal(t, 45820.0, sig.Target)
	assert.Equal(t, 75, sig.Qty)
}

func TestSignalsRiskSizedQty(t *testing.T) {
	t.Parallel()

	var rows []broker.HistoryRow
	formation(&rows, 4, 45100, 45000)
	bar(&rows, 4, 9, 45110, 45150, 45105, 45120)

	// Stop distance 120, 2% of 1,000,000 risks 20,000: 166 units, rounded
	// down to two lots of 75.
	e := newTestEngineOpts(rows, &stubExecutor{}, Options{
		Symbol:      "NSE:NIFTYBANK-INDEX",
		Interval:    5,
		Qty:         75,
		Equity:      1_000_000,
		RiskPercent: 0.02,
		Params:      strategy.DefaultParams(),
	})

	sigs, err := e.signals(context.Background())
	require.NoError(t, err)
	require.Len(t, sigs, 1)
	assert.Equal(t, 150, sigs[0].Qty)
}

func TestOrderQtyFallsBackToFlatQty(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		opts Options
	}{
		{"risk sizing disabled", Options{Qty: 75}},
		{"no equity", Options{Qty: 75, RiskPercent: 0.02}},
		// 2% of 10,000 risks 200: 1 unit, below one lot of 75.
		{"equity below one lot", Options{Qty: 75, Equity: 10_000, RiskPercent: 0.02}},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			tt.opts.Symbol = "NSE:NIFTYBANK-INDEX"
			tt.opts.Interval = 5
			tt.opts.Params = strategy.DefaultParams()

			e := newTestEngineOpts(nil, &stubExecutor{}, tt.opts)
			assert.Equal(t, 75, e.orderQty(45100, 44980))
		})
	}
}

func TestSignalsHonorDayRuleSkip(t *testing.T) {
	t.Parallel()

	var rows []broker.HistoryRow

	// Day 4 hits the target, so day 5 is skipped even though it breaks out.
	formation(&rows, 4, 45100, 45000)
	bar(&rows, 4, 9, 45110, 45150, 45105, 45120)
	bar(&rows, 4, 10, 45120, 45900, 45115, 45850)

	formation(&rows, 5, 45100, 45000)
	bar(&rows, 5, 9, 45110, 45150, 45105, 45120)

	e := newTestEngine(rows, &stubExecutor{})
	sigs, err := e.signals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestSignalsNoRangeToday(t *testing.T) {
	t.Parallel()

	var rows []broker.HistoryRow
	formation(&rows, 4, 45010, 45000) // too narrow

	e := newTestEngine(rows, &stubExecutor{})
	sigs, err := e.signals(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sigs)
}

func TestPlaceSignalSkipsHeldSymbol(t *testing.T) {
	t.Parallel()

	exec := &stubExecutor{}
	e := newTestEngine(nil, exec)
	e.positions["NSE:NIFTYBANK-INDEX"] = broker.NetPosition{Symbol: "NSE:NIFTYBANK-INDEX", NetQty: 75}

	e.placeSignal(context.Background(), testSignal())
	assert.Empty(t, exec.orders)
}

func TestPlaceSignalRespectsOrderCap(t *testing.T) {
	t.Parallel()

	exec := &stubExecutor{}
	e := newTestEngine(nil, exec)

	e.placeSignal(context.Background(), testSignal())
	e.placeSignal(context.Background(), testSignal())
	e.placeSignal(context.Background(), testSignal())

	assert.Len(t, exec.orders, 2, "capped at MaxActiveOrders")
	assert.Len(t, e.activeOrders, 2)

	req := exec.orders[0]
	assert.Equal(t, broker.OrderTypeMarket, req.Type)
	assert.Equal(t, broker.SideBuy, req.Side)
	assert.Equal(t, 75, req.Qty)
}

func TestPlaceSignalShortSellsMarket(t *testing.T) {
	t.Parallel()

	exec := &stubExecutor{}
	e := newTestEngine(nil, exec)

	sig := testSignal()
	sig.Side = "SHORT"
	e.placeSignal(context.Background(), sig)

	require.Len(t, exec.orders, 1)
	assert.Equal(t, broker.SideSell, exec.orders[0].Side)
}

func TestCloseAllPositionsFlattens(t *testing.T) {
	t.Parallel()

	exec := &stubExecutor{}
	e := newTestEngine(nil, exec)
	e.positions["NSE:NIFTYBANK-INDEX"] = broker.NetPosition{NetQty: 75}
	e.positions["NSE:SBIN-EQ"] = broker.NetPosition{NetQty: -100}

	e.closeAllPositions(context.Background())
	require.Len(t, exec.orders, 2)

	bySymbol := map[string]broker.OrderRequest{}
	for _, o := range exec.orders {
		bySymbol[o.Symbol] = o
	}
	assert.Equal(t, broker.SideSell, bySymbol["NSE:NIFTYBANK-INDEX"].Side)
	assert.Equal(t, 75, bySymbol["NSE:NIFTYBANK-INDEX"].Qty)
	assert.Equal(t, broker.SideBuy, bySymbol["NSE:SBIN-EQ"].Side)
	assert.Equal(t, 100, bySymbol["NSE:SBIN-EQ"].Qty)
}

func TestRunStopsOnCancel(t *testing.T) {
	t.Parallel()

	e := newTestEngine(nil, &stubExecutor{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := e.Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func testSignal() notify.Signal {
	return notify.Signal{
		Symbol:   "NSE:NIFTYBANK-INDEX",
		Side:     "LONG",
		Price:    45100,
		StopLoss: 44980,
		Target:   45820,
		Qty:      75,
	}
}
