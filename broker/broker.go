package broker

import "context"

// StatusOK is the success discriminator on history payloads.
const StatusOK = "ok"

// HistoryRequest asks for candles over an inclusive date range.
// Dates use the broker's "YYYY-MM-DD" wire format; Interval is in minutes
// (1, 5, 15, 30, 60).
type HistoryRequest struct {
	Symbol   string
	From     string
	To       string
	Interval int
}

// HistoryRow is one raw candle row as the broker returns it:
// epoch seconds plus OHLCV.
type HistoryRow struct {
	Epoch  int64
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume float64
}

// HistoryResponse carries the broker's status field and raw candle rows.
// Callers must check Status == StatusOK before using Candles.
type HistoryResponse struct {
	Status  string
	Message string
	Candles []HistoryRow
}

// HistoryProvider fetches historical candle data.
type HistoryProvider interface {
	GetHistory(ctx context.Context, req HistoryRequest) (HistoryResponse, error)
}

type OrderType int

const (
	OrderTypeMarket OrderType = 1
	OrderTypeLimit  OrderType = 2
)

type OrderSide int

const (
	SideBuy  OrderSide = 1
	SideSell OrderSide = -1
)

type OrderRequest struct {
	Symbol string
	Qty    int
	Type   OrderType
	Side   OrderSide
	Source int

	// Limit/stop prices, 0 when unused.
	Price     float64
	StopPrice float64
}

type OrderResponse struct {
	OrderID string
}

// NetPosition is the broker's view of a symbol's open exposure.
type NetPosition struct {
	Symbol   string
	NetQty   float64
	AvgPrice float64
}

// OrderExecutor places orders and reports open positions. It is the
// execution boundary: the strategy core only produces signals.
type OrderExecutor interface {
	PlaceOrder(ctx context.Context, req OrderRequest) (OrderResponse, error)
	GetPositions(ctx context.Context) (map[string]NetPosition, error)
}
