package notify

import (
	"context"
	"time"
)

// Signal describes a trade entry worth telling someone about.
type Signal struct {
	Symbol   string
	Side     string // LONG / SHORT
	Price    float64
	StopLoss float64
	Target   float64
	Qty      int
}

// OrderStatus describes an order lifecycle event.
type OrderStatus struct {
	OrderID string
	Symbol  string
	Status  string
	Side    int
	Qty     float64
	Price   float64
}

// SystemStatus is a heartbeat for the live engine.
type SystemStatus struct {
	Status        string
	Connected     bool
	ActiveOrders  int
	OpenPositions int
	LastUpdate    time.Time
}

// Notifier delivers structured events. Implementations are fire-and-forget:
// delivery failures are logged, never returned, so a broken notification
// channel can never abort trading logic.
type Notifier interface {
	TradeSignal(ctx context.Context, s Signal)
	OrderStatus(ctx context.Context, o OrderStatus)
	SystemStatus(ctx context.Context, s SystemStatus)
	Error(ctx context.Context, msg string)
}

// Nop discards all events.
type Nop struct{}

func (Nop) TradeSignal(context.Context, Signal)        {}
func (Nop) OrderStatus(context.Context, OrderStatus)   {}
func (Nop) SystemStatus(context.Context, SystemStatus) {}
func (Nop) Error(context.Context, string)              {}
