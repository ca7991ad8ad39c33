package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const telegramAPI = "https://api.telegram.org"

// Telegram sends events to a Telegram chat via the bot API.
type Telegram struct {
	BotToken string
	ChatID   string

	BaseURL string
	HTTP    *http.Client

	log zerolog.Logger
}

func NewTelegram(botToken, chatID string, log zerolog.Logger) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		BaseURL:  telegramAPI,
		HTTP:     &http.Client{Timeout: 10 * time.Second},
		log:      log.With().Str("component", "telegram").Logger(),
	}
}

// send posts one message. Errors are logged and swallowed.
func (t *Telegram) send(ctx context.Context, text string) {
	if t.BotToken == "" || t.ChatID == "" {
		t.log.Warn().Msg("telegram not configured, dropping notification")
		return
	}

	body, err := json.Marshal(map[string]string{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "HTML",
	})
	if err != nil {
		t.log.Error().Err(err).Msg("marshal telegram message")
		return
	}

	u := fmt.Sprintf("%s/bot%s/sendMessage", t.BaseURL, t.BotToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(body))
	if err != nil {
		t.log.Error().Err(err).Msg("build telegram request")
		return
	}
	req.Header.Set("Content-Type", "application/json")

	httpClient := t.HTTP
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		t.log.Warn().Err(err).Msg("telegram send failed")
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.log.Warn().Int("status", resp.StatusCode).Msg("telegram send rejected")
	}
}

func (t *Telegram) TradeSignal(ctx context.Context, s Signal) {
	t.send(ctx, fmt.Sprintf(
		"<b>Trade Signal</b>\n\nSymbol: %s\nSide: %s\nPrice: %.2f\nQty: %d\nStop Loss: %.2f\nTarget: %.2f",
		s.Symbol, s.Side, s.Price, s.Qty, s.StopLoss, s.Target,
	))
}

func (t *Telegram) OrderStatus(ctx context.Context, o OrderStatus) {
	t.send(ctx, fmt.Sprintf(
		"<b>Order Update</b>\n\nOrder ID: %s\nSymbol: %s\nStatus: %s\nSide: %d\nQty: %.0f\nPrice: %.2f",
		o.OrderID, o.Symbol, o.Status, o.Side, o.Qty, o.Price,
	))
}

func (t *Telegram) SystemStatus(ctx context.Context, s SystemStatus) {
	t.send(ctx, fmt.Sprintf(
		"<b>System Status</b>\n\nStatus: %s\nConnected: %t\nActive Orders: %d\nOpen Positions: %d\nLast Update: %s",
		s.Status, s.Connected, s.ActiveOrders, s.OpenPositions,
		s.LastUpdate.Format("2006-01-02 15:04:05"),
	))
}

func (t *Telegram) Error(ctx context.Context, msg string) {
	t.send(ctx, fmt.Sprintf("<b>Error</b>\n\n%s", msg))
}
