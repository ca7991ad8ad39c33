package fyers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/capvalis/breakout/broker"
)

const (
	// DefaultAPIURL serves orders and positions.
	DefaultAPIURL = "https://api-t1.fyers.in/api/v3"
	// DefaultDataURL serves historical candles.
	DefaultDataURL = "https://api-t1.fyers.in/data"
)

// Client talks to a Fyers-style REST API. It expects an already-issued
// access token; the OTP/PIN login exchange is out of scope here.
type Client struct {
	APIURL  string
	DataURL string

	// ClientID is "APPID-APPTYPE"; auth header is "ClientID:token".
	ClientID string
	Token    string

	HTTP *http.Client

	log zerolog.Logger
}

func NewClient(clientID, token string, log zerolog.Logger) *Client {
	return &Client{
		APIURL:   DefaultAPIURL,
		DataURL:  DefaultDataURL,
		ClientID: clientID,
		Token:    token,
		HTTP:     &http.Client{Timeout: 30 * time.Second},
		log:      log.With().Str("component", "fyers").Logger(),
	}
}

func (c *Client) authHeader() string {
	return c.ClientID + ":" + c.Token
}

func (c *Client) httpClient() *http.Client {
	if c.HTTP != nil {
		return c.HTTP
	}
	return http.DefaultClient
}

// historyResp mirrors the history payload: status discriminator "s",
// candle rows as [epoch, o, h, l, c, v].
type historyResp struct {
	S       string      `json:"s"`
	Message string      `json:"message,omitempty"`
	Candles [][]float64 `json:"candles"`
}

// GetHistory fetches candles for one date range. A non-ok status comes back
// in the response, not as an error: the caller decides whether a failed
// chunk is fatal.
func (c *Client) GetHistory(ctx context.Context, req broker.HistoryRequest) (broker.HistoryResponse, error) {
	if c.Token == "" {
		return broker.HistoryResponse{}, fmt.Errorf("fyers: missing token")
	}
	if req.Symbol == "" {
		return broker.HistoryResponse{}, fmt.Errorf("fyers: missing symbol")
	}

	q := url.Values{}
	q.Set("symbol", req.Symbol)
	q.Set("resolution", strconv.Itoa(req.Interval))
	q.Set("date_format", "1")
	q.Set("range_from", req.From)
	q.Set("range_to", req.To)
	q.Set("cont_flag", "1")

	u := c.DataURL + "/history?" + q.Encode()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return broker.HistoryResponse{}, err
	}
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return broker.HistoryResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return broker.HistoryResponse{}, fmt.Errorf("fyers history http %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var hr historyResp
	if err := json.NewDecoder(resp.Body).Decode(&hr); err != nil {
		return broker.HistoryResponse{}, fmt.Errorf("decode history: %w", err)
	}

	out := broker.HistoryResponse{Status: hr.S, Message: hr.Message}
	for _, row := range hr.Candles {
		if len(row) < 5 {
			continue
		}
		hrow := broker.HistoryRow{
			Epoch: int64(row[0]),
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		}
		if len(row) > 5 {
			hrow.Volume = row[5]
		}
		out.Candles = append(out.Candles, hrow)
	}

	return out, nil
}

type orderResp struct {
	S       string `json:"s"`
	Message string `json:"message,omitempty"`
	ID      string `json:"id"`
}

// PlaceOrder submits an order. Returns the broker order ID on success.
func (c *Client) PlaceOrder(ctx context.Context, req broker.OrderRequest) (broker.OrderResponse, error) {
	if req.Symbol == "" {
		return broker.OrderResponse{}, fmt.Errorf("fyers: missing symbol")
	}
	if req.Qty <= 0 {
		return broker.OrderResponse{}, fmt.Errorf("fyers: qty must be positive")
	}

	body := map[string]any{
		"symbol":      req.Symbol,
		"qty":         req.Qty,
		"type":        int(req.Type),
		"side":        int(req.Side),
		"productType": "INTRADAY",
		"orderSource": req.Source,
	}
	if req.Price != 0 {
		body["limitPrice"] = req.Price
	}
	if req.StopPrice != 0 {
		body["stopPrice"] = req.StopPrice
	}

	buf, err := json.Marshal(body)
	if err != nil {
		return broker.OrderResponse{}, err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.APIURL+"/orders", bytes.NewReader(buf))
	if err != nil {
		return broker.OrderResponse{}, err
	}
	httpReq.Header.Set("Authorization", c.authHeader())
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return broker.OrderResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return broker.OrderResponse{}, fmt.Errorf("fyers order http %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var or orderResp
	if err := json.NewDecoder(resp.Body).Decode(&or); err != nil {
		return broker.OrderResponse{}, fmt.Errorf("decode order response: %w", err)
	}
	if or.S != broker.StatusOK {
		return broker.OrderResponse{}, fmt.Errorf("fyers order rejected: %s", or.Message)
	}

	c.log.Info().Str("order_id", or.ID).Str("symbol", req.Symbol).Int("qty", req.Qty).Msg("order placed")

	return broker.OrderResponse{OrderID: or.ID}, nil
}

type positionsResp struct {
	S            string `json:"s"`
	Message      string `json:"message,omitempty"`
	NetPositions []struct {
		Symbol   string  `json:"symbol"`
		NetQty   float64 `json:"netQty"`
		AvgPrice float64 `json:"avgPrice"`
	} `json:"netPositions"`
}

// GetPositions returns symbols with a non-zero net quantity.
func (c *Client) GetPositions(ctx context.Context) (map[string]broker.NetPosition, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.APIURL+"/positions", nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", c.authHeader())

	resp, err := c.httpClient().Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("fyers positions http %d: %s",
			resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var pr positionsResp
	if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
		return nil, fmt.Errorf("decode positions: %w", err)
	}
	if pr.S != broker.StatusOK {
		return nil, fmt.Errorf("fyers positions: %s", pr.Message)
	}

	out := make(map[string]broker.NetPosition, len(pr.NetPositions))
	for _, p := range pr.NetPositions {
		if p.NetQty == 0 {
			continue
		}
		out[p.Symbol] = broker.NetPosition{
			Symbol:   p.Symbol,
			NetQty:   p.NetQty,
			AvgPrice: p.AvgPrice,
		}
	}
	return out, nil
}
