// REST CLIENT FOR MUDREX USDT FUTURES
// RESTY ONLY + RETRY ON IDEMPOTENT READS
package connectors

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	logger "github.com/sirupsen/logrus"

	"signalexecutor/src/venue"
)

// -----------------------------
// CONFIG
// -----------------------------
const (
	DefaultMudrexBaseURL = "https://trade.mudrex.com/fapi/v1"

	defaultRetryAttempts   = 3
	defaultRetryBaseDelay  = 500 * time.Millisecond
	defaultRetryMaxBackoff = 8 * time.Second
	defaultTimeout         = 15 * time.Second

	headerAuth      = "X-Authentication"
	headerRequestID = "X-Request-Id"
)

// -----------------------------
// API RESPONSE WRAPPER
// -----------------------------
type APIError struct {
	Code any    `json:"code"`
	Text string `json:"text"`
}

type APIResponse struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Errors  []APIError      `json:"errors"`
}

func (r *APIResponse) firstError() (string, string) {
	if len(r.Errors) == 0 {
		return "", ""
	}
	code := ""
	if r.Errors[0].Code != nil {
		code = fmt.Sprint(r.Errors[0].Code)
	}
	return code, r.Errors[0].Text
}

// -----------------------------
// WIRE STRUCTURES
// -----------------------------
type fundsData struct {
	Balance      decimal.Decimal `json:"balance"`
	LockedAmount decimal.Decimal `json:"locked_amount"`
}

type positionData struct {
	ID            string          `json:"id"`
	Symbol        string          `json:"symbol"`
	OrderType     string          `json:"order_type"`
	Quantity      decimal.Decimal `json:"quantity"`
	EntryPrice    decimal.Decimal `json:"entry_price"`
	UnrealizedPnL decimal.Decimal `json:"unrealized_pnl"`
}

type assetData struct {
	ID           string          `json:"id"`
	Symbol       string          `json:"symbol"`
	Price        decimal.Decimal `json:"price"`
	QuantityStep decimal.Decimal `json:"quantity_step"`
}

type orderBody struct {
	Leverage    int    `json:"leverage"`
	Quantity    string `json:"quantity"`
	OrderPrice  string `json:"order_price,omitempty"`
	OrderType   string `json:"order_type"`
	TriggerType string `json:"trigger_type"`
	ReduceOnly  bool   `json:"reduce_only"`
}

type orderData struct {
	OrderID string `json:"order_id"`
}

type partialCloseBody struct {
	OrderType string `json:"order_type"`
	Quantity  string `json:"quantity"`
}

type riskOrderBody struct {
	StopLossPrice   *string `json:"stoploss_price,omitempty"`
	TakeProfitPrice *string `json:"takeprofit_price,omitempty"`
}

// -----------------------------
// CLIENT
// -----------------------------

// MudrexConnector implements venue.Gateway over the Mudrex futures REST API.
// Leverage changes on open positions are not exposed.
type MudrexConnector struct {
	apiSecret string
	baseURL   string
	http      *resty.Client
	log       *logger.Entry
}

var _ venue.Gateway = (*MudrexConnector)(nil)

type Option func(*MudrexConnector)

// WithRetryCount overrides how many times idempotent reads are retried.
func WithRetryCount(n int) Option {
	return func(c *MudrexConnector) {
		c.http.SetRetryCount(n)
	}
}

func WithTimeout(d time.Duration) Option {
	return func(c *MudrexConnector) {
		c.http.SetTimeout(d)
	}
}

func WithLogger(l *logger.Entry) Option {
	return func(c *MudrexConnector) {
		c.log = l
	}
}

// isRetryableResp retries GETs on transport errors, 5xx, 429 and 408.
// Order placement and position changes are never replayed.
func isRetryableResp(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	if err != nil {
		return true
	}

	code := r.StatusCode()

	if code >= 500 && code <= 599 {
		return true
	}
	if code == http.StatusTooManyRequests {
		return true
	}
	if code == http.StatusRequestTimeout {
		return true
	}
	return false
}

func NewMudrexConnector(apiSecret, baseURL string, opts ...Option) *MudrexConnector {
	if baseURL == "" {
		baseURL = DefaultMudrexBaseURL
		logger.Debugf("No Mudrex base URL provided, using default: %s", baseURL)
	}

	httpClient := resty.New().
		SetBaseURL(strings.TrimRight(baseURL, "/")).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryAttempts - 1).
		SetRetryWaitTime(defaultRetryBaseDelay).
		SetRetryMaxWaitTime(defaultRetryMaxBackoff).
		AddRetryCondition(isRetryableResp)

	c := &MudrexConnector{
		apiSecret: apiSecret,
		baseURL:   baseURL,
		http:      httpClient,
		log:       logger.WithField("connector", "mudrex"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *MudrexConnector) doRequest(ctx context.Context, method, path string, query url.Values, body any) (*APIResponse, error) {
	reqID := uuid.NewString()

	req := c.http.R().
		SetContext(ctx).
		SetHeader(headerAuth, c.apiSecret).
		SetHeader(headerRequestID, reqID).
		SetHeader("Accept", "application/json")

	if len(query) > 0 {
		req = req.SetQueryParamsFromValues(query)
	}
	if body != nil {
		req = req.SetBody(body).SetHeader("Content-Type", "application/json")
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		c.log.WithFields(logger.Fields{"method": method, "path": path, "request_id": reqID}).
			WithError(err).Warn("Mudrex request failed")
		return nil, &venue.Error{Kind: venue.KindTransient, Message: fmt.Sprintf("%s %s", method, path), Err: err}
	}

	raw := resp.Body()
	var apiResp APIResponse
	decodeErr := json.Unmarshal(raw, &apiResp)

	if resp.StatusCode() < 200 || resp.StatusCode() > 299 {
		code, text := apiResp.firstError()
		if text == "" && decodeErr != nil {
			text = strings.TrimSpace(string(raw))
		}
		if text == "" {
			text = GetErrorMsg(resp.StatusCode())
		}
		return nil, &venue.Error{
			Kind:       venue.KindFromStatus(resp.StatusCode()),
			StatusCode: resp.StatusCode(),
			Code:       code,
			Message:    text,
		}
	}

	if decodeErr != nil {
		return nil, &venue.Error{Kind: venue.KindUnknown, Message: "decode Mudrex response", Err: decodeErr}
	}
	if !apiResp.Success {
		code, text := apiResp.firstError()
		if text == "" {
			text = "request rejected"
		}
		return nil, &venue.Error{Kind: venue.KindRejected, StatusCode: resp.StatusCode(), Code: code, Message: text}
	}

	return &apiResp, nil
}

func symbolQuery() url.Values {
	return url.Values{"is_symbol": []string{"true"}}
}

// -----------------------------
// ACCOUNT & POSITION METHODS
// -----------------------------
func (c *MudrexConnector) AvailableBalance(ctx context.Context) (decimal.Decimal, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/futures/funds", nil, nil)
	if err != nil {
		return decimal.Zero, err
	}

	var funds fundsData
	if err := json.Unmarshal(resp.Data, &funds); err != nil {
		return decimal.Zero, fmt.Errorf("decode funds: %w", err)
	}
	return funds.Balance, nil
}

func (c *MudrexConnector) OpenPositions(ctx context.Context) ([]venue.Position, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/futures/positions", nil, nil)
	if err != nil {
		return nil, err
	}

	var rows []positionData
	if len(resp.Data) > 0 && string(resp.Data) != "null" {
		if err := json.Unmarshal(resp.Data, &rows); err != nil {
			return nil, fmt.Errorf("decode positions: %w", err)
		}
	}

	positions := make([]venue.Position, 0, len(rows))
	for _, p := range rows {
		positions = append(positions, venue.Position{
			PositionID:    p.ID,
			Symbol:        p.Symbol,
			Side:          venue.Side(strings.ToUpper(p.OrderType)),
			Quantity:      p.Quantity,
			EntryPrice:    p.EntryPrice,
			UnrealizedPnL: p.UnrealizedPnL,
		})
	}
	return positions, nil
}

func (c *MudrexConnector) Asset(ctx context.Context, symbol string) (venue.Asset, error) {
	resp, err := c.doRequest(ctx, http.MethodGet, "/futures/"+url.PathEscape(symbol), symbolQuery(), nil)
	if err != nil {
		if venue.KindOf(err) == venue.KindNotFound {
			return venue.Asset{}, venue.NewNotFound("Asset %s not found", symbol)
		}
		return venue.Asset{}, err
	}

	var a assetData
	if err := json.Unmarshal(resp.Data, &a); err != nil {
		return venue.Asset{}, fmt.Errorf("decode asset %s: %w", symbol, err)
	}
	if a.Symbol == "" {
		return venue.Asset{}, venue.NewNotFound("Asset %s not found", symbol)
	}
	return venue.Asset{
		AssetID:      a.ID,
		Symbol:       a.Symbol,
		MarkPrice:    a.Price,
		QuantityStep: a.QuantityStep,
	}, nil
}

// -----------------------------
// TRADING METHODS
// -----------------------------
func (c *MudrexConnector) CreateMarketOrder(ctx context.Context, req venue.OrderRequest) (venue.Order, error) {
	return c.placeOrder(ctx, req, "MARKET")
}

func (c *MudrexConnector) CreateLimitOrder(ctx context.Context, req venue.OrderRequest) (venue.Order, error) {
	if !req.Price.IsPositive() {
		return venue.Order{}, errors.New("limit order requires a positive price")
	}
	return c.placeOrder(ctx, req, "LIMIT")
}

func (c *MudrexConnector) placeOrder(ctx context.Context, req venue.OrderRequest, trigger string) (venue.Order, error) {
	qty := req.QuantityText
	if qty == "" {
		qty = req.Quantity.String()
	}
	body := orderBody{
		Leverage:    req.Leverage,
		Quantity:    qty,
		OrderType:   string(req.Side),
		TriggerType: trigger,
	}
	if trigger == "LIMIT" {
		body.OrderPrice = req.Price.String()
	}

	c.log.WithFields(logger.Fields{
		"symbol":   req.Symbol,
		"side":     req.Side,
		"qty":      body.Quantity,
		"leverage": req.Leverage,
		"trigger":  trigger,
	}).Info("Placing Mudrex order")

	resp, err := c.doRequest(ctx, http.MethodPost, "/futures/"+url.PathEscape(req.Symbol)+"/order", symbolQuery(), body)
	if err != nil {
		return venue.Order{}, err
	}

	var out orderData
	if err := json.Unmarshal(resp.Data, &out); err != nil {
		return venue.Order{}, fmt.Errorf("decode order: %w", err)
	}
	return venue.Order{OrderID: out.OrderID}, nil
}

func (c *MudrexConnector) ClosePosition(ctx context.Context, positionID string) error {
	_, err := c.doRequest(ctx, http.MethodPost, "/futures/positions/"+url.PathEscape(positionID)+"/close", nil, nil)
	return err
}

func (c *MudrexConnector) ClosePositionPartial(ctx context.Context, req venue.PartialClose) error {
	qty := req.QuantityText
	if qty == "" {
		qty = req.Quantity.String()
	}
	body := partialCloseBody{OrderType: "MARKET", Quantity: qty}
	_, err := c.doRequest(ctx, http.MethodPost, "/futures/positions/"+url.PathEscape(req.PositionID)+"/close/partial", nil, body)
	return err
}

func (c *MudrexConnector) SetRiskOrder(ctx context.Context, positionID string, stopLoss, takeProfit *decimal.Decimal) error {
	body := riskOrderBody{}
	if stopLoss != nil {
		s := stopLoss.String()
		body.StopLossPrice = &s
	}
	if takeProfit != nil {
		s := takeProfit.String()
		body.TakeProfitPrice = &s
	}
	_, err := c.doRequest(ctx, http.MethodPatch, "/futures/positions/"+url.PathEscape(positionID)+"/riskorder", nil, body)
	return err
}
