package webhook

import (
	"time"
)

// Webhook actions accepted from TradingView alerts
const (
	ActionBuy        = "BUY"
	ActionSell       = "SELL"
	ActionCloseLong  = "CLOSE_LONG"
	ActionCloseShort = "CLOSE_SHORT"
)

// InvalidPayloadMessage names every required field so alert authors
// can fix their template without guessing
const InvalidPayloadMessage = "Invalid webhook payload. Required fields: " +
	"webhookSecret (string), userId (string), action (BUY|SELL|CLOSE_LONG|CLOSE_SHORT), " +
	"symbol (string), price (number > 0), quantity (number > 0)"

// Request is a structurally validated TradingView alert payload
type Request struct {
	WebhookSecret string   `json:"webhookSecret"`
	UserID        string   `json:"userId"`
	Action        string   `json:"action"`
	Symbol        string   `json:"symbol"`
	Price         float64  `json:"price"`
	Quantity      float64  `json:"quantity"`
	Strategy      string   `json:"strategy,omitempty"`
	Notes         string   `json:"notes,omitempty"`
	StopLoss      *float64 `json:"stopLoss,omitempty"`
	TakeProfit    *float64 `json:"takeProfit,omitempty"`
	Timestamp     string   `json:"timestamp,omitempty"`
}

// Response is the success body for a processed webhook. It is stored
// verbatim in the response cache and replayed on duplicate deliveries.
type Response struct {
	Success          bool           `json:"success"`
	TradeID          string         `json:"tradeId,omitempty"`
	Message          string         `json:"message"`
	ProcessingTimeMs int64          `json:"processingTimeMs"`
	RateLimit        *RateLimitInfo `json:"rateLimit,omitempty"`
}

// RateLimitInfo reports remaining token budget, for client visibility only
type RateLimitInfo struct {
	Remaining int `json:"remaining"`
}

// ParseRequest validates the raw decoded payload and builds a Request.
// Validation runs before any cache, rate-limit or store access; any
// failure yields a single invalid result. The boolean is false when
// the payload is structurally invalid.
func ParseRequest(raw map[string]interface{}) (*Request, bool) {
	if raw == nil {
		return nil, false
	}

	secret, ok := stringField(raw, "webhookSecret")
	if !ok {
		return nil, false
	}
	userID, ok := stringField(raw, "userId")
	if !ok {
		return nil, false
	}
	action, ok := stringField(raw, "action")
	if !ok || !validAction(action) {
		return nil, false
	}
	symbol, ok := stringField(raw, "symbol")
	if !ok {
		return nil, false
	}
	price, ok := positiveNumberField(raw, "price")
	if !ok {
		return nil, false
	}
	quantity, ok := positiveNumberField(raw, "quantity")
	if !ok {
		return nil, false
	}

	req := &Request{
		WebhookSecret: secret,
		UserID:        userID,
		Action:        action,
		Symbol:        symbol,
		Price:         price,
		Quantity:      quantity,
	}

	// Optional fields: wrong types are ignored rather than rejected
	if v, ok := raw["strategy"].(string); ok {
		req.Strategy = v
	}
	if v, ok := raw["notes"].(string); ok {
		req.Notes = v
	}
	if v, ok := raw["stopLoss"].(float64); ok {
		req.StopLoss = &v
	}
	if v, ok := raw["takeProfit"].(float64); ok {
		req.TakeProfit = &v
	}
	if v, ok := raw["timestamp"].(string); ok {
		req.Timestamp = v
	}

	return req, true
}

// OpenedAt parses the payload timestamp, falling back to now when the
// field is absent or unparseable
func (r *Request) OpenedAt(now time.Time) time.Time {
	if r.Timestamp == "" {
		return now
	}
	ts, err := time.Parse(time.RFC3339, r.Timestamp)
	if err != nil {
		return now
	}
	return ts
}

// IsOpenAction reports whether the action opens a position
func (r *Request) IsOpenAction() bool {
	return r.Action == ActionBuy || r.Action == ActionSell
}

func validAction(action string) bool {
	switch action {
	case ActionBuy, ActionSell, ActionCloseLong, ActionCloseShort:
		return true
	}
	return false
}

func stringField(raw map[string]interface{}, key string) (string, bool) {
	v, ok := raw[key].(string)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func positiveNumberField(raw map[string]interface{}, key string) (float64, bool) {
	v, ok := raw[key].(float64)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}
