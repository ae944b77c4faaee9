package webhook

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodePayload(t *testing.T, raw string) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(raw), &m))
	return m
}

const validPayload = `{
	"webhookSecret": "whk_abc",
	"userId": "u1",
	"action": "BUY",
	"symbol": "AAPL",
	"price": 187.5,
	"quantity": 10
}`

func TestParseRequestValid(t *testing.T) {
	req, ok := ParseRequest(decodePayload(t, validPayload))
	require.True(t, ok)

	assert.Equal(t, "whk_abc", req.WebhookSecret)
	assert.Equal(t, "u1", req.UserID)
	assert.Equal(t, ActionBuy, req.Action)
	assert.Equal(t, "AAPL", req.Symbol)
	assert.Equal(t, 187.5, req.Price)
	assert.Equal(t, 10.0, req.Quantity)
}

func TestParseRequestOptionalFields(t *testing.T) {
	raw := decodePayload(t, validPayload)
	raw["strategy"] = "breakout"
	raw["notes"] = "earnings play"
	raw["stopLoss"] = 180.0
	raw["takeProfit"] = 200.0
	raw["timestamp"] = "2025-06-01T12:00:00Z"

	req, ok := ParseRequest(raw)
	require.True(t, ok)

	assert.Equal(t, "breakout", req.Strategy)
	assert.Equal(t, "earnings play", req.Notes)
	require.NotNil(t, req.StopLoss)
	assert.Equal(t, 180.0, *req.StopLoss)
	require.NotNil(t, req.TakeProfit)
	assert.Equal(t, 200.0, *req.TakeProfit)
	assert.Equal(t, "2025-06-01T12:00:00Z", req.Timestamp)
}

func TestParseRequestInvalid(t *testing.T) {
	mutations := map[string]func(map[string]interface{}){
		"missing secret":      func(m map[string]interface{}) { delete(m, "webhookSecret") },
		"missing userId":      func(m map[string]interface{}) { delete(m, "userId") },
		"missing action":      func(m map[string]interface{}) { delete(m, "action") },
		"missing symbol":      func(m map[string]interface{}) { delete(m, "symbol") },
		"missing price":       func(m map[string]interface{}) { delete(m, "price") },
		"missing quantity":    func(m map[string]interface{}) { delete(m, "quantity") },
		"secret not a string": func(m map[string]interface{}) { m["webhookSecret"] = 42.0 },
		"userId not a string": func(m map[string]interface{}) { m["userId"] = true },
		"unknown action":      func(m map[string]interface{}) { m["action"] = "HOLD" },
		"price as string":     func(m map[string]interface{}) { m["price"] = "187.5" },
		"zero price":          func(m map[string]interface{}) { m["price"] = 0.0 },
		"negative price":      func(m map[string]interface{}) { m["price"] = -1.0 },
		"zero quantity":       func(m map[string]interface{}) { m["quantity"] = 0.0 },
		"negative quantity":   func(m map[string]interface{}) { m["quantity"] = -2.5 },
	}

	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			raw := decodePayload(t, validPayload)
			mutate(raw)
			_, ok := ParseRequest(raw)
			assert.False(t, ok)
		})
	}
}

func TestParseRequestNilPayload(t *testing.T) {
	_, ok := ParseRequest(nil)
	assert.False(t, ok)
}

func TestOpenedAt(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	t.Run("absent timestamp falls back to now", func(t *testing.T) {
		req := &Request{}
		assert.Equal(t, now, req.OpenedAt(now))
	})

	t.Run("valid timestamp is parsed", func(t *testing.T) {
		req := &Request{Timestamp: "2025-05-31T09:30:00Z"}
		assert.Equal(t, time.Date(2025, 5, 31, 9, 30, 0, 0, time.UTC), req.OpenedAt(now))
	})

	t.Run("unparseable timestamp falls back to now", func(t *testing.T) {
		req := &Request{Timestamp: "yesterday"}
		assert.Equal(t, now, req.OpenedAt(now))
	})
}
