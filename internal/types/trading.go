package types

import (
	"time"

	"gorm.io/gorm"
)

// Trade sides
const (
	SideLong  = "LONG"
	SideShort = "SHORT"
)

// Trade represents a single journal entry in the trade lifecycle.
// A trade is created in the open state (ClosedAt nil) and transitions
// to closed exactly once via a conditional update on ClosedAt.
type Trade struct {
	gorm.Model `json:"-"`
	ExternalID string     `gorm:"uniqueIndex" json:"external_id"`
	UserID     string     `gorm:"index" json:"user_id"`
	Symbol     string     `gorm:"index" json:"symbol"`
	Side       string     `json:"side"` // LONG or SHORT
	EntryPrice float64    `json:"entry_price"`
	ExitPrice  *float64   `json:"exit_price,omitempty"`
	Quantity   float64    `json:"quantity"`
	OpenedAt   time.Time  `json:"opened_at"`
	ClosedAt   *time.Time `json:"closed_at,omitempty"`
	StopLoss   *float64   `json:"stop_loss,omitempty"`
	TakeProfit *float64   `json:"take_profit,omitempty"`
	Strategy   string     `json:"strategy,omitempty"`
	Notes      string     `json:"notes,omitempty"`
}

// IsOpen reports whether the trade has not been closed yet
func (t *Trade) IsOpen() bool {
	return t.ClosedAt == nil
}

// WebhookSecret is the source-of-truth secret a user embeds in their
// TradingView webhook URL. The credential cache in front of it is
// always safe to evict; this row wins.
type WebhookSecret struct {
	gorm.Model `json:"-"`
	UserID     string `gorm:"uniqueIndex" json:"user_id"`
	Secret     string `json:"-"`
}
