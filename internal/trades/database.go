package trades

import (
	"errors"
	"time"

	"github.com/tradevine/journal-api/internal/types"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Typed store failure kinds. The webhook pipeline maps these to HTTP
// statuses without ever seeing vendor error codes.
var (
	ErrDuplicateTrade = errors.New("duplicate trade")
	ErrInvalidUser    = errors.New("invalid user")
	ErrNoOpenTrade    = errors.New("no open trade")
)

// A concurrent close can invalidate the selected record between the
// read and the conditional update; re-select a bounded number of times
// before reporting no open trade.
const maxCloseAttempts = 3

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// InsertTrade persists a new open trade. A user with no registered
// webhook secret is treated as a referential violation.
func (d *Database) InsertTrade(trade *types.Trade) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&types.WebhookSecret{}).Where("user_id = ?", trade.UserID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return ErrInvalidUser
		}

		if err := tx.Create(trade).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTrade
			}
			if errors.Is(err, gorm.ErrForeignKeyViolated) {
				return ErrInvalidUser
			}
			return err
		}
		return nil
	})
}

// CloseMostRecentOpenTrade closes the newest still-open trade for the
// given user, symbol and side. The update is conditioned on the record
// still being open, so a racing close cannot double-close it.
func (d *Database) CloseMostRecentOpenTrade(userID, symbol, side string, exitPrice float64, now time.Time) (*types.Trade, error) {
	for attempt := 0; attempt < maxCloseAttempts; attempt++ {
		var trade types.Trade
		err := d.db.
			Where("user_id = ? AND symbol = ? AND side = ? AND closed_at IS NULL", userID, symbol, side).
			Order("opened_at DESC").
			First(&trade).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrNoOpenTrade
			}
			return nil, err
		}

		res := d.db.Model(&types.Trade{}).
			Where("id = ? AND closed_at IS NULL", trade.ID).
			Updates(map[string]interface{}{
				"exit_price": exitPrice,
				"closed_at":  now,
				"updated_at": now,
			})
		if res.Error != nil {
			return nil, res.Error
		}
		if res.RowsAffected == 1 {
			trade.ExitPrice = &exitPrice
			trade.ClosedAt = &now
			return &trade, nil
		}
		// Lost the race for this record, try the next candidate
	}

	return nil, ErrNoOpenTrade
}

// GetTradeByExternalID retrieves a trade by its pipeline-generated id
func (d *Database) GetTradeByExternalID(externalID string) (*types.Trade, error) {
	var trade types.Trade
	if err := d.db.Where("external_id = ?", externalID).First(&trade).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &trade, nil
}

// ListTrades returns the user's trades, most recently opened first.
// status filters by lifecycle state: "open", "closed" or "" for all.
func (d *Database) ListTrades(userID, status string, limit int) ([]types.Trade, error) {
	query := d.db.Where("user_id = ?", userID).Order("opened_at DESC")
	switch status {
	case "open":
		query = query.Where("closed_at IS NULL")
	case "closed":
		query = query.Where("closed_at IS NOT NULL")
	}
	if limit > 0 {
		query = query.Limit(limit)
	}

	var result []types.Trade
	if err := query.Find(&result).Error; err != nil {
		return nil, err
	}
	return result, nil
}

// GetWebhookSecret returns the persisted secret for the user, or empty
// when none has been generated
func (d *Database) GetWebhookSecret(userID string) (string, error) {
	var record types.WebhookSecret
	if err := d.db.Where("user_id = ?", userID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return "", nil
		}
		return "", err
	}
	return record.Secret, nil
}

// UpsertWebhookSecret creates or replaces the user's webhook secret
func (d *Database) UpsertWebhookSecret(userID, secret string) error {
	record := types.WebhookSecret{
		UserID: userID,
		Secret: secret,
	}
	return d.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{"secret": secret, "updated_at": time.Now()}),
	}).Create(&record).Error
}
