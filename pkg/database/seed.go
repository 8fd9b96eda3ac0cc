package database

import (
	"context"
	"fmt"
	"time"

	"payout-service/internal/domain/payout"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SeedConfig holds configuration for seeding the database
type SeedConfig struct {
	Count       int
	CallbackURL string
}

// DefaultSeedConfig returns default seed configuration
func DefaultSeedConfig() *SeedConfig {
	return &SeedConfig{Count: 10}
}

var seedRecipients = []string{"Alice Martin", "Bob Kowalski", "Chen Wei", "Dana Ivanova", "Emeka Obi"}

// seedStatuses keeps terminal records out of the pipeline's way; pending
// rows are picked up by the sweeper like any stranded payout.
var seedStatuses = []payout.Status{
	payout.StatusCompleted,
	payout.StatusFailed,
	payout.StatusCancelled,
	payout.StatusPending,
}

// Seed inserts sample payouts spread over every currency and status.
func Seed(ctx context.Context, db *gorm.DB, cfg *SeedConfig) ([]payout.Payout, error) {
	if cfg == nil {
		cfg = DefaultSeedConfig()
	}

	now := time.Now().UTC()
	items := make([]payout.Payout, 0, cfg.Count)
	for i := 0; i < cfg.Count; i++ {
		status := seedStatuses[i%len(seedStatuses)]
		amount := decimal.NewFromInt(int64(100 + i*250)).Add(decimal.New(int64(i%100), -2))
		if status == payout.StatusFailed {
			amount = decimal.NewFromInt(1_000_000).Add(decimal.NewFromInt(int64(i)))
		}
		created := now.Add(-time.Duration(cfg.Count-i) * time.Minute)
		items = append(items, payout.Payout{
			ID:               uuid.New(),
			Amount:           amount,
			Currency:         payout.Currencies[i%len(payout.Currencies)],
			RecipientName:    seedRecipients[i%len(seedRecipients)],
			RecipientAccount: fmt.Sprintf("ACC-%06d", 1000+i),
			Status:           status,
			Description:      fmt.Sprintf("Seed payout #%d", i+1),
			CallbackURL:      cfg.CallbackURL,
			CreatedAt:        created,
			UpdatedAt:        created,
		})
	}
	if len(items) == 0 {
		return items, nil
	}

	if err := db.WithContext(ctx).Create(&items).Error; err != nil {
		return nil, fmt.Errorf("failed to seed payouts: %w", err)
	}
	return items, nil
}

// Truncate removes every payout row.
func Truncate(ctx context.Context, db *gorm.DB) (int64, error) {
	res := db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&payout.Payout{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to truncate payouts: %w", res.Error)
	}
	return res.RowsAffected, nil
}
