package payout

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Status represents the lifecycle state of a payout
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
	StatusCancelled  Status = "cancelled"
)

// IsTerminal reports whether the pipeline will never touch a payout in this status again.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusProcessing, StatusCompleted, StatusFailed, StatusCancelled:
		return true
	}
	return false
}

// Currency is an ISO 4217 code from the supported set
type Currency string

const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyRUB Currency = "RUB"
	CurrencyGBP Currency = "GBP"
)

var Currencies = []Currency{CurrencyUSD, CurrencyEUR, CurrencyRUB, CurrencyGBP}

func (c Currency) Valid() bool {
	for _, known := range Currencies {
		if c == known {
			return true
		}
	}
	return false
}

// Payout represents payouts
type Payout struct {
	ID               uuid.UUID       `gorm:"type:uuid;primaryKey" json:"id"`
	Amount           decimal.Decimal `gorm:"type:numeric(12,2);not null" json:"amount"`
	Currency         Currency        `gorm:"type:varchar(3);not null;default:'USD'" json:"currency"`
	RecipientName    string          `gorm:"type:varchar(128);not null" json:"recipient_name"`
	RecipientAccount string          `gorm:"type:varchar(64);not null" json:"recipient_account"`
	Status           Status          `gorm:"type:varchar(16);not null;default:'pending';index:idx_payouts_status_updated_at,priority:1" json:"status"`
	Description      string          `gorm:"type:varchar(255);not null;default:''" json:"description"`
	CallbackURL      string          `gorm:"type:varchar(500);not null;default:''" json:"callback_url"`
	CreatedAt        time.Time       `gorm:"not null;index" json:"created_at"`
	UpdatedAt        time.Time       `gorm:"not null;index:idx_payouts_status_updated_at,priority:2" json:"updated_at"`
}

func (Payout) TableName() string {
	return "payouts"
}

// HasCallback reports whether a webhook should be delivered for this payout.
func (p Payout) HasCallback() bool {
	return p.CallbackURL != ""
}
