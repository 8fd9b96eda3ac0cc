package httpdto

import (
	"time"

	"payout-service/internal/domain/payout"

	"github.com/shopspring/decimal"
)

// CreatePayoutRequest is used for POST /payouts
type CreatePayoutRequest struct {
	Amount           *decimal.Decimal `json:"amount" binding:"required"`
	Currency         string           `json:"currency" binding:"required,payout_currency"`
	RecipientName    string           `json:"recipient_name" binding:"required,max=128"`
	RecipientAccount string           `json:"recipient_account" binding:"required,max=128"`
	Description      string           `json:"description,omitempty" binding:"max=255"`
	CallbackURL      string           `json:"callback_url,omitempty" binding:"omitempty,max=500,url"`
}

// UpdatePayoutRequest is used for PUT/PATCH /payouts/:id. Absent fields are kept.
type UpdatePayoutRequest struct {
	Amount           *decimal.Decimal `json:"amount,omitempty"`
	Currency         *string          `json:"currency,omitempty" binding:"omitempty,payout_currency"`
	RecipientName    *string          `json:"recipient_name,omitempty" binding:"omitempty,max=128"`
	RecipientAccount *string          `json:"recipient_account,omitempty" binding:"omitempty,max=128"`
	Description      *string          `json:"description,omitempty" binding:"omitempty,max=255"`
	CallbackURL      *string          `json:"callback_url,omitempty" binding:"omitempty,max=500"`
	Status           *string          `json:"status,omitempty"`
}

// ListPayoutsRequest holds query parameters for listing payouts
type ListPayoutsRequest struct {
	Page     int    `form:"page" binding:"omitempty,min=1"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Search   string `form:"search"`
	Ordering string `form:"ordering"`
	Status   string `form:"status"`
	Currency string `form:"currency"`
}

type ListPayoutsResponse struct {
	Payouts []PayoutDTO `json:"payouts"`
	Total   int64       `json:"total"`
	Page    int         `json:"page"`
	Limit   int         `json:"limit"`
}

// PayoutDTO represents a payout in API responses
type PayoutDTO struct {
	ID               string `json:"id"`
	Amount           string `json:"amount"`
	Currency         string `json:"currency"`
	RecipientName    string `json:"recipient_name"`
	RecipientAccount string `json:"recipient_account"`
	Status           string `json:"status"`
	Description      string `json:"description"`
	CallbackURL      string `json:"callback_url"`
	CreatedAt        string `json:"created_at"`
	UpdatedAt        string `json:"updated_at"`
}

// ValidationErrorDTO lists the rejected fields of a request.
type ValidationErrorDTO struct {
	Fields map[string]string `json:"fields"`
}

func FromPayout(p payout.Payout) PayoutDTO {
	return PayoutDTO{
		ID:               p.ID.String(),
		Amount:           p.Amount.StringFixed(payout.AmountScale),
		Currency:         string(p.Currency),
		RecipientName:    p.RecipientName,
		RecipientAccount: p.RecipientAccount,
		Status:           string(p.Status),
		Description:      p.Description,
		CallbackURL:      p.CallbackURL,
		CreatedAt:        p.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        p.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
}

func FromPayoutSlice(items []payout.Payout) []PayoutDTO {
	out := make([]PayoutDTO, 0, len(items))
	for _, p := range items {
		out = append(out, FromPayout(p))
	}
	return out
}
