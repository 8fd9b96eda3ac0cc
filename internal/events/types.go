package events

// Event types follow the format: domain.action
const (
	EventTypePayoutCreated       = "payout.created"
	EventTypePayoutStatusChanged = "payout.status_changed"
	EventTypePayoutDeleted       = "payout.deleted"
)

const AggregatePayout = "payout"

// StatusChangedPayload is the payload of a payout.status_changed event.
type StatusChangedPayload struct {
	PayoutID       string `json:"payout_id"`
	PreviousStatus string `json:"previous_status,omitempty"`
	Status         string `json:"status"`
	Amount         string `json:"amount"`
	Currency       string `json:"currency"`
	UpdatedAt      string `json:"updated_at"`
}
