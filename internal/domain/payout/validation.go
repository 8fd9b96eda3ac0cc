package payout

import (
	"net/url"
	"regexp"
	"strings"
	"unicode/utf8"

	payout_errors "payout-service/pkg/errors"

	"github.com/shopspring/decimal"
)

const (
	AmountScale            = 2
	MaxAmountDigits        = 12
	MaxRecipientNameLength = 128
	MinAccountLength       = 6
	MaxAccountLength       = 64
	MaxDescriptionLength   = 255
	MaxCallbackURLLength   = 500
)

var (
	MinAmount      = decimal.New(1, -AmountScale)
	maxAmountBound = decimal.New(1, MaxAmountDigits-AmountScale)
	accountPattern = regexp.MustCompile(`^[A-Z0-9\-]+$`)
)

// NormalizeCurrency upper-cases raw and checks it against the supported set.
func NormalizeCurrency(raw string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(raw)))
	if !c.Valid() {
		return "", payout_errors.NewValidationError("currency", payout_errors.ErrUnsupportedCurrency.Error())
	}
	return c, nil
}

// NormalizeAccount strips whitespace and upper-cases the recipient account.
func NormalizeAccount(raw string) (string, error) {
	normalized := strings.ToUpper(strings.Join(strings.Fields(raw), ""))
	if len(normalized) < MinAccountLength {
		return "", payout_errors.NewValidationError("recipient_account", "recipient account is too short")
	}
	if len(normalized) > MaxAccountLength {
		return "", payout_errors.NewValidationError("recipient_account", "recipient account is too long")
	}
	if !accountPattern.MatchString(normalized) {
		return "", payout_errors.NewValidationError("recipient_account", "recipient account may only contain uppercase letters, digits, and dashes")
	}
	return normalized, nil
}

// ValidateAmount enforces numeric(12,2) with a 0.01 floor and returns the
// amount at scale 2.
func ValidateAmount(amount decimal.Decimal) (decimal.Decimal, error) {
	if !amount.Equal(amount.Round(AmountScale)) {
		return decimal.Decimal{}, payout_errors.NewValidationError("amount", "ensure that there are no more than 2 decimal places")
	}
	if amount.LessThan(MinAmount) {
		return decimal.Decimal{}, payout_errors.NewValidationError("amount", "ensure this value is greater than or equal to 0.01")
	}
	if amount.GreaterThanOrEqual(maxAmountBound) {
		return decimal.Decimal{}, payout_errors.NewValidationError("amount", "ensure that there are no more than 12 digits in total")
	}
	return amount.Round(AmountScale), nil
}

func ValidateRecipientName(name string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", payout_errors.NewValidationError("recipient_name", "this field may not be blank")
	}
	if utf8.RuneCountInString(name) > MaxRecipientNameLength {
		return "", payout_errors.NewValidationError("recipient_name", "ensure this field has no more than 128 characters")
	}
	return name, nil
}

func ValidateDescription(description string) (string, error) {
	if utf8.RuneCountInString(description) > MaxDescriptionLength {
		return "", payout_errors.NewValidationError("description", "ensure this field has no more than 255 characters")
	}
	return description, nil
}

// ValidateCallbackURL accepts an empty string or an absolute http(s) URL.
func ValidateCallbackURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", nil
	}
	if len(raw) > MaxCallbackURLLength {
		return "", payout_errors.NewValidationError("callback_url", "ensure this field has no more than 500 characters")
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return "", payout_errors.NewValidationError("callback_url", "enter a valid URL")
	}
	return raw, nil
}

// ValidateStatusChange checks a status change requested through the API.
// Only cancellation of a non-terminal payout is allowed; everything else is
// driven by the pipeline.
func ValidateStatusChange(current, next Status) error {
	if !next.Valid() {
		return payout_errors.NewValidationError("status", "\""+string(next)+"\" is not a valid choice")
	}
	if current == StatusCompleted && next != current {
		return payout_errors.ErrPayoutLocked
	}
	if next == current {
		return nil
	}
	if next == StatusCancelled && !current.IsTerminal() {
		return nil
	}
	return payout_errors.ErrInvalidTransition
}
