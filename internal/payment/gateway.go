// Package payment wraps the card-payment provider behind the small
// contract the settlement saga needs: create an authorise-only charge
// intent, verify the authorisation, capture it, or release it.
package payment

import (
	"context"
	"errors"
)

// ErrDeclined is returned when the provider refuses or has not authorised
// a charge for the expected amount.
var ErrDeclined = errors.New("payment declined")

// ChargeIntent is the client-facing handle for a pending charge.  The
// ClientSecret is handed to the browser to collect card details; the ID
// comes back as the transaction id when the student settles.
type ChargeIntent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	AmountMinor  int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Gateway is the external payment collaborator.
type Gateway interface {
	// CreateChargeIntent opens an authorise-only charge for amountMinor.
	CreateChargeIntent(ctx context.Context, amountMinor int64, currency string) (ChargeIntent, error)
	// Authorize confirms intentID holds an uncaptured authorisation for
	// exactly amountMinor.  Captured, cancelled or unconfirmed intents are
	// declined.
	Authorize(ctx context.Context, intentID string, amountMinor int64) error
	// Capture collects the authorised funds.  Capturing an already
	// captured intent succeeds.
	Capture(ctx context.Context, intentID string) error
	// Release voids an authorisation, or refunds a captured charge.
	Release(ctx context.Context, intentID string) error
}
