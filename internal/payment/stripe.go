package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
)

// Stripe implements Gateway on Stripe PaymentIntents with manual capture.
type Stripe struct {
	api *client.API
}

// NewStripe builds a Stripe gateway for the given secret key.
func NewStripe(secretKey string) *Stripe {
	return newStripe(secretKey, nil)
}

// newStripe uses the given backends; nil selects Stripe's defaults.
func newStripe(secretKey string, backends *stripe.Backends) *Stripe {
	return &Stripe{api: client.New(secretKey, backends)}
}

func (s *Stripe) CreateChargeIntent(ctx context.Context, amountMinor int64, currency string) (ChargeIntent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:             stripe.Int64(amountMinor),
		Currency:           stripe.String(currency),
		CaptureMethod:      stripe.String(string(stripe.PaymentIntentCaptureMethodManual)),
		PaymentMethodTypes: stripe.StringSlice([]string{"card"}),
	}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return ChargeIntent{}, classify(err)
	}
	return ChargeIntent{ID: pi.ID, ClientSecret: pi.ClientSecret, AmountMinor: pi.Amount, Currency: string(pi.Currency)}, nil
}

func (s *Stripe) Authorize(ctx context.Context, intentID string, amountMinor int64) error {
	pi, err := s.get(ctx, intentID)
	if err != nil {
		return err
	}
	if pi.Amount != amountMinor {
		return fmt.Errorf("%w: intent %s is for %d, expected %d", ErrDeclined, intentID, pi.Amount, amountMinor)
	}
	if pi.Status == stripe.PaymentIntentStatusRequiresCapture {
		return nil
	}
	return fmt.Errorf("%w: intent %s is %s", ErrDeclined, intentID, pi.Status)
}

// Capture collects an authorised intent.  An intent that already
// succeeded is left alone.
func (s *Stripe) Capture(ctx context.Context, intentID string) error {
	pi, err := s.get(ctx, intentID)
	if err != nil {
		return err
	}
	if pi.Status == stripe.PaymentIntentStatusSucceeded {
		return nil
	}
	params := &stripe.PaymentIntentCaptureParams{}
	params.Context = ctx
	if _, err := s.api.PaymentIntents.Capture(intentID, params); err != nil {
		return classify(err)
	}
	return nil
}

// Release cancels an uncaptured intent and refunds a captured one.
func (s *Stripe) Release(ctx context.Context, intentID string) error {
	pi, err := s.get(ctx, intentID)
	if err != nil {
		return err
	}
	switch pi.Status {
	case stripe.PaymentIntentStatusCanceled:
		return nil
	case stripe.PaymentIntentStatusSucceeded:
		params := &stripe.RefundParams{PaymentIntent: stripe.String(intentID)}
		params.Context = ctx
		_, err = s.api.Refunds.New(params)
	default:
		params := &stripe.PaymentIntentCancelParams{}
		params.Context = ctx
		_, err = s.api.PaymentIntents.Cancel(intentID, params)
	}
	return classify(err)
}

func (s *Stripe) get(ctx context.Context, intentID string) (*stripe.PaymentIntent, error) {
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return nil, classify(err)
	}
	return pi, nil
}

// classify maps card and request errors to ErrDeclined; anything else
// (network, API, auth) is returned as-is.
func classify(err error) error {
	if err == nil {
		return nil
	}
	var se *stripe.Error
	if errors.As(err, &se) {
		switch se.Type {
		case stripe.ErrorTypeCard, stripe.ErrorTypeInvalidRequest:
			return fmt.Errorf("%w: %s", ErrDeclined, se.Msg)
		}
	}
	return err
}
