package payment

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
)

type intentState uint8

const (
	intentAuthorized intentState = iota
	intentCaptured
	intentReleased
)

type fakeIntent struct {
	amount int64
	state  intentState
}

// Fake is an in-memory Gateway.  Every intent it creates is immediately
// authorised, as if the card step had already succeeded.  It is selected
// with PAYMENT_GATEWAY=fake for local runs and used by tests.
type Fake struct {
	mu          sync.Mutex
	intents     map[string]*fakeIntent
	declineAll  bool
	failCapture bool
}

// NewFake returns an empty Fake gateway.
func NewFake() *Fake {
	return &Fake{intents: make(map[string]*fakeIntent)}
}

// SetDecline makes Authorize refuse every intent.
func (f *Fake) SetDecline(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.declineAll = v
}

// SetFailCapture makes Capture refuse every intent.
func (f *Fake) SetFailCapture(v bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.failCapture = v
}

func (f *Fake) CreateChargeIntent(_ context.Context, amountMinor int64, currency string) (ChargeIntent, error) {
	if amountMinor <= 0 {
		return ChargeIntent{}, fmt.Errorf("%w: amount must be positive", ErrDeclined)
	}
	id := "pi_fake_" + uuid.NewString()
	f.mu.Lock()
	f.intents[id] = &fakeIntent{amount: amountMinor}
	f.mu.Unlock()
	return ChargeIntent{ID: id, ClientSecret: id + "_secret", AmountMinor: amountMinor, Currency: currency}, nil
}

func (f *Fake) Authorize(_ context.Context, intentID string, amountMinor int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[intentID]
	switch {
	case f.declineAll:
		return fmt.Errorf("%w: declined by issuer", ErrDeclined)
	case !ok:
		return fmt.Errorf("%w: unknown intent %s", ErrDeclined, intentID)
	case in.amount != amountMinor:
		return fmt.Errorf("%w: intent %s is for %d, expected %d", ErrDeclined, intentID, in.amount, amountMinor)
	case in.state == intentReleased:
		return fmt.Errorf("%w: intent %s was released", ErrDeclined, intentID)
	case in.state == intentCaptured:
		return fmt.Errorf("%w: intent %s is already captured", ErrDeclined, intentID)
	}
	return nil
}

func (f *Fake) Capture(_ context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[intentID]
	if !ok || in.state == intentReleased || f.failCapture {
		return fmt.Errorf("%w: cannot capture %s", ErrDeclined, intentID)
	}
	in.state = intentCaptured
	return nil
}

func (f *Fake) Release(_ context.Context, intentID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if in, ok := f.intents[intentID]; ok {
		in.state = intentReleased
	}
	return nil
}

// Captured reports whether intentID has been captured and not released.
func (f *Fake) Captured(intentID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[intentID]
	return ok && in.state == intentCaptured
}

// Released reports whether intentID was voided or refunded.
func (f *Fake) Released(intentID string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	in, ok := f.intents[intentID]
	return ok && in.state == intentReleased
}
