package payment

import (
	"fmt"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/paymentintent"
	"go.uber.org/zap"
)

// Intent is the client-facing slice of a created payment intent.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"clientSecret"`
	Amount       int64  `json:"amount"`
	Currency     string `json:"currency"`
}

// Service creates card payment intents for a computed booking total. Card
// payment and payment-proof upload are mutually exclusive per session.
type Service interface {
	CreateIntent(amount float64, currency, sessionID string) (*Intent, error)
}

// StripeService implements Service over the Stripe API.
type StripeService struct {
	Logger *zap.Logger
}

// NewStripeService builds the payment service; stripe.Key is set at startup.
func NewStripeService(logger *zap.Logger) *StripeService {
	return &StripeService{Logger: logger}
}

// CreateIntent creates a PaymentIntent for the given amount in major units.
func (s *StripeService) CreateIntent(amount float64, currency, sessionID string) (*Intent, error) {
	if amount <= 0 {
		return nil, fmt.Errorf("payment amount must be positive")
	}
	cents := int64(amount * 100)

	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(cents),
		Currency: stripe.String(currency),
	}
	params.AddMetadata("wizard_session", sessionID)

	pi, err := paymentintent.New(params)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment intent: %w", err)
	}

	s.Logger.Info("payment intent created",
		zap.String("intentId", pi.ID),
		zap.Int64("amount", cents),
		zap.String("session", sessionID))

	return &Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       cents,
		Currency:     currency,
	}, nil
}
