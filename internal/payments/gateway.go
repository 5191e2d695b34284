// Package payments wraps the Stripe API behind a small gateway interface so
// services can be exercised with fakes.
package payments

import (
	"context"
	"fmt"
	"time"
)

// ProcessorError is a request rejected by the payment processor, as opposed
// to a transport or programming failure. Handlers map it to a client error.
type ProcessorError struct {
	Code    string
	Message string
}

func (e *ProcessorError) Error() string {
	return fmt.Sprintf("payment processor: %s (%s)", e.Message, e.Code)
}

type Intent struct {
	ID             string
	ClientSecret   string
	Status         string
	AmountCents    int64
	Currency       string
	LatestChargeID string
}

// Intent statuses the escrow flow cares about. Values mirror the processor's
// wire strings.
const (
	IntentStatusRequiresPaymentMethod = "requires_payment_method"
	IntentStatusRequiresCapture       = "requires_capture"
	IntentStatusSucceeded             = "succeeded"
	IntentStatusCanceled              = "canceled"
)

type CreateIntentParams struct {
	AmountCents    int64
	Currency       string
	Description    string
	IdempotencyKey string
	Metadata       map[string]string
}

type RefundResult struct {
	ID     string
	Status string
}

type TransferParams struct {
	AmountCents        int64
	Currency           string
	DestinationAccount string
	TransferGroup      string
	IdempotencyKey     string
}

type TransferResult struct {
	ID string
}

type AccountStatus struct {
	ID               string
	ChargesEnabled   bool
	PayoutsEnabled   bool
	DetailsSubmitted bool
}

type OnboardingLink struct {
	URL       string
	ExpiresAt time.Time
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, params CreateIntentParams) (*Intent, error)
	GetPaymentIntent(ctx context.Context, intentID string) (*Intent, error)
	CancelPaymentIntent(ctx context.Context, intentID string) error
	RefundPaymentIntent(ctx context.Context, intentID string) (*RefundResult, error)
	CreateTransfer(ctx context.Context, params TransferParams) (*TransferResult, error)
	CreateExpressAccount(ctx context.Context, email, country string) (string, error)
	GetAccount(ctx context.Context, accountID string) (*AccountStatus, error)
	CreateOnboardingLink(ctx context.Context, accountID, returnURL, refreshURL string) (*OnboardingLink, error)
}
