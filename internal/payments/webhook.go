package payments

import (
	stripe "github.com/stripe/stripe-go/v82"
	"github.com/stripe/stripe-go/v82/webhook"
)

// SignatureVerifier checks a webhook payload against its signature header and
// returns the decoded event. Tests substitute this to bypass real signing.
type SignatureVerifier func(payload []byte, sigHeader, secret string) (stripe.Event, error)

// VerifySignature is the production verifier.
func VerifySignature(payload []byte, sigHeader, secret string) (stripe.Event, error) {
	return webhook.ConstructEvent(payload, sigHeader, secret)
}
