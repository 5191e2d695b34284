package models

import "time"

type StripeConnectAccount struct {
	ID                  int64      `json:"id"`
	UserID              int64      `json:"user_id"`
	StripeAccountID     string     `json:"stripe_account_id"`
	ChargesEnabled      bool       `json:"charges_enabled"`
	PayoutsEnabled      bool       `json:"payouts_enabled"`
	DetailsSubmitted    bool       `json:"details_submitted"`
	OnboardingLink      *string    `json:"onboarding_link,omitempty"`
	OnboardingExpiresAt *time.Time `json:"onboarding_expires_at,omitempty"`
	VerificationStatus  string     `json:"verification_status"`
	CreatedAt           time.Time  `json:"created_at"`
	UpdatedAt           time.Time  `json:"updated_at"`
}
