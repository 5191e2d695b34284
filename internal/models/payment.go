package models

import "time"

const (
	PaymentRecordPending   = "pending"
	PaymentRecordSucceeded = "succeeded"
	PaymentRecordFailed    = "failed"
	PaymentRecordRefunded  = "refunded"
)

// Payment is the audit-trail record for one booking's charge. Amounts are
// integer cents; AmountCents = PlatformFeeCents + SitterPayoutCents, fixed at
// creation time. Rows are never deleted.
type Payment struct {
	ID                    int64     `json:"id"`
	BookingID             int64     `json:"booking_id"`
	PayerID               int64     `json:"payer_id"`
	ReceiverID            int64     `json:"receiver_id"`
	AmountCents           int64     `json:"amount_cents"`
	Currency              string    `json:"currency"`
	PlatformFeeCents      int64     `json:"platform_fee_cents"`
	SitterPayoutCents     int64     `json:"sitter_payout_cents"`
	StripePaymentIntentID *string   `json:"stripe_payment_intent_id,omitempty"`
	StripeChargeID        *string   `json:"stripe_charge_id,omitempty"`
	StripeTransferID      *string   `json:"stripe_transfer_id,omitempty"`
	Status                string    `json:"status"`
	CreatedAt             time.Time `json:"created_at"`
	UpdatedAt             time.Time `json:"updated_at"`
}
