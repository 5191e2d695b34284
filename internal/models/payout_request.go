package models

import "time"

const (
	PayoutStatusPending    = "pending"
	PayoutStatusProcessing = "processing"
	PayoutStatusCompleted  = "completed"
)

const (
	PayoutMethodPaypal = "paypal"
	PayoutMethodBank   = "bank"
)

type PayoutRequest struct {
	ID            int64      `json:"id"`
	SitterID      int64      `json:"sitter_id"`
	AmountCents   int64      `json:"amount_cents"`
	PayoutMethod  string     `json:"payout_method"`
	PayoutDetails string     `json:"payout_details"`
	Status        string     `json:"status"`
	CreatedAt     time.Time  `json:"created_at"`
	ProcessedAt   *time.Time `json:"processed_at,omitempty"`
}
