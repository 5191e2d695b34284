package models

import "time"

const (
	BookingStatusRequested  = "requested"
	BookingStatusAccepted   = "accepted"
	BookingStatusConfirmed  = "confirmed"
	BookingStatusInProgress = "in_progress"
	BookingStatusCompleted  = "completed"
	BookingStatusCancelled  = "cancelled"
)

// Escrow state of a booking's funds. Forward-only: none -> pending -> held ->
// released; refunded is reachable from pending or held only.
const (
	PaymentStatusNone     = "none"
	PaymentStatusPending  = "pending"
	PaymentStatusHeld     = "held"
	PaymentStatusReleased = "released"
	PaymentStatusRefunded = "refunded"
)

const (
	ServiceTypeWalk = "walk"
	ServiceTypeCare = "care"
)

type Booking struct {
	ID                    int64      `json:"id"`
	OwnerID               int64      `json:"owner_id"`
	SitterID              int64      `json:"sitter_id"`
	PetID                 int64      `json:"pet_id"`
	ServiceType           string     `json:"service_type"`
	StartTime             time.Time  `json:"start_time"`
	EndTime               time.Time  `json:"end_time"`
	Location              *string    `json:"location"`
	Notes                 *string    `json:"notes"`
	Status                string     `json:"status"`
	PaymentStatus         string     `json:"payment_status"`
	TotalPriceCents       int64      `json:"total_price_cents"`
	CommissionFeeCents    int64      `json:"commission_fee_cents"`
	CancelReason          *string    `json:"cancel_reason,omitempty"`
	StripePaymentIntentID *string    `json:"stripe_payment_intent_id,omitempty"`
	CompletedAt           *time.Time `json:"completed_at,omitempty"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
}

type BookingDetail struct {
	Booking
	Payment *Payment `json:"payment,omitempty"`
}
