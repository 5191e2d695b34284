package models

import "time"

const (
	NotificationBookingRequested = "booking_requested"
	NotificationBookingAccepted  = "booking_accepted"
	NotificationBookingDeclined  = "booking_declined"
	NotificationBookingStarted   = "booking_started"
	NotificationBookingCompleted = "booking_completed"
	NotificationPaymentHeld      = "payment_held"
	NotificationPaymentReleased  = "payment_released"
	NotificationBookingRefunded  = "booking_refunded"
	NotificationPayoutUpdated    = "payout_updated"
)

type Notification struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"user_id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	BookingID *int64    `json:"booking_id,omitempty"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}
