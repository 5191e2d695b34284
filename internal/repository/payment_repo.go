package repository

import (
	"context"
	"fmt"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type CreatePaymentInput struct {
	BookingID             int64
	PayerID               int64
	ReceiverID            int64
	StripePaymentIntentID string
	AmountCents           int64
	PlatformFeeCents      int64
	SitterPayoutCents     int64
	Currency              string
}

const paymentColumns = `id, booking_id, payer_id, receiver_id, amount_cents, currency,
		   platform_fee_cents, sitter_payout_cents, stripe_payment_intent_id,
		   stripe_charge_id, stripe_transfer_id, status, created_at, updated_at`

type PaymentRepository struct {
	db DBTX
}

func NewPaymentRepository(db DBTX) *PaymentRepository {
	return &PaymentRepository{db: db}
}

type paymentScanner interface {
	Scan(dest ...any) error
}

func scanPayment(row paymentScanner, payment *models.Payment) error {
	return row.Scan(
		&payment.ID,
		&payment.BookingID,
		&payment.PayerID,
		&payment.ReceiverID,
		&payment.AmountCents,
		&payment.Currency,
		&payment.PlatformFeeCents,
		&payment.SitterPayoutCents,
		&payment.StripePaymentIntentID,
		&payment.StripeChargeID,
		&payment.StripeTransferID,
		&payment.Status,
		&payment.CreatedAt,
		&payment.UpdatedAt,
	)
}

func (r *PaymentRepository) Create(ctx context.Context, input CreatePaymentInput) (*models.Payment, error) {
	query := fmt.Sprintf(`
		INSERT INTO payments (booking_id, payer_id, receiver_id, amount_cents, currency,
			platform_fee_cents, sitter_payout_cents, stripe_payment_intent_id, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'pending')
		RETURNING %s
	`, paymentColumns)

	var payment models.Payment
	err := scanPayment(r.db.QueryRow(ctx, query,
		input.BookingID,
		input.PayerID,
		input.ReceiverID,
		input.AmountCents,
		input.Currency,
		input.PlatformFeeCents,
		input.SitterPayoutCents,
		input.StripePaymentIntentID,
	), &payment)
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByBookingID(ctx context.Context, bookingID int64) (*models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE booking_id = $1
		ORDER BY id DESC
		LIMIT 1
	`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, bookingID), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByBookingIDForUpdate(ctx context.Context, bookingID int64) (*models.Payment, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM payments
		WHERE booking_id = $1
		ORDER BY id DESC
		LIMIT 1
		FOR UPDATE
	`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, bookingID), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) GetByIntentID(ctx context.Context, intentID string) (*models.Payment, error) {
	query := fmt.Sprintf(`SELECT %s FROM payments WHERE stripe_payment_intent_id = $1`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, intentID), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

// ListByBookingIDs returns the latest payment per booking for detail views.
func (r *PaymentRepository) ListByBookingIDs(ctx context.Context, bookingIDs []int64) (map[int64]models.Payment, error) {
	if len(bookingIDs) == 0 {
		return map[int64]models.Payment{}, nil
	}

	query := fmt.Sprintf(`
		SELECT DISTINCT ON (booking_id) %s
		FROM payments
		WHERE booking_id = ANY($1)
		ORDER BY booking_id, id DESC
	`, paymentColumns)

	rows, err := r.db.Query(ctx, query, bookingIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	payments := make(map[int64]models.Payment, len(bookingIDs))
	for rows.Next() {
		var payment models.Payment
		if err := scanPayment(rows, &payment); err != nil {
			return nil, err
		}
		payments[payment.BookingID] = payment
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *PaymentRepository) UpdateStatusIfCurrent(ctx context.Context, paymentID int64, currentStatus, nextStatus string) (*models.Payment, error) {
	query := fmt.Sprintf(`
		UPDATE payments
		SET status = $3, updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, paymentColumns)

	var payment models.Payment
	if err := scanPayment(r.db.QueryRow(ctx, query, paymentID, currentStatus, nextStatus), &payment); err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *PaymentRepository) AttachCharge(ctx context.Context, paymentID int64, chargeID string) error {
	query := `
		UPDATE payments
		SET stripe_charge_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, paymentID, chargeID)
	return err
}

func (r *PaymentRepository) AttachTransfer(ctx context.Context, paymentID int64, transferID string) error {
	query := `
		UPDATE payments
		SET stripe_transfer_id = $2, updated_at = NOW()
		WHERE id = $1
	`
	_, err := r.db.Exec(ctx, query, paymentID, transferID)
	return err
}

// SumReleasedForSitter totals sitter payouts for bookings whose escrow has
// been released. This is the earned side of the payout balance.
func (r *PaymentRepository) SumReleasedForSitter(ctx context.Context, sitterID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(p.sitter_payout_cents), 0)
		FROM payments p
		JOIN bookings b ON b.id = p.booking_id
		WHERE b.sitter_id = $1
		  AND b.payment_status = 'released'
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, sitterID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}
