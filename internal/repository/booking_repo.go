package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type CreateBookingInput struct {
	OwnerID            int64
	SitterID           int64
	PetID              int64
	ServiceType        string
	StartTime          time.Time
	EndTime            time.Time
	Location           *string
	Notes              *string
	TotalPriceCents    int64
	CommissionFeeCents int64
}

type BookingListFilter struct {
	ActorID   int64
	Role      string
	Status    string
	Timeframe string
}

const bookingColumns = `id, owner_id, sitter_id, pet_id, service_type, start_time, end_time,
		   location, notes, status, payment_status, total_price_cents, commission_fee_cents,
		   cancel_reason, stripe_payment_intent_id, completed_at, created_at, updated_at`

type BookingRepository struct {
	db DBTX
}

func NewBookingRepository(db DBTX) *BookingRepository {
	return &BookingRepository{db: db}
}

type bookingScanner interface {
	Scan(dest ...any) error
}

func scanBooking(row bookingScanner, booking *models.Booking) error {
	return row.Scan(
		&booking.ID,
		&booking.OwnerID,
		&booking.SitterID,
		&booking.PetID,
		&booking.ServiceType,
		&booking.StartTime,
		&booking.EndTime,
		&booking.Location,
		&booking.Notes,
		&booking.Status,
		&booking.PaymentStatus,
		&booking.TotalPriceCents,
		&booking.CommissionFeeCents,
		&booking.CancelReason,
		&booking.StripePaymentIntentID,
		&booking.CompletedAt,
		&booking.CreatedAt,
		&booking.UpdatedAt,
	)
}

func (r *BookingRepository) Create(ctx context.Context, input CreateBookingInput) (*models.Booking, error) {
	query := fmt.Sprintf(`
		INSERT INTO bookings (owner_id, sitter_id, pet_id, service_type, start_time, end_time,
			location, notes, status, payment_status, total_price_cents, commission_fee_cents)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 'requested', 'none', $9, $10)
		RETURNING %s
	`, bookingColumns)

	var booking models.Booking
	err := scanBooking(r.db.QueryRow(ctx, query,
		input.OwnerID,
		input.SitterID,
		input.PetID,
		input.ServiceType,
		input.StartTime,
		input.EndTime,
		input.Location,
		input.Notes,
		input.TotalPriceCents,
		input.CommissionFeeCents,
	), &booking)
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByID(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByIDForUpdate(ctx context.Context, bookingID int64) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE id = $1 FOR UPDATE`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) GetByPaymentIntentID(ctx context.Context, intentID string) (*models.Booking, error) {
	query := fmt.Sprintf(`SELECT %s FROM bookings WHERE stripe_payment_intent_id = $1`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, intentID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) List(ctx context.Context, filter BookingListFilter) ([]models.Booking, error) {
	actorColumn := "owner_id"
	if filter.Role == "sitter" {
		actorColumn = "sitter_id"
	}

	args := []any{filter.ActorID}
	whereParts := []string{fmt.Sprintf("%s = $1", actorColumn)}

	if status := strings.TrimSpace(filter.Status); status != "" {
		args = append(args, status)
		whereParts = append(whereParts, fmt.Sprintf("status = $%d", len(args)))
	}

	switch strings.TrimSpace(filter.Timeframe) {
	case "upcoming":
		whereParts = append(whereParts, "end_time > NOW()")
	case "past":
		whereParts = append(whereParts, "end_time <= NOW()")
	}

	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE %s
		ORDER BY start_time ASC, id ASC
	`, bookingColumns, strings.Join(whereParts, " AND "))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepository) UpdateStatusIfCurrent(ctx context.Context, bookingID int64, currentStatus, nextStatus string) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = $3,
			completed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE completed_at END,
			updated_at = NOW()
		WHERE id = $1 AND status = $2
		RETURNING %s
	`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) UpdatePaymentStatusIfCurrent(ctx context.Context, bookingID int64, currentStatus, nextStatus string) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET payment_status = $3, updated_at = NOW()
		WHERE id = $1 AND payment_status = $2
		RETURNING %s
	`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, currentStatus, nextStatus), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) SetPaymentIntent(ctx context.Context, bookingID int64, intentID string) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET stripe_payment_intent_id = $2,
			payment_status = 'pending',
			updated_at = NOW()
		WHERE id = $1 AND payment_status = 'none'
		RETURNING %s
	`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, intentID), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *BookingRepository) CancelWithReason(ctx context.Context, bookingID int64, reason string, paymentStatus string) (*models.Booking, error) {
	query := fmt.Sprintf(`
		UPDATE bookings
		SET status = 'cancelled',
			payment_status = $3,
			cancel_reason = $2,
			updated_at = NOW()
		WHERE id = $1
		RETURNING %s
	`, bookingColumns)

	var booking models.Booking
	if err := scanBooking(r.db.QueryRow(ctx, query, bookingID, reason, paymentStatus), &booking); err != nil {
		return nil, err
	}
	return &booking, nil
}

// ListEligibleForRelease returns completed bookings whose escrow is still held
// and whose completion is older than the grace period. Released bookings fall
// out of this set, which makes the release batch idempotent per booking.
func (r *BookingRepository) ListEligibleForRelease(ctx context.Context, cutoff time.Time, limit int) ([]models.Booking, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM bookings
		WHERE status = 'completed'
		  AND payment_status = 'held'
		  AND completed_at IS NOT NULL
		  AND completed_at <= $1
		ORDER BY completed_at ASC
		LIMIT $2
	`, bookingColumns)

	rows, err := r.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bookings := make([]models.Booking, 0)
	for rows.Next() {
		var booking models.Booking
		if err := scanBooking(rows, &booking); err != nil {
			return nil, err
		}
		bookings = append(bookings, booking)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return bookings, nil
}

func (r *BookingRepository) HasConflict(ctx context.Context, sitterID int64, startTime, endTime time.Time) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1
			FROM bookings
			WHERE sitter_id = $1
			  AND status NOT IN ('cancelled', 'completed')
			  AND start_time < $3
			  AND end_time > $2
		)
	`
	var hasConflict bool
	if err := r.db.QueryRow(ctx, query, sitterID, startTime, endTime).Scan(&hasConflict); err != nil {
		return false, err
	}
	return hasConflict, nil
}
