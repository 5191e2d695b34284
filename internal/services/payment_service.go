package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/config"
	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

type connectAccountReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.StripeConnectAccount, error)
}

type PaymentService struct {
	db          *pgxpool.Pool
	cfg         *config.Config
	gateway     payments.Gateway
	bookingRepo *repository.BookingRepository
	paymentRepo *repository.PaymentRepository
	connectRepo connectAccountReader
}

func NewPaymentService(
	db *pgxpool.Pool,
	cfg *config.Config,
	gateway payments.Gateway,
	bookingRepo *repository.BookingRepository,
	paymentRepo *repository.PaymentRepository,
	connectRepo connectAccountReader,
) *PaymentService {
	return &PaymentService{
		db:          db,
		cfg:         cfg,
		gateway:     gateway,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		connectRepo: connectRepo,
	}
}

type PaymentIntentResult struct {
	BookingID         int64  `json:"booking_id"`
	PaymentIntentID   string `json:"payment_intent_id"`
	ClientSecret      string `json:"client_secret"`
	AmountCents       int64  `json:"amount_cents"`
	PlatformFeeCents  int64  `json:"platform_fee_cents"`
	SitterPayoutCents int64  `json:"sitter_payout_cents"`
	Currency          string `json:"currency"`
}

// CreateIntent opens the escrow for an accepted booking. The fee split is
// fixed here and never recomputed: amount = platform fee + sitter payout.
func (s *PaymentService) CreateIntent(ctx context.Context, ownerID, bookingID int64) (*PaymentIntentResult, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusAccepted {
		return nil, ErrInvalidStatus
	}
	if booking.PaymentStatus != models.PaymentStatusNone {
		return nil, ErrConflict
	}

	platformFee := booking.CommissionFeeCents
	sitterPayout := booking.TotalPriceCents - platformFee
	if sitterPayout <= 0 {
		return nil, ErrInvalidInput
	}

	// Sitters without a payout account stay bookable. The transfer will fail
	// at release time if onboarding never happens, so flag it early.
	if _, err := s.connectRepo.GetByUserID(ctx, booking.SitterID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("payment: sitter %d has no connect account, booking %d payout will need onboarding", booking.SitterID, booking.ID)
		} else {
			return nil, err
		}
	}

	intent, err := s.gateway.CreatePaymentIntent(ctx, payments.CreateIntentParams{
		AmountCents:    booking.TotalPriceCents,
		Currency:       s.cfg.PlatformCurrency,
		Description:    fmt.Sprintf("Booking #%d (%s)", booking.ID, booking.ServiceType),
		IdempotencyKey: uuid.NewString(),
		Metadata: map[string]string{
			"booking_id": fmt.Sprintf("%d", booking.ID),
		},
	})
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)

	if _, err := txBookingRepo.SetPaymentIntent(ctx, booking.ID, intent.ID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Lost the race to another intent. Release the orphan.
			if cancelErr := s.gateway.CancelPaymentIntent(ctx, intent.ID); cancelErr != nil {
				log.Printf("payment: cancel orphaned intent %s: %v", intent.ID, cancelErr)
			}
			return nil, ErrConflict
		}
		return nil, err
	}

	_, err = txPaymentRepo.Create(ctx, repository.CreatePaymentInput{
		BookingID:             booking.ID,
		PayerID:               booking.OwnerID,
		ReceiverID:            booking.SitterID,
		AmountCents:           booking.TotalPriceCents,
		PlatformFeeCents:      platformFee,
		SitterPayoutCents:     sitterPayout,
		StripePaymentIntentID: intent.ID,
		Currency:              s.cfg.PlatformCurrency,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}

	return &PaymentIntentResult{
		BookingID:         booking.ID,
		PaymentIntentID:   intent.ID,
		ClientSecret:      intent.ClientSecret,
		AmountCents:       booking.TotalPriceCents,
		PlatformFeeCents:  platformFee,
		SitterPayoutCents: sitterPayout,
		Currency:          s.cfg.PlatformCurrency,
	}, nil
}

// CapturePayment confirms that the owner's charge went through and moves the
// escrow to held. The intent status is re-checked against the processor
// rather than trusting the client.
func (s *PaymentService) CapturePayment(ctx context.Context, ownerID, bookingID int64) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, ErrForbidden
	}
	if booking.PaymentStatus == models.PaymentStatusHeld {
		return booking, nil
	}
	if booking.PaymentStatus != models.PaymentStatusPending || booking.StripePaymentIntentID == nil {
		return nil, ErrInvalidStatus
	}

	intent, err := s.gateway.GetPaymentIntent(ctx, *booking.StripePaymentIntentID)
	if err != nil {
		return nil, err
	}
	if intent.Status != payments.IntentStatusSucceeded {
		return nil, ErrInvalidStatus
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	updated, err := applyPaymentHeld(ctx, tx, intent.ID, intent.LatestChargeID)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// applyPaymentHeld marks the escrow held for the booking that owns the
// intent. It is idempotent: a booking already past pending is left alone.
// Both the capture endpoint and the webhook consumer funnel through here.
func applyPaymentHeld(ctx context.Context, db repository.DBTX, intentID, chargeID string) (*models.Booking, error) {
	bookingRepo := repository.NewBookingRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	booking, err := bookingRepo.GetByPaymentIntentID(ctx, intentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	updated, err := bookingRepo.UpdatePaymentStatusIfCurrent(ctx, booking.ID, models.PaymentStatusPending, models.PaymentStatusHeld)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Already held, released, or refunded. Nothing to do.
			return booking, nil
		}
		return nil, err
	}

	if updated.Status == models.BookingStatusAccepted {
		confirmed, err := bookingRepo.UpdateStatusIfCurrent(ctx, updated.ID, models.BookingStatusAccepted, models.BookingStatusConfirmed)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
		if confirmed != nil {
			updated = confirmed
		}
	}

	payment, err := paymentRepo.GetByIntentID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if _, err := paymentRepo.UpdateStatusIfCurrent(ctx, payment.ID, models.PaymentRecordPending, models.PaymentRecordSucceeded); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}
	if chargeID != "" {
		if err := paymentRepo.AttachCharge(ctx, payment.ID, chargeID); err != nil {
			return nil, err
		}
	}

	for _, userID := range []int64{updated.OwnerID, updated.SitterID} {
		_, err := notificationRepo.Create(ctx, repository.CreateNotificationInput{
			UserID:    userID,
			Kind:      models.NotificationPaymentHeld,
			Title:     "Payment received",
			Body:      "Payment is held securely until the service completes.",
			BookingID: &updated.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	return updated, nil
}

// RefundBooking returns the owner's money. A pending intent is cancelled, a
// held one is refunded. Double refunds surface as a conflict.
func (s *PaymentService) RefundBooking(ctx context.Context, ownerID, bookingID int64, reason string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	switch booking.PaymentStatus {
	case models.PaymentStatusPending, models.PaymentStatusHeld:
	case models.PaymentStatusRefunded:
		return nil, ErrConflict
	default:
		return nil, ErrInvalidStatus
	}
	if booking.StripePaymentIntentID == nil {
		return nil, ErrInvalidStatus
	}

	if booking.PaymentStatus == models.PaymentStatusPending {
		if err := s.gateway.CancelPaymentIntent(ctx, *booking.StripePaymentIntentID); err != nil {
			return nil, err
		}
	} else {
		if _, err := s.gateway.RefundPaymentIntent(ctx, *booking.StripePaymentIntentID); err != nil {
			return nil, err
		}
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)

	updated, err := txBookingRepo.UpdatePaymentStatusIfCurrent(ctx, booking.ID, booking.PaymentStatus, models.PaymentStatusRefunded)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if updated.Status != models.BookingStatusCancelled {
		cancelled, err := txBookingRepo.CancelWithReason(ctx, updated.ID, reason, models.PaymentStatusRefunded)
		if err != nil {
			return nil, err
		}
		updated = cancelled
	}

	payment, err := txPaymentRepo.GetByBookingID(ctx, booking.ID)
	if err != nil {
		return nil, err
	}
	if _, err := txPaymentRepo.UpdateStatusIfCurrent(ctx, payment.ID, payment.Status, models.PaymentRecordRefunded); err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	}

	for _, userID := range []int64{updated.OwnerID, updated.SitterID} {
		_, err := txNotificationRepo.Create(ctx, repository.CreateNotificationInput{
			UserID:    userID,
			Kind:      models.NotificationBookingRefunded,
			Title:     "Booking refunded",
			Body:      "The booking was cancelled and the payment refunded.",
			BookingID: &updated.ID,
		})
		if err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// ReleaseBooking pays the sitter their share of a completed booking and moves
// the escrow to its terminal released state.
func (s *PaymentService) ReleaseBooking(ctx context.Context, bookingID int64) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txPaymentRepo := repository.NewPaymentRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)
	txConnectRepo := repository.NewConnectAccountRepository(tx)

	booking, err := txBookingRepo.GetByIDForUpdate(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.Status != models.BookingStatusCompleted || booking.PaymentStatus != models.PaymentStatusHeld {
		return nil, ErrInvalidStatus
	}

	payment, err := txPaymentRepo.GetByBookingIDForUpdate(ctx, booking.ID)
	if err != nil {
		return nil, err
	}

	account, err := txConnectRepo.GetByUserID(ctx, booking.SitterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPayoutsNotEnabled
		}
		return nil, err
	}
	if !account.PayoutsEnabled {
		return nil, ErrPayoutsNotEnabled
	}

	// Deterministic key so a crash between transfer and commit cannot pay
	// the sitter twice on retry.
	transferResult, err := s.gateway.CreateTransfer(ctx, payments.TransferParams{
		AmountCents:        payment.SitterPayoutCents,
		Currency:           payment.Currency,
		DestinationAccount: account.StripeAccountID,
		TransferGroup:      fmt.Sprintf("booking-%d", booking.ID),
		IdempotencyKey:     fmt.Sprintf("release-booking-%d", booking.ID),
	})
	if err != nil {
		return nil, err
	}

	updated, err := txBookingRepo.UpdatePaymentStatusIfCurrent(ctx, booking.ID, models.PaymentStatusHeld, models.PaymentStatusReleased)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrConflict
		}
		return nil, err
	}

	if err := txPaymentRepo.AttachTransfer(ctx, payment.ID, transferResult.ID); err != nil {
		return nil, err
	}

	_, err = txNotificationRepo.Create(ctx, repository.CreateNotificationInput{
		UserID:    updated.SitterID,
		Kind:      models.NotificationPaymentReleased,
		Title:     "Payout on the way",
		Body:      "Your earnings for this booking have been released.",
		BookingID: &updated.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

type ReleaseItemResult struct {
	BookingID int64  `json:"booking_id"`
	Released  bool   `json:"released"`
	Error     string `json:"error,omitempty"`
}

type ReleaseBatchResult struct {
	Total      int                 `json:"total"`
	Successful int                 `json:"successful"`
	Failed     int                 `json:"failed"`
	Results    []ReleaseItemResult `json:"results"`
}

// ReleaseEligible releases every held booking whose grace period has elapsed.
// One booking failing does not stop the rest.
func (s *PaymentService) ReleaseEligible(ctx context.Context) (*ReleaseBatchResult, error) {
	cutoff := time.Now().Add(-time.Duration(s.cfg.ReleaseGraceHours) * time.Hour)
	eligible, err := s.bookingRepo.ListEligibleForRelease(ctx, cutoff, 100)
	if err != nil {
		return nil, err
	}

	result := &ReleaseBatchResult{
		Total:   len(eligible),
		Results: make([]ReleaseItemResult, 0, len(eligible)),
	}
	for _, booking := range eligible {
		item := ReleaseItemResult{BookingID: booking.ID}
		if _, err := s.ReleaseBooking(ctx, booking.ID); err != nil {
			item.Error = err.Error()
			result.Failed++
			log.Printf("payment: release booking %d: %v", booking.ID, err)
		} else {
			item.Released = true
			result.Successful++
		}
		result.Results = append(result.Results, item)
	}
	return result, nil
}
