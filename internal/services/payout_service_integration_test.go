package services

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

func newIntegrationPayoutService(pool *pgxpool.Pool) *PayoutService {
	return NewPayoutService(
		pool,
		repository.NewPaymentRepository(pool),
		repository.NewPayoutRequestRepository(pool),
		repository.NewConnectAccountRepository(pool),
	)
}

// releasedEarnings runs a booking through the full escrow flow so the sitter
// has withdrawable balance.
func releasedEarnings(t *testing.T, ctx context.Context, pool *pgxpool.Pool, ownerID, sitterID, petID int64) int64 {
	t.Helper()

	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)

	booking := heldCompletedBooking(t, ctx, pool, paymentService, bookingService, gateway, ownerID, sitterID, petID)
	released, err := paymentService.ReleaseBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("ReleaseBooking: %v", err)
	}

	payment, err := repository.NewPaymentRepository(pool).GetByBookingID(ctx, released.ID)
	if err != nil {
		t.Fatalf("GetByBookingID: %v", err)
	}
	return payment.SitterPayoutCents
}

func TestPayoutRequestLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	payoutService := newIntegrationPayoutService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 2000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)
	connectTestSitter(t, ctx, pool, sitterID, true)

	earned := releasedEarnings(t, ctx, pool, ownerID, sitterID, petID)

	balance, err := payoutService.Balance(ctx, sitterID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.EarnedCents != earned || balance.AvailableCents != earned {
		t.Fatalf("expected balance %d, got %+v", earned, balance)
	}

	// More than the balance is rejected.
	if _, err := payoutService.RequestPayout(ctx, sitterID, RequestPayoutInput{
		AmountCents:   earned + 1,
		PayoutMethod:  "bank",
		PayoutDetails: "ES91",
	}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("expected ErrInsufficientBalance, got %v", err)
	}

	request, err := payoutService.RequestPayout(ctx, sitterID, RequestPayoutInput{
		AmountCents:   earned / 2,
		PayoutMethod:  "bank",
		PayoutDetails: "ES91",
	})
	if err != nil {
		t.Fatalf("RequestPayout: %v", err)
	}
	if request.Status != models.PayoutStatusPending {
		t.Fatalf("expected pending request, got %q", request.Status)
	}

	// Only one request may be in flight.
	if _, err := payoutService.RequestPayout(ctx, sitterID, RequestPayoutInput{
		AmountCents:   100,
		PayoutMethod:  "bank",
		PayoutDetails: "ES91",
	}); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second pending request, got %v", err)
	}

	// A pending request claims its amount from the available balance.
	balance, err = payoutService.Balance(ctx, sitterID)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if balance.AvailableCents != earned-request.AmountCents {
		t.Fatalf("expected available %d, got %d", earned-request.AmountCents, balance.AvailableCents)
	}

	// pending -> processing -> completed; skipping a step is rejected.
	if _, err := payoutService.UpdateStatus(ctx, request.ID, models.PayoutStatusCompleted); !errors.Is(err, ErrInvalidStateTransition) {
		t.Fatalf("expected ErrInvalidStateTransition, got %v", err)
	}
	processing, err := payoutService.UpdateStatus(ctx, request.ID, models.PayoutStatusProcessing)
	if err != nil {
		t.Fatalf("UpdateStatus processing: %v", err)
	}
	if processing.Status != models.PayoutStatusProcessing {
		t.Fatalf("expected processing, got %q", processing.Status)
	}
	completed, err := payoutService.UpdateStatus(ctx, request.ID, models.PayoutStatusCompleted)
	if err != nil {
		t.Fatalf("UpdateStatus completed: %v", err)
	}
	if completed.ProcessedAt == nil {
		t.Fatalf("expected processed_at on completion, got %+v", completed)
	}
}

func TestRequestPayoutWithoutConnectAccount(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	payoutService := newIntegrationPayoutService(pool)

	sitterID := createTestAccount(t, ctx, pool, "sitter", 2000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, sitterID) })

	if _, err := payoutService.RequestPayout(ctx, sitterID, RequestPayoutInput{
		AmountCents:   100,
		PayoutMethod:  "bank",
		PayoutDetails: "ES91",
	}); !errors.Is(err, ErrPayoutsNotEnabled) {
		t.Fatalf("expected ErrPayoutsNotEnabled, got %v", err)
	}
}
