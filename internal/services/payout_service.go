package services

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

// Advisory lock class for payout balance checks, distinct from the booking
// lock space.
const payoutLockClass = 2

type PayoutService struct {
	db          *pgxpool.Pool
	paymentRepo *repository.PaymentRepository
	payoutRepo  *repository.PayoutRequestRepository
	connectRepo connectAccountReader
}

func NewPayoutService(
	db *pgxpool.Pool,
	paymentRepo *repository.PaymentRepository,
	payoutRepo *repository.PayoutRequestRepository,
	connectRepo connectAccountReader,
) *PayoutService {
	return &PayoutService{
		db:          db,
		paymentRepo: paymentRepo,
		payoutRepo:  payoutRepo,
		connectRepo: connectRepo,
	}
}

type BalanceResult struct {
	EarnedCents    int64 `json:"earned_cents"`
	RequestedCents int64 `json:"requested_cents"`
	AvailableCents int64 `json:"available_cents"`
}

func (s *PayoutService) Balance(ctx context.Context, sitterID int64) (*BalanceResult, error) {
	earned, err := s.paymentRepo.SumReleasedForSitter(ctx, sitterID)
	if err != nil {
		return nil, err
	}
	requested, err := s.payoutRepo.SumRequested(ctx, sitterID)
	if err != nil {
		return nil, err
	}
	return &BalanceResult{
		EarnedCents:    earned,
		RequestedCents: requested,
		AvailableCents: earned - requested,
	}, nil
}

type RequestPayoutInput struct {
	AmountCents   int64
	PayoutMethod  string
	PayoutDetails string
}

// RequestPayout records a withdrawal claim against the sitter's released
// earnings. The balance check and insert run under one advisory lock so two
// concurrent requests cannot both pass it, and at most one request may be
// pending at a time.
func (s *PayoutService) RequestPayout(ctx context.Context, sitterID int64, input RequestPayoutInput) (*models.PayoutRequest, error) {
	if input.AmountCents <= 0 {
		return nil, ErrInvalidInput
	}
	method := strings.TrimSpace(input.PayoutMethod)
	if method != models.PayoutMethodPaypal && method != models.PayoutMethodBank {
		return nil, ErrInvalidInput
	}
	input.PayoutMethod = method

	account, err := s.connectRepo.GetByUserID(ctx, sitterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPayoutsNotEnabled
		}
		return nil, err
	}
	if !account.PayoutsEnabled {
		return nil, ErrPayoutsNotEnabled
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1, $2)", payoutLockClass, sitterID); err != nil {
		return nil, err
	}

	txPaymentRepo := repository.NewPaymentRepository(tx)
	txPayoutRepo := repository.NewPayoutRequestRepository(tx)

	hasPending, err := txPayoutRepo.HasPending(ctx, sitterID)
	if err != nil {
		return nil, err
	}
	if hasPending {
		return nil, ErrConflict
	}

	earned, err := txPaymentRepo.SumReleasedForSitter(ctx, sitterID)
	if err != nil {
		return nil, err
	}
	requested, err := txPayoutRepo.SumRequested(ctx, sitterID)
	if err != nil {
		return nil, err
	}
	if input.AmountCents > earned-requested {
		return nil, ErrInsufficientBalance
	}

	request, err := txPayoutRepo.Create(ctx, repository.CreatePayoutRequestInput{
		SitterID:      sitterID,
		AmountCents:   input.AmountCents,
		PayoutMethod:  input.PayoutMethod,
		PayoutDetails: input.PayoutDetails,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return request, nil
}

func (s *PayoutService) ListRequests(ctx context.Context, sitterID int64) ([]models.PayoutRequest, error) {
	return s.payoutRepo.ListBySitter(ctx, sitterID)
}

// UpdateStatus advances a payout request along pending -> processing ->
// completed. Any other transition is rejected.
func (s *PayoutService) UpdateStatus(ctx context.Context, requestID int64, nextStatus string) (*models.PayoutRequest, error) {
	var currentStatus string
	switch nextStatus {
	case models.PayoutStatusProcessing:
		currentStatus = models.PayoutStatusPending
	case models.PayoutStatusCompleted:
		currentStatus = models.PayoutStatusProcessing
	default:
		return nil, ErrInvalidStatus
	}

	request, err := s.payoutRepo.UpdateStatusIfCurrent(ctx, requestID, currentStatus, nextStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	notificationRepo := repository.NewNotificationRepository(s.db)
	_, err = notificationRepo.Create(ctx, repository.CreateNotificationInput{
		UserID: request.SitterID,
		Kind:   models.NotificationPayoutUpdated,
		Title:  "Payout update",
		Body:   "Your payout request is now " + nextStatus + ".",
	})
	if err != nil {
		return nil, err
	}
	return request, nil
}
