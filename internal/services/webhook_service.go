package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

// WebhookService applies Stripe events to local state. Processing is
// idempotent: each event id is consumed at most once, and every mutation is
// a compare-and-set, so redeliveries and out-of-order arrivals are harmless.
type WebhookService struct {
	db *pgxpool.Pool
}

func NewWebhookService(db *pgxpool.Pool) *WebhookService {
	return &WebhookService{db: db}
}

func (s *WebhookService) ProcessEvent(ctx context.Context, event stripe.Event) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txEventRepo := repository.NewProcessedEventRepository(tx)
	seen, err := txEventRepo.MarkProcessed(ctx, event.ID, string(event.Type))
	if err != nil {
		return err
	}
	if seen {
		log.Printf("webhook: event %s already processed, skipping", event.ID)
		return tx.Commit(ctx)
	}

	switch event.Type {
	case "payment_intent.succeeded":
		err = s.handleIntentSucceeded(ctx, tx, event)
	case "payment_intent.payment_failed":
		err = s.handleIntentFailed(ctx, tx, event)
	case "account.updated":
		err = s.handleAccountUpdated(ctx, tx, event)
	case "transfer.created":
		err = s.handleTransferCreated(ctx, tx, event)
	case "payout.paid", "payout.failed":
		log.Printf("webhook: acknowledged %s (%s)", event.Type, event.ID)
	default:
		log.Printf("webhook: ignoring unhandled event type %s (%s)", event.Type, event.ID)
	}
	if err != nil {
		return err
	}

	return tx.Commit(ctx)
}

func (s *WebhookService) handleIntentSucceeded(ctx context.Context, tx pgx.Tx, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}

	chargeID := ""
	if intent.LatestCharge != nil {
		chargeID = intent.LatestCharge.ID
	}

	if _, err := applyPaymentHeld(ctx, tx, intent.ID, chargeID); err != nil {
		if errors.Is(err, ErrNotFound) {
			// An intent we did not create, or a booking already purged.
			log.Printf("webhook: no booking for intent %s, skipping", intent.ID)
			return nil
		}
		return err
	}
	return nil
}

func (s *WebhookService) handleIntentFailed(ctx context.Context, tx pgx.Tx, event stripe.Event) error {
	var intent stripe.PaymentIntent
	if err := json.Unmarshal(event.Data.Raw, &intent); err != nil {
		return err
	}

	txPaymentRepo := repository.NewPaymentRepository(tx)
	payment, err := txPaymentRepo.GetByIntentID(ctx, intent.ID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("webhook: no payment for failed intent %s, skipping", intent.ID)
			return nil
		}
		return err
	}

	if _, err := txPaymentRepo.UpdateStatusIfCurrent(ctx, payment.ID, models.PaymentRecordPending, models.PaymentRecordFailed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil
		}
		return err
	}
	log.Printf("webhook: payment for intent %s marked failed", intent.ID)
	return nil
}

// handleTransferCreated reconciles the transfer id onto the payment row. The
// release path already stores it synchronously; this covers transfers made
// from the Stripe dashboard or a crash between transfer and commit.
func (s *WebhookService) handleTransferCreated(ctx context.Context, tx pgx.Tx, event stripe.Event) error {
	var tr stripe.Transfer
	if err := json.Unmarshal(event.Data.Raw, &tr); err != nil {
		return err
	}

	var bookingID int64
	if _, err := fmt.Sscanf(tr.TransferGroup, "booking-%d", &bookingID); err != nil || bookingID <= 0 {
		log.Printf("webhook: transfer %s has no booking group, skipping", tr.ID)
		return nil
	}

	txPaymentRepo := repository.NewPaymentRepository(tx)
	payment, err := txPaymentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("webhook: no payment for transfer group %s, skipping", tr.TransferGroup)
			return nil
		}
		return err
	}
	if payment.StripeTransferID != nil && *payment.StripeTransferID != "" {
		return nil
	}
	return txPaymentRepo.AttachTransfer(ctx, payment.ID, tr.ID)
}

func (s *WebhookService) handleAccountUpdated(ctx context.Context, tx pgx.Tx, event stripe.Event) error {
	var account stripe.Account
	if err := json.Unmarshal(event.Data.Raw, &account); err != nil {
		return err
	}

	verificationStatus := "pending"
	if account.DetailsSubmitted && account.ChargesEnabled && account.PayoutsEnabled {
		verificationStatus = "verified"
	} else if account.DetailsSubmitted {
		verificationStatus = "in_review"
	}

	txConnectRepo := repository.NewConnectAccountRepository(tx)
	_, err := txConnectRepo.UpdateFlags(ctx, account.ID,
		account.ChargesEnabled, account.PayoutsEnabled, account.DetailsSubmitted, verificationStatus)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			log.Printf("webhook: no local record for account %s, skipping", account.ID)
			return nil
		}
		return err
	}
	return nil
}
