package services

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	stripe "github.com/stripe/stripe-go/v82"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

func intentSucceededEvent(eventID, intentID, chargeID string) stripe.Event {
	raw, _ := json.Marshal(map[string]any{
		"id":            intentID,
		"status":        "succeeded",
		"latest_charge": map[string]any{"id": chargeID},
	})
	return stripe.Event{
		ID:   eventID,
		Type: "payment_intent.succeeded",
		Data: &stripe.EventData{Raw: raw},
	}
}

func TestWebhookIntentSucceededHoldsEscrow(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)
	webhookService := NewWebhookService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 1600)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)
	intentResult, err := paymentService.CreateIntent(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	eventID := fmt.Sprintf("evt_test_%d", time.Now().UnixNano())
	event := intentSucceededEvent(eventID, intentResult.PaymentIntentID, "ch_test_1")
	if err := webhookService.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	updated, err := repository.NewBookingRepository(pool).GetByID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if updated.PaymentStatus != models.PaymentStatusHeld {
		t.Fatalf("expected held escrow after webhook, got %q", updated.PaymentStatus)
	}
	if updated.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking, got %q", updated.Status)
	}

	payment, err := repository.NewPaymentRepository(pool).GetByBookingID(ctx, booking.ID)
	if err != nil {
		t.Fatalf("GetByBookingID: %v", err)
	}
	if payment.Status != models.PaymentRecordSucceeded {
		t.Fatalf("expected succeeded payment record, got %q", payment.Status)
	}
	if payment.StripeChargeID == nil || *payment.StripeChargeID != "ch_test_1" {
		t.Fatalf("expected charge id attached, got %v", payment.StripeChargeID)
	}
}

func TestWebhookRedeliveryIsDropped(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)
	webhookService := NewWebhookService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 1600)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)
	intentResult, err := paymentService.CreateIntent(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}

	eventID := fmt.Sprintf("evt_test_%d", time.Now().UnixNano())
	event := intentSucceededEvent(eventID, intentResult.PaymentIntentID, "ch_test_2")
	if err := webhookService.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent: %v", err)
	}

	notificationRepo := repository.NewNotificationRepository(pool)
	before, err := notificationRepo.CountUnread(ctx, sitterID)
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}

	// Same event id again: consumed without reapplying side effects.
	if err := webhookService.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("ProcessEvent redelivery: %v", err)
	}

	after, err := notificationRepo.CountUnread(ctx, sitterID)
	if err != nil {
		t.Fatalf("CountUnread: %v", err)
	}
	if after != before {
		t.Fatalf("expected no new notifications on redelivery, had %d now %d", before, after)
	}
}

func TestWebhookUnknownIntentIsSkipped(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	webhookService := NewWebhookService(pool)

	eventID := fmt.Sprintf("evt_test_%d", time.Now().UnixNano())
	event := intentSucceededEvent(eventID, "pi_unknown_intent", "")
	if err := webhookService.ProcessEvent(ctx, event); err != nil {
		t.Fatalf("expected unknown intent to be skipped, got %v", err)
	}
}
