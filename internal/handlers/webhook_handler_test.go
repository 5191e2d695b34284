package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v82"
)

type stubWebhookService struct {
	processErr error
	calls      int
	lastEvent  stripe.Event
}

func (s *stubWebhookService) ProcessEvent(_ context.Context, event stripe.Event) error {
	s.calls++
	s.lastEvent = event
	return s.processErr
}

func newWebhookTestApp(service *stubWebhookService, verifyErr error) *fiber.App {
	handler := &WebhookHandler{
		service: service,
		secret:  "whsec_test",
		verifier: func(payload []byte, sigHeader, secret string) (stripe.Event, error) {
			if verifyErr != nil {
				return stripe.Event{}, verifyErr
			}
			var event stripe.Event
			if err := json.Unmarshal(payload, &event); err != nil {
				return stripe.Event{}, err
			}
			return event, nil
		},
	}

	app := fiber.New()
	app.Post("/api/webhooks/stripe", handler.HandleStripeEvent)
	return app
}

func TestHandleStripeEventRejectsInvalidSignature(t *testing.T) {
	service := &stubWebhookService{}
	app := newWebhookTestApp(service, errors.New("signature mismatch"))

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{"id": "evt_1"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=bogus")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.calls != 0 {
		t.Fatalf("expected no processing on bad signature, got %d calls", service.calls)
	}
}

func TestHandleStripeEventAcknowledgesVerifiedEvent(t *testing.T) {
	service := &stubWebhookService{}
	app := newWebhookTestApp(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{
		"id": "evt_1",
		"type": "payment_intent.succeeded"
	}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=valid")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.calls != 1 {
		t.Fatalf("expected one processing call, got %d", service.calls)
	}
	if service.lastEvent.ID != "evt_1" {
		t.Fatalf("expected event id evt_1, got %q", service.lastEvent.ID)
	}

	var body map[string]bool
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !body["received"] {
		t.Fatalf("expected received ack, got %v", body)
	}
}

func TestHandleStripeEventReturnsServerErrorSoStripeRetries(t *testing.T) {
	service := &stubWebhookService{processErr: errors.New("db unavailable")}
	app := newWebhookTestApp(service, nil)

	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/stripe", strings.NewReader(`{"id": "evt_2", "type": "account.updated"}`))
	req.Header.Set("Stripe-Signature", "t=1,v1=valid")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
}
