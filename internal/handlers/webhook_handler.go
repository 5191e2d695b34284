package handlers

import (
	"context"
	"log"

	"github.com/gofiber/fiber/v2"
	stripe "github.com/stripe/stripe-go/v82"

	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type webhookProcessor interface {
	ProcessEvent(ctx context.Context, event stripe.Event) error
}

// WebhookHandler receives Stripe event deliveries. The route is mounted
// without auth middleware; the signature check is the authentication.
type WebhookHandler struct {
	service  webhookProcessor
	verifier payments.SignatureVerifier
	secret   string
}

func NewWebhookHandler(service *services.WebhookService, secret string) *WebhookHandler {
	return &WebhookHandler{
		service:  service,
		verifier: payments.VerifySignature,
		secret:   secret,
	}
}

func (h *WebhookHandler) HandleStripeEvent(c *fiber.Ctx) error {
	event, err := h.verifier(c.Body(), c.Get("Stripe-Signature"), h.secret)
	if err != nil {
		log.Printf("webhook: signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid signature"})
	}

	if err := h.service.ProcessEvent(c.Context(), event); err != nil {
		// Non-2xx makes Stripe redeliver; processing is idempotent so a
		// retry is safe.
		log.Printf("webhook: process event %s: %v", event.ID, err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "Failed to process event"})
	}

	return c.JSON(fiber.Map{"received": true})
}
