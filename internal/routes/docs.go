package routes

import (
	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/config"
)

// RegisterDocs exposes a plain JSON index of the API surface. Only mounted in
// development with ENABLE_API_DOCS set.
func RegisterDocs(app *fiber.App, cfg *config.Config) {
	if !cfg.DocsEnabled() {
		return
	}

	app.Get("/docs", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"service": "paseo-backend",
			"auth": []string{
				"POST /api/auth/register",
				"POST /api/auth/login",
				"GET /api/auth/me",
			},
			"profiles": []string{
				"POST /api/v1/owners/onboarding",
				"GET /api/v1/owners/profile",
				"PUT /api/v1/owners/profile",
				"POST /api/v1/owners/profile/avatar",
				"POST /api/v1/sitters/onboarding",
				"GET /api/v1/sitters/profile",
				"PUT /api/v1/sitters/profile",
				"POST /api/v1/sitters/profile/avatar",
			},
			"discovery": []string{
				"GET /api/v1/sitters",
				"GET /api/v1/sitters/recommended",
				"GET /api/v1/sitters/liked",
				"GET /api/v1/sitters/:id",
				"GET /api/v1/sitters/:id/reviews",
				"POST /api/v1/swipes",
			},
			"pets": []string{
				"POST /api/v1/pets",
				"GET /api/v1/pets",
				"PUT /api/v1/pets/:id",
				"DELETE /api/v1/pets/:id",
				"POST /api/v1/pets/:id/photo",
			},
			"bookings": []string{
				"POST /api/v1/bookings",
				"GET /api/v1/bookings",
				"GET /api/v1/bookings/:id",
				"POST /api/v1/bookings/:id/accept",
				"POST /api/v1/bookings/:id/decline",
				"POST /api/v1/bookings/:id/start",
				"POST /api/v1/bookings/:id/complete",
				"POST /api/v1/bookings/:id/cancel",
			},
			"payments": []string{
				"POST /api/v1/bookings/:id/payment-intent",
				"POST /api/v1/bookings/:id/capture",
				"POST /api/v1/bookings/:id/refund",
				"POST /api/v1/payments/auto-release",
				"POST /api/webhooks/stripe",
			},
			"connect": []string{
				"POST /api/v1/connect/account",
				"POST /api/v1/connect/onboarding-link",
				"GET /api/v1/connect/status",
			},
			"payouts": []string{
				"GET /api/v1/payouts/balance",
				"POST /api/v1/payouts/requests",
				"GET /api/v1/payouts/requests",
				"PUT /api/v1/payouts/requests/:id/status",
			},
			"reviews": []string{
				"POST /api/v1/reviews",
			},
			"chat": []string{
				"POST /api/v1/conversations",
				"GET /api/v1/conversations",
				"GET /api/v1/conversations/:id/messages",
				"POST /api/v1/conversations/:id/messages",
				"GET /api/v1/ws?token=<jwt>",
			},
			"notifications": []string{
				"GET /api/v1/notifications",
				"POST /api/v1/notifications/:id/read",
				"POST /api/v1/notifications/read-all",
			},
		})
	})
}
