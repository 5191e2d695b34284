package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type stubPaymentService struct {
	intentResult  *services.PaymentIntentResult
	intentErr     error
	captureResult *models.Booking
	captureErr    error
	refundResult  *models.Booking
	refundErr     error
	releaseResult *services.ReleaseBatchResult
	releaseErr    error
	lastOwnerID   int64
	lastBookingID int64
	lastReason    string
}

func (s *stubPaymentService) CreateIntent(_ context.Context, ownerID, bookingID int64) (*services.PaymentIntentResult, error) {
	s.lastOwnerID = ownerID
	s.lastBookingID = bookingID
	return s.intentResult, s.intentErr
}

func (s *stubPaymentService) CapturePayment(_ context.Context, ownerID, bookingID int64) (*models.Booking, error) {
	s.lastOwnerID = ownerID
	s.lastBookingID = bookingID
	return s.captureResult, s.captureErr
}

func (s *stubPaymentService) RefundBooking(_ context.Context, ownerID, bookingID int64, reason string) (*models.Booking, error) {
	s.lastOwnerID = ownerID
	s.lastBookingID = bookingID
	s.lastReason = reason
	return s.refundResult, s.refundErr
}

func (s *stubPaymentService) ReleaseEligible(_ context.Context) (*services.ReleaseBatchResult, error) {
	return s.releaseResult, s.releaseErr
}

func newPaymentTestApp(service *stubPaymentService, userID, role string) *fiber.App {
	handler := &PaymentHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	app.Post("/api/v1/bookings/:id/payment-intent", handler.CreateIntent)
	app.Post("/api/v1/bookings/:id/capture", handler.CapturePayment)
	app.Post("/api/v1/bookings/:id/refund", handler.RefundBooking)
	app.Post("/api/v1/payments/auto-release", handler.ReleaseEligible)
	return app
}

func TestCreateIntentReturnsFeeSplit(t *testing.T) {
	service := &stubPaymentService{
		intentResult: &services.PaymentIntentResult{
			BookingID:         31,
			PaymentIntentID:   "pi_123",
			ClientSecret:      "pi_123_secret",
			AmountCents:       3000,
			PlatformFeeCents:  600,
			SitterPayoutCents: 2400,
			Currency:          "eur",
		},
	}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/payment-intent", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastOwnerID != 42 || service.lastBookingID != 31 {
		t.Fatalf("unexpected args: owner=%d booking=%d", service.lastOwnerID, service.lastBookingID)
	}

	var body struct {
		Payment services.PaymentIntentResult `json:"payment"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Payment.ClientSecret != "pi_123_secret" {
		t.Fatalf("expected client secret in response, got %+v", body.Payment)
	}
	if body.Payment.PlatformFeeCents+body.Payment.SitterPayoutCents != body.Payment.AmountCents {
		t.Fatalf("fee split does not add up: %+v", body.Payment)
	}
}

func TestCreateIntentRejectsSitterRole(t *testing.T) {
	service := &stubPaymentService{}
	app := newPaymentTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/payment-intent", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
}

func TestCreateIntentMapsExistingIntentToConflict(t *testing.T) {
	service := &stubPaymentService{intentErr: services.ErrConflict}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/payment-intent", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
}

func TestCreateIntentSurfacesProcessorError(t *testing.T) {
	service := &stubPaymentService{
		intentErr: &payments.ProcessorError{Code: "card_declined", Message: "Your card was declined."},
	}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/payment-intent", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if !strings.Contains(body["error"], "declined") {
		t.Fatalf("expected processor message in body, got %q", body["error"])
	}
}

func TestCapturePaymentReturnsHeldBooking(t *testing.T) {
	service := &stubPaymentService{
		captureResult: &models.Booking{ID: 31, Status: "confirmed", PaymentStatus: "held"},
	}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/capture", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body struct {
		Booking models.Booking `json:"booking"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Booking.PaymentStatus != "held" {
		t.Fatalf("expected held payment status, got %q", body.Booking.PaymentStatus)
	}
}

func TestRefundBookingMapsDoubleRefundToConflict(t *testing.T) {
	service := &stubPaymentService{refundErr: services.ErrConflict}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/refund", strings.NewReader(`{"reason": "sitter no-show"}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("expected 409, got %d", resp.StatusCode)
	}
	if service.lastReason != "sitter no-show" {
		t.Fatalf("expected reason to reach service, got %q", service.lastReason)
	}
}

func TestReleaseEligibleReportsPartialFailure(t *testing.T) {
	service := &stubPaymentService{
		releaseResult: &services.ReleaseBatchResult{
			Total:      2,
			Successful: 1,
			Failed:     1,
			Results: []services.ReleaseItemResult{
				{BookingID: 31, Released: true},
				{BookingID: 32, Released: false, Error: "transfer failed"},
			},
		},
	}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/payments/auto-release", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 despite per-item failure, got %d", resp.StatusCode)
	}
	var body services.ReleaseBatchResult
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Total != 2 || body.Successful != 1 || body.Failed != 1 {
		t.Fatalf("unexpected counts: %+v", body)
	}
	if len(body.Results) != 2 || body.Results[1].Error == "" {
		t.Fatalf("expected per-item errors in results, got %+v", body.Results)
	}
}

func TestRefundBookingRejectsMalformedBody(t *testing.T) {
	service := &stubPaymentService{}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/refund", strings.NewReader(`{"reason": `))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
	if service.lastBookingID != 0 {
		t.Fatalf("expected no service call, got booking %d", service.lastBookingID)
	}
}

func TestRefundBookingRejectsReleasedFunds(t *testing.T) {
	service := &stubPaymentService{refundErr: services.ErrInvalidStatus}
	app := newPaymentTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/bookings/31/refund", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}
