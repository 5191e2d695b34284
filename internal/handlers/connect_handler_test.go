package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/services"
)

type stubConnectService struct {
	accountResult  *models.StripeConnectAccount
	accountErr     error
	linkResult     *payments.OnboardingLink
	linkErr        error
	statusResult   *models.StripeConnectAccount
	statusErr      error
	createCalls    int
	lastUserID     int64
	lastReturnURL  string
	lastRefreshURL string
}

func (s *stubConnectService) CreateAccount(_ context.Context, userID int64) (*models.StripeConnectAccount, error) {
	s.createCalls++
	s.lastUserID = userID
	return s.accountResult, s.accountErr
}

func (s *stubConnectService) CreateOnboardingLink(_ context.Context, userID int64, returnURL, refreshURL string) (*payments.OnboardingLink, error) {
	s.lastUserID = userID
	s.lastReturnURL = returnURL
	s.lastRefreshURL = refreshURL
	return s.linkResult, s.linkErr
}

func (s *stubConnectService) GetStatus(_ context.Context, userID int64) (*models.StripeConnectAccount, error) {
	s.lastUserID = userID
	return s.statusResult, s.statusErr
}

func newConnectTestApp(service *stubConnectService, userID, role string) *fiber.App {
	handler := &ConnectHandler{service: service}

	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("user_id", userID)
		c.Locals("role", role)
		return c.Next()
	})
	app.Post("/api/v1/connect/account", handler.CreateAccount)
	app.Post("/api/v1/connect/onboarding-link", handler.CreateOnboardingLink)
	app.Get("/api/v1/connect/status", handler.GetStatus)
	return app
}

func TestCreateConnectAccountReturnsAccount(t *testing.T) {
	service := &stubConnectService{
		accountResult: &models.StripeConnectAccount{
			ID:              5,
			UserID:          7,
			StripeAccountID: "acct_123",
		},
	}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/account", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d", resp.StatusCode)
	}
	if service.lastUserID != 7 {
		t.Fatalf("expected user id 7, got %d", service.lastUserID)
	}

	var body struct {
		Account models.StripeConnectAccount `json:"account"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body.Account.StripeAccountID != "acct_123" {
		t.Fatalf("expected acct_123, got %q", body.Account.StripeAccountID)
	}
}

func TestCreateConnectAccountIsRepeatable(t *testing.T) {
	service := &stubConnectService{
		accountResult: &models.StripeConnectAccount{ID: 5, UserID: 7, StripeAccountID: "acct_123"},
	}
	app := newConnectTestApp(service, "7", "sitter")

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/account", nil)
		resp, err := app.Test(req)
		if err != nil {
			t.Fatalf("app.Test: %v", err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("expected 201 on call %d, got %d", i+1, resp.StatusCode)
		}
	}
	if service.createCalls != 2 {
		t.Fatalf("expected 2 service calls, got %d", service.createCalls)
	}
}

func TestCreateConnectAccountRejectsOwnerRole(t *testing.T) {
	service := &stubConnectService{}
	app := newConnectTestApp(service, "42", "owner")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/account", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.StatusCode)
	}
	if service.createCalls != 0 {
		t.Fatalf("expected no service call, got %d", service.createCalls)
	}
}

func TestCreateOnboardingLinkReturnsURL(t *testing.T) {
	expires := time.Date(2026, 9, 1, 12, 0, 0, 0, time.UTC)
	service := &stubConnectService{
		linkResult: &payments.OnboardingLink{URL: "https://connect.stripe.com/setup/s/abc", ExpiresAt: expires},
	}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/onboarding-link", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var body map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if body["url"] != "https://connect.stripe.com/setup/s/abc" {
		t.Fatalf("expected onboarding url, got %q", body["url"])
	}
}

func TestCreateOnboardingLinkForwardsURLOverrides(t *testing.T) {
	service := &stubConnectService{
		linkResult: &payments.OnboardingLink{URL: "https://connect.stripe.com/setup/s/abc"},
	}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/onboarding-link", strings.NewReader(`{
		"return_url": "https://paseo.app/connect/done",
		"refresh_url": "https://paseo.app/connect/retry"
	}`))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastReturnURL != "https://paseo.app/connect/done" {
		t.Fatalf("expected return url override, got %q", service.lastReturnURL)
	}
	if service.lastRefreshURL != "https://paseo.app/connect/retry" {
		t.Fatalf("expected refresh url override, got %q", service.lastRefreshURL)
	}
}

func TestCreateOnboardingLinkWithoutBodyUsesDefaults(t *testing.T) {
	service := &stubConnectService{
		linkResult: &payments.OnboardingLink{URL: "https://connect.stripe.com/setup/s/abc"},
	}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/onboarding-link", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if service.lastReturnURL != "" || service.lastRefreshURL != "" {
		t.Fatalf("expected empty overrides, got %q %q", service.lastReturnURL, service.lastRefreshURL)
	}
}

func TestCreateOnboardingLinkRejectsMalformedBody(t *testing.T) {
	service := &stubConnectService{}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/onboarding-link", strings.NewReader(`{"return_url": `))
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func TestCreateOnboardingLinkWithoutAccountIsNotFound(t *testing.T) {
	service := &stubConnectService{linkErr: services.ErrNotFound}
	app := newConnectTestApp(service, "7", "sitter")

	req := httptest.NewRequest(http.MethodPost, "/api/v1/connect/onboarding-link", nil)

	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
