package services

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/aliattia10/paseo-backend/internal/config"
	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

var (
	testDBOnce sync.Once
	testDBPool *pgxpool.Pool
	testDBErr  error
)

// fakeGateway stands in for Stripe so the escrow flow can run against a real
// database without touching the network.
type fakeGateway struct {
	mu              sync.Mutex
	intents         map[string]*payments.Intent
	intentSeq       int
	transferSeq     int
	transfers       []payments.TransferParams
	failTransferFor map[string]error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{
		intents:         make(map[string]*payments.Intent),
		failTransferFor: make(map[string]error),
	}
}

func (g *fakeGateway) CreatePaymentIntent(_ context.Context, params payments.CreateIntentParams) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.intentSeq++
	intent := &payments.Intent{
		ID:           fmt.Sprintf("pi_test_%d", g.intentSeq),
		ClientSecret: fmt.Sprintf("pi_test_%d_secret", g.intentSeq),
		Status:       payments.IntentStatusRequiresPaymentMethod,
		AmountCents:  params.AmountCents,
		Currency:     params.Currency,
	}
	g.intents[intent.ID] = intent
	return intent, nil
}

func (g *fakeGateway) GetPaymentIntent(_ context.Context, intentID string) (*payments.Intent, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	intent, ok := g.intents[intentID]
	if !ok {
		return nil, &payments.ProcessorError{Code: "resource_missing", Message: "No such payment_intent"}
	}
	copied := *intent
	return &copied, nil
}

func (g *fakeGateway) CancelPaymentIntent(_ context.Context, intentID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = payments.IntentStatusCanceled
	}
	return nil
}

func (g *fakeGateway) RefundPaymentIntent(_ context.Context, intentID string) (*payments.RefundResult, error) {
	return &payments.RefundResult{ID: "re_test", Status: "succeeded"}, nil
}

func (g *fakeGateway) CreateTransfer(_ context.Context, params payments.TransferParams) (*payments.TransferResult, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.failTransferFor[params.DestinationAccount]; ok {
		return nil, err
	}
	g.transferSeq++
	g.transfers = append(g.transfers, params)
	return &payments.TransferResult{ID: fmt.Sprintf("tr_test_%d", g.transferSeq)}, nil
}

func (g *fakeGateway) CreateExpressAccount(_ context.Context, email, country string) (string, error) {
	return fmt.Sprintf("acct_test_%s", email), nil
}

func (g *fakeGateway) GetAccount(_ context.Context, accountID string) (*payments.AccountStatus, error) {
	return &payments.AccountStatus{ID: accountID, ChargesEnabled: true, PayoutsEnabled: true, DetailsSubmitted: true}, nil
}

func (g *fakeGateway) CreateOnboardingLink(_ context.Context, accountID, returnURL, refreshURL string) (*payments.OnboardingLink, error) {
	return &payments.OnboardingLink{URL: "https://connect.example/" + accountID, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// succeed marks the intent paid so capture can verify it against the gateway.
func (g *fakeGateway) succeed(intentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if intent, ok := g.intents[intentID]; ok {
		intent.Status = payments.IntentStatusSucceeded
		intent.LatestChargeID = "ch_" + intentID
	}
}

func TestPaymentServiceEscrowLifecycle(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 2000)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)
	connectTestSitter(t, ctx, pool, sitterID, true)

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)

	intentResult, err := paymentService.CreateIntent(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	if intentResult.PlatformFeeCents+intentResult.SitterPayoutCents != intentResult.AmountCents {
		t.Fatalf("fee split does not add up: %+v", intentResult)
	}
	if intentResult.PlatformFeeCents != booking.CommissionFeeCents {
		t.Fatalf("expected fee %d, got %d", booking.CommissionFeeCents, intentResult.PlatformFeeCents)
	}

	// A second intent for the same booking must conflict.
	if _, err := paymentService.CreateIntent(ctx, ownerID, booking.ID); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on second intent, got %v", err)
	}

	// Capture before the charge succeeds must be rejected by the re-check.
	if _, err := paymentService.CapturePayment(ctx, ownerID, booking.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus before charge, got %v", err)
	}

	gateway.succeed(intentResult.PaymentIntentID)
	held, err := paymentService.CapturePayment(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CapturePayment: %v", err)
	}
	if held.PaymentStatus != models.PaymentStatusHeld {
		t.Fatalf("expected held escrow, got %q", held.PaymentStatus)
	}
	if held.Status != models.BookingStatusConfirmed {
		t.Fatalf("expected confirmed booking after capture, got %q", held.Status)
	}

	// Capture again: idempotent, no state change.
	again, err := paymentService.CapturePayment(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CapturePayment repeat: %v", err)
	}
	if again.PaymentStatus != models.PaymentStatusHeld {
		t.Fatalf("expected held escrow on repeat, got %q", again.PaymentStatus)
	}

	if _, err := bookingService.StartBooking(ctx, sitterID, booking.ID); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	if _, err := bookingService.CompleteBooking(ctx, sitterID, booking.ID); err != nil {
		t.Fatalf("CompleteBooking: %v", err)
	}

	released, err := paymentService.ReleaseBooking(ctx, booking.ID)
	if err != nil {
		t.Fatalf("ReleaseBooking: %v", err)
	}
	if released.PaymentStatus != models.PaymentStatusReleased {
		t.Fatalf("expected released escrow, got %q", released.PaymentStatus)
	}
	if len(gateway.transfers) != 1 {
		t.Fatalf("expected one transfer, got %d", len(gateway.transfers))
	}
	if gateway.transfers[0].AmountCents != intentResult.SitterPayoutCents {
		t.Fatalf("expected transfer of %d, got %d", intentResult.SitterPayoutCents, gateway.transfers[0].AmountCents)
	}
	if gateway.transfers[0].IdempotencyKey != fmt.Sprintf("release-booking-%d", booking.ID) {
		t.Fatalf("unexpected idempotency key %q", gateway.transfers[0].IdempotencyKey)
	}

	// Released is terminal: refunds and repeat releases are rejected.
	if _, err := paymentService.RefundBooking(ctx, ownerID, booking.ID, "changed my mind"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus refunding released funds, got %v", err)
	}
	if _, err := paymentService.ReleaseBooking(ctx, booking.ID); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus releasing twice, got %v", err)
	}
}

func TestPaymentServiceDoubleRefundConflicts(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 1500)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)

	intentResult, err := paymentService.CreateIntent(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	gateway.succeed(intentResult.PaymentIntentID)
	if _, err := paymentService.CapturePayment(ctx, ownerID, booking.ID); err != nil {
		t.Fatalf("CapturePayment: %v", err)
	}

	refunded, err := paymentService.RefundBooking(ctx, ownerID, booking.ID, "sitter no-show")
	if err != nil {
		t.Fatalf("RefundBooking: %v", err)
	}
	if refunded.PaymentStatus != models.PaymentStatusRefunded {
		t.Fatalf("expected refunded escrow, got %q", refunded.PaymentStatus)
	}
	if refunded.Status != models.BookingStatusCancelled {
		t.Fatalf("expected cancelled booking, got %q", refunded.Status)
	}

	if _, err := paymentService.RefundBooking(ctx, ownerID, booking.ID, "again"); !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrConflict on double refund, got %v", err)
	}
}

func TestPaymentServiceRefundWithoutIntentIsRejected(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	paymentService := newIntegrationPaymentService(pool, newFakeGateway())
	bookingService := newIntegrationBookingService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	sitterID := createTestAccount(t, ctx, pool, "sitter", 1500)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, sitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)

	if _, err := paymentService.RefundBooking(ctx, ownerID, booking.ID, "no payment yet"); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("expected ErrInvalidStatus, got %v", err)
	}
}

func TestReleaseEligibleIsolatesFailures(t *testing.T) {
	ctx := context.Background()
	pool := integrationTestPool(t)
	gateway := newFakeGateway()
	paymentService := newIntegrationPaymentService(pool, gateway)
	bookingService := newIntegrationBookingService(pool)

	ownerID := createTestAccount(t, ctx, pool, "owner", 0)
	goodSitterID := createTestAccount(t, ctx, pool, "sitter", 1800)
	badSitterID := createTestAccount(t, ctx, pool, "sitter", 1800)
	t.Cleanup(func() { cleanupTestUsers(t, ctx, pool, ownerID, goodSitterID, badSitterID) })
	petID := createTestPet(t, ctx, pool, ownerID)
	connectTestSitter(t, ctx, pool, goodSitterID, true)
	badAccount := connectTestSitter(t, ctx, pool, badSitterID, true)
	gateway.failTransferFor[badAccount] = &payments.ProcessorError{Code: "account_invalid", Message: "destination account rejected"}

	goodBooking := heldCompletedBooking(t, ctx, pool, paymentService, bookingService, gateway, ownerID, goodSitterID, petID)
	badBooking := heldCompletedBooking(t, ctx, pool, paymentService, bookingService, gateway, ownerID, badSitterID, petID)

	// Push completion past the grace window.
	for _, id := range []int64{goodBooking.ID, badBooking.ID} {
		if _, err := pool.Exec(ctx, "UPDATE bookings SET completed_at = NOW() - INTERVAL '80 hours' WHERE id = $1", id); err != nil {
			t.Fatalf("backdate booking %d: %v", id, err)
		}
	}

	result, err := paymentService.ReleaseEligible(ctx)
	if err != nil {
		t.Fatalf("ReleaseEligible: %v", err)
	}
	if result.Total < 2 {
		t.Fatalf("expected at least 2 eligible bookings, got %d", result.Total)
	}

	outcomes := make(map[int64]ReleaseItemResult, len(result.Results))
	for _, item := range result.Results {
		outcomes[item.BookingID] = item
	}
	good, ok := outcomes[goodBooking.ID]
	if !ok || !good.Released {
		t.Fatalf("expected booking %d released, got %+v", goodBooking.ID, good)
	}
	bad, ok := outcomes[badBooking.ID]
	if !ok || bad.Released || bad.Error == "" {
		t.Fatalf("expected booking %d to fail with an error, got %+v", badBooking.ID, bad)
	}

	// The failed booking stays held and gets picked up on the next run.
	stillHeld, err := repository.NewBookingRepository(pool).GetByID(ctx, badBooking.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if stillHeld.PaymentStatus != models.PaymentStatusHeld {
		t.Fatalf("expected failed booking to stay held, got %q", stillHeld.PaymentStatus)
	}
}

func heldCompletedBooking(
	t *testing.T,
	ctx context.Context,
	pool *pgxpool.Pool,
	paymentService *PaymentService,
	bookingService *BookingService,
	gateway *fakeGateway,
	ownerID, sitterID, petID int64,
) *models.Booking {
	t.Helper()

	booking := createAcceptedBooking(t, ctx, bookingService, ownerID, sitterID, petID)
	intentResult, err := paymentService.CreateIntent(ctx, ownerID, booking.ID)
	if err != nil {
		t.Fatalf("CreateIntent: %v", err)
	}
	gateway.succeed(intentResult.PaymentIntentID)
	if _, err := paymentService.CapturePayment(ctx, ownerID, booking.ID); err != nil {
		t.Fatalf("CapturePayment: %v", err)
	}
	if _, err := bookingService.StartBooking(ctx, sitterID, booking.ID); err != nil {
		t.Fatalf("StartBooking: %v", err)
	}
	completed, err := bookingService.CompleteBooking(ctx, sitterID, booking.ID)
	if err != nil {
		t.Fatalf("CompleteBooking: %v", err)
	}
	return completed
}

var bookingSlot int64

// createAcceptedBooking books a fresh non-overlapping slot and has the sitter
// accept it.
func createAcceptedBooking(t *testing.T, ctx context.Context, bookingService *BookingService, ownerID, sitterID, petID int64) *models.Booking {
	t.Helper()

	bookingSlot++
	start := time.Now().Add(24 * time.Hour).Add(time.Duration(bookingSlot) * 2 * time.Hour).Truncate(time.Minute)
	booking, err := bookingService.CreateBooking(ctx, ownerID, CreateBookingInput{
		SitterID:    sitterID,
		PetID:       petID,
		ServiceType: models.ServiceTypeWalk,
		StartTime:   start,
		EndTime:     start.Add(time.Hour),
	})
	if err != nil {
		t.Fatalf("CreateBooking: %v", err)
	}

	accepted, err := bookingService.AcceptBooking(ctx, sitterID, booking.ID)
	if err != nil {
		t.Fatalf("AcceptBooking: %v", err)
	}
	return accepted
}

func integrationTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	testDBOnce.Do(func() {
		_ = godotenv.Load(".env")
		_ = godotenv.Load(filepath.Join("..", "..", ".env"))

		dbURL := os.Getenv("DB_URL")
		if dbURL == "" {
			testDBErr = fmt.Errorf("DB_URL is not set")
			return
		}

		cfg, err := pgxpool.ParseConfig(dbURL)
		if err != nil {
			testDBErr = err
			return
		}

		testDBPool, testDBErr = pgxpool.NewWithConfig(context.Background(), cfg)
		if testDBErr != nil {
			return
		}
		testDBErr = testDBPool.Ping(context.Background())
	})

	if testDBErr != nil {
		t.Skipf("skipping integration test: %v", testDBErr)
	}
	return testDBPool
}

func integrationTestConfig() *config.Config {
	return &config.Config{
		PlatformCurrency:   "eur",
		PlatformCountry:    "ES",
		PlatformFeePercent: 20,
		ReleaseGraceHours:  72,
	}
}

func newIntegrationPaymentService(pool *pgxpool.Pool, gateway payments.Gateway) *PaymentService {
	return NewPaymentService(
		pool,
		integrationTestConfig(),
		gateway,
		repository.NewBookingRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewConnectAccountRepository(pool),
	)
}

func newIntegrationBookingService(pool *pgxpool.Pool) *BookingService {
	return NewBookingService(
		pool,
		repository.NewBookingRepository(pool),
		repository.NewPaymentRepository(pool),
		repository.NewSitterProfileRepository(pool),
		repository.NewPetRepository(pool),
	)
}

func createTestAccount(t *testing.T, ctx context.Context, pool *pgxpool.Pool, role string, hourlyRateCents int64) int64 {
	t.Helper()

	userRepo := repository.NewUserRepository(pool)
	user := &models.User{
		Email:        fmt.Sprintf("escrow-test-%s-%d@example.com", role, time.Now().UnixNano()),
		PasswordHash: "test-hash",
		Role:         role,
	}
	if err := userRepo.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser(%s): %v", role, err)
	}

	if role == "owner" {
		ownerProfileRepo := repository.NewOwnerProfileRepository(pool)
		if err := ownerProfileRepo.CreateEmpty(ctx, user.ID); err != nil {
			t.Fatalf("CreateEmpty owner profile: %v", err)
		}
		return user.ID
	}

	sitterProfileRepo := repository.NewSitterProfileRepository(pool)
	if err := sitterProfileRepo.CreateEmpty(ctx, user.ID); err != nil {
		t.Fatalf("CreateEmpty sitter profile: %v", err)
	}
	if _, err := sitterProfileRepo.UpdateOnboarding(ctx, user.ID, repository.SitterOnboardingInput{
		FullName:        "Test Sitter",
		Bio:             "Test Bio",
		City:            "Madrid",
		Services:        []string{"walk", "care"},
		AcceptedPets:    []string{"dog", "cat"},
		HourlyRateCents: hourlyRateCents,
	}); err != nil {
		t.Fatalf("UpdateOnboarding sitter profile: %v", err)
	}

	return user.ID
}

func createTestPet(t *testing.T, ctx context.Context, pool *pgxpool.Pool, ownerID int64) int64 {
	t.Helper()

	pet, err := repository.NewPetRepository(pool).Create(ctx, repository.CreatePetInput{
		OwnerID: ownerID,
		Name:    "Rex",
		Species: "dog",
	})
	if err != nil {
		t.Fatalf("Create pet: %v", err)
	}
	return pet.ID
}

// connectTestSitter gives the sitter a payout account. Returns the fake Stripe
// account id so tests can target it on the gateway.
func connectTestSitter(t *testing.T, ctx context.Context, pool *pgxpool.Pool, sitterID int64, payoutsEnabled bool) string {
	t.Helper()

	connectRepo := repository.NewConnectAccountRepository(pool)
	accountID := fmt.Sprintf("acct_test_%d", sitterID)
	if _, err := connectRepo.Create(ctx, sitterID, accountID); err != nil {
		t.Fatalf("Create connect account: %v", err)
	}
	if _, err := connectRepo.UpdateFlags(ctx, accountID, payoutsEnabled, payoutsEnabled, payoutsEnabled, "verified"); err != nil {
		t.Fatalf("UpdateFlags: %v", err)
	}
	return accountID
}

func cleanupTestUsers(t *testing.T, ctx context.Context, pool *pgxpool.Pool, userIDs ...int64) {
	t.Helper()

	if len(userIDs) == 0 {
		return
	}

	if _, err := pool.Exec(ctx, "DELETE FROM users WHERE id = ANY($1)", userIDs); err != nil {
		t.Fatalf("cleanup users: %v", err)
	}
}
