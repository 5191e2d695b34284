package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/config"
	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/payments"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

type userReader interface {
	GetByID(ctx context.Context, id int64) (*models.User, error)
}

type ConnectService struct {
	db          *pgxpool.Pool
	cfg         *config.Config
	gateway     payments.Gateway
	userRepo    userReader
	connectRepo *repository.ConnectAccountRepository
}

func NewConnectService(
	db *pgxpool.Pool,
	cfg *config.Config,
	gateway payments.Gateway,
	userRepo userReader,
	connectRepo *repository.ConnectAccountRepository,
) *ConnectService {
	return &ConnectService{
		db:          db,
		cfg:         cfg,
		gateway:     gateway,
		userRepo:    userRepo,
		connectRepo: connectRepo,
	}
}

// CreateAccount provisions an Express account for a sitter. Calling it again
// returns the existing account instead of creating a duplicate.
func (s *ConnectService) CreateAccount(ctx context.Context, userID int64) (*models.StripeConnectAccount, error) {
	existing, err := s.connectRepo.GetByUserID(ctx, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if user.Role != "sitter" {
		return nil, ErrForbidden
	}

	accountID, err := s.gateway.CreateExpressAccount(ctx, user.Email, s.cfg.PlatformCountry)
	if err != nil {
		return nil, err
	}

	account, err := s.connectRepo.Create(ctx, userID, accountID)
	if err != nil {
		// A concurrent request may have created the row first. The Stripe
		// side tolerates the extra account; the first row wins locally.
		existing, getErr := s.connectRepo.GetByUserID(ctx, userID)
		if getErr == nil {
			return existing, nil
		}
		return nil, err
	}
	return account, nil
}

// CreateOnboardingLink mints a fresh Stripe-hosted onboarding URL. Callers may
// override the return and refresh URLs; empty values fall back to the
// configured defaults.
func (s *ConnectService) CreateOnboardingLink(ctx context.Context, userID int64, returnURL, refreshURL string) (*payments.OnboardingLink, error) {
	account, err := s.connectRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	if returnURL == "" {
		returnURL = s.cfg.ConnectReturnURL
	}
	if refreshURL == "" {
		refreshURL = s.cfg.ConnectRefreshURL
	}

	link, err := s.gateway.CreateOnboardingLink(ctx, account.StripeAccountID, returnURL, refreshURL)
	if err != nil {
		return nil, err
	}

	if err := s.connectRepo.UpdateOnboardingLink(ctx, userID, link.URL, link.ExpiresAt); err != nil {
		return nil, err
	}
	return link, nil
}

// GetStatus returns the local account record after refreshing its capability
// flags from the processor.
func (s *ConnectService) GetStatus(ctx context.Context, userID int64) (*models.StripeConnectAccount, error) {
	account, err := s.connectRepo.GetByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}

	remote, err := s.gateway.GetAccount(ctx, account.StripeAccountID)
	if err != nil {
		return nil, err
	}

	verificationStatus := account.VerificationStatus
	if remote.DetailsSubmitted && remote.ChargesEnabled && remote.PayoutsEnabled {
		verificationStatus = "verified"
	} else if remote.DetailsSubmitted {
		verificationStatus = "in_review"
	}

	return s.connectRepo.UpdateFlags(ctx, account.StripeAccountID,
		remote.ChargesEnabled, remote.PayoutsEnabled, remote.DetailsSubmitted, verificationStatus)
}
