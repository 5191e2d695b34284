package repository

import (
	"context"
	"time"

	"github.com/aliattia10/paseo-backend/internal/models"
)

const connectAccountColumns = `id, user_id, stripe_account_id, charges_enabled, payouts_enabled,
		   details_submitted, onboarding_link, onboarding_expires_at, verification_status,
		   created_at, updated_at`

type ConnectAccountRepository struct {
	db DBTX
}

func NewConnectAccountRepository(db DBTX) *ConnectAccountRepository {
	return &ConnectAccountRepository{db: db}
}

type connectAccountScanner interface {
	Scan(dest ...any) error
}

func scanConnectAccount(row connectAccountScanner, account *models.StripeConnectAccount) error {
	return row.Scan(
		&account.ID,
		&account.UserID,
		&account.StripeAccountID,
		&account.ChargesEnabled,
		&account.PayoutsEnabled,
		&account.DetailsSubmitted,
		&account.OnboardingLink,
		&account.OnboardingExpiresAt,
		&account.VerificationStatus,
		&account.CreatedAt,
		&account.UpdatedAt,
	)
}

func (r *ConnectAccountRepository) Create(ctx context.Context, userID int64, stripeAccountID string) (*models.StripeConnectAccount, error) {
	query := `
		INSERT INTO stripe_connect_accounts (user_id, stripe_account_id)
		VALUES ($1, $2)
		RETURNING ` + connectAccountColumns

	var account models.StripeConnectAccount
	if err := scanConnectAccount(r.db.QueryRow(ctx, query, userID, stripeAccountID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ConnectAccountRepository) GetByUserID(ctx context.Context, userID int64) (*models.StripeConnectAccount, error) {
	query := `SELECT ` + connectAccountColumns + ` FROM stripe_connect_accounts WHERE user_id = $1`

	var account models.StripeConnectAccount
	if err := scanConnectAccount(r.db.QueryRow(ctx, query, userID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ConnectAccountRepository) GetByStripeAccountID(ctx context.Context, stripeAccountID string) (*models.StripeConnectAccount, error) {
	query := `SELECT ` + connectAccountColumns + ` FROM stripe_connect_accounts WHERE stripe_account_id = $1`

	var account models.StripeConnectAccount
	if err := scanConnectAccount(r.db.QueryRow(ctx, query, stripeAccountID), &account); err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ConnectAccountRepository) UpdateFlags(ctx context.Context, stripeAccountID string, chargesEnabled, payoutsEnabled, detailsSubmitted bool, verificationStatus string) (*models.StripeConnectAccount, error) {
	query := `
		UPDATE stripe_connect_accounts
		SET charges_enabled = $2,
			payouts_enabled = $3,
			details_submitted = $4,
			verification_status = $5,
			updated_at = NOW()
		WHERE stripe_account_id = $1
		RETURNING ` + connectAccountColumns

	var account models.StripeConnectAccount
	err := scanConnectAccount(r.db.QueryRow(ctx, query,
		stripeAccountID,
		chargesEnabled,
		payoutsEnabled,
		detailsSubmitted,
		verificationStatus,
	), &account)
	if err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *ConnectAccountRepository) UpdateOnboardingLink(ctx context.Context, userID int64, link string, expiresAt time.Time) error {
	query := `
		UPDATE stripe_connect_accounts
		SET onboarding_link = $2, onboarding_expires_at = $3, updated_at = NOW()
		WHERE user_id = $1
	`
	_, err := r.db.Exec(ctx, query, userID, link, expiresAt)
	return err
}
