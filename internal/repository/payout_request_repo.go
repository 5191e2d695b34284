package repository

import (
	"context"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type CreatePayoutRequestInput struct {
	SitterID      int64
	AmountCents   int64
	PayoutMethod  string
	PayoutDetails string
}

const payoutRequestColumns = `id, sitter_id, amount_cents, payout_method, payout_details,
		   status, created_at, processed_at`

type PayoutRequestRepository struct {
	db DBTX
}

func NewPayoutRequestRepository(db DBTX) *PayoutRequestRepository {
	return &PayoutRequestRepository{db: db}
}

type payoutRequestScanner interface {
	Scan(dest ...any) error
}

func scanPayoutRequest(row payoutRequestScanner, request *models.PayoutRequest) error {
	return row.Scan(
		&request.ID,
		&request.SitterID,
		&request.AmountCents,
		&request.PayoutMethod,
		&request.PayoutDetails,
		&request.Status,
		&request.CreatedAt,
		&request.ProcessedAt,
	)
}

func (r *PayoutRequestRepository) Create(ctx context.Context, input CreatePayoutRequestInput) (*models.PayoutRequest, error) {
	query := `
		INSERT INTO payout_requests (sitter_id, amount_cents, payout_method, payout_details, status)
		VALUES ($1, $2, $3, $4, 'pending')
		RETURNING ` + payoutRequestColumns

	var request models.PayoutRequest
	err := scanPayoutRequest(r.db.QueryRow(ctx, query,
		input.SitterID,
		input.AmountCents,
		input.PayoutMethod,
		input.PayoutDetails,
	), &request)
	if err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *PayoutRequestRepository) GetByID(ctx context.Context, requestID int64) (*models.PayoutRequest, error) {
	query := `SELECT ` + payoutRequestColumns + ` FROM payout_requests WHERE id = $1`

	var request models.PayoutRequest
	if err := scanPayoutRequest(r.db.QueryRow(ctx, query, requestID), &request); err != nil {
		return nil, err
	}
	return &request, nil
}

func (r *PayoutRequestRepository) ListBySitter(ctx context.Context, sitterID int64) ([]models.PayoutRequest, error) {
	query := `
		SELECT ` + payoutRequestColumns + `
		FROM payout_requests
		WHERE sitter_id = $1
		ORDER BY created_at DESC, id DESC
	`

	rows, err := r.db.Query(ctx, query, sitterID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	requests := make([]models.PayoutRequest, 0)
	for rows.Next() {
		var request models.PayoutRequest
		if err := scanPayoutRequest(rows, &request); err != nil {
			return nil, err
		}
		requests = append(requests, request)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return requests, nil
}

func (r *PayoutRequestRepository) HasPending(ctx context.Context, sitterID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM payout_requests
			WHERE sitter_id = $1 AND status = 'pending'
		)
	`
	var hasPending bool
	if err := r.db.QueryRow(ctx, query, sitterID).Scan(&hasPending); err != nil {
		return false, err
	}
	return hasPending, nil
}

// SumRequested totals payout requests that already claim part of the balance.
// Pending and processing requests count; completed ones do too, since the
// money has left the platform.
func (r *PayoutRequestRepository) SumRequested(ctx context.Context, sitterID int64) (int64, error) {
	query := `
		SELECT COALESCE(SUM(amount_cents), 0)
		FROM payout_requests
		WHERE sitter_id = $1
	`
	var total int64
	if err := r.db.QueryRow(ctx, query, sitterID).Scan(&total); err != nil {
		return 0, err
	}
	return total, nil
}

func (r *PayoutRequestRepository) UpdateStatusIfCurrent(ctx context.Context, requestID int64, currentStatus, nextStatus string) (*models.PayoutRequest, error) {
	query := `
		UPDATE payout_requests
		SET status = $3,
			processed_at = CASE WHEN $3 = 'completed' THEN NOW() ELSE processed_at END
		WHERE id = $1 AND status = $2
		RETURNING ` + payoutRequestColumns

	var request models.PayoutRequest
	if err := scanPayoutRequest(r.db.QueryRow(ctx, query, requestID, currentStatus, nextStatus), &request); err != nil {
		return nil, err
	}
	return &request, nil
}
