package repository

import (
	"context"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type SwipeRepository struct {
	db DBTX
}

func NewSwipeRepository(db DBTX) *SwipeRepository {
	return &SwipeRepository{db: db}
}

// Upsert records the owner's latest decision about a sitter. Swiping again
// overwrites the previous direction.
func (r *SwipeRepository) Upsert(ctx context.Context, ownerID, sitterID int64, liked bool) (*models.Swipe, error) {
	query := `
		INSERT INTO swipes (owner_id, sitter_id, liked)
		VALUES ($1, $2, $3)
		ON CONFLICT (owner_id, sitter_id)
		DO UPDATE SET liked = EXCLUDED.liked, created_at = NOW()
		RETURNING id, owner_id, sitter_id, liked, created_at
	`
	var swipe models.Swipe
	err := r.db.QueryRow(ctx, query, ownerID, sitterID, liked).Scan(
		&swipe.ID,
		&swipe.OwnerID,
		&swipe.SitterID,
		&swipe.Liked,
		&swipe.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &swipe, nil
}

func (r *SwipeRepository) ListLikedSitterIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	query := `SELECT sitter_id FROM swipes WHERE owner_id = $1 AND liked = TRUE ORDER BY created_at DESC`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}

func (r *SwipeRepository) ListSeenSitterIDs(ctx context.Context, ownerID int64) ([]int64, error) {
	query := `SELECT sitter_id FROM swipes WHERE owner_id = $1`

	rows, err := r.db.Query(ctx, query, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	ids := make([]int64, 0)
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return ids, nil
}
