package repository

import (
	"context"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type OwnerOnboardingInput struct {
	FullName string
	Phone    string
	City     string
	Bio      *string
}

type UpdateOwnerProfileInput struct {
	FullName  *string
	AvatarURL *string
	Phone     *string
	City      *string
	Bio       *string
}

type OwnerProfileRepository struct {
	db DBTX
}

func NewOwnerProfileRepository(db DBTX) *OwnerProfileRepository {
	return &OwnerProfileRepository{db: db}
}

func (r *OwnerProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO owner_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *OwnerProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.OwnerProfile, error) {
	query := `
		SELECT id, user_id, full_name, avatar_url, phone, city, bio,
			   onboarding_complete, created_at, updated_at
		FROM owner_profiles
		WHERE user_id = $1
	`
	var profile models.OwnerProfile
	err := r.db.QueryRow(ctx, query, userID).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Phone,
		&profile.City,
		&profile.Bio,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *OwnerProfileRepository) UpdateOnboarding(ctx context.Context, userID int64, req OwnerOnboardingInput) (*models.OwnerProfile, error) {
	query := `
		UPDATE owner_profiles
		SET full_name = $1,
			phone = $2,
			city = $3,
			bio = $4,
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $5
		RETURNING id, user_id, full_name, avatar_url, phone, city, bio,
				  onboarding_complete, created_at, updated_at
	`
	var profile models.OwnerProfile
	err := r.db.QueryRow(ctx, query,
		req.FullName,
		req.Phone,
		req.City,
		req.Bio,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Phone,
		&profile.City,
		&profile.Bio,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *OwnerProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateOwnerProfileInput) (*models.OwnerProfile, error) {
	query := `
		UPDATE owner_profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			phone = COALESCE($3, phone),
			city = COALESCE($4, city),
			bio = COALESCE($5, bio),
			updated_at = NOW()
		WHERE user_id = $6
		RETURNING id, user_id, full_name, avatar_url, phone, city, bio,
				  onboarding_complete, created_at, updated_at
	`
	var profile models.OwnerProfile
	err := r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Phone,
		req.City,
		req.Bio,
		userID,
	).Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Phone,
		&profile.City,
		&profile.Bio,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}
