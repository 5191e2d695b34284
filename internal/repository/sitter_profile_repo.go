package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type SitterOnboardingInput struct {
	FullName        string
	Bio             string
	City            string
	Services        []string
	AcceptedPets    []string
	HourlyRateCents int64
}

type UpdateSitterProfileInput struct {
	FullName        *string
	AvatarURL       *string
	Bio             *string
	City            *string
	Services        *[]string
	AcceptedPets    *[]string
	HourlyRateCents *int64
}

type SitterListFilter struct {
	City    string
	Service string
	Species string
	MaxRate int64
	Offset  int
	Limit   int
}

const sitterProfileColumns = `id, user_id, full_name, avatar_url, bio, city, services,
		   accepted_pets, hourly_rate_cents, rating, review_count, is_verified,
		   onboarding_complete, created_at, updated_at`

type SitterProfileRepository struct {
	db DBTX
}

func NewSitterProfileRepository(db DBTX) *SitterProfileRepository {
	return &SitterProfileRepository{db: db}
}

func (r *SitterProfileRepository) CreateEmpty(ctx context.Context, userID int64) error {
	query := `INSERT INTO sitter_profiles (user_id) VALUES ($1)`
	_, err := r.db.Exec(ctx, query, userID)
	return err
}

func (r *SitterProfileRepository) GetByUserID(ctx context.Context, userID int64) (*models.SitterProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sitter_profiles
		WHERE user_id = $1
	`, sitterProfileColumns)

	var profile models.SitterProfile
	if err := scanSitterProfile(r.db.QueryRow(ctx, query, userID), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *SitterProfileRepository) UpdateOnboarding(ctx context.Context, userID int64, req SitterOnboardingInput) (*models.SitterProfile, error) {
	query := fmt.Sprintf(`
		UPDATE sitter_profiles
		SET full_name = $1,
			bio = $2,
			city = $3,
			services = $4,
			accepted_pets = $5,
			hourly_rate_cents = $6,
			onboarding_complete = TRUE,
			updated_at = NOW()
		WHERE user_id = $7
		RETURNING %s
	`, sitterProfileColumns)

	var profile models.SitterProfile
	err := scanSitterProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.Bio,
		req.City,
		req.Services,
		req.AcceptedPets,
		req.HourlyRateCents,
		userID,
	), &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *SitterProfileRepository) UpdatePartial(ctx context.Context, userID int64, req UpdateSitterProfileInput) (*models.SitterProfile, error) {
	query := fmt.Sprintf(`
		UPDATE sitter_profiles
		SET full_name = COALESCE($1, full_name),
			avatar_url = COALESCE($2, avatar_url),
			bio = COALESCE($3, bio),
			city = COALESCE($4, city),
			services = COALESCE($5, services),
			accepted_pets = COALESCE($6, accepted_pets),
			hourly_rate_cents = COALESCE($7, hourly_rate_cents),
			updated_at = NOW()
		WHERE user_id = $8
		RETURNING %s
	`, sitterProfileColumns)

	var profile models.SitterProfile
	err := scanSitterProfile(r.db.QueryRow(ctx, query,
		req.FullName,
		req.AvatarURL,
		req.Bio,
		req.City,
		req.Services,
		req.AcceptedPets,
		req.HourlyRateCents,
		userID,
	), &profile)
	if err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *SitterProfileRepository) List(ctx context.Context, filter SitterListFilter) ([]models.SitterProfile, int, error) {
	args := []any{}
	whereParts := []string{"onboarding_complete = TRUE"}

	if city := strings.TrimSpace(filter.City); city != "" {
		args = append(args, city)
		whereParts = append(whereParts, fmt.Sprintf("LOWER(city) = LOWER($%d)", len(args)))
	}
	if service := strings.TrimSpace(filter.Service); service != "" {
		args = append(args, service)
		whereParts = append(whereParts, fmt.Sprintf("$%d = ANY(services)", len(args)))
	}
	if species := strings.TrimSpace(filter.Species); species != "" {
		args = append(args, species)
		whereParts = append(whereParts, fmt.Sprintf("$%d = ANY(accepted_pets)", len(args)))
	}
	if filter.MaxRate > 0 {
		args = append(args, filter.MaxRate)
		whereParts = append(whereParts, fmt.Sprintf("hourly_rate_cents <= $%d", len(args)))
	}

	where := strings.Join(whereParts, " AND ")

	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM sitter_profiles WHERE %s`, where)
	var total int
	if err := r.db.QueryRow(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, filter.Limit, filter.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM sitter_profiles
		WHERE %s
		ORDER BY rating DESC NULLS LAST, id ASC
		LIMIT $%d OFFSET $%d
	`, sitterProfileColumns, where, len(args)-1, len(args))

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	profiles := make([]models.SitterProfile, 0)
	for rows.Next() {
		var profile models.SitterProfile
		if err := scanSitterProfile(rows, &profile); err != nil {
			return nil, 0, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}

	return profiles, total, nil
}

func (r *SitterProfileRepository) ListAll(ctx context.Context) ([]models.SitterProfile, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM sitter_profiles
		WHERE onboarding_complete = TRUE
	`, sitterProfileColumns)

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	profiles := make([]models.SitterProfile, 0)
	for rows.Next() {
		var profile models.SitterProfile
		if err := scanSitterProfile(rows, &profile); err != nil {
			return nil, err
		}
		profiles = append(profiles, profile)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return profiles, nil
}

func (r *SitterProfileRepository) RefreshRating(ctx context.Context, sitterID int64) error {
	query := `
		UPDATE sitter_profiles
		SET rating = stats.avg_rating,
			review_count = stats.review_count,
			updated_at = NOW()
		FROM (
			SELECT AVG(rating)::float8 AS avg_rating, COUNT(*)::int AS review_count
			FROM reviews
			WHERE subject_id = $1
		) AS stats
		WHERE user_id = $1
	`
	_, err := r.db.Exec(ctx, query, sitterID)
	return err
}

type sitterProfileScanner interface {
	Scan(dest ...any) error
}

func scanSitterProfile(row sitterProfileScanner, profile *models.SitterProfile) error {
	return row.Scan(
		&profile.ID,
		&profile.UserID,
		&profile.FullName,
		&profile.AvatarURL,
		&profile.Bio,
		&profile.City,
		&profile.Services,
		&profile.AcceptedPets,
		&profile.HourlyRateCents,
		&profile.Rating,
		&profile.ReviewCount,
		&profile.IsVerified,
		&profile.OnboardingComplete,
		&profile.CreatedAt,
		&profile.UpdatedAt,
	)
}
