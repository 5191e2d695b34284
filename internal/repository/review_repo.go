package repository

import (
	"context"

	"github.com/aliattia10/paseo-backend/internal/models"
)

type CreateReviewInput struct {
	BookingID int64
	AuthorID  int64
	SubjectID int64
	Rating    int
	Comment   *string
}

type ReviewRepository struct {
	db DBTX
}

func NewReviewRepository(db DBTX) *ReviewRepository {
	return &ReviewRepository{db: db}
}

func (r *ReviewRepository) Create(ctx context.Context, input CreateReviewInput) (*models.Review, error) {
	query := `
		INSERT INTO reviews (booking_id, author_id, subject_id, rating, comment)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, booking_id, author_id, subject_id, rating, comment, created_at
	`
	var review models.Review
	err := r.db.QueryRow(ctx, query,
		input.BookingID,
		input.AuthorID,
		input.SubjectID,
		input.Rating,
		input.Comment,
	).Scan(
		&review.ID,
		&review.BookingID,
		&review.AuthorID,
		&review.SubjectID,
		&review.Rating,
		&review.Comment,
		&review.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &review, nil
}

func (r *ReviewRepository) ExistsForBookingAuthor(ctx context.Context, bookingID, authorID int64) (bool, error) {
	query := `
		SELECT EXISTS (
			SELECT 1 FROM reviews WHERE booking_id = $1 AND author_id = $2
		)
	`
	var exists bool
	if err := r.db.QueryRow(ctx, query, bookingID, authorID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func (r *ReviewRepository) ListBySubject(ctx context.Context, subjectID int64, limit, offset int) ([]models.Review, error) {
	query := `
		SELECT id, booking_id, author_id, subject_id, rating, comment, created_at
		FROM reviews
		WHERE subject_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2 OFFSET $3
	`
	rows, err := r.db.Query(ctx, query, subjectID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	reviews := make([]models.Review, 0)
	for rows.Next() {
		var review models.Review
		if err := rows.Scan(
			&review.ID,
			&review.BookingID,
			&review.AuthorID,
			&review.SubjectID,
			&review.Rating,
			&review.Comment,
			&review.CreatedAt,
		); err != nil {
			return nil, err
		}
		reviews = append(reviews, review)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return reviews, nil
}
