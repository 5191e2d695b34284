package services

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

type ReviewService struct {
	db          *pgxpool.Pool
	bookingRepo *repository.BookingRepository
	reviewRepo  *repository.ReviewRepository
}

func NewReviewService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	reviewRepo *repository.ReviewRepository,
) *ReviewService {
	return &ReviewService{
		db:          db,
		bookingRepo: bookingRepo,
		reviewRepo:  reviewRepo,
	}
}

type CreateReviewInput struct {
	BookingID int64
	Rating    int
	Comment   *string
}

// CreateReview lets the owner rate the sitter once per completed booking.
// The sitter's aggregate rating is refreshed in the same transaction.
func (s *ReviewService) CreateReview(ctx context.Context, authorID int64, input CreateReviewInput) (*models.Review, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, ErrInvalidInput
	}

	booking, err := s.bookingRepo.GetByID(ctx, input.BookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != authorID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusCompleted {
		return nil, ErrInvalidStatus
	}

	exists, err := s.reviewRepo.ExistsForBookingAuthor(ctx, input.BookingID, authorID)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrConflict
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txReviewRepo := repository.NewReviewRepository(tx)
	txSitterRepo := repository.NewSitterProfileRepository(tx)

	review, err := txReviewRepo.Create(ctx, repository.CreateReviewInput{
		BookingID: input.BookingID,
		AuthorID:  authorID,
		SubjectID: booking.SitterID,
		Rating:    input.Rating,
		Comment:   input.Comment,
	})
	if err != nil {
		return nil, err
	}

	if err := txSitterRepo.RefreshRating(ctx, booking.SitterID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return review, nil
}

func (s *ReviewService) ListForSitter(ctx context.Context, sitterID int64, limit, offset int) ([]models.Review, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.reviewRepo.ListBySubject(ctx, sitterID, limit, offset)
}
