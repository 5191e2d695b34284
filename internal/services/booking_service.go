package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aliattia10/paseo-backend/internal/models"
	"github.com/aliattia10/paseo-backend/internal/repository"
)

type sitterProfileReader interface {
	GetByUserID(ctx context.Context, userID int64) (*models.SitterProfile, error)
}

type petReader interface {
	GetByID(ctx context.Context, petID int64) (*models.Pet, error)
}

type BookingService struct {
	db          *pgxpool.Pool
	bookingRepo *repository.BookingRepository
	paymentRepo *repository.PaymentRepository
	sitterRepo  sitterProfileReader
	petRepo     petReader
}

func NewBookingService(
	db *pgxpool.Pool,
	bookingRepo *repository.BookingRepository,
	paymentRepo *repository.PaymentRepository,
	sitterRepo sitterProfileReader,
	petRepo petReader,
) *BookingService {
	return &BookingService{
		db:          db,
		bookingRepo: bookingRepo,
		paymentRepo: paymentRepo,
		sitterRepo:  sitterRepo,
		petRepo:     petRepo,
	}
}

type CreateBookingInput struct {
	SitterID    int64
	PetID       int64
	ServiceType string
	StartTime   time.Time
	EndTime     time.Time
	Location    *string
	Notes       *string
}

// PriceBooking computes the total charge for a sitter's rate over a time
// window, in integer cents. The rate is hourly; partial hours are billed by
// the minute, rounded down.
func PriceBooking(hourlyRateCents int64, startTime, endTime time.Time) int64 {
	minutes := int64(endTime.Sub(startTime) / time.Minute)
	return hourlyRateCents * minutes / 60
}

func (s *BookingService) CreateBooking(ctx context.Context, ownerID int64, input CreateBookingInput) (*models.Booking, error) {
	if input.SitterID <= 0 || input.PetID <= 0 {
		return nil, ErrInvalidInput
	}
	if input.ServiceType != models.ServiceTypeWalk && input.ServiceType != models.ServiceTypeCare {
		return nil, ErrInvalidInput
	}
	if !input.EndTime.After(input.StartTime) {
		return nil, ErrInvalidInput
	}
	if input.StartTime.Before(time.Now().Add(-1 * time.Minute)) {
		return nil, ErrInvalidInput
	}
	if ownerID == input.SitterID {
		return nil, ErrInvalidInput
	}

	sitter, err := s.sitterRepo.GetByUserID(ctx, input.SitterID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSitterNotFound
		}
		return nil, err
	}
	if !sitter.OnboardingComplete || sitter.HourlyRateCents == nil || *sitter.HourlyRateCents <= 0 {
		return nil, ErrInvalidInput
	}

	pet, err := s.petRepo.GetByID(ctx, input.PetID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidInput
		}
		return nil, err
	}
	if pet.OwnerID != ownerID {
		return nil, ErrForbidden
	}

	totalPrice := PriceBooking(*sitter.HourlyRateCents, input.StartTime, input.EndTime)
	if totalPrice <= 0 {
		return nil, ErrInvalidInput
	}
	commission := totalPrice * 20 / 100

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)

	// Serialize bookings per sitter so overlap checks cannot race.
	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock($1)", input.SitterID); err != nil {
		return nil, err
	}

	hasConflict, err := txBookingRepo.HasConflict(ctx, input.SitterID, input.StartTime, input.EndTime)
	if err != nil {
		return nil, err
	}
	if hasConflict {
		return nil, ErrConflict
	}

	booking, err := txBookingRepo.Create(ctx, repository.CreateBookingInput{
		OwnerID:            ownerID,
		SitterID:           input.SitterID,
		PetID:              input.PetID,
		ServiceType:        input.ServiceType,
		StartTime:          input.StartTime,
		EndTime:            input.EndTime,
		Location:           input.Location,
		Notes:              input.Notes,
		TotalPriceCents:    totalPrice,
		CommissionFeeCents: commission,
	})
	if err != nil {
		return nil, err
	}

	_, err = txNotificationRepo.Create(ctx, repository.CreateNotificationInput{
		UserID:    input.SitterID,
		Kind:      models.NotificationBookingRequested,
		Title:     "New booking request",
		Body:      fmt.Sprintf("You have a new %s request for %s", input.ServiceType, pet.Name),
		BookingID: &booking.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return booking, nil
}

func (s *BookingService) GetBooking(ctx context.Context, actorID, bookingID int64) (*models.BookingDetail, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != actorID && booking.SitterID != actorID {
		return nil, ErrForbidden
	}

	detail := &models.BookingDetail{Booking: *booking}
	payment, err := s.paymentRepo.GetByBookingID(ctx, bookingID)
	if err != nil {
		if !errors.Is(err, pgx.ErrNoRows) {
			return nil, err
		}
	} else {
		detail.Payment = payment
	}
	return detail, nil
}

func (s *BookingService) ListBookings(ctx context.Context, actorID int64, role, status, timeframe string) ([]models.BookingDetail, error) {
	if role != "owner" && role != "sitter" {
		return nil, ErrInvalidInput
	}

	bookings, err := s.bookingRepo.List(ctx, repository.BookingListFilter{
		ActorID:   actorID,
		Role:      role,
		Status:    status,
		Timeframe: timeframe,
	})
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(bookings))
	for _, booking := range bookings {
		ids = append(ids, booking.ID)
	}
	paymentsByBooking, err := s.paymentRepo.ListByBookingIDs(ctx, ids)
	if err != nil {
		return nil, err
	}

	details := make([]models.BookingDetail, 0, len(bookings))
	for _, booking := range bookings {
		detail := models.BookingDetail{Booking: booking}
		if payment, ok := paymentsByBooking[booking.ID]; ok {
			detail.Payment = &payment
		}
		details = append(details, detail)
	}
	return details, nil
}

// AcceptBooking moves a requested booking to accepted. Only the sitter may
// accept, and only from the requested state.
func (s *BookingService) AcceptBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, sitterID, bookingID, models.BookingStatusRequested, models.BookingStatusAccepted,
		models.NotificationBookingAccepted, "Booking accepted", "Your booking request was accepted. Complete payment to confirm.")
}

func (s *BookingService) StartBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, sitterID, bookingID, models.BookingStatusConfirmed, models.BookingStatusInProgress,
		models.NotificationBookingStarted, "Service started", "Your sitter has started the service.")
}

func (s *BookingService) CompleteBooking(ctx context.Context, sitterID, bookingID int64) (*models.Booking, error) {
	return s.transition(ctx, sitterID, bookingID, models.BookingStatusInProgress, models.BookingStatusCompleted,
		models.NotificationBookingCompleted, "Service completed", "Your booking is complete. Funds release after the review window.")
}

func (s *BookingService) transition(ctx context.Context, sitterID, bookingID int64, from, to, kind, title, body string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.SitterID != sitterID {
		return nil, ErrForbidden
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)

	updated, err := txBookingRepo.UpdateStatusIfCurrent(ctx, bookingID, from, to)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidStateTransition
		}
		return nil, err
	}

	_, err = txNotificationRepo.Create(ctx, repository.CreateNotificationInput{
		UserID:    updated.OwnerID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		BookingID: &updated.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// DeclineBooking cancels a requested booking on behalf of the sitter.
func (s *BookingService) DeclineBooking(ctx context.Context, sitterID, bookingID int64, reason string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.SitterID != sitterID {
		return nil, ErrForbidden
	}
	if booking.Status != models.BookingStatusRequested {
		return nil, ErrInvalidStateTransition
	}
	return s.cancel(ctx, booking, reason, models.NotificationBookingDeclined, booking.OwnerID,
		"Booking declined", "The sitter declined your booking request.")
}

// CancelBooking cancels a booking that has no held funds. Once the escrow is
// held the owner must go through the refund flow instead.
func (s *BookingService) CancelBooking(ctx context.Context, actorID, bookingID int64, reason string) (*models.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	if booking.OwnerID != actorID && booking.SitterID != actorID {
		return nil, ErrForbidden
	}
	switch booking.Status {
	case models.BookingStatusRequested, models.BookingStatusAccepted:
	default:
		return nil, ErrInvalidStateTransition
	}
	// Once a payment intent exists the refund flow owns cancellation.
	if booking.PaymentStatus != models.PaymentStatusNone {
		return nil, ErrInvalidStateTransition
	}

	counterparty := booking.SitterID
	if actorID == booking.SitterID {
		counterparty = booking.OwnerID
	}
	return s.cancel(ctx, booking, reason, models.NotificationBookingDeclined, counterparty,
		"Booking cancelled", "The booking was cancelled.")
}

func (s *BookingService) cancel(ctx context.Context, booking *models.Booking, reason, kind string, notifyUserID int64, title, body string) (*models.Booking, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	txBookingRepo := repository.NewBookingRepository(tx)
	txNotificationRepo := repository.NewNotificationRepository(tx)

	cancelled, err := txBookingRepo.CancelWithReason(ctx, booking.ID, reason, booking.PaymentStatus)
	if err != nil {
		return nil, err
	}

	_, err = txNotificationRepo.Create(ctx, repository.CreateNotificationInput{
		UserID:    notifyUserID,
		Kind:      kind,
		Title:     title,
		Body:      body,
		BookingID: &cancelled.ID,
	})
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return cancelled, nil
}
