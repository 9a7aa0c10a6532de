package service

import (
	"context"
	"fmt"
	"strings"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
)

type FeedbackRequest struct {
	Rating   int    `json:"rating" binding:"required"`
	Comments string `json:"comments"`
}

type FeedbackService interface {
	SubmitFeedback(ctx context.Context, principal Principal, bookingID uuid.UUID, req FeedbackRequest) (*model.Feedback, error)
}

type feedbackService struct {
	bookingRepo repository.BookingRepository
	txManager   repository.TransactionManager
}

func NewFeedbackService(bookingRepo repository.BookingRepository, txManager repository.TransactionManager) FeedbackService {
	return &feedbackService{bookingRepo: bookingRepo, txManager: txManager}
}

// SubmitFeedback records the one rating allowed for a completed booking. The feedback
// row and the booking's FeedbackSubmitted flag are written in the same transaction
// while the booking row is locked.
func (s *feedbackService) SubmitFeedback(ctx context.Context, principal Principal, bookingID uuid.UUID, req FeedbackRequest) (*model.Feedback, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}
	if req.Rating < model.MinRating || req.Rating > model.MaxRating {
		return nil, apperror.Validationf("rating must be between %d and %d", model.MinRating, model.MaxRating)
	}

	feedback := &model.Feedback{
		BookingID: bookingID,
		Rating:    req.Rating,
		Comments:  strings.TrimSpace(req.Comments),
	}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		booking, err := s.bookingRepo.FindByIDForUpdate(txCtx, bookingID)
		if err != nil {
			if isNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if booking.CustomerID != principal.ID {
			return apperror.NotFound("booking not found")
		}
		if booking.Status != model.BookingStatusCompleted {
			return apperror.Conflict("feedback can only be left on completed bookings")
		}
		if booking.FeedbackSubmitted {
			return apperror.Conflict("feedback has already been submitted for this booking")
		}

		if err := s.bookingRepo.CreateFeedback(txCtx, feedback); err != nil {
			if isDuplicate(err) {
				return apperror.Conflict("feedback has already been submitted for this booking")
			}
			return fmt.Errorf("failed to save feedback: %w", err)
		}

		booking.FeedbackSubmitted = true
		if err := s.bookingRepo.Update(txCtx, booking); err != nil {
			return fmt.Errorf("failed to mark feedback submitted: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return feedback, nil
}
