package service

import (
	"context"
	"fmt"
	"time"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// --- DTOs ---

type BookingRequest struct {
	VehicleID     uuid.UUID `json:"vehicle_id" binding:"required"`
	ServiceID     uuid.UUID `json:"service_id" binding:"required"`
	ScheduledDate time.Time `json:"scheduled_date" binding:"required"`
	Notes         string    `json:"notes"`
}

type UpdateStatusRequest struct {
	Status model.BookingStatus `json:"status" binding:"required"`
	Notes  *string             `json:"notes"`
}

type AssignStaffRequest struct {
	StaffID uuid.UUID `json:"staff_id" binding:"required"`
}

type BookingListFilter struct {
	Status model.BookingStatus
	Page   int
	Limit  int
}

// --- Interface ---

type BookingService interface {
	CreateBooking(ctx context.Context, principal Principal, req BookingRequest) (*model.Booking, error)
	UpdateBooking(ctx context.Context, principal Principal, id uuid.UUID, req BookingRequest) (*model.Booking, error)
	GetBooking(ctx context.Context, principal Principal, id uuid.UUID) (*model.Booking, error)
	ListBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error)
	ListAllBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error)
	ListStaffBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error)
	UpdateBookingStatus(ctx context.Context, principal Principal, id uuid.UUID, req UpdateStatusRequest) (*model.Booking, error)
	AssignStaff(ctx context.Context, principal Principal, id uuid.UUID, req AssignStaffRequest) (*model.Booking, error)
}

type bookingService struct {
	bookingRepo  repository.BookingRepository
	vehicleRepo  repository.VehicleRepository
	catalogRepo  repository.CatalogRepository
	userRepo     repository.UserRepository
	auditRepo    repository.AuditRepository
	txManager    repository.TransactionManager
	notification NotificationService
	events       EventPublisher
	log          *zap.Logger
	now          func() time.Time
}

func NewBookingService(
	bookingRepo repository.BookingRepository,
	vehicleRepo repository.VehicleRepository,
	catalogRepo repository.CatalogRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
	notification NotificationService,
	events EventPublisher,
	log *zap.Logger,
) BookingService {
	if events == nil {
		events = NoopPublisher()
	}
	return &bookingService{
		bookingRepo:  bookingRepo,
		vehicleRepo:  vehicleRepo,
		catalogRepo:  catalogRepo,
		userRepo:     userRepo,
		auditRepo:    auditRepo,
		txManager:    txManager,
		notification: notification,
		events:       events,
		log:          log,
		now:          time.Now,
	}
}

// --- Implementation ---

// CreateBooking books a service for one of the customer's vehicles and sends the
// confirmation. A failed confirmation is logged, the booking is still returned.
func (s *bookingService) CreateBooking(ctx context.Context, principal Principal, req BookingRequest) (*model.Booking, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}

	svc, err := s.validateRequest(ctx, principal, req)
	if err != nil {
		return nil, err
	}

	booking := &model.Booking{
		CustomerID:    principal.ID,
		VehicleID:     req.VehicleID,
		ServiceID:     req.ServiceID,
		ScheduledDate: req.ScheduledDate,
		Status:        model.BookingStatusPending,
		Notes:         req.Notes,
	}
	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.sendConfirmation(ctx, principal.ID, booking, svc)
	s.publish(EventBookingCreated, booking)

	return s.reload(ctx, booking), nil
}

func (s *bookingService) sendConfirmation(ctx context.Context, customerID uuid.UUID, booking *model.Booking, svc *model.Service) {
	customer, err := s.userRepo.GetByID(ctx, customerID)
	if err != nil {
		s.log.Error("booking confirmation skipped: customer lookup failed",
			zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return
	}
	bookingID := booking.ID
	s.notification.Dispatch(ctx, DispatchRequest{
		TemplateName: TemplateBookingConfirmation,
		Recipient:    customer,
		BookingID:    &bookingID,
		Vars: map[string]string{
			PlaceholderCustomer: customer.FullName(),
			PlaceholderService:  svc.Name,
			PlaceholderDate:     booking.ScheduledDate.Format(DateLayout),
		},
	})
}

// UpdateBooking lets the owner reschedule or change a booking while it is still pending
func (s *bookingService) UpdateBooking(ctx context.Context, principal Principal, id uuid.UUID, req BookingRequest) (*model.Booking, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}

	booking, err := s.findOwned(ctx, principal, id)
	if err != nil {
		return nil, err
	}
	if booking.Status != model.BookingStatusPending {
		return nil, apperror.Conflict("only pending bookings can be changed")
	}
	if _, err := s.validateRequest(ctx, principal, req); err != nil {
		return nil, err
	}

	booking.VehicleID = req.VehicleID
	booking.ServiceID = req.ServiceID
	booking.ScheduledDate = req.ScheduledDate
	booking.Notes = req.Notes
	if err := s.bookingRepo.Update(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}
	return s.reload(ctx, booking), nil
}

func (s *bookingService) GetBooking(ctx context.Context, principal Principal, id uuid.UUID) (*model.Booking, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}
	return s.findOwned(ctx, principal, id)
}

func (s *bookingService) ListBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.BookingFilter{CustomerID: principal.ID}, filter)
}

func (s *bookingService) ListAllBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.BookingFilter{}, filter)
}

func (s *bookingService) ListStaffBookings(ctx context.Context, principal Principal, filter BookingListFilter) ([]model.Booking, int64, error) {
	if err := Authorize(principal, model.RoleStaff); err != nil {
		return nil, 0, err
	}
	return s.list(ctx, repository.BookingFilter{AssignedStaffID: principal.ID}, filter)
}

func (s *bookingService) list(ctx context.Context, scope repository.BookingFilter, filter BookingListFilter) ([]model.Booking, int64, error) {
	if filter.Status != "" {
		if !filter.Status.Valid() {
			return nil, 0, apperror.Validationf("invalid status %q", filter.Status)
		}
		scope.Statuses = []model.BookingStatus{filter.Status}
	}
	page, limit := normalizePage(filter.Page, filter.Limit)
	bookings, total, err := s.bookingRepo.List(ctx, scope, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}
	return bookings, total, nil
}

// UpdateBookingStatus advances a booking through its lifecycle. Only the assigned
// staff member or an admin may do so. The booking row stays locked from the status
// check until the write commits.
func (s *bookingService) UpdateBookingStatus(ctx context.Context, principal Principal, id uuid.UUID, req UpdateStatusRequest) (*model.Booking, error) {
	if err := Authorize(principal, model.RoleStaff, model.RoleAdmin); err != nil {
		return nil, err
	}
	if !req.Status.Valid() {
		return nil, apperror.Validationf("invalid status %q", req.Status)
	}
	// Cancellation has no entry point yet
	if req.Status == model.BookingStatusCancelled {
		return nil, apperror.Validation("bookings cannot be cancelled through a status update")
	}

	var previous model.BookingStatus
	var booking *model.Booking
	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookingRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if isNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to load booking: %w", err)
		}

		if principal.Role == model.RoleStaff &&
			(booking.AssignedStaffID == nil || *booking.AssignedStaffID != principal.ID) {
			return apperror.Forbidden("booking is not assigned to you", LandingPath(principal.Role))
		}

		previous = booking.Status
		if req.Status != previous && !previous.CanTransitionTo(req.Status) {
			return apperror.Conflict(fmt.Sprintf("cannot change status from %s to %s", previous, req.Status))
		}

		booking.Status = req.Status
		if req.Notes != nil {
			booking.Notes = *req.Notes
		}
		if err := s.bookingRepo.Update(txCtx, booking); err != nil {
			return fmt.Errorf("failed to update booking: %w", err)
		}
		if previous == req.Status {
			return nil
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionUpdateStatus, booking.ID.String(), "",
			map[string]string{"from": string(previous), "to": string(req.Status)})
	})
	if err != nil {
		return nil, err
	}

	if previous != req.Status {
		s.publish(EventBookingStatusChanged, booking)
	}
	return s.reload(ctx, booking), nil
}

// AssignStaff hands a booking to a staff member. Finished bookings keep their assignee.
func (s *bookingService) AssignStaff(ctx context.Context, principal Principal, id uuid.UUID, req AssignStaffRequest) (*model.Booking, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}

	staff, err := s.userRepo.GetByID(ctx, req.StaffID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.Validation("staff member not found")
		}
		return nil, fmt.Errorf("failed to load staff member: %w", err)
	}
	if staff.Role != model.RoleStaff {
		return nil, apperror.Validation("bookings can only be assigned to staff members")
	}

	var booking *model.Booking
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		var err error
		booking, err = s.bookingRepo.FindByIDForUpdate(txCtx, id)
		if err != nil {
			if isNotFound(err) {
				return apperror.NotFound("booking not found")
			}
			return fmt.Errorf("failed to load booking: %w", err)
		}
		if booking.Status == model.BookingStatusCompleted || booking.Status == model.BookingStatusCancelled {
			return apperror.Conflict("cannot reassign a " + string(booking.Status) + " booking")
		}

		staffID := staff.ID
		booking.AssignedStaffID = &staffID
		if err := s.bookingRepo.Update(txCtx, booking); err != nil {
			return fmt.Errorf("failed to assign staff: %w", err)
		}
		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionAssignStaff, booking.ID.String(), staff.FullName(),
			map[string]string{"staff_id": staff.ID.String()})
	})
	if err != nil {
		return nil, err
	}

	s.publish(EventBookingAssigned, booking)
	return s.reload(ctx, booking), nil
}

// --- Helpers ---

// validateRequest checks the vehicle belongs to the customer, the service exists
// and the date is not in the past
func (s *bookingService) validateRequest(ctx context.Context, principal Principal, req BookingRequest) (*model.Service, error) {
	if req.ScheduledDate.IsZero() {
		return nil, apperror.Validation("scheduled date is required")
	}
	if req.ScheduledDate.Before(s.now()) {
		return nil, apperror.Validation("scheduled date cannot be in the past")
	}

	vehicle, err := s.vehicleRepo.FindByID(ctx, req.VehicleID)
	if err != nil && !isNotFound(err) {
		return nil, fmt.Errorf("failed to load vehicle: %w", err)
	}
	if err != nil || vehicle.OwnerID != principal.ID {
		return nil, apperror.Validation("select one of your registered vehicles")
	}

	svc, err := s.catalogRepo.FindByID(ctx, req.ServiceID)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("service not found")
		}
		return nil, fmt.Errorf("failed to load service: %w", err)
	}
	return svc, nil
}

// findOwned loads a booking of the principal. Other customers' bookings are reported as missing.
func (s *bookingService) findOwned(ctx context.Context, principal Principal, id uuid.UUID) (*model.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, apperror.NotFound("booking not found")
		}
		return nil, fmt.Errorf("failed to load booking: %w", err)
	}
	if booking.CustomerID != principal.ID {
		return nil, apperror.NotFound("booking not found")
	}
	return booking, nil
}

// reload fetches the booking with its relations, falling back to what we have
func (s *bookingService) reload(ctx context.Context, booking *model.Booking) *model.Booking {
	full, err := s.bookingRepo.FindByID(ctx, booking.ID)
	if err != nil {
		s.log.Warn("failed to reload booking", zap.String("booking_id", booking.ID.String()), zap.Error(err))
		return booking
	}
	return full
}

func (s *bookingService) publish(event string, booking *model.Booking) {
	data := map[string]interface{}{
		"booking_id":     booking.ID.String(),
		"customer_id":    booking.CustomerID.String(),
		"status":         booking.Status,
		"scheduled_date": booking.ScheduledDate,
	}
	if booking.AssignedStaffID != nil {
		data["assigned_staff_id"] = booking.AssignedStaffID.String()
	}
	s.events.Publish(event, data)
}
