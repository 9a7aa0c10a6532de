package service

import (
	"context"
	"fmt"
	"time"

	"carservice/internal/cache"
	"carservice/internal/model"
	"carservice/internal/repository"

	"go.uber.org/zap"
)

const (
	dashboardRecentBookings = 5
	adminDashboardCacheKey  = "dashboard:admin"
)

type DashboardService interface {
	GetAdminDashboard(ctx context.Context, principal Principal) (*model.AdminDashboard, error)
	GetStaffDashboard(ctx context.Context, principal Principal) (*model.StaffDashboard, error)
	GetCustomerDashboard(ctx context.Context, principal Principal) (*model.CustomerDashboard, error)
}

type dashboardService struct {
	userRepo    repository.UserRepository
	vehicleRepo repository.VehicleRepository
	catalogRepo repository.CatalogRepository
	bookingRepo repository.BookingRepository
	cache       cache.Cache
	cacheTTL    time.Duration
	log         *zap.Logger
}

func NewDashboardService(
	userRepo repository.UserRepository,
	vehicleRepo repository.VehicleRepository,
	catalogRepo repository.CatalogRepository,
	bookingRepo repository.BookingRepository,
	c cache.Cache,
	cacheTTL time.Duration,
	log *zap.Logger,
) DashboardService {
	if c == nil {
		c = cache.NewNoopCache()
	}
	return &dashboardService{
		userRepo:    userRepo,
		vehicleRepo: vehicleRepo,
		catalogRepo: catalogRepo,
		bookingRepo: bookingRepo,
		cache:       c,
		cacheTTL:    cacheTTL,
		log:         log,
	}
}

// GetAdminDashboard serves the headline counts from cache when a fresh copy exists
func (s *dashboardService) GetAdminDashboard(ctx context.Context, principal Principal) (*model.AdminDashboard, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}

	var cached model.AdminDashboard
	if err := s.cache.Get(ctx, adminDashboardCacheKey, &cached); err == nil {
		return &cached, nil
	}

	d := &model.AdminDashboard{}
	var err error
	if d.TotalCustomers, err = s.userRepo.CountByRole(ctx, model.RoleCustomer); err != nil {
		return nil, fmt.Errorf("failed to count customers: %w", err)
	}
	if d.TotalStaff, err = s.userRepo.CountByRole(ctx, model.RoleStaff); err != nil {
		return nil, fmt.Errorf("failed to count staff: %w", err)
	}
	if d.TotalVehicles, err = s.vehicleRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}
	pending := repository.BookingFilter{Statuses: []model.BookingStatus{model.BookingStatusPending}}
	if d.PendingBookings, err = s.bookingRepo.Count(ctx, pending); err != nil {
		return nil, fmt.Errorf("failed to count pending bookings: %w", err)
	}
	if d.TotalServices, err = s.catalogRepo.Count(ctx); err != nil {
		return nil, fmt.Errorf("failed to count services: %w", err)
	}
	if d.RecentBookings, err = s.bookingRepo.Recent(ctx, repository.BookingFilter{}, dashboardRecentBookings); err != nil {
		return nil, fmt.Errorf("failed to load recent bookings: %w", err)
	}

	if s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, adminDashboardCacheKey, d, s.cacheTTL); err != nil {
			s.log.Warn("failed to cache admin dashboard", zap.Error(err))
		}
	}
	return d, nil
}

func (s *dashboardService) GetStaffDashboard(ctx context.Context, principal Principal) (*model.StaffDashboard, error) {
	if err := Authorize(principal, model.RoleStaff); err != nil {
		return nil, err
	}

	open := repository.BookingFilter{
		AssignedStaffID: principal.ID,
		Statuses:        []model.BookingStatus{model.BookingStatusPending, model.BookingStatusInProgress},
	}
	assigned, err := s.bookingRepo.Upcoming(ctx, open, dashboardRecentBookings)
	if err != nil {
		return nil, fmt.Errorf("failed to load assigned bookings: %w", err)
	}
	completed, err := s.bookingRepo.Count(ctx, repository.BookingFilter{
		AssignedStaffID: principal.ID,
		Statuses:        []model.BookingStatus{model.BookingStatusCompleted},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to count completed bookings: %w", err)
	}
	return &model.StaffDashboard{AssignedBookings: assigned, CompletedBookings: completed}, nil
}

func (s *dashboardService) GetCustomerDashboard(ctx context.Context, principal Principal) (*model.CustomerDashboard, error) {
	if err := Authorize(principal, model.RoleCustomer); err != nil {
		return nil, err
	}

	own := repository.BookingFilter{CustomerID: principal.ID}
	d := &model.CustomerDashboard{}
	var err error
	if d.BookingsCount, err = s.bookingRepo.Count(ctx, own); err != nil {
		return nil, fmt.Errorf("failed to count bookings: %w", err)
	}
	if d.VehiclesCount, err = s.vehicleRepo.CountByOwner(ctx, principal.ID); err != nil {
		return nil, fmt.Errorf("failed to count vehicles: %w", err)
	}
	if d.FeedbackCount, err = s.bookingRepo.CountFeedbackByCustomer(ctx, principal.ID); err != nil {
		return nil, fmt.Errorf("failed to count feedback: %w", err)
	}
	if d.RecentBookings, err = s.bookingRepo.Recent(ctx, own, dashboardRecentBookings); err != nil {
		return nil, fmt.Errorf("failed to load recent bookings: %w", err)
	}
	return d, nil
}
