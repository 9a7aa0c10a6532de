package service

import (
	"context"
	"fmt"
	"time"

	"carservice/internal/model"
	"carservice/internal/repository"
	"carservice/pkg/apperror"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	dashboardRevenueReports    = 12
	dashboardStaffPerformances = 10
)

// Aggregate is the roll-up of a set of completed bookings
type Aggregate struct {
	TotalRevenue  decimal.Decimal
	Count         int
	AverageRating float64
}

// Summarize totals service prices and averages ratings. Bookings without feedback
// count towards revenue and count but not towards the average, which is 0 when
// no booking has feedback.
func Summarize(bookings []model.Booking) Aggregate {
	agg := Aggregate{TotalRevenue: decimal.Zero}
	ratingSum, rated := 0, 0
	for i := range bookings {
		b := &bookings[i]
		if b.Service != nil {
			agg.TotalRevenue = agg.TotalRevenue.Add(b.Service.Price)
		}
		agg.Count++
		if b.Feedback != nil {
			ratingSum += b.Feedback.Rating
			rated++
		}
	}
	if rated > 0 {
		agg.AverageRating = float64(ratingSum) / float64(rated)
	}
	agg.TotalRevenue = agg.TotalRevenue.Round(2)
	return agg
}

// MonthStart returns midnight UTC on the first day of t's calendar month
func MonthStart(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ParseMonth accepts YYYY-MM or any YYYY-MM-DD inside the month
func ParseMonth(s string) (time.Time, error) {
	for _, layout := range []string{"2006-01", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return MonthStart(t), nil
		}
	}
	return time.Time{}, apperror.Validationf("invalid month %q (expected YYYY-MM)", s)
}

type MonthlyReport struct {
	Report            model.RevenueReport      `json:"report"`
	StaffPerformances []model.StaffPerformance `json:"staff_performances"`
}

type AnalyticsService interface {
	GenerateMonthlyReport(ctx context.Context, principal Principal, month time.Time) (*MonthlyReport, error)
	GetAnalyticsDashboard(ctx context.Context, principal Principal) (*model.AnalyticsDashboard, error)
}

type analyticsService struct {
	analyticsRepo repository.AnalyticsRepository
	bookingRepo   repository.BookingRepository
	userRepo      repository.UserRepository
	auditRepo     repository.AuditRepository
	txManager     repository.TransactionManager
}

func NewAnalyticsService(
	analyticsRepo repository.AnalyticsRepository,
	bookingRepo repository.BookingRepository,
	userRepo repository.UserRepository,
	auditRepo repository.AuditRepository,
	txManager repository.TransactionManager,
) AnalyticsService {
	return &analyticsService{
		analyticsRepo: analyticsRepo,
		bookingRepo:   bookingRepo,
		userRepo:      userRepo,
		auditRepo:     auditRepo,
		txManager:     txManager,
	}
}

// GenerateMonthlyReport recomputes the revenue report for month and one performance
// row per staff member, overwriting any earlier run. Bookings belong to the month
// they were created in. Any storage failure aborts the whole report.
func (s *analyticsService) GenerateMonthlyReport(ctx context.Context, principal Principal, month time.Time) (*MonthlyReport, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}

	start := MonthStart(month)
	end := start.AddDate(0, 1, 0)
	result := &MonthlyReport{}

	err := s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		bookings, err := s.bookingRepo.CompletedCreatedBetween(txCtx, start, end)
		if err != nil {
			return fmt.Errorf("failed to load completed bookings: %w", err)
		}
		staff, err := s.userRepo.AllByRole(txCtx, model.RoleStaff)
		if err != nil {
			return fmt.Errorf("failed to load staff: %w", err)
		}

		total := Summarize(bookings)
		result.Report = model.RevenueReport{
			Month:         start,
			TotalRevenue:  total.TotalRevenue,
			TotalBookings: total.Count,
			AverageRating: total.AverageRating,
		}
		if err := s.analyticsRepo.UpsertRevenueReport(txCtx, &result.Report); err != nil {
			return err
		}

		byStaff := make(map[uuid.UUID][]model.Booking)
		for _, b := range bookings {
			if b.AssignedStaffID != nil {
				byStaff[*b.AssignedStaffID] = append(byStaff[*b.AssignedStaffID], b)
			}
		}

		result.StaffPerformances = make([]model.StaffPerformance, 0, len(staff))
		for _, member := range staff {
			agg := Summarize(byStaff[member.ID])
			perf := model.StaffPerformance{
				StaffID:           member.ID,
				Month:             start,
				CompletedBookings: agg.Count,
				TotalRevenue:      agg.TotalRevenue,
				AverageRating:     agg.AverageRating,
			}
			if err := s.analyticsRepo.UpsertStaffPerformance(txCtx, &perf); err != nil {
				return err
			}
			result.StaffPerformances = append(result.StaffPerformances, perf)
		}

		return writeAuditLog(txCtx, s.auditRepo, principal.ID, model.ActionGenerateReport,
			result.Report.ID.String(), start.Format("2006-01"),
			map[string]interface{}{
				"total_bookings": total.Count,
				"total_revenue":  total.TotalRevenue.StringFixed(2),
				"staff_rows":     len(result.StaffPerformances),
			})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (s *analyticsService) GetAnalyticsDashboard(ctx context.Context, principal Principal) (*model.AnalyticsDashboard, error) {
	if err := Authorize(principal, model.RoleAdmin); err != nil {
		return nil, err
	}
	reports, err := s.analyticsRepo.LatestRevenueReports(ctx, dashboardRevenueReports)
	if err != nil {
		return nil, fmt.Errorf("failed to load revenue reports: %w", err)
	}
	perfs, err := s.analyticsRepo.LatestStaffPerformances(ctx, dashboardStaffPerformances)
	if err != nil {
		return nil, fmt.Errorf("failed to load staff performance: %w", err)
	}
	return &model.AnalyticsDashboard{RevenueReports: reports, StaffPerformances: perfs}, nil
}
