package repository

import (
	"context"
	"fmt"
	"strings"

	"carservice/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// AnalyticsRepository stores the monthly report rows
type AnalyticsRepository interface {
	// UpsertRevenueReport inserts or overwrites the row for report.Month and reloads it into report
	UpsertRevenueReport(ctx context.Context, report *model.RevenueReport) error
	// UpsertStaffPerformance inserts or overwrites the row for (StaffID, Month) and reloads it
	UpsertStaffPerformance(ctx context.Context, perf *model.StaffPerformance) error
	LatestRevenueReports(ctx context.Context, limit int) ([]model.RevenueReport, error)
	LatestStaffPerformances(ctx context.Context, limit int) ([]model.StaffPerformance, error)
}

type analyticsRepository struct {
	db *gorm.DB
}

func NewAnalyticsRepository(db *gorm.DB) AnalyticsRepository {
	return &analyticsRepository{db: db}
}

func (r *analyticsRepository) UpsertRevenueReport(ctx context.Context, report *model.RevenueReport) error {
	db := GetDB(ctx, r.db)
	if err := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"total_revenue", "total_bookings", "average_rating", "updated_at"}),
		Where:     changedWhere("revenue_reports", "total_revenue", "total_bookings", "average_rating"),
	}).Create(report).Error; err != nil {
		return fmt.Errorf("failed to upsert revenue report: %w", err)
	}
	return db.First(report, "month = ?", report.Month).Error
}

func (r *analyticsRepository) UpsertStaffPerformance(ctx context.Context, perf *model.StaffPerformance) error {
	db := GetDB(ctx, r.db)
	if err := db.Omit("Staff").Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "staff_id"}, {Name: "month"}},
		DoUpdates: clause.AssignmentColumns([]string{"completed_bookings", "total_revenue", "average_rating", "updated_at"}),
		Where:     changedWhere("staff_performances", "completed_bookings", "total_revenue", "average_rating"),
	}).Create(perf).Error; err != nil {
		return fmt.Errorf("failed to upsert staff performance: %w", err)
	}
	return db.First(perf, "staff_id = ? AND month = ?", perf.StaffID, perf.Month).Error
}

// changedWhere limits ON CONFLICT DO UPDATE to rows whose figures differ.
// An unchanged month keeps its stored row, updated_at included.
func changedWhere(table string, columns ...string) clause.Where {
	current := make([]string, len(columns))
	incoming := make([]string, len(columns))
	for i, c := range columns {
		current[i] = table + "." + c
		incoming[i] = "excluded." + c
	}
	return clause.Where{Exprs: []clause.Expression{clause.Expr{
		SQL: "(" + strings.Join(current, ", ") + ") IS DISTINCT FROM (" + strings.Join(incoming, ", ") + ")",
	}}}
}

func (r *analyticsRepository) LatestRevenueReports(ctx context.Context, limit int) ([]model.RevenueReport, error) {
	var reports []model.RevenueReport
	if err := GetDB(ctx, r.db).Order("month DESC").Limit(limit).Find(&reports).Error; err != nil {
		return nil, err
	}
	return reports, nil
}

func (r *analyticsRepository) LatestStaffPerformances(ctx context.Context, limit int) ([]model.StaffPerformance, error) {
	var perfs []model.StaffPerformance
	if err := GetDB(ctx, r.db).Preload("Staff").
		Joins("JOIN users ON users.id = staff_performances.staff_id").
		Order("staff_performances.month DESC, users.last_name, users.first_name").
		Limit(limit).Find(&perfs).Error; err != nil {
		return nil, err
	}
	return perfs, nil
}
