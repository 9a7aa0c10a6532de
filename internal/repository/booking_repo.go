package repository

import (
	"context"
	"time"

	"carservice/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// BookingFilter narrows booking listings. Zero values mean "any".
type BookingFilter struct {
	CustomerID      uuid.UUID
	AssignedStaffID uuid.UUID
	Statuses        []model.BookingStatus
}

type BookingRepository interface {
	Create(ctx context.Context, booking *model.Booking) error
	Update(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error)
	List(ctx context.Context, filter BookingFilter, page, limit int) ([]model.Booking, int64, error)
	Upcoming(ctx context.Context, filter BookingFilter, limit int) ([]model.Booking, error)
	Recent(ctx context.Context, filter BookingFilter, limit int) ([]model.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)
	// CompletedCreatedBetween returns COMPLETED bookings created in [start, end) with Service and Feedback loaded
	CompletedCreatedBetween(ctx context.Context, start, end time.Time) ([]model.Booking, error)
	CreateFeedback(ctx context.Context, feedback *model.Feedback) error
	CountFeedbackByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error)
}

type bookingRepository struct {
	db *gorm.DB
}

func NewBookingRepository(db *gorm.DB) BookingRepository {
	return &bookingRepository{db: db}
}

func (r *bookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Create(booking).Error
}

func (r *bookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	return GetDB(ctx, r.db).Omit(clause.Associations).Save(booking).Error
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := r.withDetails(GetDB(ctx, r.db)).First(&booking, "bookings.id = ?", id).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

// FindByIDForUpdate locks the booking row until the surrounding transaction ends
func (r *bookingRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.Booking, error) {
	var booking model.Booking
	if err := GetDB(ctx, r.db).Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("id = ?", id).First(&booking).Error; err != nil {
		return nil, err
	}
	return &booking, nil
}

func (r *bookingRepository) List(ctx context.Context, filter BookingFilter, page, limit int) ([]model.Booking, int64, error) {
	var bookings []model.Booking
	var total int64

	db := applyBookingFilter(GetDB(ctx, r.db).Model(&model.Booking{}), filter)
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := r.withDetails(db).
		Order("scheduled_date DESC").
		Offset(offset).Limit(limit).
		Find(&bookings).Error; err != nil {
		return nil, 0, err
	}
	return bookings, total, nil
}

func (r *bookingRepository) Upcoming(ctx context.Context, filter BookingFilter, limit int) ([]model.Booking, error) {
	var bookings []model.Booking
	db := applyBookingFilter(GetDB(ctx, r.db), filter)
	if err := r.withDetails(db).Order("scheduled_date ASC").Limit(limit).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Recent(ctx context.Context, filter BookingFilter, limit int) ([]model.Booking, error) {
	var bookings []model.Booking
	db := applyBookingFilter(GetDB(ctx, r.db), filter)
	if err := r.withDetails(db).Order("created_at DESC").Limit(limit).Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) Count(ctx context.Context, filter BookingFilter) (int64, error) {
	var total int64
	err := applyBookingFilter(GetDB(ctx, r.db).Model(&model.Booking{}), filter).Count(&total).Error
	return total, err
}

func (r *bookingRepository) CompletedCreatedBetween(ctx context.Context, start, end time.Time) ([]model.Booking, error) {
	var bookings []model.Booking
	if err := GetDB(ctx, r.db).
		Preload("Service").
		Preload("Feedback").
		Where("status = ? AND created_at >= ? AND created_at < ?", model.BookingStatusCompleted, start, end).
		Order("created_at").
		Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *bookingRepository) CreateFeedback(ctx context.Context, feedback *model.Feedback) error {
	return GetDB(ctx, r.db).Create(feedback).Error
}

func (r *bookingRepository) CountFeedbackByCustomer(ctx context.Context, customerID uuid.UUID) (int64, error) {
	var total int64
	err := GetDB(ctx, r.db).Model(&model.Feedback{}).
		Joins("JOIN bookings ON bookings.id = feedback.booking_id").
		Where("bookings.customer_id = ?", customerID).
		Count(&total).Error
	return total, err
}

func (r *bookingRepository) withDetails(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Customer").
		Preload("Vehicle").
		Preload("Service").
		Preload("AssignedStaff").
		Preload("Feedback")
}

func applyBookingFilter(db *gorm.DB, filter BookingFilter) *gorm.DB {
	if filter.CustomerID != uuid.Nil {
		db = db.Where("customer_id = ?", filter.CustomerID)
	}
	if filter.AssignedStaffID != uuid.Nil {
		db = db.Where("assigned_staff_id = ?", filter.AssignedStaffID)
	}
	if len(filter.Statuses) > 0 {
		db = db.Where("status IN ?", filter.Statuses)
	}
	return db
}
