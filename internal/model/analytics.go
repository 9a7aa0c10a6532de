package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RevenueReport is the monthly roll-up of completed bookings. One row per month.
type RevenueReport struct {
	ID            uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Month         time.Time       `gorm:"type:date;uniqueIndex;not null" json:"month"` // First day of the month
	TotalRevenue  decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_revenue"`
	TotalBookings int             `gorm:"type:int;not null" json:"total_bookings"`
	AverageRating float64         `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

// StaffPerformance is the monthly roll-up for one staff member. One row per (staff, month).
type StaffPerformance struct {
	ID                uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	StaffID           uuid.UUID       `gorm:"type:uuid;not null;uniqueIndex:idx_staff_month" json:"staff_id"`
	Staff             *User           `gorm:"foreignKey:StaffID;constraint:OnDelete:CASCADE" json:"staff,omitempty"`
	Month             time.Time       `gorm:"type:date;not null;uniqueIndex:idx_staff_month" json:"month"`
	CompletedBookings int             `gorm:"type:int;not null" json:"completed_bookings"`
	TotalRevenue      decimal.Decimal `gorm:"type:decimal(12,2);not null" json:"total_revenue"`
	AverageRating     float64         `gorm:"not null;default:0" json:"average_rating"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}
