package model

import (
	"time"

	"github.com/google/uuid"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusPending    BookingStatus = "PENDING"
	BookingStatusInProgress BookingStatus = "IN_PROGRESS"
	BookingStatusCompleted  BookingStatus = "COMPLETED"
	BookingStatusCancelled  BookingStatus = "CANCELLED"
)

var bookingTransitions = map[BookingStatus][]BookingStatus{
	BookingStatusPending:    {BookingStatusInProgress, BookingStatusCancelled},
	BookingStatusInProgress: {BookingStatusCompleted, BookingStatusCancelled},
}

// Valid reports whether s is a known status
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether a booking in status s may move to next.
// COMPLETED and CANCELLED are terminal.
func (s BookingStatus) CanTransitionTo(next BookingStatus) bool {
	for _, allowed := range bookingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Booking links a customer, one of their vehicles and a catalog service at a scheduled time
type Booking struct {
	ID                uuid.UUID     `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	CustomerID        uuid.UUID     `gorm:"type:uuid;not null;index" json:"customer_id"`
	Customer          *User         `gorm:"foreignKey:CustomerID;constraint:OnDelete:CASCADE" json:"customer,omitempty"`
	VehicleID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"vehicle_id"`
	Vehicle           *Vehicle      `gorm:"foreignKey:VehicleID;constraint:OnDelete:CASCADE" json:"vehicle,omitempty"`
	ServiceID         uuid.UUID     `gorm:"type:uuid;not null;index" json:"service_id"`
	Service           *Service      `gorm:"foreignKey:ServiceID;constraint:OnDelete:RESTRICT" json:"service,omitempty"`
	ScheduledDate     time.Time     `gorm:"not null;index" json:"scheduled_date"`
	Status            BookingStatus `gorm:"type:varchar(20);not null;default:'PENDING';index" json:"status"`
	AssignedStaffID   *uuid.UUID    `gorm:"type:uuid;index" json:"assigned_staff_id"`
	AssignedStaff     *User         `gorm:"foreignKey:AssignedStaffID;constraint:OnDelete:SET NULL" json:"assigned_staff,omitempty"`
	Notes             string        `gorm:"type:text" json:"notes"`
	FeedbackSubmitted bool          `gorm:"not null;default:false" json:"feedback_submitted"`
	Feedback          *Feedback     `gorm:"foreignKey:BookingID" json:"feedback,omitempty"`
	CreatedAt         time.Time     `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time     `json:"updated_at"`
}

const (
	MinRating = 1
	MaxRating = 5
)

// Feedback is the single rating a customer leaves on a completed booking
type Feedback struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	BookingID uuid.UUID `gorm:"type:uuid;uniqueIndex;not null" json:"booking_id"`
	Rating    int       `gorm:"type:int;not null;check:rating >= 1 AND rating <= 5" json:"rating"`
	Comments  string    `gorm:"type:text" json:"comments"`
	CreatedAt time.Time `json:"created_at"`
}

// TableName keeps the singular table name
func (Feedback) TableName() string { return "feedback" }
