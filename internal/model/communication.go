package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	MessageTypeEmail = "EMAIL"
	MessageTypeSMS   = "SMS"
)

const (
	DeliveryStatusSent   = "SENT"
	DeliveryStatusFailed = "FAILED"
)

// NotificationTemplate is a named subject/body pair with {placeholder} markers
type NotificationTemplate struct {
	ID        uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name      string    `gorm:"type:varchar(100);uniqueIndex;not null" json:"name"`
	Subject   string    `gorm:"type:varchar(200);not null" json:"subject"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	IsActive  bool      `gorm:"not null" json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CommunicationLog records one delivery attempt, whatever its outcome
type CommunicationLog struct {
	ID          uuid.UUID             `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	RecipientID uuid.UUID             `gorm:"type:uuid;not null;index" json:"recipient_id"`
	Recipient   *User                 `gorm:"foreignKey:RecipientID;constraint:OnDelete:CASCADE" json:"recipient,omitempty"`
	BookingID   *uuid.UUID            `gorm:"type:uuid;index" json:"booking_id"`
	Booking     *Booking              `gorm:"foreignKey:BookingID;constraint:OnDelete:SET NULL" json:"-"`
	TemplateID  *uuid.UUID            `gorm:"type:uuid" json:"template_id"`
	Template    *NotificationTemplate `gorm:"foreignKey:TemplateID;constraint:OnDelete:SET NULL" json:"-"`
	MessageType string                `gorm:"type:varchar(20);not null" json:"message_type"` // EMAIL, SMS
	Subject     string                `gorm:"type:varchar(200)" json:"subject"`
	Message     string                `gorm:"type:text;not null" json:"message"`
	Status      string                `gorm:"type:varchar(20);not null;index" json:"status"` // SENT, FAILED
	SentAt      time.Time             `gorm:"not null;index" json:"sent_at"`
}
