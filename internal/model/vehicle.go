package model

import (
	"time"

	"github.com/google/uuid"
)

// VINLength is the fixed length of a Vehicle Identification Number
const VINLength = 17

// Vehicle is a customer-owned car registered for service
type Vehicle struct {
	ID           uuid.UUID `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	OwnerID      uuid.UUID `gorm:"type:uuid;not null;index" json:"owner_id"`
	Owner        *User     `gorm:"foreignKey:OwnerID;constraint:OnDelete:CASCADE" json:"-"`
	Make         string    `gorm:"type:varchar(50);not null" json:"make"`
	Model        string    `gorm:"type:varchar(50);not null" json:"model"`
	Year         int       `gorm:"type:int;not null" json:"year"`
	LicensePlate string    `gorm:"type:varchar(20);uniqueIndex;not null" json:"license_plate"`
	VIN          string    `gorm:"column:vin;type:varchar(17);uniqueIndex;not null" json:"vin"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}
