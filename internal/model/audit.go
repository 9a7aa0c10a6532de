package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	ActionAssignStaff       = "ASSIGN_STAFF"
	ActionUpdateStatus      = "UPDATE_BOOKING_STATUS"
	ActionCreateService     = "CREATE_SERVICE"
	ActionUpdateService     = "UPDATE_SERVICE"
	ActionDeleteService     = "DELETE_SERVICE"
	ActionGenerateReport    = "GENERATE_REPORT"
	ActionSendBroadcast     = "SEND_BROADCAST"
	ActionCreateTemplate    = "CREATE_TEMPLATE"
	ActionUpdateTemplate    = "UPDATE_TEMPLATE"
	ActionCreateUserAccount = "CREATE_USER"
)

// AuditLog tracks Who, What, and When for administrative changes
type AuditLog struct {
	ID         uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID     *uuid.UUID `gorm:"type:uuid;index" json:"user_id"` // Nullable for automated actions
	User       *User      `gorm:"foreignKey:UserID" json:"user"`
	Action     string     `gorm:"type:varchar(50);not null;index" json:"action"`
	EntityID   string     `gorm:"type:varchar(50);index" json:"entity_id"`
	EntityName string     `gorm:"type:varchar(255)" json:"entity_name,omitempty"`
	Details    string     `gorm:"type:jsonb" json:"details"` // Serialized JSON payload of the action
	CreatedAt  time.Time  `gorm:"index" json:"created_at"`
}
